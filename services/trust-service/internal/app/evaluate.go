package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/services/trust-service/internal/db"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a single email",
	Long:  "Reads a stored email as JSON and prints its trust report. Use --file - to read from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("file")
		persist, _ := cmd.Flags().GetBool("persist")

		email, err := readEmail(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		if persist {
			if err := db.Init(ctx, cfg.Database); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()
		}

		generator, closeDeps := newGenerator(cfg, db.Repo, slog.Default())
		defer closeDeps()

		vc := models.ContextFromEmail(*email)
		var report *models.TrustReport
		if persist {
			report, err = generator.GenerateReport(ctx, vc)
		} else {
			report, err = generator.Evaluate(ctx, vc)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func readEmail(path string, stdin io.Reader) (*models.StoredEmail, error) {
	var r io.Reader
	switch path {
	case "":
		return nil, fmt.Errorf("--file is required")
	case "-":
		r = stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open email file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var email models.StoredEmail
	if err := json.NewDecoder(r).Decode(&email); err != nil {
		return nil, fmt.Errorf("failed to decode email: %w", err)
	}
	if email.From == "" {
		return nil, fmt.Errorf("email has no sender (from)")
	}
	return &email, nil
}

func init() {
	evaluateCmd.Flags().StringP("file", "f", "", "Path to a stored email JSON file, or - for stdin")
	evaluateCmd.Flags().Bool("persist", false, "Save the report to the configured database")
	rootCmd.AddCommand(evaluateCmd)
}
