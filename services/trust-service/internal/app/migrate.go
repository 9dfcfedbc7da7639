package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stoik/trustlayer/services/trust-service/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Creates or upgrades the trust_reports, trust_claims and trust_audit_log tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Initialize database
		if err := db.Init(ctx, cfg.Database); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Running %s migrations...\n", cfg.Database.Driver)
		n, err := db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Applied %d migrations\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
