package app

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stoik/trustlayer/internal/scoring"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List registered verifier plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		resolver, closeResolver := newResolver(cfg, slog.Default())
		defer closeResolver()
		reg := newRegistry(cfg, resolver, slog.Default())
		health := reg.Healthcheck(context.Background())

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSION\tENABLED\tHEALTHY\tDESCRIPTION")
		for _, p := range reg.List() {
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n", p.Name, p.Version, p.Enabled, health[p.Name], p.Description)
		}
		return w.Flush()
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the scoring rule catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := scoring.NewEngine()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Ruleset %s (start %d, bounds %d..%d)\n\n", engine.RulesetVersion(), scoring.StartScore, scoring.MinScore, scoring.MaxScore)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RULE\tSEVERITY\tPOINTS\tDESCRIPTION")
		for _, r := range engine.Rules() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.ID, r.Severity, r.PointsDelta, r.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out)
		for _, b := range scoring.Bands() {
			fmt.Fprintf(out, "%-10s %3d..%d\n", b.Level, b.Min, b.Max)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(rulesCmd)
}
