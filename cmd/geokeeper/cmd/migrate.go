package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/geokeeper/internal/core/config"
	"github.com/solatis/geokeeper/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage reference catalog schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url := databaseURL(cfg)
		database, err := db.Open(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to open database %s: %w", config.RedactURL(url), err)
		}
		defer database.Close()

		n, err := db.MigrateUp(ctx, database, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url := databaseURL(cfg)
		database, err := db.Open(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to open database %s: %w", config.RedactURL(url), err)
		}
		defer database.Close()

		status, err := db.MigrateStatus(ctx, database)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tAPPLIED\tAT\tMS")
		for _, s := range status {
			at := "-"
			if s.AppliedAt != nil {
				at = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%t\t%s\t%d\n", s.ID, s.Applied, at, s.ExecutionMs)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}
