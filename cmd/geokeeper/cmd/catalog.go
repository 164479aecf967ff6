package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/geokeeper/internal/refcat"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the reference catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import CRS and operation definitions from a YAML file",
	Long: `Import validates the whole file first, then upserts every record in one
transaction. Existing codes are updated in place and keep their catalog position.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, err := refcat.LoadFile(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, queries, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		stats, err := refcat.NewStore(queries, logger).Import(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d CRS definition(s) and %d operation(s)\n", stats.CRS, stats.Operations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd)
}
