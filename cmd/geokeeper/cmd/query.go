package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/geokeeper/internal/core/api"
	"github.com/solatis/geokeeper/internal/types"
)

// One-shot commands run the service in process against the local catalog.

var pathsCmd = &cobra.Command{
	Use:   "paths <source> <target>",
	Short: "List the transformation paths between two CRSs, most accurate first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.db.Close()

		resp, err := a.service.Paths(ctx, &api.PathsRequest{SourceCRS: args[0], TargetCRS: args[1]})
		if err != nil {
			return err
		}
		if len(resp.Paths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no transformation path available")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tACCURACY\tDESCRIPTION")
		for _, p := range resp.Paths {
			acc := "unknown"
			if p.Accuracy != nil {
				acc = strconv.FormatFloat(*p.Accuracy, 'g', -1, 64) + " " + p.AccuracyUnit
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", p.PathID, acc, p.Description)
		}
		return w.Flush()
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform <source> <target> <x> <y>",
	Short: "Transform one position, optionally through intermediate CRSs",
	Long: `Transform one position from source to target. With --via the position is
carried through each intermediate CRS in turn. Put -- before the positional
arguments when a coordinate is negative.`,
	Example: `  geokeeper transform EPSG:27700 EPSG:4326 530000 180000
  geokeeper transform --via EPSG:4258 -- EPSG:4277 EPSG:4326 -0.1275 51.5072`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		pos, err := parsePosition(cmd, args[2], args[3])
		if err != nil {
			return err
		}
		via, _ := cmd.Flags().GetStringSlice("via")
		ops, _ := cmd.Flags().GetStringSlice("ops")
		var pathID *int
		if cmd.Flags().Changed("path-id") {
			id, _ := cmd.Flags().GetInt("path-id")
			pathID = &id
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.db.Close()

		if len(via) == 0 {
			resp, err := a.service.Direct(ctx, &api.DirectRequest{
				SourceCRS: args[0], TargetCRS: args[1], Position: pos, PathID: pathID, PreferredOps: ops,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		}

		if pathID != nil || len(ops) > 0 {
			return fmt.Errorf("--path-id and --ops apply to direct transforms only")
		}
		waypoints := append(append([]string{args[0]}, via...), args[1])
		resp, err := a.service.Via(ctx, &api.ViaRequest{Waypoints: waypoints, Position: pos})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <descriptor.xml>",
	Short: "Rank reference CRSs against a legacy CRS descriptor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read descriptor: %w", err)
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.db.Close()

		resp, err := a.service.Match(ctx, &api.MatchRequest{DefinitionXML: string(data)})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd, transformCmd, matchCmd)
	transformCmd.Flags().StringSlice("via", nil, "intermediate CRSs, in order")
	transformCmd.Flags().Int("path-id", 0, "catalog entry to use")
	transformCmd.Flags().StringSlice("ops", nil, "operation method names the path must use")
	transformCmd.Flags().Float64("z", 0, "optional height")
}

func parsePosition(cmd *cobra.Command, xs, ys string) (types.Position, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return types.Position{}, fmt.Errorf("invalid x %q: %w", xs, err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return types.Position{}, fmt.Errorf("invalid y %q: %w", ys, err)
	}
	pos := types.Position{X: x, Y: y}
	if cmd.Flags().Changed("z") {
		z, _ := cmd.Flags().GetFloat64("z")
		pos.Z = &z
	}
	return pos, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
