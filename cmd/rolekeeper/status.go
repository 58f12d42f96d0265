package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/rolekeeper/internal/adapters/fs"
	"github.com/bft-labs/rolekeeper/internal/cliconfig"
	"github.com/bft-labs/rolekeeper/internal/domain"
)

func newStatusCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the last known role of every device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg); err != nil {
				return err
			}
			dir := cfg.StateDir
			if dir == "" {
				dir = cliconfig.DefaultStateDir()
			}

			status, err := fs.NewStatusFileRepository(dir).Load(context.Background())
			if err != nil {
				return fmt.Errorf("load status: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			return printStatus(cmd.OutOrStdout(), status)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func printStatus(w io.Writer, status domain.Status) error {
	devices := status.Sorted()
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "no devices")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tROLE\tCONNECTED\tENDPOINT\tUPDATED\tREASON")
	for _, ds := range devices {
		updated := "-"
		if !ds.UpdatedAt.IsZero() {
			updated = ds.UpdatedAt.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
			ds.ID, ds.Role, ds.Connected, ds.Endpoint, updated, ds.Reason)
	}
	return tw.Flush()
}
