package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newCatalogCommand creates the catalog command with subcommands
func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local waypoint and market catalog",
	}

	cmd.AddCommand(newCatalogSyncCommand(a))
	return cmd
}

func newCatalogSyncCommand(a *app) *cobra.Command {
	var system string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh waypoints and markets of a system",
		Long: `Fetch every waypoint of a system and the markets among them, replacing
the daemon's cached copy.

Example:
  spacetraders catalog sync --system X1-GZ7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDaemon(func(client DaemonAPI) error {
				// Market fetches are rate limited, so a large system takes a while
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
				defer cancel()

				count, err := client.SyncCatalog(ctx, system)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Synced %d waypoint(s) in %s\n", count, system)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "System symbol")
	_ = cmd.MarkFlagRequired("system")
	return cmd
}
