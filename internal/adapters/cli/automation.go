package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

const requestTimeout = 10 * time.Second

// newAutomationCommand creates the automation command with subcommands
func newAutomationCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Manage ship automations",
		Long: `Start, stop, pause and inspect per-ship automations.

Each ship runs at most one automation. Starting an automation on a ship
that already has one replaces it with a fresh run.`,
	}

	cmd.AddCommand(newAutomationStartCommand(a))
	cmd.AddCommand(newAutomationTransitionCommand(a, "stop", "Stop a ship's automation and clear its plan", DaemonAPI.StopAutomation))
	cmd.AddCommand(newAutomationTransitionCommand(a, "pause", "Pause a running automation, keeping its plan", DaemonAPI.PauseAutomation))
	cmd.AddCommand(newAutomationTransitionCommand(a, "resume", "Resume a paused automation", DaemonAPI.ResumeAutomation))
	cmd.AddCommand(newAutomationStatusCommand(a))

	return cmd
}

func newAutomationStartCommand(a *app) *cobra.Command {
	var (
		ship     string
		behavior string
		options  []string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an automation on a ship",
		Long: `Start a mining, trading, contract or idle automation on a ship.

Policy options override the behavior defaults:
  mining:   autoSellWhenFull minFuelPercent maxCargoPercent maxCredits
            stopOnMaxCargo stopOnLowFuel asteroidWaypoint
  trading:  maxBuyPriceDeviationPercent minProfitMarginPercent
            reserveCredits maxDistance
  contract: autoAccept maxDeadlineDays minRewardCredits

Examples:
  spacetraders automation start --ship AGENT-1 --behavior mining
  spacetraders automation start --ship AGENT-1 --behavior mining --set minFuelPercent=25 --set stopOnMaxCargo=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			shipSymbol, err := a.resolveShip(ship)
			if err != nil {
				return err
			}
			kind, err := automation.ParseBehaviorKind(behavior)
			if err != nil {
				return err
			}
			overrides, err := parseOverrides(options)
			if err != nil {
				return err
			}

			return a.withDaemon(func(client DaemonAPI) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
				defer cancel()

				state, err := client.StartAutomation(ctx, shipSymbol, kind, overrides)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "✓ Started %s automation on %s\n", state.Behavior, state.ShipSymbol)
				fmt.Fprintf(out, "  Run ID: %s\n", state.RunID)
				if a.verbose {
					printPolicy(out, state.Policy)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ship, "ship", "", "Ship symbol (default: user config default ship)")
	cmd.Flags().StringVar(&behavior, "behavior", "", "Behavior: mining, trading, contract or idle")
	cmd.Flags().StringArrayVar(&options, "set", nil, "Policy option as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("behavior")

	return cmd
}

func newAutomationTransitionCommand(a *app, verb, short string, call func(DaemonAPI, context.Context, string) error) *cobra.Command {
	var ship string

	cmd := &cobra.Command{
		Use:   verb,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			shipSymbol, err := a.resolveShip(ship)
			if err != nil {
				return err
			}

			return a.withDaemon(func(client DaemonAPI) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
				defer cancel()

				if err := call(client, ctx, shipSymbol); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s requested for %s\n", verb, shipSymbol)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ship, "ship", "", "Ship symbol (default: user config default ship)")
	return cmd
}

func newAutomationStatusCommand(a *app) *cobra.Command {
	var (
		ship   string
		status string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show automation status",
		Long: `Show one ship's automation with its pending plan, or list every automation.

Examples:
  spacetraders automation status
  spacetraders automation status --status paused
  spacetraders automation status --ship AGENT-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDaemon(func(client DaemonAPI) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
				defer cancel()

				out := cmd.OutOrStdout()
				if ship != "" {
					state, queue, err := client.GetAutomation(ctx, ship)
					if err != nil {
						return err
					}
					printDetail(out, state, queue, a.verbose)
					return nil
				}

				states, err := client.ListAutomations(ctx, automation.RunStatus(status))
				if err != nil {
					return err
				}
				printTable(out, states)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ship, "ship", "", "Show a single ship in detail")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: running, paused, stopped or error")
	return cmd
}

func printTable(out io.Writer, states []automation.State) {
	if len(states) == 0 {
		fmt.Fprintln(out, "No automations found")
		return
	}

	fmt.Fprintf(out, "%-16s %-10s %-8s %5s  %-19s %s\n", "SHIP", "BEHAVIOR", "STATUS", "PROG", "LAST ACTION", "TASK")
	fmt.Fprintln(out, "────────────────────────────────────────────────────────────────────────────────")
	for _, s := range states {
		task := s.CurrentTask
		if s.Status == automation.RunStatusError && s.ErrorMessage != "" {
			task = s.ErrorMessage
		}
		fmt.Fprintf(out, "%-16s %-10s %-8s %4d%%  %-19s %s\n",
			s.ShipSymbol, s.Behavior, s.Status, s.ProgressPercent, formatTimestamp(s.LastActionAt), truncate(task, 40))
	}
	fmt.Fprintf(out, "\nTotal: %d automation(s)\n", len(states))
}

func printDetail(out io.Writer, state *automation.State, queue []automation.ActionStep, verbose bool) {
	fmt.Fprintf(out, "Ship:         %s\n", state.ShipSymbol)
	fmt.Fprintf(out, "Behavior:     %s\n", state.Behavior)
	fmt.Fprintf(out, "Status:       %s\n", state.Status)
	fmt.Fprintf(out, "Task:         %s\n", state.CurrentTask)
	fmt.Fprintf(out, "Progress:     %d%%\n", state.ProgressPercent)
	fmt.Fprintf(out, "Last action:  %s\n", formatTimestamp(state.LastActionAt))
	fmt.Fprintf(out, "Started:      %s\n", formatTimestamp(&state.StartedAt))
	if state.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:        %s\n", state.ErrorMessage)
	}

	fmt.Fprintf(out, "\nPlan (%d step(s)):\n", len(queue))
	for i, step := range queue {
		fmt.Fprintf(out, "  %d. %-20s retries %d/%d\n", i+1, step.String(), step.RetryCount(), step.MaxRetries())
	}

	if verbose {
		printPolicy(out, state.Policy)
	}
}

func printPolicy(out io.Writer, policy automation.Policy) {
	data, err := json.MarshalIndent(policy, "  ", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(out, "\nPolicy:\n  %s\n", data)
}
