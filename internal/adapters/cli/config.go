package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/spacetraders-autopilot/internal/infrastructure/config"
)

// newConfigCommand creates the config command with subcommands
func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage SpaceTraders autopilot configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (ST_* prefix)
2. Config file (config.yaml)
3. Default values

User preferences (default ship) are stored in ~/.spacetraders/autopilot.json

Examples:
  spacetraders config show
  spacetraders config set-ship AGENT-1
  spacetraders config clear-ship`,
	}

	cmd.AddCommand(newConfigShowCommand(a))
	cmd.AddCommand(newConfigSetShipCommand(a))
	cmd.AddCommand(newConfigClearShipCommand(a))

	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				fmt.Fprintf(out, "Warning: Failed to load config: %v\n", err)
				fmt.Fprintln(out, "Using default configuration.")
				cfg = config.LoadConfigOrDefault("")
			}

			handler, err := a.userConfig()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			userCfg, err := handler.Load()
			if err != nil {
				fmt.Fprintf(out, "Warning: Failed to load user config: %v\n\n", err)
				userCfg = &config.UserConfig{}
			}

			fmt.Fprintln(out, "SpaceTraders Autopilot Configuration")
			fmt.Fprintln(out, "====================================")

			fmt.Fprintln(out, "User Preferences:")
			fmt.Fprintf(out, "  Config file:      %s\n", handler.GetConfigPath())
			if userCfg.DefaultShip != "" {
				fmt.Fprintf(out, "  Default Ship:     %s\n", userCfg.DefaultShip)
			} else {
				fmt.Fprintln(out, "  Default Ship:     (not set)")
			}

			fmt.Fprintln(out, "\nState Store:")
			fmt.Fprintf(out, "  Type:             %s\n", cfg.Database.Type)
			if cfg.Database.Type == "postgres" {
				if cfg.Database.URL != "" {
					fmt.Fprintf(out, "  URL:              %s\n", maskPassword(cfg.Database.URL))
				} else {
					fmt.Fprintf(out, "  Host:             %s:%d\n", cfg.Database.Host, cfg.Database.Port)
					fmt.Fprintf(out, "  Database:         %s\n", cfg.Database.Name)
				}
			} else {
				fmt.Fprintf(out, "  Path:             %s\n", cfg.Database.Path)
			}

			fmt.Fprintln(out, "\nSpaceTraders API:")
			fmt.Fprintf(out, "  Base URL:         %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "  Token:            %s\n", maskToken(cfg.API.Token))
			fmt.Fprintf(out, "  Rate Limit:       %d req/s (burst: %d)\n", cfg.API.RateLimit.Requests, cfg.API.RateLimit.Burst)
			fmt.Fprintf(out, "  Max Retries:      %d\n", cfg.API.Retry.MaxAttempts)

			fmt.Fprintln(out, "\nAutomation:")
			fmt.Fprintf(out, "  Tick Interval:    %s\n", cfg.Automation.TickInterval)
			fmt.Fprintf(out, "  Step Retries:     %d\n", cfg.Automation.MaxRetries)
			fmt.Fprintf(out, "  Cooldown Skip:    %t\n", cfg.Automation.EarlyExit())

			fmt.Fprintln(out, "\nDaemon:")
			fmt.Fprintf(out, "  Socket Path:      %s\n", cfg.Daemon.SocketPath)

			fmt.Fprintln(out, "\nLogging:")
			fmt.Fprintf(out, "  Level:            %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "  Format:           %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "  Output:           %s\n", cfg.Logging.Output)

			return nil
		},
	}
}

func newConfigSetShipCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-ship <SHIP>",
		Short: "Set the default ship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := a.userConfig()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := handler.SetDefaultShip(args[0]); err != nil {
				return fmt.Errorf("failed to set default ship: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Default ship set to %s\n", args[0])
			return nil
		},
	}
}

func newConfigClearShipCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-ship",
		Short: "Clear the default ship",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := a.userConfig()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := handler.SetDefaultShip(""); err != nil {
				return fmt.Errorf("failed to clear default ship: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Default ship cleared")
			return nil
		},
	}
}

// maskPassword hides the password of a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// maskToken shows only the last four characters of a token
func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
