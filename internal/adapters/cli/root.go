package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	daemongrpc "github.com/andrescamacho/spacetraders-autopilot/internal/adapters/grpc"
	"github.com/andrescamacho/spacetraders-autopilot/internal/infrastructure/config"
)

// app carries the global flags and the collaborators shared by subcommands
type app struct {
	socketPath string
	configPath string
	verbose    bool

	dial       func(socketPath string) (DaemonAPI, error)
	userConfig func() (*config.UserConfigHandler, error)
}

func defaultApp() *app {
	return &app{
		dial: func(socketPath string) (DaemonAPI, error) {
			client, err := daemongrpc.NewDaemonClient(socketPath)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		userConfig: config.NewUserConfigHandler,
	}
}

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultApp())
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spacetraders",
		Short: "SpaceTraders autopilot CLI - Control ship automations",
		Long: `SpaceTraders autopilot CLI controls per-ship automations running in the daemon.
The CLI communicates with the daemon via Unix socket.

Examples:
  spacetraders automation start --ship AGENT-1 --behavior mining
  spacetraders automation start --ship AGENT-1 --behavior trading --set minProfitMarginPercent=15
  spacetraders automation pause --ship AGENT-1
  spacetraders automation status
  spacetraders catalog sync --system X1-GZ7
  spacetraders config set-ship AGENT-1`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.socketPath, "socket", getDefaultSocketPath(),
		"Path to daemon Unix socket")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Path to config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Enable verbose output")

	// Add command groups
	rootCmd.AddCommand(newAutomationCommand(a))
	rootCmd.AddCommand(newCatalogCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))

	return rootCmd
}

// getDefaultSocketPath returns the default socket path
func getDefaultSocketPath() string {
	if path := os.Getenv("SPACETRADERS_SOCKET"); path != "" {
		return path
	}
	return config.DefaultSocketPath
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
