package cli

import (
	"context"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

// DaemonAPI is the daemon control surface the CLI depends on
type DaemonAPI interface {
	StartAutomation(ctx context.Context, shipSymbol string, behavior automation.BehaviorKind, overrides map[string]interface{}) (*automation.State, error)
	StopAutomation(ctx context.Context, shipSymbol string) error
	PauseAutomation(ctx context.Context, shipSymbol string) error
	ResumeAutomation(ctx context.Context, shipSymbol string) error
	GetAutomation(ctx context.Context, shipSymbol string) (*automation.State, []automation.ActionStep, error)
	ListAutomations(ctx context.Context, status automation.RunStatus) ([]automation.State, error)
	SyncCatalog(ctx context.Context, systemSymbol string) (int, error)
	Close() error
}

// withDaemon connects, runs fn and closes the connection
func (a *app) withDaemon(fn func(DaemonAPI) error) error {
	client, err := a.dial(a.socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}
