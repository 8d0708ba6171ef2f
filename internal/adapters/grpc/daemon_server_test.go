package grpc_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	daemongrpc "github.com/andrescamacho/spacetraders-autopilot/internal/adapters/grpc"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAutomations struct {
	mu     sync.Mutex
	states map[string]*automation.State
	queues map[string][]automation.ActionStep
	calls  []string
}

func newFakeAutomations() *fakeAutomations {
	return &fakeAutomations{
		states: make(map[string]*automation.State),
		queues: make(map[string][]automation.ActionStep),
	}
}

func (f *fakeAutomations) Start(ctx context.Context, shipSymbol string, kind automation.BehaviorKind, overrides map[string]interface{}) (*automation.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if shipSymbol == "" {
		return nil, shared.NewValidationError("shipSymbol", "cannot be empty")
	}
	policy := automation.DefaultPolicy(kind)
	if v, ok := overrides["minFuelPercent"]; ok && policy.Mining != nil {
		policy.Mining.MinFuelPercent = int(v.(float64))
	}
	state := automation.NewState(shipSymbol, "run-1", kind, policy, epoch)
	f.states[shipSymbol] = state
	f.calls = append(f.calls, "start "+shipSymbol)
	return state.Clone(), nil
}

func (f *fakeAutomations) Stop(ctx context.Context, shipSymbol string) error {
	return f.record("stop", shipSymbol, func(s *automation.State) { s.Stop(epoch) })
}

func (f *fakeAutomations) Pause(ctx context.Context, shipSymbol string) error {
	return f.record("pause", shipSymbol, func(s *automation.State) { s.Pause(epoch, "paused by operator") })
}

func (f *fakeAutomations) Resume(ctx context.Context, shipSymbol string) error {
	return f.record("resume", shipSymbol, func(s *automation.State) { s.Resume(epoch) })
}

func (f *fakeAutomations) record(verb, shipSymbol string, fn func(*automation.State)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, verb+" "+shipSymbol)
	if state, ok := f.states[shipSymbol]; ok {
		fn(state)
	}
	return nil
}

func (f *fakeAutomations) Get(shipSymbol string) (*automation.State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[shipSymbol]
	if !ok {
		return nil, false
	}
	return state.Clone(), true
}

func (f *fakeAutomations) Queue(shipSymbol string) ([]automation.ActionStep, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	queue, ok := f.queues[shipSymbol]
	return queue, ok
}

func (f *fakeAutomations) GetAll() []automation.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	states := make([]automation.State, 0, len(f.states))
	for _, symbol := range []string{"HAULER-1", "MINER-1"} {
		if state, ok := f.states[symbol]; ok {
			states = append(states, *state.Clone())
		}
	}
	return states
}

type fakeCatalog struct {
	err error
}

func (c *fakeCatalog) Sync(ctx context.Context, systemSymbol string) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return 12, nil
}

func startServer(t *testing.T, automations daemongrpc.Automations, catalog daemongrpc.CatalogSyncer) *daemongrpc.DaemonClient {
	t.Helper()
	listener := bufconn.Listen(1 << 20)
	server := daemongrpc.NewDaemonServer(automations, catalog, nil)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	client, err := daemongrpc.NewDaemonClientWithDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStartAutomation_RoundTripsState(t *testing.T) {
	// Arrange
	client := startServer(t, newFakeAutomations(), &fakeCatalog{})

	// Act
	state, err := client.StartAutomation(context.Background(), "MINER-1", automation.BehaviorMining, map[string]interface{}{
		"minFuelPercent": 25,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "MINER-1", state.ShipSymbol)
	assert.Equal(t, automation.RunStatusRunning, state.Status)
	assert.Equal(t, automation.BehaviorMining, state.Behavior)
	require.NotNil(t, state.Policy.Mining)
	assert.Equal(t, 25, state.Policy.Mining.MinFuelPercent)
	assert.True(t, state.StartedAt.Equal(epoch))
}

func TestStartAutomation_RejectsUnknownBehavior(t *testing.T) {
	// Arrange
	client := startServer(t, newFakeAutomations(), &fakeCatalog{})

	// Act
	_, err := client.StartAutomation(context.Background(), "MINER-1", automation.BehaviorKind("piracy"), nil)

	// Assert
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(errors.Unwrap(err)))
}

func TestStartAutomation_ValidationErrorIsInvalidArgument(t *testing.T) {
	// Arrange
	client := startServer(t, newFakeAutomations(), &fakeCatalog{})

	// Act
	_, err := client.StartAutomation(context.Background(), "", automation.BehaviorMining, nil)

	// Assert
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(errors.Unwrap(err)))
}

func TestLifecycleCalls_ReachOrchestrator(t *testing.T) {
	// Arrange
	automations := newFakeAutomations()
	client := startServer(t, automations, &fakeCatalog{})
	ctx := context.Background()
	_, err := client.StartAutomation(ctx, "MINER-1", automation.BehaviorMining, nil)
	require.NoError(t, err)

	// Act
	require.NoError(t, client.PauseAutomation(ctx, "MINER-1"))
	paused, _, err := client.GetAutomation(ctx, "MINER-1")
	require.NoError(t, err)
	require.NoError(t, client.ResumeAutomation(ctx, "MINER-1"))
	require.NoError(t, client.StopAutomation(ctx, "MINER-1"))

	// Assert
	assert.Equal(t, automation.RunStatusPaused, paused.Status)
	assert.Equal(t, []string{"start MINER-1", "pause MINER-1", "resume MINER-1", "stop MINER-1"}, automations.calls)
}

func TestGetAutomation_ReturnsQueue(t *testing.T) {
	// Arrange
	automations := newFakeAutomations()
	client := startServer(t, automations, &fakeCatalog{})
	ctx := context.Background()
	_, err := client.StartAutomation(ctx, "MINER-1", automation.BehaviorMining, nil)
	require.NoError(t, err)
	step, err := automation.NewActionStep(automation.NavigatePayload{Waypoint: "X1-A-B7"}, 3)
	require.NoError(t, err)
	automations.queues["MINER-1"] = []automation.ActionStep{step}

	// Act
	_, queue, err := client.GetAutomation(ctx, "MINER-1")

	// Assert
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, automation.NavigatePayload{Waypoint: "X1-A-B7"}, queue[0].Payload())
	assert.Equal(t, 3, queue[0].MaxRetries())
}

func TestGetAutomation_UnknownShipIsNotFound(t *testing.T) {
	// Arrange
	client := startServer(t, newFakeAutomations(), &fakeCatalog{})

	// Act
	_, _, err := client.GetAutomation(context.Background(), "GHOST")

	// Assert
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(errors.Unwrap(err)))
}

func TestListAutomations_FiltersByStatus(t *testing.T) {
	// Arrange
	automations := newFakeAutomations()
	client := startServer(t, automations, &fakeCatalog{})
	ctx := context.Background()
	_, err := client.StartAutomation(ctx, "MINER-1", automation.BehaviorMining, nil)
	require.NoError(t, err)
	_, err = client.StartAutomation(ctx, "HAULER-1", automation.BehaviorTrading, nil)
	require.NoError(t, err)
	require.NoError(t, client.PauseAutomation(ctx, "MINER-1"))

	// Act
	all, err := client.ListAutomations(ctx, "")
	require.NoError(t, err)
	paused, err := client.ListAutomations(ctx, automation.RunStatusPaused)
	require.NoError(t, err)

	// Assert
	require.Len(t, all, 2)
	assert.Equal(t, "HAULER-1", all[0].ShipSymbol)
	require.Len(t, paused, 1)
	assert.Equal(t, "MINER-1", paused[0].ShipSymbol)
}

func TestSyncCatalog(t *testing.T) {
	t.Run("returns waypoint count", func(t *testing.T) {
		client := startServer(t, newFakeAutomations(), &fakeCatalog{})

		count, err := client.SyncCatalog(context.Background(), "X1-A")

		require.NoError(t, err)
		assert.Equal(t, 12, count)
	})

	t.Run("transient failure is unavailable", func(t *testing.T) {
		client := startServer(t, newFakeAutomations(), &fakeCatalog{err: shared.NewTransientError(errors.New("502"))})

		_, err := client.SyncCatalog(context.Background(), "X1-A")

		require.Error(t, err)
		assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))
	})
}
