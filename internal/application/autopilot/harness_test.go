package autopilot_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/autopilot"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
	"github.com/andrescamacho/spacetraders-autopilot/test/helpers"
)

const (
	asteroid = "X1-TEST-AST"
	market   = "X1-TEST-MKT"
	outpost  = "X1-TEST-OUT"
)

type harness struct {
	clock   *shared.MockClock
	gateway *helpers.MockGateway
	hooks   *hookGateway
	world   *helpers.StaticWorld
	repo    *helpers.MemoryStateRepository
	catalog automation.WorldCatalog
	surveys *autopilot.SurveyCache
	logs    *captureLogger
	metrics *recordingMetrics
	orch    *autopilot.Orchestrator
}

// newHarness wires a manually ticked orchestrator over a three-waypoint system:
// an asteroid at the origin, a market buying iron ore and an outpost far away.
func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithConfig(t, autopilot.Config{MaxRetries: 3, CooldownEarlyExit: true, ManualTick: true})
}

func newHarnessWithConfig(t *testing.T, cfg autopilot.Config) *harness {
	t.Helper()

	clock := shared.NewMockClock(helpers.Epoch)
	world := helpers.NewStaticWorld()
	world.AddWaypoint(helpers.NewWaypoint(asteroid, shared.WaypointTypeAsteroid, 0, 0))
	world.AddWaypoint(helpers.NewWaypoint(market, "PLANET", 30, 40, shared.TraitMarketplace))
	world.AddWaypoint(helpers.NewWaypoint(outpost, "MOON", 500, 0))
	world.SetMarketPrice(market, "IRON_ORE", 20)

	gateway := helpers.NewMockGateway(clock)
	h := &harness{
		clock:   clock,
		gateway: gateway,
		hooks:   &hookGateway{MockGateway: gateway},
		world:   world,
		repo:    helpers.NewMemoryStateRepository(),
		catalog: helpers.NewMemoryCatalog(world),
		surveys: autopilot.NewSurveyCache(clock),
		logs:    &captureLogger{},
		metrics: newRecordingMetrics(),
	}

	runs := 0
	orch, err := autopilot.NewOrchestrator(autopilot.Dependencies{
		Gateway:    h.hooks,
		Repository: h.repo,
		Catalog:    h.catalog,
		Clock:      clock,
		Logger:     h.logs,
		Metrics:    h.metrics,
		Surveys:    h.surveys,
		NewRunID: func(string, automation.BehaviorKind) string {
			runs++
			return fmt.Sprintf("run-%d", runs)
		},
	}, cfg)
	require.NoError(t, err)
	h.orch = orch
	return h
}

func (h *harness) start(t *testing.T, ship string, kind automation.BehaviorKind, overrides map[string]interface{}) *automation.State {
	t.Helper()
	state, err := h.orch.Start(context.Background(), ship, kind, overrides)
	require.NoError(t, err)
	return state
}

func (h *harness) tick(times int) {
	for i := 0; i < times; i++ {
		h.orch.Tick(context.Background())
	}
}

func (h *harness) state(t *testing.T, ship string) *automation.State {
	t.Helper()
	state, ok := h.orch.Get(ship)
	require.True(t, ok, "no automation for %s", ship)
	return state
}

func (h *harness) queue(ship string) []string {
	steps, _ := h.orch.Queue(ship)
	return describeSteps(steps)
}

func describeSteps(steps []automation.ActionStep) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.String())
	}
	return out
}

type logEntry struct {
	level    string
	message  string
	metadata map[string]interface{}
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) Log(level, message string, metadata map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, message: message, metadata: metadata})
}

func (l *captureLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.message)
		}
	}
	return out
}

// hookGateway runs test callbacks before delegating to the mock
type hookGateway struct {
	*helpers.MockGateway
	beforeGetShip func()
	afterGetShip  func(ship *automation.ShipSnapshot)
	beforeExtract func()
}

func (g *hookGateway) GetShip(ctx context.Context, shipSymbol string) (*automation.ShipSnapshot, error) {
	if g.beforeGetShip != nil {
		g.beforeGetShip()
	}
	ship, err := g.MockGateway.GetShip(ctx, shipSymbol)
	if err == nil && g.afterGetShip != nil {
		g.afterGetShip(ship)
	}
	return ship, err
}

func (g *hookGateway) Extract(ctx context.Context, shipSymbol string, survey *automation.Survey) (*automation.ExtractionResult, error) {
	if g.beforeExtract != nil {
		g.beforeExtract()
	}
	return g.MockGateway.Extract(ctx, shipSymbol, survey)
}

type recordingMetrics struct {
	mu       sync.Mutex
	ticks    []int
	steps    map[string]int
	plans    map[automation.BehaviorKind]int
	statuses int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		steps: make(map[string]int),
		plans: make(map[automation.BehaviorKind]int),
	}
}

func (m *recordingMetrics) RecordTick(_ time.Duration, ships int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, ships)
}

func (m *recordingMetrics) RecordStep(action automation.ActionType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[string(action)+"/"+outcome]++
}

func (m *recordingMetrics) RecordPlan(behavior automation.BehaviorKind, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[behavior]++
}

func (m *recordingMetrics) RecordStatus([]automation.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses++
}

func (m *recordingMetrics) step(action automation.ActionType, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[string(action)+"/"+outcome]
}
