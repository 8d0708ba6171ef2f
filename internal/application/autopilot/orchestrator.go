package autopilot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/common"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
	"github.com/andrescamacho/spacetraders-autopilot/pkg/utils"
)

// Step outcomes reported to the metrics recorder
const (
	OutcomeSuccess      = "success"
	OutcomePrecondition = "precondition"
	OutcomeFailure      = "failure"
	OutcomeDropped      = "dropped"
)

// Config controls the orchestrator's cadence and retry budget
type Config struct {
	// TickInterval is the time between two passes over all running ships
	TickInterval time.Duration

	// MaxRetries is the attempt budget stamped on every planned step
	MaxRetries int

	// CooldownEarlyExit skips a ship's tick while it is on cooldown or in transit
	CooldownEarlyExit bool

	// ManualTick disables the background loop; callers drive Tick themselves
	ManualTick bool
}

func DefaultConfig() Config {
	return Config{
		TickInterval:      5 * time.Second,
		MaxRetries:        automation.DefaultMaxRetries,
		CooldownEarlyExit: true,
	}
}

// Dependencies are the collaborators of an Orchestrator.
// Gateway, Repository and Catalog are required.
type Dependencies struct {
	Gateway    automation.Gateway
	Repository automation.StateRepository
	Catalog    automation.WorldCatalog
	Clock      shared.Clock
	Logger     common.Logger
	Metrics    automation.MetricsRecorder
	Surveys    *SurveyCache
	NewRunID   func(shipSymbol string, kind automation.BehaviorKind) string
}

type shipAutomation struct {
	state *automation.State
	queue *automation.PlanQueue
}

// Orchestrator owns every ship's automation state and plan queue and drives
// them forward on a fixed tick. It is the only writer of that state; every
// mutation is followed by a full-snapshot save.
//
// Gateway calls for a ship are made without holding the lock. Their results are
// applied only if the ship's run id did not change in the meantime.
type Orchestrator struct {
	cfg       Config
	gateway   automation.Gateway
	repo      automation.StateRepository
	clock     shared.Clock
	logger    common.Logger
	metrics   automation.MetricsRecorder
	newRunID  func(shipSymbol string, kind automation.BehaviorKind) string
	executor  *Executor
	behaviors map[automation.BehaviorKind]Behavior

	mu          sync.Mutex
	ships       map[string]*shipAutomation
	loopRunning bool
	closed      bool

	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopWG     sync.WaitGroup
}

// NewOrchestrator wires an orchestrator and its behaviors
func NewOrchestrator(deps Dependencies, cfg Config) (*Orchestrator, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if deps.Repository == nil {
		return nil, fmt.Errorf("state repository is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("world catalog is required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = automation.DefaultMaxRetries
	}
	if deps.Clock == nil {
		deps.Clock = shared.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = common.NoOpLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = noOpMetrics{}
	}
	if deps.Surveys == nil {
		deps.Surveys = NewSurveyCache(deps.Clock)
	}
	if deps.NewRunID == nil {
		deps.NewRunID = func(shipSymbol string, kind automation.BehaviorKind) string {
			return utils.GenerateRunID(string(kind), shipSymbol)
		}
	}

	behaviors := map[automation.BehaviorKind]Behavior{}
	for _, b := range []Behavior{
		NewMiningBehavior(deps.Gateway, deps.Catalog, deps.Surveys, deps.Clock),
		NewTradingBehavior(deps.Catalog, deps.Clock),
		NewContractBehavior(deps.Gateway, deps.Clock),
		NewIdleBehavior(deps.Clock),
	} {
		behaviors[b.Kind()] = b
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		gateway:    deps.Gateway,
		repo:       deps.Repository,
		clock:      deps.Clock,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		newRunID:   deps.NewRunID,
		executor:   NewExecutor(deps.Gateway, deps.Surveys),
		behaviors:  behaviors,
		ships:      make(map[string]*shipAutomation),
		loopCtx:    loopCtx,
		loopCancel: loopCancel,
	}, nil
}

// Start creates or replaces the automation of a ship with a fresh running state
// and an empty queue. Overrides are merged onto the behavior's default policy.
func (o *Orchestrator) Start(ctx context.Context, shipSymbol string, kind automation.BehaviorKind, overrides map[string]interface{}) (*automation.State, error) {
	if shipSymbol == "" {
		return nil, shared.NewValidationError("shipSymbol", "cannot be empty")
	}
	if _, ok := o.behaviors[kind]; !ok {
		return nil, shared.NewValidationError("behavior", fmt.Sprintf("unknown behavior %q", kind))
	}
	policy, err := BuildPolicy(kind, overrides)
	if err != nil {
		return nil, shared.NewValidationError("policy", err.Error())
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	entry := &shipAutomation{
		state: automation.NewState(shipSymbol, o.newRunID(shipSymbol, kind), kind, policy, o.clock.Now()),
		queue: automation.NewPlanQueue(o.cfg.MaxRetries),
	}
	o.ships[shipSymbol] = entry

	o.log("INFO", "Automation started", entry.state, nil)
	if err := o.persistLocked(ctx, entry); err != nil {
		return entry.state.Clone(), err
	}
	o.ensureLoopLocked()
	return entry.state.Clone(), nil
}

// Stop ends a ship's automation and clears its queue. Unknown ships are ignored.
func (o *Orchestrator) Stop(ctx context.Context, shipSymbol string) error {
	return o.transition(ctx, shipSymbol, "Automation stopped", func(e *shipAutomation, now time.Time) bool {
		if !e.state.Stop(now) {
			return false
		}
		e.queue = automation.NewPlanQueue(o.cfg.MaxRetries)
		return true
	})
}

// Pause parks a running automation, keeping its queue. Unknown ships are ignored.
func (o *Orchestrator) Pause(ctx context.Context, shipSymbol string) error {
	return o.transition(ctx, shipSymbol, "Automation paused", func(e *shipAutomation, now time.Time) bool {
		return e.state.Pause(now, "paused by operator")
	})
}

// Resume restarts a paused automation. Anything else is left untouched.
func (o *Orchestrator) Resume(ctx context.Context, shipSymbol string) error {
	return o.transition(ctx, shipSymbol, "Automation resumed", func(e *shipAutomation, now time.Time) bool {
		if !e.state.Resume(now) {
			return false
		}
		e.state.SetTask(now, "resuming "+string(e.state.Behavior)+" automation")
		return true
	})
}

func (o *Orchestrator) transition(ctx context.Context, shipSymbol, message string, fn func(*shipAutomation, time.Time) bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.ships[shipSymbol]
	if !ok {
		return nil
	}
	if !fn(entry, o.clock.Now()) {
		return nil
	}

	o.log("INFO", message, entry.state, nil)
	if err := o.persistLocked(ctx, entry); err != nil {
		return err
	}
	o.ensureLoopLocked()
	return nil
}

// Get returns a snapshot of a ship's automation state
func (o *Orchestrator) Get(shipSymbol string) (*automation.State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.ships[shipSymbol]
	if !ok {
		return nil, false
	}
	return entry.state.Clone(), true
}

// Queue returns a copy of a ship's pending steps, head first
func (o *Orchestrator) Queue(shipSymbol string) ([]automation.ActionStep, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.ships[shipSymbol]
	if !ok {
		return nil, false
	}
	return entry.queue.Steps(), true
}

// GetAll returns snapshots of every known automation ordered by ship symbol
func (o *Orchestrator) GetAll() []automation.State {
	o.mu.Lock()
	defer o.mu.Unlock()

	states := make([]automation.State, 0, len(o.ships))
	for _, entry := range o.ships {
		states = append(states, *entry.state.Clone())
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].ShipSymbol < states[j].ShipSymbol
	})
	return states
}

// Restore loads every persisted record, replacing in-memory state, and
// starts the loop when any of them is running.
func (o *Orchestrator) Restore(ctx context.Context) (int, error) {
	records, err := o.repo.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load automation records: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, rec := range records {
		state := rec.State
		o.ships[state.ShipSymbol] = &shipAutomation{
			state: &state,
			queue: automation.RestorePlanQueue(o.cfg.MaxRetries, rec.Queue),
		}
	}
	if o.hasRunningLocked() {
		o.ensureLoopLocked()
	}
	return len(records), nil
}

// Tick advances every running automation once, one ship after another.
// A failure of one ship never prevents the others from being processed.
// Returns the number of ships that were running at the start of the tick.
func (o *Orchestrator) Tick(ctx context.Context) int {
	started := time.Now()
	ctx = common.WithLogger(ctx, o.logger)

	running := o.runningShips()
	for _, ship := range running {
		if ctx.Err() != nil {
			break
		}
		o.processShip(ctx, ship.symbol, ship.runID)
	}

	o.metrics.RecordTick(time.Since(started), len(running))
	o.metrics.RecordStatus(o.GetAll())
	return len(running)
}

// Shutdown stops the background loop and waits for it to exit
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.loopCancel()

	done := make(chan struct{})
	go func() {
		o.loopWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("orchestrator shutdown: %w", ctx.Err())
	}
}

type runningShip struct {
	symbol string
	runID  string
}

func (o *Orchestrator) runningShips() []runningShip {
	o.mu.Lock()
	defer o.mu.Unlock()

	running := make([]runningShip, 0, len(o.ships))
	for symbol, entry := range o.ships {
		if entry.state.IsRunning() {
			running = append(running, runningShip{symbol: symbol, runID: entry.state.RunID})
		}
	}
	sort.Slice(running, func(i, j int) bool {
		return running[i].symbol < running[j].symbol
	})
	return running
}

func (o *Orchestrator) processShip(ctx context.Context, shipSymbol, runID string) {
	defer func() {
		if r := recover(); r != nil {
			o.apply(ctx, shipSymbol, runID, true, func(e *shipAutomation, now time.Time) bool {
				return e.state.Fail(now, fmt.Sprintf("unexpected failure: %v", r))
			})
		}
	}()

	ship, err := o.gateway.GetShip(ctx, shipSymbol)
	if err != nil {
		o.apply(ctx, shipSymbol, runID, true, func(e *shipAutomation, now time.Time) bool {
			e.state.RecordError(now, fmt.Sprintf("failed to fetch ship state: %v", err))
			return true
		})
		return
	}

	if o.cfg.CooldownEarlyExit {
		if waiting := o.waitingMessage(ship); waiting != "" {
			o.apply(ctx, shipSymbol, runID, true, func(e *shipAutomation, now time.Time) bool {
				if e.state.CurrentTask == waiting {
					return false
				}
				e.state.SetTask(now, waiting)
				return true
			})
			return
		}
	}

	head, ok := o.head(shipSymbol, runID)
	if ok {
		o.executeHead(ctx, shipSymbol, runID, ship, head)
		return
	}
	o.plan(ctx, shipSymbol, runID, ship)
}

func (o *Orchestrator) waitingMessage(ship *automation.ShipSnapshot) string {
	if ship.IsInTransit() {
		if ship.Arrival != nil {
			return fmt.Sprintf("in transit to %s, arriving %s", ship.Waypoint, ship.Arrival.Format(time.RFC3339))
		}
		return fmt.Sprintf("in transit to %s", ship.Waypoint)
	}
	now := o.clock.Now()
	if ship.IsOnCooldown(now) {
		return fmt.Sprintf("waiting for cooldown (%ds remaining)", ship.CooldownRemainingSeconds(now))
	}
	return ""
}

func (o *Orchestrator) head(shipSymbol, runID string) (automation.ActionStep, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.ships[shipSymbol]
	if !ok || entry.state.RunID != runID {
		return automation.ActionStep{}, false
	}
	return entry.queue.Head()
}

func (o *Orchestrator) executeHead(ctx context.Context, shipSymbol, runID string, ship *automation.ShipSnapshot, step automation.ActionStep) {
	execErr := o.executor.Execute(ctx, ship, step)

	// The result is applied even if the automation was paused or stopped while
	// the call was in flight; a stop has already emptied the queue.
	o.apply(ctx, shipSymbol, runID, false, func(e *shipAutomation, now time.Time) bool {
		if e.queue.IsEmpty() {
			return false
		}

		if execErr == nil {
			e.queue.Pop()
			e.state.RecordAction(now)
			e.state.SetTask(now, fmt.Sprintf("%s done, %d step(s) left", step, e.queue.Len()))
			o.metrics.RecordStep(step.Type(), OutcomeSuccess)
			return true
		}

		failed, dropped, err := e.queue.RecordFailure()
		if err != nil {
			return false
		}
		if dropped {
			e.state.RecordError(now, fmt.Sprintf("dropped %s after %d attempts: %v", failed, failed.RetryCount(), execErr))
			e.state.SetTask(now, fmt.Sprintf("gave up on %s, replanning", failed))
			o.metrics.RecordStep(step.Type(), OutcomeDropped)
			o.log("WARNING", "Step dropped after exhausting retries", e.state, map[string]interface{}{
				"action": string(step.Type()),
				"error":  execErr.Error(),
			})
			return true
		}

		outcome := OutcomeFailure
		if shared.IsPrecondition(execErr) {
			outcome = OutcomePrecondition
		}
		e.state.SetTask(now, fmt.Sprintf("retrying %s (%d/%d): %v", failed, failed.RetryCount(), failed.MaxRetries(), execErr))
		o.metrics.RecordStep(step.Type(), outcome)
		return true
	})
}

func (o *Orchestrator) plan(ctx context.Context, shipSymbol, runID string, ship *automation.ShipSnapshot) {
	o.mu.Lock()
	entry, ok := o.ships[shipSymbol]
	if !ok || entry.state.RunID != runID {
		o.mu.Unlock()
		return
	}
	working := entry.state.Clone()
	o.mu.Unlock()

	behavior, ok := o.behaviors[working.Behavior]
	if !ok {
		o.apply(ctx, shipSymbol, runID, true, func(e *shipAutomation, now time.Time) bool {
			return e.state.Fail(now, fmt.Sprintf("no behavior registered for %q", working.Behavior))
		})
		return
	}

	planned := automation.NewPlanQueue(o.cfg.MaxRetries)
	planErr := behavior.Plan(ctx, ship, working, planned)

	o.apply(ctx, shipSymbol, runID, true, func(e *shipAutomation, now time.Time) bool {
		if planErr != nil {
			if shared.IsTransient(planErr) {
				e.state.RecordError(now, fmt.Sprintf("planning deferred: %v", planErr))
				return true
			}
			o.log("ERROR", "Planning failed", e.state, map[string]interface{}{"error": planErr.Error()})
			return e.state.Fail(now, planErr.Error())
		}

		e.state.CurrentTask = working.CurrentTask
		e.state.ProgressPercent = working.ProgressPercent
		e.state.UpdatedAt = now
		if working.Status == automation.RunStatusPaused {
			e.state.Pause(now, working.CurrentTask)
			o.log("INFO", "Automation paused by behavior", e.state, nil)
		}
		if e.queue.IsEmpty() {
			e.queue = planned
		}
		o.metrics.RecordPlan(e.state.Behavior, planned.Len())
		return true
	})
}

// apply runs fn under the lock when the ship still has the same run (and,
// if requireRunning, is still running), then persists if fn reports a change.
func (o *Orchestrator) apply(ctx context.Context, shipSymbol, runID string, requireRunning bool, fn func(*shipAutomation, time.Time) bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.ships[shipSymbol]
	if !ok || entry.state.RunID != runID {
		return
	}
	if requireRunning && !entry.state.IsRunning() {
		return
	}
	if !fn(entry, o.clock.Now()) {
		return
	}
	if err := o.persistLocked(ctx, entry); err != nil {
		o.log("ERROR", "Failed to persist automation state", entry.state, map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator) persistLocked(ctx context.Context, entry *shipAutomation) error {
	if err := o.repo.Save(ctx, automation.NewRecord(entry.state, entry.queue)); err != nil {
		return fmt.Errorf("failed to persist automation for %s: %w", entry.state.ShipSymbol, err)
	}
	return nil
}

func (o *Orchestrator) hasRunningLocked() bool {
	for _, entry := range o.ships {
		if entry.state.IsRunning() {
			return true
		}
	}
	return false
}

func (o *Orchestrator) ensureLoopLocked() {
	if o.cfg.ManualTick || o.loopRunning || o.closed || !o.hasRunningLocked() {
		return
	}
	o.loopRunning = true
	o.loopWG.Add(1)
	go o.loop()
}

// loop ticks until shutdown or until a tick finds nothing left to run
func (o *Orchestrator) loop() {
	defer o.loopWG.Done()

	ticker := time.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.loopCtx.Done():
			o.mu.Lock()
			o.loopRunning = false
			o.mu.Unlock()
			return
		case <-ticker.C:
			o.Tick(o.loopCtx)

			o.mu.Lock()
			if !o.hasRunningLocked() {
				o.loopRunning = false
				o.mu.Unlock()
				return
			}
			o.mu.Unlock()
		}
	}
}

func (o *Orchestrator) log(level, message string, state *automation.State, extra map[string]interface{}) {
	meta := map[string]interface{}{
		"ship_symbol": state.ShipSymbol,
		"run_id":      state.RunID,
		"behavior":    string(state.Behavior),
		"status":      string(state.Status),
	}
	for k, v := range extra {
		meta[k] = v
	}
	o.logger.Log(level, message, meta)
}

type noOpMetrics struct{}

func (noOpMetrics) RecordTick(time.Duration, int) {}
func (noOpMetrics) RecordStep(automation.ActionType, string) {}
func (noOpMetrics) RecordPlan(automation.BehaviorKind, int) {}
func (noOpMetrics) RecordStatus([]automation.State) {}
