package steps

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"gorm.io/gorm"

	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/persistence"
	"github.com/andrescamacho/spacetraders-autopilot/internal/application/autopilot"
	"github.com/andrescamacho/spacetraders-autopilot/internal/application/catalog"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
	"github.com/andrescamacho/spacetraders-autopilot/internal/infrastructure/database"
	"github.com/andrescamacho/spacetraders-autopilot/test/helpers"
)

type automationContext struct {
	ctx     context.Context
	db      *gorm.DB
	clock   *shared.MockClock
	gateway *helpers.MockGateway
	world   *helpers.StaticWorld
	catalog *catalog.Service
	orch    *autopilot.Orchestrator
	runs    int

	lastErr        error
	beforeRestart  map[string]automation.State
	queueBeforeRst map[string][]string
}

func (c *automationContext) reset() error {
	if c.db != nil {
		database.Close(c.db)
	}

	db, err := database.NewTestConnection()
	if err != nil {
		return fmt.Errorf("failed to create test database: %w", err)
	}

	c.ctx = context.Background()
	c.db = db
	c.clock = shared.NewMockClock(helpers.Epoch)
	c.gateway = helpers.NewMockGateway(c.clock)
	c.world = helpers.NewStaticWorld()
	c.catalog = catalog.NewService(
		persistence.NewGormWaypointRepository(db),
		persistence.NewMarketRepository(db),
		c.world,
	)
	c.runs = 0
	c.lastErr = nil
	c.beforeRestart = nil
	c.queueBeforeRst = nil

	return c.buildOrchestrator()
}

// buildOrchestrator wires a fresh orchestrator over the scenario's database,
// the same way the daemon does on startup
func (c *automationContext) buildOrchestrator() error {
	orch, err := autopilot.NewOrchestrator(autopilot.Dependencies{
		Gateway:    c.gateway,
		Repository: persistence.NewAutomationRepository(c.db),
		Catalog:    c.catalog,
		Clock:      c.clock,
		NewRunID: func(string, automation.BehaviorKind) string {
			c.runs++
			return fmt.Sprintf("run-%d", c.runs)
		},
	}, autopilot.Config{
		MaxRetries:        automation.DefaultMaxRetries,
		CooldownEarlyExit: true,
		ManualTick:        true,
	})
	if err != nil {
		return err
	}
	c.orch = orch
	return nil
}

// Steps: world setup

func (c *automationContext) aSystemWithWaypoints(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		x, err := strconv.ParseFloat(getCellValue(table, row, "x"), 64)
		if err != nil {
			return fmt.Errorf("row %d: invalid x: %w", i, err)
		}
		y, err := strconv.ParseFloat(getCellValue(table, row, "y"), 64)
		if err != nil {
			return fmt.Errorf("row %d: invalid y: %w", i, err)
		}
		var traits []string
		if raw := getCellValue(table, row, "traits"); raw != "" {
			for _, trait := range strings.Split(raw, ",") {
				traits = append(traits, strings.TrimSpace(trait))
			}
		}
		c.world.AddWaypoint(helpers.NewWaypoint(getCellValue(table, row, "symbol"), getCellValue(table, row, "type"), x, y, traits...))
	}
	return nil
}

func (c *automationContext) theMarketBuysFor(market, good string, price int) error {
	c.world.SetMarketPrice(market, good, price)
	c.gateway.SetSellPrice(market, good, price)
	return nil
}

func (c *automationContext) aShipAtWith(symbol, navStatus, waypoint string, fuel, fuelCap, units, capacity int) error {
	opts := []helpers.ShipOption{
		helpers.WithFuel(fuel, fuelCap),
		helpers.WithCargo(capacity, map[string]int{"IRON_ORE": units}),
	}
	if navStatus == "docked" {
		opts = append(opts, helpers.Docked())
	}
	c.gateway.AddShip(helpers.NewShip(symbol, waypoint, opts...))
	return nil
}

func (c *automationContext) theShipHasASurveyorMount(symbol string) error {
	return c.updateShip(symbol, func(ship *automation.ShipSnapshot) {
		ship.Mounts = append(ship.Mounts, "MOUNT_SURVEYOR_I")
	})
}

func (c *automationContext) theShipHoldsUnitsOf(symbol string, units int, good string) error {
	return c.updateShip(symbol, func(ship *automation.ShipSnapshot) {
		items := map[string]int{good: units}
		for _, item := range ship.Cargo.Inventory {
			if item.Symbol != good {
				items[item.Symbol] = item.Units
			}
		}
		ship.Cargo = helpers.NewCargo(ship.Cargo.Capacity, items)
	})
}

func (c *automationContext) theShipIsDocked(symbol string) error {
	return c.updateShip(symbol, func(ship *automation.ShipSnapshot) {
		ship.NavStatus = automation.NavStatusDocked
	})
}

func (c *automationContext) updateShip(symbol string, fn func(*automation.ShipSnapshot)) error {
	if c.gateway.Ship(symbol) == nil {
		return fmt.Errorf("ship %s not found", symbol)
	}
	c.gateway.UpdateShip(symbol, fn)
	return nil
}

func (c *automationContext) anActiveContractRequires(id string, units int, good, destination string) error {
	c.gateway.AddContract(automation.Contract{
		ID:               id,
		FactionSymbol:    "COSMIC",
		Type:             "PROCUREMENT",
		Accepted:         true,
		Deadline:         c.clock.Now().Add(72 * time.Hour),
		PaymentOnFulfill: 9000,
		Deliveries: []automation.Delivery{
			{TradeSymbol: good, DestinationSymbol: destination, UnitsRequired: units},
		},
	})
	return nil
}

func (c *automationContext) theNextCallsFailWith(times int, method, message string) error {
	c.gateway.FailNext(method, errors.New(message), times)
	return nil
}

// Steps: operator commands

func (c *automationContext) iStartAutomationOn(behavior, symbol string) error {
	_, err := c.orch.Start(c.ctx, symbol, automation.BehaviorKind(behavior), nil)
	return err
}

func (c *automationContext) iStartAutomationOnWithPolicy(behavior, symbol string, table *godog.Table) error {
	overrides := make(map[string]interface{})
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		overrides[getCellValue(table, row, "option")] = getCellValue(table, row, "value")
	}
	_, err := c.orch.Start(c.ctx, symbol, automation.BehaviorKind(behavior), overrides)
	return err
}

func (c *automationContext) iTryToStartAutomationOn(behavior, symbol string) error {
	_, c.lastErr = c.orch.Start(c.ctx, symbol, automation.BehaviorKind(behavior), nil)
	return nil
}

func (c *automationContext) iCommandAutomationOn(command, symbol string) error {
	switch command {
	case "stop":
		c.lastErr = c.orch.Stop(c.ctx, symbol)
	case "pause":
		c.lastErr = c.orch.Pause(c.ctx, symbol)
	case "resume":
		c.lastErr = c.orch.Resume(c.ctx, symbol)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func (c *automationContext) onePlanCycleRuns() error {
	return c.theOrchestratorTicks(1)
}

func (c *automationContext) theOrchestratorTicks(times int) error {
	for i := 0; i < times; i++ {
		c.orch.Tick(c.ctx)
	}
	return nil
}

// theDaemonRestarts drops the in-memory orchestrator and restores a new one
// from the database
func (c *automationContext) theDaemonRestarts() error {
	c.beforeRestart = make(map[string]automation.State)
	c.queueBeforeRst = make(map[string][]string)
	for _, state := range c.orch.GetAll() {
		c.beforeRestart[state.ShipSymbol] = state
		steps, _ := c.orch.Queue(state.ShipSymbol)
		c.queueBeforeRst[state.ShipSymbol] = describeSteps(steps)
	}

	if err := c.orch.Shutdown(c.ctx); err != nil {
		return err
	}
	if err := c.buildOrchestrator(); err != nil {
		return err
	}

	restored, err := c.orch.Restore(c.ctx)
	if err != nil {
		return err
	}
	if restored != len(c.beforeRestart) {
		return fmt.Errorf("expected %d restored automations, got %d", len(c.beforeRestart), restored)
	}
	return nil
}

// Steps: assertions

func (c *automationContext) theQueueOfShouldBe(symbol string, table *godog.Table) error {
	steps, ok := c.orch.Queue(symbol)
	if !ok {
		return fmt.Errorf("no automation for %s", symbol)
	}

	var expected []string
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		expected = append(expected, getCellValue(table, row, "step"))
	}

	actual := describeSteps(steps)
	if strings.Join(actual, ",") != strings.Join(expected, ",") {
		return fmt.Errorf("expected queue %v, got %v", expected, actual)
	}
	return nil
}

func (c *automationContext) theQueueOfShouldBeEmpty(symbol string) error {
	steps, ok := c.orch.Queue(symbol)
	if !ok {
		return fmt.Errorf("no automation for %s", symbol)
	}
	if len(steps) != 0 {
		return fmt.Errorf("expected empty queue, got %v", describeSteps(steps))
	}
	return nil
}

func (c *automationContext) theAutomationOfShouldBe(symbol, status string) error {
	state, err := c.state(symbol)
	if err != nil {
		return err
	}
	if string(state.Status) != status {
		return fmt.Errorf("expected status %s, got %s (task %q)", status, state.Status, state.CurrentTask)
	}
	return nil
}

func (c *automationContext) theCurrentTaskOfShouldContain(symbol, text string) error {
	state, err := c.state(symbol)
	if err != nil {
		return err
	}
	if !strings.Contains(state.CurrentTask, text) {
		return fmt.Errorf("expected current task to contain %q, got %q", text, state.CurrentTask)
	}
	return nil
}

func (c *automationContext) theErrorMessageOfShouldContain(symbol, text string) error {
	state, err := c.state(symbol)
	if err != nil {
		return err
	}
	if !strings.Contains(state.ErrorMessage, text) {
		return fmt.Errorf("expected error message to contain %q, got %q", text, state.ErrorMessage)
	}
	return nil
}

func (c *automationContext) theHeadStepOfShouldBeWithRetryCount(symbol, step string, retries int) error {
	steps, ok := c.orch.Queue(symbol)
	if !ok || len(steps) == 0 {
		return fmt.Errorf("no queued step for %s", symbol)
	}
	head := steps[0]
	if head.String() != step {
		return fmt.Errorf("expected head step %s, got %s", step, head)
	}
	if head.RetryCount() != retries {
		return fmt.Errorf("expected retry count %d, got %d", retries, head.RetryCount())
	}
	return nil
}

func (c *automationContext) noCallShouldHaveBeenMade(method string) error {
	if count := c.gateway.CallCount(method); count != 0 {
		return fmt.Errorf("expected no %s calls, got %d: %v", method, count, c.gateway.Calls())
	}
	return nil
}

func (c *automationContext) theShipShouldHoldUnitsOf(symbol string, units int, good string) error {
	ship := c.gateway.Ship(symbol)
	if ship == nil {
		return fmt.Errorf("ship %s not found", symbol)
	}
	if held := ship.Cargo.GetItemUnits(good); held != units {
		return fmt.Errorf("expected %d %s in the hold, got %d", units, good, held)
	}
	return nil
}

func (c *automationContext) theAgentShouldHaveCredits(credits int64) error {
	if actual := c.gateway.Credits(); actual != credits {
		return fmt.Errorf("expected %d credits, got %d", credits, actual)
	}
	return nil
}

func (c *automationContext) theContractShouldBeFulfilled(id string) error {
	contract, ok := c.gateway.Contract(id)
	if !ok {
		return fmt.Errorf("contract %s not found", id)
	}
	if !contract.Fulfilled {
		return fmt.Errorf("contract %s is not fulfilled", id)
	}
	return nil
}

func (c *automationContext) noErrorShouldBeReturned() error {
	if c.lastErr != nil {
		return fmt.Errorf("expected no error, got %v", c.lastErr)
	}
	return nil
}

func (c *automationContext) theStartShouldFailMentioning(text string) error {
	if c.lastErr == nil {
		return fmt.Errorf("expected start to fail")
	}
	var validation *shared.ValidationError
	if !errors.As(c.lastErr, &validation) {
		return fmt.Errorf("expected a validation error, got %T: %v", c.lastErr, c.lastErr)
	}
	if !strings.Contains(c.lastErr.Error(), text) {
		return fmt.Errorf("expected error to mention %q, got %q", text, c.lastErr.Error())
	}
	return nil
}

func (c *automationContext) thereShouldBeNoRunningAutomationFor(symbol string) error {
	state, ok := c.orch.Get(symbol)
	if ok && state.IsRunning() {
		return fmt.Errorf("expected %s not to be running, got %s", symbol, state.Status)
	}
	return nil
}

func (c *automationContext) theAutomationOfShouldBeRestoredUnchanged(symbol string) error {
	before, ok := c.beforeRestart[symbol]
	if !ok {
		return fmt.Errorf("no state captured for %s before restart", symbol)
	}
	after, err := c.state(symbol)
	if err != nil {
		return err
	}

	switch {
	case after.RunID != before.RunID:
		return fmt.Errorf("run id changed: %s -> %s", before.RunID, after.RunID)
	case after.Behavior != before.Behavior:
		return fmt.Errorf("behavior changed: %s -> %s", before.Behavior, after.Behavior)
	case after.Status != before.Status:
		return fmt.Errorf("status changed: %s -> %s", before.Status, after.Status)
	case after.CurrentTask != before.CurrentTask:
		return fmt.Errorf("task changed: %q -> %q", before.CurrentTask, after.CurrentTask)
	case after.ProgressPercent != before.ProgressPercent:
		return fmt.Errorf("progress changed: %d -> %d", before.ProgressPercent, after.ProgressPercent)
	case after.ErrorMessage != before.ErrorMessage:
		return fmt.Errorf("error message changed: %q -> %q", before.ErrorMessage, after.ErrorMessage)
	case !after.StartedAt.Equal(before.StartedAt):
		return fmt.Errorf("start time changed: %s -> %s", before.StartedAt, after.StartedAt)
	}
	if !samePolicy(before.Policy, after.Policy) {
		return fmt.Errorf("policy changed: %+v -> %+v", before.Policy.Mining, after.Policy.Mining)
	}

	steps, _ := c.orch.Queue(symbol)
	if got, want := strings.Join(describeSteps(steps), ","), strings.Join(c.queueBeforeRst[symbol], ","); got != want {
		return fmt.Errorf("queue changed: %s -> %s", want, got)
	}
	return nil
}

func (c *automationContext) state(symbol string) (*automation.State, error) {
	state, ok := c.orch.Get(symbol)
	if !ok {
		return nil, fmt.Errorf("no automation for %s", symbol)
	}
	return state, nil
}

func samePolicy(a, b automation.Policy) bool {
	switch {
	case a.Mining != nil && b.Mining != nil:
		return *a.Mining == *b.Mining
	case a.Trading != nil && b.Trading != nil:
		return *a.Trading == *b.Trading
	case a.Contract != nil && b.Contract != nil:
		return *a.Contract == *b.Contract
	}
	return a.Mining == nil && b.Mining == nil && a.Trading == nil && b.Trading == nil && a.Contract == nil && b.Contract == nil
}

func describeSteps(steps []automation.ActionStep) []string {
	out := make([]string, 0, len(steps))
	for _, step := range steps {
		out = append(out, step.String())
	}
	return out
}

// InitializeAutomationScenario registers the automation step definitions
func InitializeAutomationScenario(ctx *godog.ScenarioContext) {
	c := &automationContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, c.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if c.orch != nil {
			_ = c.orch.Shutdown(context.Background())
		}
		if c.db != nil {
			database.Close(c.db)
			c.db = nil
		}
		return ctx, nil
	})

	ctx.Step(`^a system with waypoints:$`, c.aSystemWithWaypoints)
	ctx.Step(`^the market "([^"]*)" buys "([^"]*)" for (\d+) credits$`, c.theMarketBuysFor)
	ctx.Step(`^a ship "([^"]*)" (docked|in orbit) at "([^"]*)" with fuel (\d+)/(\d+) and cargo (\d+)/(\d+)$`, c.aShipAtWith)
	ctx.Step(`^the ship "([^"]*)" has a surveyor mount$`, c.theShipHasASurveyorMount)
	ctx.Step(`^the ship "([^"]*)" holds (\d+) units of "([^"]*)"$`, c.theShipHoldsUnitsOf)
	ctx.Step(`^the ship "([^"]*)" is docked$`, c.theShipIsDocked)
	ctx.Step(`^an active contract "([^"]*)" requires (\d+) "([^"]*)" at "([^"]*)"$`, c.anActiveContractRequires)
	ctx.Step(`^the next (\d+) "([^"]*)" calls? fails? with "([^"]*)"$`, c.theNextCallsFailWith)

	ctx.Step(`^I start "([^"]*)" automation on "([^"]*)"$`, c.iStartAutomationOn)
	ctx.Step(`^I start "([^"]*)" automation on "([^"]*)" with policy:$`, c.iStartAutomationOnWithPolicy)
	ctx.Step(`^I try to start "([^"]*)" automation on "([^"]*)"$`, c.iTryToStartAutomationOn)
	ctx.Step(`^I (stop|pause|resume) automation on "([^"]*)"$`, c.iCommandAutomationOn)
	ctx.Step(`^one plan cycle runs$`, c.onePlanCycleRuns)
	ctx.Step(`^the orchestrator ticks (\d+) times?$`, c.theOrchestratorTicks)
	ctx.Step(`^the daemon restarts$`, c.theDaemonRestarts)

	ctx.Step(`^the queue of "([^"]*)" should be:$`, c.theQueueOfShouldBe)
	ctx.Step(`^the queue of "([^"]*)" should be empty$`, c.theQueueOfShouldBeEmpty)
	ctx.Step(`^the automation of "([^"]*)" should be "([^"]*)"$`, c.theAutomationOfShouldBe)
	ctx.Step(`^the automation of "([^"]*)" should be restored unchanged$`, c.theAutomationOfShouldBeRestoredUnchanged)
	ctx.Step(`^the current task of "([^"]*)" should contain "([^"]*)"$`, c.theCurrentTaskOfShouldContain)
	ctx.Step(`^the error message of "([^"]*)" should contain "([^"]*)"$`, c.theErrorMessageOfShouldContain)
	ctx.Step(`^the head step of "([^"]*)" should be "([^"]*)" with retry count (\d+)$`, c.theHeadStepOfShouldBeWithRetryCount)
	ctx.Step(`^no "([^"]*)" call should have been made$`, c.noCallShouldHaveBeenMade)
	ctx.Step(`^the ship "([^"]*)" should hold (\d+) units of "([^"]*)"$`, c.theShipShouldHoldUnitsOf)
	ctx.Step(`^the agent should have (\d+) credits$`, c.theAgentShouldHaveCredits)
	ctx.Step(`^the contract "([^"]*)" should be fulfilled$`, c.theContractShouldBeFulfilled)
	ctx.Step(`^no error should be returned$`, c.noErrorShouldBeReturned)
	ctx.Step(`^the start should fail mentioning "([^"]*)"$`, c.theStartShouldFailMentioning)
	ctx.Step(`^there should be no running automation for "([^"]*)"$`, c.thereShouldBeNoRunningAutomationFor)
}
