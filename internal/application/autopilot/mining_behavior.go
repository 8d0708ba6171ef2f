package autopilot

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/common"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// MiningBehavior keeps a ship extracting at an asteroid, refuelling when low
// and selling when the hold reaches the policy threshold.
type MiningBehavior struct {
	gateway automation.Gateway
	catalog automation.WorldCatalog
	surveys *SurveyCache
	clock   shared.Clock
}

func NewMiningBehavior(gateway automation.Gateway, catalog automation.WorldCatalog, surveys *SurveyCache, clock shared.Clock) *MiningBehavior {
	return &MiningBehavior{gateway: gateway, catalog: catalog, surveys: surveys, clock: clock}
}

func (b *MiningBehavior) Kind() automation.BehaviorKind {
	return automation.BehaviorMining
}

func (b *MiningBehavior) Plan(ctx context.Context, ship *automation.ShipSnapshot, state *automation.State, queue *automation.PlanQueue) error {
	logger := common.LoggerFromContext(ctx)
	now := b.clock.Now()

	policy := automation.DefaultMiningPolicy()
	if state.Policy.Mining != nil {
		policy = *state.Policy.Mining
	}

	state.SetProgress(int(ship.CargoPercent()))

	if ship.Cargo.Capacity == 0 {
		state.Pause(now, "ship has no cargo hold to mine into")
		return nil
	}

	if policy.MaxCredits > 0 {
		agent, err := b.gateway.GetAgent(ctx)
		if err != nil {
			return fmt.Errorf("failed to check credit target: %w", err)
		}
		if agent.Credits >= policy.MaxCredits {
			state.Pause(now, fmt.Sprintf("credit target reached (%d/%d)", agent.Credits, policy.MaxCredits))
			return nil
		}
	}

	// Refuelling comes before everything else: a sell trip needs fuel too.
	if policy.StopOnLowFuel && ship.Fuel.Capacity > 0 && ship.FuelPercent() <= float64(policy.MinFuelPercent) {
		if err := queue.Enqueue(automation.DockPayload{}, automation.RefuelPayload{}, automation.OrbitPayload{}); err != nil {
			return err
		}
		state.SetTask(now, fmt.Sprintf("refuelling at %s (fuel %d/%d)", ship.Waypoint, ship.Fuel.Current, ship.Fuel.Capacity))
		logger.Log("INFO", "Mining plan: refuel", map[string]interface{}{
			"ship_symbol": ship.Symbol,
			"action":      "refuel",
			"fuel":        ship.Fuel.Current,
		})
		return nil
	}

	cargoLimitReached := policy.StopOnMaxCargo && ship.CargoPercent() >= float64(policy.MaxCargoPercent)
	if cargoLimitReached || ship.Cargo.IsFull() {
		if !policy.AutoSellWhenFull {
			state.Pause(now, fmt.Sprintf("cargo hold full (%s), auto-sell disabled", describeCargo(ship)))
			return nil
		}
		market, err := planSellRun(ctx, b.catalog, ship, 0, queue)
		if err != nil {
			return fmt.Errorf("failed to plan sell run: %w", err)
		}
		state.SetTask(now, fmt.Sprintf("selling cargo (%s) at %s", describeCargo(ship), market))
		logger.Log("INFO", "Mining plan: sell run", map[string]interface{}{
			"ship_symbol": ship.Symbol,
			"action":      "sell",
			"market":      market,
		})
		return nil
	}

	target, err := b.miningTarget(ctx, ship, policy)
	if err != nil {
		return err
	}

	if ship.Waypoint != target {
		if err := queue.Enqueue(automation.NavigatePayload{Waypoint: target}, automation.OrbitPayload{}); err != nil {
			return err
		}
	} else if !ship.IsInOrbit() {
		if err := queue.Enqueue(automation.OrbitPayload{}); err != nil {
			return err
		}
	}

	if ship.HasSurveyor() && !b.surveys.Has(target) {
		if err := queue.Enqueue(automation.SurveyPayload{}); err != nil {
			return err
		}
	}
	if err := queue.Enqueue(automation.ExtractPayload{}); err != nil {
		return err
	}

	state.SetTask(now, fmt.Sprintf("mining at %s (cargo %s)", target, describeCargo(ship)))
	return nil
}

// miningTarget picks where to extract: the policy's asteroid, the current
// waypoint if it is an asteroid, or the nearest asteroid in the system.
func (b *MiningBehavior) miningTarget(ctx context.Context, ship *automation.ShipSnapshot, policy automation.MiningPolicy) (string, error) {
	if policy.AsteroidWaypoint != "" {
		return policy.AsteroidWaypoint, nil
	}

	current, err := b.catalog.Waypoint(ctx, ship.Waypoint)
	switch {
	case err == nil && current.IsAsteroid():
		return current.Symbol, nil
	case err != nil && !errors.Is(err, automation.ErrUnknownWaypoint):
		return "", fmt.Errorf("failed to look up %s: %w", ship.Waypoint, err)
	}

	asteroid, err := b.catalog.NearestAsteroid(ctx, ship.SystemSymbol, ship.Waypoint)
	if err != nil {
		return "", fmt.Errorf("failed to find an asteroid in %s: %w", ship.SystemSymbol, err)
	}
	return asteroid.Symbol, nil
}
