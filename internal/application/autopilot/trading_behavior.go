package autopilot

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// TradingBehavior sells whatever the ship carries at the best known market.
// It does not search for buy/sell routes.
type TradingBehavior struct {
	catalog automation.WorldCatalog
	clock   shared.Clock
}

func NewTradingBehavior(catalog automation.WorldCatalog, clock shared.Clock) *TradingBehavior {
	return &TradingBehavior{catalog: catalog, clock: clock}
}

func (b *TradingBehavior) Kind() automation.BehaviorKind {
	return automation.BehaviorTrading
}

func (b *TradingBehavior) Plan(ctx context.Context, ship *automation.ShipSnapshot, state *automation.State, queue *automation.PlanQueue) error {
	now := b.clock.Now()

	policy := automation.DefaultTradingPolicy()
	if state.Policy.Trading != nil {
		policy = *state.Policy.Trading
	}

	if ship.Cargo.IsEmpty() {
		state.SetProgress(100)
		state.Pause(now, "no cargo to trade")
		return nil
	}
	state.SetProgress(100 - int(ship.CargoPercent()))

	market, err := planSellRun(ctx, b.catalog, ship, policy.MaxDistance, queue)
	if errors.Is(err, automation.ErrNoMarketInRange) {
		state.Pause(now, fmt.Sprintf("no market within %.0f units of %s", policy.MaxDistance, ship.Waypoint))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to plan sell run: %w", err)
	}

	state.SetTask(now, fmt.Sprintf("selling cargo (%s) at %s", describeCargo(ship), market))
	return nil
}
