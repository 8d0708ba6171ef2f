package autopilot

import (
	"context"
	"fmt"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

// planSellRun enqueues the trip to the best known market for the ship's cargo:
// navigate (unless already there), dock, sell everything.
func planSellRun(
	ctx context.Context,
	catalog automation.WorldCatalog,
	ship *automation.ShipSnapshot,
	maxDistance float64,
	queue *automation.PlanQueue,
) (string, error) {
	market, err := catalog.BestMarketFor(ctx, ship.SystemSymbol, ship.Waypoint, ship.Cargo, maxDistance)
	if err != nil {
		return "", err
	}

	if ship.Waypoint != market.Symbol {
		if err := queue.Enqueue(automation.NavigatePayload{Waypoint: market.Symbol}); err != nil {
			return "", err
		}
	}
	if err := queue.Enqueue(automation.DockPayload{}, automation.SellPayload{}); err != nil {
		return "", err
	}
	return market.Symbol, nil
}

func describeCargo(ship *automation.ShipSnapshot) string {
	return fmt.Sprintf("%d/%d", ship.Cargo.Units, ship.Cargo.Capacity)
}
