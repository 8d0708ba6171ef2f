package catalog

import (
	"context"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// WaypointStore caches waypoints per system.
// FindBySymbol returns automation.ErrUnknownWaypoint for waypoints never stored.
type WaypointStore interface {
	SaveAll(ctx context.Context, waypoints []*shared.Waypoint) error
	FindBySymbol(ctx context.Context, symbol string) (*shared.Waypoint, error)
	ListBySystem(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error)
}

// MarketStore caches the goods traded at each market
type MarketStore interface {
	ReplaceMarket(ctx context.Context, waypoint string, goods []automation.MarketGood) error
	ListBySystem(ctx context.Context, systemSymbol string) ([]automation.MarketGood, error)
}

// WorldSource fetches world data from the remote API
type WorldSource interface {
	ListWaypoints(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error)
	GetMarket(ctx context.Context, systemSymbol, waypoint string) ([]automation.MarketGood, error)
}
