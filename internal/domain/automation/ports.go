package automation

import (
	"context"
	"errors"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

var (
	// ErrRecordNotFound is returned by a StateRepository for unknown ships
	ErrRecordNotFound = errors.New("automation record not found")

	// ErrUnknownWaypoint is returned by a WorldCatalog for waypoints it has never seen
	ErrUnknownWaypoint = errors.New("waypoint not in catalog")

	// ErrNoMarketInRange is returned when markets are known but none is within the allowed distance
	ErrNoMarketInRange = errors.New("no market within range")
)

// StateRepository persists full snapshots of automation records
type StateRepository interface {
	Save(ctx context.Context, record Record) error
	Load(ctx context.Context, shipSymbol string) (*Record, error)
	LoadAll(ctx context.Context) ([]Record, error)
}

// MarketGood is the catalog's last known price of a good at a market
type MarketGood struct {
	Waypoint      string
	Good          string
	PurchasePrice int
	SellPrice     int
	TradeVolume   int
	UpdatedAt     time.Time
}

// WorldCatalog answers location questions from cached world data
type WorldCatalog interface {
	Waypoint(ctx context.Context, symbol string) (*shared.Waypoint, error)
	NearestAsteroid(ctx context.Context, systemSymbol, from string) (*shared.Waypoint, error)
	BestMarketFor(ctx context.Context, systemSymbol, from string, cargo shared.Cargo, maxDistance float64) (*shared.Waypoint, error)
}

// MetricsRecorder receives orchestrator events for instrumentation
type MetricsRecorder interface {
	RecordTick(duration time.Duration, ships int)
	RecordStep(action ActionType, outcome string)
	RecordPlan(behavior BehaviorKind, steps int)
	RecordStatus(states []State)
}
