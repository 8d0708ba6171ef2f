package helpers

import (
	"sort"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// Epoch is the fixed start time used by test clocks
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// ShipOption customises a snapshot built by NewShip
type ShipOption func(*automation.ShipSnapshot)

// NewShip builds an orbiting ship with a full tank and empty 40-unit hold at waypoint
func NewShip(symbol, waypoint string, opts ...ShipOption) *automation.ShipSnapshot {
	ship := &automation.ShipSnapshot{
		Symbol:       symbol,
		NavStatus:    automation.NavStatusInOrbit,
		Waypoint:     waypoint,
		SystemSymbol: shared.ExtractSystemSymbol(waypoint),
		Fuel:         shared.Fuel{Current: 100, Capacity: 100},
		Cargo:        shared.Cargo{Capacity: 40, Inventory: []*shared.CargoItem{}},
		Mounts:       []string{"MOUNT_MINING_LASER_I"},
	}
	for _, opt := range opts {
		opt(ship)
	}
	return ship
}

func Docked() ShipOption {
	return func(s *automation.ShipSnapshot) { s.NavStatus = automation.NavStatusDocked }
}

func InTransit(arrival time.Time) ShipOption {
	return func(s *automation.ShipSnapshot) {
		s.NavStatus = automation.NavStatusInTransit
		s.Arrival = &arrival
	}
}

func WithFuel(current, capacity int) ShipOption {
	return func(s *automation.ShipSnapshot) { s.Fuel = shared.Fuel{Current: current, Capacity: capacity} }
}

// WithCargo sets the hold capacity and its content as good/units pairs
func WithCargo(capacity int, items map[string]int) ShipOption {
	return func(s *automation.ShipSnapshot) {
		s.Cargo = NewCargo(capacity, items)
	}
}

func WithCooldown(seconds int) ShipOption {
	return func(s *automation.ShipSnapshot) { s.Cooldown = automation.Cooldown{RemainingSeconds: seconds} }
}

func WithSurveyor() ShipOption {
	return func(s *automation.ShipSnapshot) { s.Mounts = append(s.Mounts, "MOUNT_SURVEYOR_I") }
}

// NewCargo builds a hold; inventory is ordered by good symbol
func NewCargo(capacity int, items map[string]int) shared.Cargo {
	cargo := shared.Cargo{Capacity: capacity, Inventory: []*shared.CargoItem{}}
	for _, good := range sortedKeys(items) {
		units := items[good]
		if units <= 0 {
			continue
		}
		cargo.Inventory = append(cargo.Inventory, &shared.CargoItem{Symbol: good, Name: good, Units: units})
		cargo.Units += units
	}
	return cargo
}

// NewWaypoint builds a catalog waypoint in the system derived from symbol
func NewWaypoint(symbol, waypointType string, x, y float64, traits ...string) *shared.Waypoint {
	if traits == nil {
		traits = []string{}
	}
	return &shared.Waypoint{
		Symbol:       symbol,
		X:            x,
		Y:            y,
		SystemSymbol: shared.ExtractSystemSymbol(symbol),
		Type:         waypointType,
		Traits:       traits,
		HasFuel:      containsString(traits, shared.TraitMarketplace),
	}
}

// SampleRecord returns a paused mining automation with a two-step queue whose
// head has already failed once
func SampleRecord(ship string, at time.Time) automation.Record {
	state := automation.NewState(ship, "run-"+ship, automation.BehaviorMining, automation.DefaultPolicy(automation.BehaviorMining), at)
	state.RecordAction(at.Add(time.Minute))
	state.SetProgress(40)
	state.Pause(at.Add(2*time.Minute), "paused by operator")
	state.ErrorMessage = "navigate failed once"

	queue := automation.NewPlanQueue(3)
	_ = queue.Enqueue(
		automation.NavigatePayload{Waypoint: "X1-TEST-B7"},
		automation.SellPayload{Good: "IRON_ORE", Units: 12},
		automation.DeliverPayload{ContractID: "C-1", Good: "COPPER_ORE", Units: 5, Destination: "X1-TEST-H1"},
	)
	_, _, _ = queue.RecordFailure()

	return automation.NewRecord(state, queue)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
