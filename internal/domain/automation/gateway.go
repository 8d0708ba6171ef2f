package automation

import (
	"context"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// Gateway is the remote ship API as the automation core consumes it.
// Every method may fail transiently (shared.TransientError) or semantically.
type Gateway interface {
	GetShip(ctx context.Context, shipSymbol string) (*ShipSnapshot, error)
	GetAgent(ctx context.Context) (*Agent, error)

	Navigate(ctx context.Context, shipSymbol, waypoint string) (*NavigationResult, error)
	Dock(ctx context.Context, shipSymbol string) (*NavUpdate, error)
	Orbit(ctx context.Context, shipSymbol string) (*NavUpdate, error)
	Refuel(ctx context.Context, shipSymbol string) (*RefuelResult, error)

	Extract(ctx context.Context, shipSymbol string, survey *Survey) (*ExtractionResult, error)
	Survey(ctx context.Context, shipSymbol string) (*SurveyResult, error)

	SellCargo(ctx context.Context, shipSymbol, good string, units int) (*TradeResult, error)
	PurchaseCargo(ctx context.Context, shipSymbol, good string, units int) (*TradeResult, error)
	Jettison(ctx context.Context, shipSymbol, good string, units int) (*shared.Cargo, error)

	GetContracts(ctx context.Context) ([]Contract, error)
	AcceptContract(ctx context.Context, contractID string) (*Contract, error)
	DeliverContract(ctx context.Context, contractID, shipSymbol, good string, units int) (*ContractProgress, error)
	FulfillContract(ctx context.Context, contractID string) (*Contract, error)
}

// Agent is the player account the ships belong to
type Agent struct {
	Symbol       string
	Headquarters string
	Credits      int64
}

// NavUpdate is the navigation block returned by dock and orbit
type NavUpdate struct {
	Status   NavStatus
	Waypoint string
}

type NavigationResult struct {
	Nav     NavUpdate
	Arrival time.Time
	Fuel    shared.Fuel
}

type RefuelResult struct {
	Fuel        shared.Fuel
	Transaction Transaction
	Credits     int64
}

// Deposit is a resource a survey predicts at a waypoint
type Deposit struct {
	Symbol string `json:"symbol"`
}

// Survey is a signed prediction of extraction yields at a waypoint
type Survey struct {
	Signature  string    `json:"signature"`
	Waypoint   string    `json:"symbol"`
	Deposits   []Deposit `json:"deposits"`
	Expiration time.Time `json:"expiration"`
	Size       string    `json:"size"`
}

// Rank orders surveys by size, larger first
func (s Survey) Rank() int {
	switch s.Size {
	case "LARGE":
		return 3
	case "MODERATE":
		return 2
	case "SMALL":
		return 1
	}
	return 0
}

type SurveyResult struct {
	Surveys  []Survey
	Cooldown Cooldown
}

type ExtractionResult struct {
	Good     string
	Units    int
	Cooldown Cooldown
	Cargo    shared.Cargo
}

// Transaction is a market trade or fuel purchase
type Transaction struct {
	Waypoint     string
	Good         string
	Type         string
	Units        int
	PricePerUnit int
	TotalPrice   int
	Timestamp    time.Time
}

type TradeResult struct {
	Transaction Transaction
	Cargo       shared.Cargo
	Credits     int64
}

type ContractProgress struct {
	Contract Contract
	Cargo    shared.Cargo
}
