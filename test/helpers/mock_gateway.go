package helpers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// MockGateway is an in-memory automation.Gateway. It simulates the effect of
// each call on its ships so that successive GetShip calls observe them.
// Travel is instant unless a travel time is set.
type MockGateway struct {
	mu    sync.Mutex
	clock shared.Clock

	ships     map[string]*automation.ShipSnapshot
	cooldowns map[string]time.Time // shipSymbol -> cooldown expiration
	arrivals  map[string]time.Time // shipSymbol -> arrival of the current trip
	contracts []automation.Contract
	agent     automation.Agent

	// waypoint -> good -> price per unit
	sellPrices map[string]map[string]int
	// waypoint -> goods the market refuses to buy
	refused map[string]map[string]bool

	// Extraction and survey behaviour
	yieldGood        string
	yieldUnits       int
	extractCooldown  time.Duration
	surveys          []automation.Survey
	travelTime       time.Duration
	fuelPerNavigate  int
	defaultSellPrice int

	// Error injection: method -> queued errors (consumed one per call)
	failures map[string][]error

	calls []string
}

// NewMockGateway creates a gateway with an agent holding 10,000 credits
func NewMockGateway(clock shared.Clock) *MockGateway {
	return &MockGateway{
		clock:            clock,
		ships:            make(map[string]*automation.ShipSnapshot),
		cooldowns:        make(map[string]time.Time),
		arrivals:         make(map[string]time.Time),
		sellPrices:       make(map[string]map[string]int),
		refused:          make(map[string]map[string]bool),
		failures:         make(map[string][]error),
		agent:            automation.Agent{Symbol: "TEST-AGENT", Headquarters: "X1-TEST-A1", Credits: 10000},
		yieldGood:        "IRON_ORE",
		yieldUnits:       5,
		defaultSellPrice: 10,
	}
}

// AddShip stores a copy of ship as the remote truth. A cooldown or trip on
// the snapshot starts counting down on the gateway's clock.
func (m *MockGateway) AddShip(ship *automation.ShipSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := copyShip(ship)
	delete(m.cooldowns, ship.Symbol)
	delete(m.arrivals, ship.Symbol)
	if ship.Cooldown.RemainingSeconds > 0 {
		m.cooldowns[ship.Symbol] = m.clock.Now().Add(time.Duration(ship.Cooldown.RemainingSeconds) * time.Second)
	}
	if ship.IsInTransit() && ship.Arrival != nil {
		m.arrivals[ship.Symbol] = *ship.Arrival
	}
	stored.Cooldown = automation.Cooldown{}
	m.ships[ship.Symbol] = stored
}

// UpdateShip applies fn to the stored ship
func (m *MockGateway) UpdateShip(symbol string, fn func(ship *automation.ShipSnapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ship, ok := m.ships[symbol]; ok {
		fn(ship)
	}
}

// Ship returns a copy of the stored ship
func (m *MockGateway) Ship(symbol string) *automation.ShipSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	ship, err := m.shipLocked(symbol)
	if err != nil {
		return nil
	}
	return m.snapshotLocked(ship)
}

func (m *MockGateway) AddContract(contract automation.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts = append(m.contracts, contract)
}

// Contract returns a copy of a stored contract
func (m *MockGateway) Contract(id string) (automation.Contract, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contracts {
		if c.ID == id {
			return copyContract(c), true
		}
	}
	return automation.Contract{}, false
}

func (m *MockGateway) SetCredits(credits int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agent.Credits = credits
}

func (m *MockGateway) Credits() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agent.Credits
}

// SetSellPrice sets what a market pays per unit of good
func (m *MockGateway) SetSellPrice(waypoint, good string, price int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sellPrices[waypoint] == nil {
		m.sellPrices[waypoint] = make(map[string]int)
	}
	m.sellPrices[waypoint][good] = price
}

// RefuseGood makes the market at waypoint reject every sale of good
func (m *MockGateway) RefuseGood(waypoint, good string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refused[waypoint] == nil {
		m.refused[waypoint] = make(map[string]bool)
	}
	m.refused[waypoint][good] = true
}

// SetYield configures what each extraction adds to the hold
func (m *MockGateway) SetYield(good string, units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.yieldGood = good
	m.yieldUnits = units
}

func (m *MockGateway) SetExtractCooldown(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractCooldown = d
}

func (m *MockGateway) SetTravelTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.travelTime = d
}

func (m *MockGateway) SetFuelPerNavigate(units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fuelPerNavigate = units
}

// SetSurveys configures what the next survey calls return
func (m *MockGateway) SetSurveys(surveys ...automation.Survey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surveys = surveys
}

// FailNext makes the next times calls of method return err
func (m *MockGateway) FailNext(method string, err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < times; i++ {
		m.failures[method] = append(m.failures[method], err)
	}
}

// ClearFailures drops every queued error
func (m *MockGateway) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string][]error)
}

// Calls returns the recorded calls as "Method(args)" strings, oldest first
func (m *MockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount counts calls to method
func (m *MockGateway) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	prefix := method + "("
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			count++
		}
	}
	return count
}

// ResetCalls clears the call log
func (m *MockGateway) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// enter records a call and returns an injected failure, if one is queued
func (m *MockGateway) enter(method string, args ...interface{}) error {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	m.calls = append(m.calls, method+"("+strings.Join(parts, ",")+")")

	queued := m.failures[method]
	if len(queued) == 0 {
		return nil
	}
	m.failures[method] = queued[1:]
	return queued[0]
}

func (m *MockGateway) shipLocked(symbol string) (*automation.ShipSnapshot, error) {
	ship, ok := m.ships[symbol]
	if !ok {
		return nil, fmt.Errorf("ship %s not found", symbol)
	}
	m.settleLocked(ship)
	return ship, nil
}

// settleLocked completes trips whose arrival has passed
func (m *MockGateway) settleLocked(ship *automation.ShipSnapshot) {
	arrival, ok := m.arrivals[ship.Symbol]
	if !ok || m.clock.Now().Before(arrival) {
		return
	}
	delete(m.arrivals, ship.Symbol)
	ship.NavStatus = automation.NavStatusInOrbit
	ship.Arrival = nil
}

func (m *MockGateway) snapshotLocked(ship *automation.ShipSnapshot) *automation.ShipSnapshot {
	out := copyShip(ship)
	out.Cooldown = automation.Cooldown{}
	if expiration, ok := m.cooldowns[ship.Symbol]; ok {
		if remaining := expiration.Sub(m.clock.Now()); remaining > 0 {
			exp := expiration
			out.Cooldown = automation.Cooldown{
				RemainingSeconds: int(math.Ceil(remaining.Seconds())),
				Expiration:       &exp,
			}
		}
	}
	return out
}

func (m *MockGateway) GetShip(ctx context.Context, shipSymbol string) (*automation.ShipSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetShip", shipSymbol); err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}
	return m.snapshotLocked(ship), nil
}

func (m *MockGateway) GetAgent(ctx context.Context) (*automation.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetAgent"); err != nil {
		return nil, err
	}
	agent := m.agent
	return &agent, nil
}

func (m *MockGateway) Navigate(ctx context.Context, shipSymbol, waypoint string) (*automation.NavigationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Navigate", shipSymbol, waypoint); err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}
	if ship.NavStatus != automation.NavStatusInOrbit {
		return nil, fmt.Errorf("ship %s must be in orbit to navigate", shipSymbol)
	}

	ship.Fuel.Current = max(0, ship.Fuel.Current-m.fuelPerNavigate)
	ship.Waypoint = waypoint
	ship.SystemSymbol = shared.ExtractSystemSymbol(waypoint)
	arrival := m.clock.Now().Add(m.travelTime)
	if m.travelTime > 0 {
		ship.NavStatus = automation.NavStatusInTransit
		ship.Arrival = &arrival
		m.arrivals[ship.Symbol] = arrival
	}

	return &automation.NavigationResult{
		Nav:     automation.NavUpdate{Status: ship.NavStatus, Waypoint: waypoint},
		Arrival: arrival,
		Fuel:    ship.Fuel,
	}, nil
}

func (m *MockGateway) Dock(ctx context.Context, shipSymbol string) (*automation.NavUpdate, error) {
	return m.setNav("Dock", shipSymbol, automation.NavStatusDocked)
}

func (m *MockGateway) Orbit(ctx context.Context, shipSymbol string) (*automation.NavUpdate, error) {
	return m.setNav("Orbit", shipSymbol, automation.NavStatusInOrbit)
}

func (m *MockGateway) setNav(method, shipSymbol string, status automation.NavStatus) (*automation.NavUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(method, shipSymbol); err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}
	if ship.NavStatus == automation.NavStatusInTransit {
		return nil, fmt.Errorf("ship %s is in transit", shipSymbol)
	}
	ship.NavStatus = status
	return &automation.NavUpdate{Status: status, Waypoint: ship.Waypoint}, nil
}

func (m *MockGateway) Refuel(ctx context.Context, shipSymbol string) (*automation.RefuelResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Refuel", shipSymbol); err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}
	added := ship.Fuel.Capacity - ship.Fuel.Current
	ship.Fuel.Current = ship.Fuel.Capacity
	cost := int64(added)
	m.agent.Credits -= cost

	return &automation.RefuelResult{
		Fuel: ship.Fuel,
		Transaction: automation.Transaction{
			Waypoint: ship.Waypoint, Good: "FUEL", Type: "PURCHASE",
			Units: added, PricePerUnit: 1, TotalPrice: added, Timestamp: m.clock.Now(),
		},
		Credits: m.agent.Credits,
	}, nil
}

func (m *MockGateway) Extract(ctx context.Context, shipSymbol string, survey *automation.Survey) (*automation.ExtractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	signature := ""
	if survey != nil {
		signature = survey.Signature
	}
	if err := m.enter("Extract", shipSymbol, signature); err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}

	good := m.yieldGood
	if survey != nil && len(survey.Deposits) > 0 {
		good = survey.Deposits[0].Symbol
	}
	units := min(m.yieldUnits, ship.Cargo.AvailableCapacity())
	addCargo(&ship.Cargo, good, units)

	cooldown := automation.Cooldown{}
	if m.extractCooldown > 0 {
		expiration := m.clock.Now().Add(m.extractCooldown)
		m.cooldowns[ship.Symbol] = expiration
		cooldown = automation.Cooldown{RemainingSeconds: int(m.extractCooldown.Seconds()), Expiration: &expiration}
	}

	return &automation.ExtractionResult{Good: good, Units: units, Cooldown: cooldown, Cargo: copyCargo(ship.Cargo)}, nil
}

func (m *MockGateway) Survey(ctx context.Context, shipSymbol string) (*automation.SurveyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Survey", shipSymbol); err != nil {
		return nil, err
	}
	if _, err := m.shipLocked(shipSymbol); err != nil {
		return nil, err
	}
	surveys := make([]automation.Survey, len(m.surveys))
	copy(surveys, m.surveys)
	return &automation.SurveyResult{Surveys: surveys}, nil
}

func (m *MockGateway) SellCargo(ctx context.Context, shipSymbol, good string, units int) (*automation.TradeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SellCargo", shipSymbol, good, units); err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}
	if ship.NavStatus != automation.NavStatusDocked {
		return nil, fmt.Errorf("ship %s must be docked to sell", shipSymbol)
	}
	if ship.Cargo.GetItemUnits(good) < units {
		return nil, fmt.Errorf("ship %s holds fewer than %d %s", shipSymbol, units, good)
	}
	if m.refused[ship.Waypoint][good] {
		return nil, fmt.Errorf("market %s does not buy %s", ship.Waypoint, good)
	}

	price := m.defaultSellPrice
	if p, ok := m.sellPrices[ship.Waypoint][good]; ok {
		price = p
	}
	removeCargo(&ship.Cargo, good, units)
	m.agent.Credits += int64(price * units)

	return &automation.TradeResult{
		Transaction: automation.Transaction{
			Waypoint: ship.Waypoint, Good: good, Type: "SELL",
			Units: units, PricePerUnit: price, TotalPrice: price * units, Timestamp: m.clock.Now(),
		},
		Cargo:   copyCargo(ship.Cargo),
		Credits: m.agent.Credits,
	}, nil
}

func (m *MockGateway) PurchaseCargo(ctx context.Context, shipSymbol, good string, units int) (*automation.TradeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("PurchaseCargo", shipSymbol, good, units); err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}
	price := m.defaultSellPrice
	addCargo(&ship.Cargo, good, units)
	m.agent.Credits -= int64(price * units)

	return &automation.TradeResult{
		Transaction: automation.Transaction{
			Waypoint: ship.Waypoint, Good: good, Type: "PURCHASE",
			Units: units, PricePerUnit: price, TotalPrice: price * units, Timestamp: m.clock.Now(),
		},
		Cargo:   copyCargo(ship.Cargo),
		Credits: m.agent.Credits,
	}, nil
}

func (m *MockGateway) Jettison(ctx context.Context, shipSymbol, good string, units int) (*shared.Cargo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Jettison", shipSymbol, good, units); err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}
	removeCargo(&ship.Cargo, good, units)
	cargo := copyCargo(ship.Cargo)
	return &cargo, nil
}

func (m *MockGateway) GetContracts(ctx context.Context) ([]automation.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetContracts"); err != nil {
		return nil, err
	}
	out := make([]automation.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, copyContract(c))
	}
	return out, nil
}

func (m *MockGateway) AcceptContract(ctx context.Context, contractID string) (*automation.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("AcceptContract", contractID); err != nil {
		return nil, err
	}
	c, err := m.contractLocked(contractID)
	if err != nil {
		return nil, err
	}
	c.Accepted = true
	m.agent.Credits += c.PaymentOnAccepted
	out := copyContract(*c)
	return &out, nil
}

func (m *MockGateway) DeliverContract(ctx context.Context, contractID, shipSymbol, good string, units int) (*automation.ContractProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeliverContract", contractID, shipSymbol, good, units); err != nil {
		return nil, err
	}
	c, err := m.contractLocked(contractID)
	if err != nil {
		return nil, err
	}
	ship, err := m.shipLocked(shipSymbol)
	if err != nil {
		return nil, err
	}

	delivered := false
	for i := range c.Deliveries {
		d := &c.Deliveries[i]
		if d.TradeSymbol != good || d.DestinationSymbol != ship.Waypoint {
			continue
		}
		accepted := min(units, d.Remaining())
		d.UnitsFulfilled += accepted
		removeCargo(&ship.Cargo, good, accepted)
		delivered = true
		break
	}
	if !delivered {
		return nil, fmt.Errorf("contract %s takes no %s at %s", contractID, good, ship.Waypoint)
	}

	return &automation.ContractProgress{Contract: copyContract(*c), Cargo: copyCargo(ship.Cargo)}, nil
}

func (m *MockGateway) FulfillContract(ctx context.Context, contractID string) (*automation.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FulfillContract", contractID); err != nil {
		return nil, err
	}
	c, err := m.contractLocked(contractID)
	if err != nil {
		return nil, err
	}
	c.Fulfilled = true
	m.agent.Credits += c.PaymentOnFulfill
	out := copyContract(*c)
	return &out, nil
}

func (m *MockGateway) contractLocked(id string) (*automation.Contract, error) {
	for i := range m.contracts {
		if m.contracts[i].ID == id {
			return &m.contracts[i], nil
		}
	}
	return nil, fmt.Errorf("contract %s not found", id)
}

func addCargo(cargo *shared.Cargo, good string, units int) {
	if units <= 0 {
		return
	}
	cargo.Units += units
	for _, item := range cargo.Inventory {
		if item.Symbol == good {
			item.Units += units
			return
		}
	}
	cargo.Inventory = append(cargo.Inventory, &shared.CargoItem{Symbol: good, Name: good, Units: units})
}

func removeCargo(cargo *shared.Cargo, good string, units int) {
	for i, item := range cargo.Inventory {
		if item.Symbol != good {
			continue
		}
		removed := min(units, item.Units)
		item.Units -= removed
		cargo.Units -= removed
		if item.Units == 0 {
			cargo.Inventory = append(cargo.Inventory[:i], cargo.Inventory[i+1:]...)
		}
		return
	}
}

func copyCargo(cargo shared.Cargo) shared.Cargo {
	out := shared.Cargo{Capacity: cargo.Capacity, Units: cargo.Units, Inventory: make([]*shared.CargoItem, 0, len(cargo.Inventory))}
	for _, item := range cargo.Inventory {
		c := *item
		out.Inventory = append(out.Inventory, &c)
	}
	return out
}

func copyShip(ship *automation.ShipSnapshot) *automation.ShipSnapshot {
	out := *ship
	out.Cargo = copyCargo(ship.Cargo)
	out.Mounts = append([]string(nil), ship.Mounts...)
	if ship.Arrival != nil {
		a := *ship.Arrival
		out.Arrival = &a
	}
	return &out
}

func copyContract(c automation.Contract) automation.Contract {
	out := c
	out.Deliveries = append([]automation.Delivery(nil), c.Deliveries...)
	return out
}

var _ automation.Gateway = (*MockGateway)(nil)
