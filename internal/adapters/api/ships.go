package api

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

var _ automation.Gateway = (*SpaceTradersClient)(nil)

type navDTO struct {
	SystemSymbol   string `json:"systemSymbol"`
	WaypointSymbol string `json:"waypointSymbol"`
	Status         string `json:"status"`
	Route          *struct {
		Arrival time.Time `json:"arrival"`
	} `json:"route,omitempty"`
}

type fuelDTO struct {
	Current  int `json:"current"`
	Capacity int `json:"capacity"`
}

type cargoDTO struct {
	Capacity  int `json:"capacity"`
	Units     int `json:"units"`
	Inventory []struct {
		Symbol      string `json:"symbol"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Units       int    `json:"units"`
	} `json:"inventory"`
}

type cooldownDTO struct {
	RemainingSeconds int        `json:"remainingSeconds"`
	Expiration       *time.Time `json:"expiration,omitempty"`
}

type transactionDTO struct {
	WaypointSymbol string    `json:"waypointSymbol"`
	TradeSymbol    string    `json:"tradeSymbol"`
	Type           string    `json:"type"`
	Units          int       `json:"units"`
	PricePerUnit   int       `json:"pricePerUnit"`
	TotalPrice     int       `json:"totalPrice"`
	Timestamp      time.Time `json:"timestamp"`
}

type agentDTO struct {
	Symbol       string `json:"symbol"`
	Headquarters string `json:"headquarters"`
	Credits      int64  `json:"credits"`
}

type surveyDTO struct {
	Signature string `json:"signature"`
	Symbol    string `json:"symbol"`
	Deposits  []struct {
		Symbol string `json:"symbol"`
	} `json:"deposits"`
	Expiration time.Time `json:"expiration"`
	Size       string    `json:"size"`
}

func (n navDTO) toDomain() automation.NavUpdate {
	return automation.NavUpdate{Status: automation.NavStatus(n.Status), Waypoint: n.WaypointSymbol}
}

func (f fuelDTO) toDomain() shared.Fuel {
	return shared.Fuel{Current: f.Current, Capacity: f.Capacity}
}

func (c cargoDTO) toDomain() shared.Cargo {
	inventory := make([]*shared.CargoItem, 0, len(c.Inventory))
	for _, item := range c.Inventory {
		inventory = append(inventory, &shared.CargoItem{
			Symbol:      item.Symbol,
			Name:        item.Name,
			Description: item.Description,
			Units:       item.Units,
		})
	}
	return shared.Cargo{Capacity: c.Capacity, Units: c.Units, Inventory: inventory}
}

func (c cooldownDTO) toDomain() automation.Cooldown {
	return automation.Cooldown{RemainingSeconds: c.RemainingSeconds, Expiration: c.Expiration}
}

func (t transactionDTO) toDomain() automation.Transaction {
	return automation.Transaction{
		Waypoint:     t.WaypointSymbol,
		Good:         t.TradeSymbol,
		Type:         t.Type,
		Units:        t.Units,
		PricePerUnit: t.PricePerUnit,
		TotalPrice:   t.TotalPrice,
		Timestamp:    t.Timestamp,
	}
}

func (s surveyDTO) toDomain() automation.Survey {
	deposits := make([]automation.Deposit, 0, len(s.Deposits))
	for _, d := range s.Deposits {
		deposits = append(deposits, automation.Deposit{Symbol: d.Symbol})
	}
	return automation.Survey{
		Signature:  s.Signature,
		Waypoint:   s.Symbol,
		Deposits:   deposits,
		Expiration: s.Expiration,
		Size:       s.Size,
	}
}

// GetShip retrieves the current state of a ship
func (c *SpaceTradersClient) GetShip(ctx context.Context, shipSymbol string) (*automation.ShipSnapshot, error) {
	var response struct {
		Data struct {
			Symbol   string      `json:"symbol"`
			Nav      navDTO      `json:"nav"`
			Fuel     fuelDTO     `json:"fuel"`
			Cargo    cargoDTO    `json:"cargo"`
			Cooldown cooldownDTO `json:"cooldown"`
			Mounts   []struct {
				Symbol string `json:"symbol"`
			} `json:"mounts"`
		} `json:"data"`
	}

	if err := c.request(ctx, "GET", "/my/ships/"+shipSymbol, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to get ship: %w", err)
	}

	data := response.Data
	mounts := make([]string, 0, len(data.Mounts))
	for _, m := range data.Mounts {
		mounts = append(mounts, m.Symbol)
	}

	snapshot := &automation.ShipSnapshot{
		Symbol:       data.Symbol,
		NavStatus:    automation.NavStatus(data.Nav.Status),
		Waypoint:     data.Nav.WaypointSymbol,
		SystemSymbol: data.Nav.SystemSymbol,
		Fuel:         data.Fuel.toDomain(),
		Cargo:        data.Cargo.toDomain(),
		Cooldown:     data.Cooldown.toDomain(),
		Mounts:       mounts,
	}
	if data.Nav.Route != nil && snapshot.IsInTransit() {
		arrival := data.Nav.Route.Arrival
		snapshot.Arrival = &arrival
	}
	return snapshot, nil
}

// GetAgent retrieves the authenticated agent
func (c *SpaceTradersClient) GetAgent(ctx context.Context) (*automation.Agent, error) {
	var response struct {
		Data agentDTO `json:"data"`
	}
	if err := c.request(ctx, "GET", "/my/agent", nil, &response); err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &automation.Agent{
		Symbol:       response.Data.Symbol,
		Headquarters: response.Data.Headquarters,
		Credits:      response.Data.Credits,
	}, nil
}

// Navigate sends an orbiting ship to a waypoint in its system
func (c *SpaceTradersClient) Navigate(ctx context.Context, shipSymbol, waypoint string) (*automation.NavigationResult, error) {
	path := fmt.Sprintf("/my/ships/%s/navigate", shipSymbol)
	body := map[string]string{"waypointSymbol": waypoint}

	var response struct {
		Data struct {
			Nav  navDTO  `json:"nav"`
			Fuel fuelDTO `json:"fuel"`
		} `json:"data"`
	}
	if err := c.request(ctx, "POST", path, body, &response); err != nil {
		return nil, fmt.Errorf("failed to navigate ship: %w", err)
	}

	result := &automation.NavigationResult{
		Nav:  response.Data.Nav.toDomain(),
		Fuel: response.Data.Fuel.toDomain(),
	}
	if response.Data.Nav.Route != nil {
		result.Arrival = response.Data.Nav.Route.Arrival
	}
	return result, nil
}

// Dock docks a ship at its current waypoint
func (c *SpaceTradersClient) Dock(ctx context.Context, shipSymbol string) (*automation.NavUpdate, error) {
	return c.changeNav(ctx, shipSymbol, "dock")
}

// Orbit moves a ship into orbit at its current waypoint
func (c *SpaceTradersClient) Orbit(ctx context.Context, shipSymbol string) (*automation.NavUpdate, error) {
	return c.changeNav(ctx, shipSymbol, "orbit")
}

func (c *SpaceTradersClient) changeNav(ctx context.Context, shipSymbol, action string) (*automation.NavUpdate, error) {
	path := fmt.Sprintf("/my/ships/%s/%s", shipSymbol, action)

	var response struct {
		Data struct {
			Nav navDTO `json:"nav"`
		} `json:"data"`
	}
	// The API expects an empty JSON object
	if err := c.request(ctx, "POST", path, map[string]interface{}{}, &response); err != nil {
		return nil, fmt.Errorf("failed to %s ship: %w", action, err)
	}
	nav := response.Data.Nav.toDomain()
	return &nav, nil
}

// Refuel fills a docked ship's tank
func (c *SpaceTradersClient) Refuel(ctx context.Context, shipSymbol string) (*automation.RefuelResult, error) {
	path := fmt.Sprintf("/my/ships/%s/refuel", shipSymbol)

	var response struct {
		Data struct {
			Agent       agentDTO       `json:"agent"`
			Fuel        fuelDTO        `json:"fuel"`
			Transaction transactionDTO `json:"transaction"`
		} `json:"data"`
	}
	if err := c.request(ctx, "POST", path, map[string]interface{}{}, &response); err != nil {
		return nil, fmt.Errorf("failed to refuel ship: %w", err)
	}
	return &automation.RefuelResult{
		Fuel:        response.Data.Fuel.toDomain(),
		Transaction: response.Data.Transaction.toDomain(),
		Credits:     response.Data.Agent.Credits,
	}, nil
}

// Extract mines resources at the ship's waypoint, optionally targeting a survey
func (c *SpaceTradersClient) Extract(ctx context.Context, shipSymbol string, survey *automation.Survey) (*automation.ExtractionResult, error) {
	path := fmt.Sprintf("/my/ships/%s/extract", shipSymbol)

	var body interface{} = map[string]interface{}{}
	if survey != nil {
		path = fmt.Sprintf("/my/ships/%s/extract/survey", shipSymbol)
		body = survey
	}

	var response struct {
		Data struct {
			Cooldown   cooldownDTO `json:"cooldown"`
			Extraction struct {
				Yield struct {
					Symbol string `json:"symbol"`
					Units  int    `json:"units"`
				} `json:"yield"`
			} `json:"extraction"`
			Cargo cargoDTO `json:"cargo"`
		} `json:"data"`
	}
	if err := c.request(ctx, "POST", path, body, &response); err != nil {
		return nil, fmt.Errorf("failed to extract: %w", err)
	}
	return &automation.ExtractionResult{
		Good:     response.Data.Extraction.Yield.Symbol,
		Units:    response.Data.Extraction.Yield.Units,
		Cooldown: response.Data.Cooldown.toDomain(),
		Cargo:    response.Data.Cargo.toDomain(),
	}, nil
}

// Survey scans the ship's waypoint for deposits
func (c *SpaceTradersClient) Survey(ctx context.Context, shipSymbol string) (*automation.SurveyResult, error) {
	path := fmt.Sprintf("/my/ships/%s/survey", shipSymbol)

	var response struct {
		Data struct {
			Cooldown cooldownDTO `json:"cooldown"`
			Surveys  []surveyDTO `json:"surveys"`
		} `json:"data"`
	}
	if err := c.request(ctx, "POST", path, map[string]interface{}{}, &response); err != nil {
		return nil, fmt.Errorf("failed to survey: %w", err)
	}

	surveys := make([]automation.Survey, 0, len(response.Data.Surveys))
	for _, s := range response.Data.Surveys {
		surveys = append(surveys, s.toDomain())
	}
	return &automation.SurveyResult{
		Surveys:  surveys,
		Cooldown: response.Data.Cooldown.toDomain(),
	}, nil
}

// SellCargo sells cargo at the market the ship is docked at
func (c *SpaceTradersClient) SellCargo(ctx context.Context, shipSymbol, good string, units int) (*automation.TradeResult, error) {
	return c.trade(ctx, shipSymbol, "sell", good, units)
}

// PurchaseCargo buys cargo at the market the ship is docked at
func (c *SpaceTradersClient) PurchaseCargo(ctx context.Context, shipSymbol, good string, units int) (*automation.TradeResult, error) {
	return c.trade(ctx, shipSymbol, "purchase", good, units)
}

func (c *SpaceTradersClient) trade(ctx context.Context, shipSymbol, action, good string, units int) (*automation.TradeResult, error) {
	path := fmt.Sprintf("/my/ships/%s/%s", shipSymbol, action)
	body := map[string]interface{}{
		"symbol": good,
		"units":  units,
	}

	var response struct {
		Data struct {
			Agent       agentDTO       `json:"agent"`
			Cargo       cargoDTO       `json:"cargo"`
			Transaction transactionDTO `json:"transaction"`
		} `json:"data"`
	}
	if err := c.request(ctx, "POST", path, body, &response); err != nil {
		return nil, fmt.Errorf("failed to %s cargo: %w", action, err)
	}
	return &automation.TradeResult{
		Transaction: response.Data.Transaction.toDomain(),
		Cargo:       response.Data.Cargo.toDomain(),
		Credits:     response.Data.Agent.Credits,
	}, nil
}

// Jettison dumps cargo into space
func (c *SpaceTradersClient) Jettison(ctx context.Context, shipSymbol, good string, units int) (*shared.Cargo, error) {
	path := fmt.Sprintf("/my/ships/%s/jettison", shipSymbol)
	body := map[string]interface{}{
		"symbol": good,
		"units":  units,
	}

	var response struct {
		Data struct {
			Cargo cargoDTO `json:"cargo"`
		} `json:"data"`
	}
	if err := c.request(ctx, "POST", path, body, &response); err != nil {
		return nil, fmt.Errorf("failed to jettison cargo: %w", err)
	}
	cargo := response.Data.Cargo.toDomain()
	return &cargo, nil
}
