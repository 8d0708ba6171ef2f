package api

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

const pageLimit = 20

type contractDTO struct {
	ID            string `json:"id"`
	FactionSymbol string `json:"factionSymbol"`
	Type          string `json:"type"`
	Terms         struct {
		Deadline time.Time `json:"deadline"`
		Payment  struct {
			OnAccepted  int64 `json:"onAccepted"`
			OnFulfilled int64 `json:"onFulfilled"`
		} `json:"payment"`
		Deliver []struct {
			TradeSymbol       string `json:"tradeSymbol"`
			DestinationSymbol string `json:"destinationSymbol"`
			UnitsRequired     int    `json:"unitsRequired"`
			UnitsFulfilled    int    `json:"unitsFulfilled"`
		} `json:"deliver"`
	} `json:"terms"`
	Accepted         bool      `json:"accepted"`
	Fulfilled        bool      `json:"fulfilled"`
	DeadlineToAccept time.Time `json:"deadlineToAccept"`
}

type metaDTO struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (m metaDTO) hasMore(fetched int) bool {
	return fetched < m.Total && m.Limit > 0
}

func (c contractDTO) toDomain() automation.Contract {
	deliveries := make([]automation.Delivery, 0, len(c.Terms.Deliver))
	for _, d := range c.Terms.Deliver {
		deliveries = append(deliveries, automation.Delivery{
			TradeSymbol:       d.TradeSymbol,
			DestinationSymbol: d.DestinationSymbol,
			UnitsRequired:     d.UnitsRequired,
			UnitsFulfilled:    d.UnitsFulfilled,
		})
	}
	return automation.Contract{
		ID:                c.ID,
		FactionSymbol:     c.FactionSymbol,
		Type:              c.Type,
		Accepted:          c.Accepted,
		Fulfilled:         c.Fulfilled,
		Deadline:          c.Terms.Deadline,
		DeadlineToAccept:  c.DeadlineToAccept,
		PaymentOnAccepted: c.Terms.Payment.OnAccepted,
		PaymentOnFulfill:  c.Terms.Payment.OnFulfilled,
		Deliveries:        deliveries,
	}
}

// GetContracts lists every contract of the agent, following pagination
func (c *SpaceTradersClient) GetContracts(ctx context.Context) ([]automation.Contract, error) {
	var contracts []automation.Contract
	for page := 1; ; page++ {
		var response struct {
			Data []contractDTO `json:"data"`
			Meta metaDTO       `json:"meta"`
		}
		path := fmt.Sprintf("/my/contracts?page=%d&limit=%d", page, pageLimit)
		if err := c.request(ctx, "GET", path, nil, &response); err != nil {
			return nil, fmt.Errorf("failed to list contracts: %w", err)
		}
		for _, dto := range response.Data {
			contracts = append(contracts, dto.toDomain())
		}
		if len(response.Data) == 0 || !response.Meta.hasMore(len(contracts)) {
			break
		}
	}
	return contracts, nil
}

// AcceptContract accepts a contract offer
func (c *SpaceTradersClient) AcceptContract(ctx context.Context, contractID string) (*automation.Contract, error) {
	return c.contractAction(ctx, contractID, "accept")
}

// FulfillContract completes a contract whose deliveries are done
func (c *SpaceTradersClient) FulfillContract(ctx context.Context, contractID string) (*automation.Contract, error) {
	return c.contractAction(ctx, contractID, "fulfill")
}

func (c *SpaceTradersClient) contractAction(ctx context.Context, contractID, action string) (*automation.Contract, error) {
	path := fmt.Sprintf("/my/contracts/%s/%s", contractID, action)

	var response struct {
		Data struct {
			Contract contractDTO `json:"contract"`
		} `json:"data"`
	}
	if err := c.request(ctx, "POST", path, map[string]interface{}{}, &response); err != nil {
		return nil, fmt.Errorf("failed to %s contract: %w", action, err)
	}
	contract := response.Data.Contract.toDomain()
	return &contract, nil
}

// DeliverContract hands cargo from a docked ship over to a contract
func (c *SpaceTradersClient) DeliverContract(ctx context.Context, contractID, shipSymbol, good string, units int) (*automation.ContractProgress, error) {
	path := fmt.Sprintf("/my/contracts/%s/deliver", contractID)
	body := map[string]interface{}{
		"shipSymbol":  shipSymbol,
		"tradeSymbol": good,
		"units":       units,
	}

	var response struct {
		Data struct {
			Contract contractDTO `json:"contract"`
			Cargo    cargoDTO    `json:"cargo"`
		} `json:"data"`
	}
	if err := c.request(ctx, "POST", path, body, &response); err != nil {
		return nil, fmt.Errorf("failed to deliver contract cargo: %w", err)
	}
	return &automation.ContractProgress{
		Contract: response.Data.Contract.toDomain(),
		Cargo:    response.Data.Cargo.toDomain(),
	}, nil
}
