package api

import (
	"context"
	"fmt"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

type waypointDTO struct {
	Symbol       string  `json:"symbol"`
	Type         string  `json:"type"`
	SystemSymbol string  `json:"systemSymbol"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Traits       []struct {
		Symbol string `json:"symbol"`
	} `json:"traits"`
}

type symbolDTO struct {
	Symbol string `json:"symbol"`
}

func (w waypointDTO) toDomain() *shared.Waypoint {
	traits := make([]string, 0, len(w.Traits))
	for _, t := range w.Traits {
		traits = append(traits, t.Symbol)
	}
	waypoint := &shared.Waypoint{
		Symbol:       w.Symbol,
		X:            w.X,
		Y:            w.Y,
		SystemSymbol: w.SystemSymbol,
		Type:         w.Type,
		Traits:       traits,
	}
	if waypoint.SystemSymbol == "" {
		waypoint.SystemSymbol = shared.ExtractSystemSymbol(w.Symbol)
	}
	// Marketplaces sell fuel
	waypoint.HasFuel = waypoint.HasTrait(shared.TraitMarketplace)
	return waypoint
}

// ListWaypoints fetches every waypoint in a system, following pagination
func (c *SpaceTradersClient) ListWaypoints(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error) {
	var waypoints []*shared.Waypoint
	for page := 1; ; page++ {
		var response struct {
			Data []waypointDTO `json:"data"`
			Meta metaDTO       `json:"meta"`
		}
		path := fmt.Sprintf("/systems/%s/waypoints?page=%d&limit=%d", systemSymbol, page, pageLimit)
		if err := c.request(ctx, "GET", path, nil, &response); err != nil {
			return nil, fmt.Errorf("failed to list waypoints: %w", err)
		}
		for _, dto := range response.Data {
			waypoints = append(waypoints, dto.toDomain())
		}
		if len(response.Data) == 0 || !response.Meta.hasMore(len(waypoints)) {
			break
		}
	}
	return waypoints, nil
}

// GetMarket fetches the goods traded at a market. Prices are only reported
// while one of the agent's ships is present; otherwise goods are listed with
// zero prices.
func (c *SpaceTradersClient) GetMarket(ctx context.Context, systemSymbol, waypoint string) ([]automation.MarketGood, error) {
	var response struct {
		Data struct {
			Imports    []symbolDTO `json:"imports"`
			Exports    []symbolDTO `json:"exports"`
			Exchange   []symbolDTO `json:"exchange"`
			TradeGoods []struct {
				Symbol        string `json:"symbol"`
				TradeVolume   int    `json:"tradeVolume"`
				PurchasePrice int    `json:"purchasePrice"`
				SellPrice     int    `json:"sellPrice"`
			} `json:"tradeGoods"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/systems/%s/waypoints/%s/market", systemSymbol, waypoint)
	if err := c.request(ctx, "GET", path, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}

	now := c.clock.Now()
	seen := make(map[string]bool)
	var goods []automation.MarketGood
	for _, tg := range response.Data.TradeGoods {
		seen[tg.Symbol] = true
		goods = append(goods, automation.MarketGood{
			Waypoint:      waypoint,
			Good:          tg.Symbol,
			PurchasePrice: tg.PurchasePrice,
			SellPrice:     tg.SellPrice,
			TradeVolume:   tg.TradeVolume,
			UpdatedAt:     now,
		})
	}

	listed := append(append(append([]symbolDTO{}, response.Data.Imports...), response.Data.Exports...), response.Data.Exchange...)
	for _, s := range listed {
		if seen[s.Symbol] {
			continue
		}
		seen[s.Symbol] = true
		goods = append(goods, automation.MarketGood{
			Waypoint:  waypoint,
			Good:      s.Symbol,
			UpdatedAt: now,
		})
	}
	return goods, nil
}
