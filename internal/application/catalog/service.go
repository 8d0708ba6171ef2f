package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/common"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
	"golang.org/x/sync/singleflight"
)

// Service answers the location questions behaviors ask, from cached world data.
// A system with nothing cached is synced from the remote API on first use;
// concurrent requests for the same system share one sync.
type Service struct {
	waypoints WaypointStore
	markets   MarketStore
	source    WorldSource
	group     singleflight.Group
}

func NewService(waypoints WaypointStore, markets MarketStore, source WorldSource) *Service {
	return &Service{
		waypoints: waypoints,
		markets:   markets,
		source:    source,
	}
}

// Waypoint returns a cached waypoint, syncing its system if it is unknown
func (s *Service) Waypoint(ctx context.Context, symbol string) (*shared.Waypoint, error) {
	wp, err := s.waypoints.FindBySymbol(ctx, symbol)
	if err == nil || !errors.Is(err, automation.ErrUnknownWaypoint) {
		return wp, err
	}
	if _, err := s.ensureSynced(ctx, shared.ExtractSystemSymbol(symbol)); err != nil {
		return nil, err
	}
	return s.waypoints.FindBySymbol(ctx, symbol)
}

// NearestAsteroid returns the asteroid closest to from
func (s *Service) NearestAsteroid(ctx context.Context, systemSymbol, from string) (*shared.Waypoint, error) {
	all, err := s.ensureSynced(ctx, systemSymbol)
	if err != nil {
		return nil, err
	}

	var asteroids []*shared.Waypoint
	for _, wp := range all {
		if wp.IsAsteroid() {
			asteroids = append(asteroids, wp)
		}
	}
	if len(asteroids) == 0 {
		return nil, shared.NewPlanningError("mining", fmt.Sprintf("no asteroid known in system %s", systemSymbol))
	}

	nearest, _ := shared.FindNearestWaypoint(origin(all, from), asteroids)
	return nearest, nil
}

// BestMarketFor picks the market that buys the most of the held cargo by
// value, preferring the nearer one on a tie. Markets farther than maxDistance
// are skipped when maxDistance is positive.
func (s *Service) BestMarketFor(ctx context.Context, systemSymbol, from string, cargo shared.Cargo, maxDistance float64) (*shared.Waypoint, error) {
	all, err := s.ensureSynced(ctx, systemSymbol)
	if err != nil {
		return nil, err
	}

	var marketplaces []*shared.Waypoint
	for _, wp := range all {
		if wp.HasTrait(shared.TraitMarketplace) {
			marketplaces = append(marketplaces, wp)
		}
	}
	if len(marketplaces) == 0 {
		return nil, shared.NewPlanningError("sell", fmt.Sprintf("no market known in system %s", systemSymbol))
	}

	goods, err := s.markets.ListBySystem(ctx, systemSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load market data for %s: %w", systemSymbol, err)
	}
	prices := make(map[string]map[string]int)
	for _, g := range goods {
		if prices[g.Waypoint] == nil {
			prices[g.Waypoint] = make(map[string]int)
		}
		prices[g.Waypoint][g.Good] = g.SellPrice
	}

	start := origin(all, from)
	var (
		best         *shared.Waypoint
		bestValue    = -1
		bestDistance float64
	)
	for _, market := range marketplaces {
		distance := start.DistanceTo(market)
		if maxDistance > 0 && distance > maxDistance {
			continue
		}
		value := saleValue(prices[market.Symbol], cargo)
		if value > bestValue || (value == bestValue && distance < bestDistance) {
			best, bestValue, bestDistance = market, value, distance
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %.0f of %s", automation.ErrNoMarketInRange, maxDistance, from)
	}
	return best, nil
}

// Sync refreshes a system's waypoints and market listings from the remote API
func (s *Service) Sync(ctx context.Context, systemSymbol string) (int, error) {
	logger := common.LoggerFromContext(ctx)

	waypoints, err := s.source.ListWaypoints(ctx, systemSymbol)
	if err != nil {
		return 0, fmt.Errorf("failed to list waypoints of %s: %w", systemSymbol, err)
	}
	if err := s.waypoints.SaveAll(ctx, waypoints); err != nil {
		return 0, fmt.Errorf("failed to save waypoints of %s: %w", systemSymbol, err)
	}

	markets := 0
	for _, wp := range waypoints {
		if !wp.HasTrait(shared.TraitMarketplace) {
			continue
		}
		goods, err := s.source.GetMarket(ctx, systemSymbol, wp.Symbol)
		if err != nil {
			logger.Log("WARNING", "Failed to fetch market", map[string]interface{}{
				"waypoint": wp.Symbol,
				"error":    err.Error(),
			})
			continue
		}
		if err := s.markets.ReplaceMarket(ctx, wp.Symbol, goods); err != nil {
			return 0, fmt.Errorf("failed to save market %s: %w", wp.Symbol, err)
		}
		markets++
	}

	logger.Log("INFO", "System synced", map[string]interface{}{
		"system":    systemSymbol,
		"waypoints": len(waypoints),
		"markets":   markets,
	})
	return len(waypoints), nil
}

func (s *Service) ensureSynced(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error) {
	cached, err := s.waypoints.ListBySystem(ctx, systemSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load waypoints of %s: %w", systemSymbol, err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	if _, err, _ := s.group.Do(systemSymbol, func() (interface{}, error) {
		return s.Sync(ctx, systemSymbol)
	}); err != nil {
		return nil, err
	}

	synced, err := s.waypoints.ListBySystem(ctx, systemSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load waypoints of %s: %w", systemSymbol, err)
	}
	if len(synced) == 0 {
		return nil, shared.NewPlanningError("catalog", fmt.Sprintf("system %s has no waypoints", systemSymbol))
	}
	return synced, nil
}

// origin returns the waypoint named from, or the system centre if it is unknown
func origin(waypoints []*shared.Waypoint, from string) *shared.Waypoint {
	for _, wp := range waypoints {
		if wp.Symbol == from {
			return wp
		}
	}
	return &shared.Waypoint{Symbol: from}
}

// saleValue scores a market for the cargo: units of each listed good times
// its sell price, counting unpriced listings as one credit per unit
func saleValue(prices map[string]int, cargo shared.Cargo) int {
	value := 0
	for _, item := range cargo.Inventory {
		price, listed := prices[item.Symbol]
		if !listed {
			continue
		}
		value += item.Units * max(price, 1)
	}
	return value
}
