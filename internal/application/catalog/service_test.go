package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
	"github.com/andrescamacho/spacetraders-autopilot/test/helpers"
)

const system = "X1-CAT"

func newWorld() *helpers.StaticWorld {
	world := helpers.NewStaticWorld()
	world.AddWaypoint(helpers.NewWaypoint("X1-CAT-A1", shared.WaypointTypeAsteroid, 100, 0))
	world.AddWaypoint(helpers.NewWaypoint("X1-CAT-A2", shared.WaypointTypeEngineeredAsteroid, 10, 0))
	world.AddWaypoint(helpers.NewWaypoint("X1-CAT-HQ", "PLANET", 0, 0, shared.TraitMarketplace))
	world.AddWaypoint(helpers.NewWaypoint("X1-CAT-M2", "MOON", 50, 0, shared.TraitMarketplace))
	world.AddWaypoint(helpers.NewWaypoint("X1-CAT-FAR", "GAS_GIANT", 900, 0, shared.TraitMarketplace))
	world.SetMarketPrice("X1-CAT-HQ", "IRON_ORE", 10)
	world.SetMarketPrice("X1-CAT-M2", "IRON_ORE", 30)
	world.SetMarketPrice("X1-CAT-FAR", "GOLD_ORE", 500)
	return world
}

func TestService_SyncsSystemOnFirstUse(t *testing.T) {
	// Arrange
	world := newWorld()
	svc := helpers.NewMemoryCatalog(world)
	ctx := context.Background()

	// Act
	wp, err := svc.Waypoint(ctx, "X1-CAT-A1")
	require.NoError(t, err)
	_, err = svc.NearestAsteroid(ctx, system, "X1-CAT-HQ")
	require.NoError(t, err)

	// Assert
	assert.True(t, wp.IsAsteroid())
	assert.Equal(t, 1, world.ListCalls())
}

func TestService_UnknownWaypointAfterSync(t *testing.T) {
	svc := helpers.NewMemoryCatalog(newWorld())

	_, err := svc.Waypoint(context.Background(), "X1-CAT-NOPE")

	assert.ErrorIs(t, err, automation.ErrUnknownWaypoint)
}

func TestService_NearestAsteroid(t *testing.T) {
	svc := helpers.NewMemoryCatalog(newWorld())

	nearest, err := svc.NearestAsteroid(context.Background(), system, "X1-CAT-HQ")

	require.NoError(t, err)
	assert.Equal(t, "X1-CAT-A2", nearest.Symbol)
}

func TestService_NearestAsteroidMissing(t *testing.T) {
	world := helpers.NewStaticWorld()
	world.AddWaypoint(helpers.NewWaypoint("X1-CAT-HQ", "PLANET", 0, 0))
	svc := helpers.NewMemoryCatalog(world)

	_, err := svc.NearestAsteroid(context.Background(), system, "X1-CAT-HQ")

	var planning *shared.PlanningError
	assert.ErrorAs(t, err, &planning)
}

func TestService_BestMarketFor(t *testing.T) {
	tests := []struct {
		name        string
		cargo       map[string]int
		maxDistance float64
		want        string
	}{
		{"highest sale value", map[string]int{"IRON_ORE": 10}, 0, "X1-CAT-M2"},
		{"distance limit", map[string]int{"IRON_ORE": 10}, 20, "X1-CAT-HQ"},
		{"unlisted goods prefer nearest", map[string]int{"ICE_WATER": 10}, 0, "X1-CAT-HQ"},
		{"far market wins on value", map[string]int{"GOLD_ORE": 1, "IRON_ORE": 1}, 0, "X1-CAT-FAR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc := helpers.NewMemoryCatalog(newWorld())

			// Act
			best, err := svc.BestMarketFor(context.Background(), system, "X1-CAT-HQ", helpers.NewCargo(40, tt.cargo), tt.maxDistance)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.want, best.Symbol)
		})
	}
}

func TestService_BestMarketOutOfRange(t *testing.T) {
	svc := helpers.NewMemoryCatalog(newWorld())

	_, err := svc.BestMarketFor(context.Background(), system, "X1-CAT-A1", helpers.NewCargo(40, map[string]int{"IRON_ORE": 1}), 5)

	assert.ErrorIs(t, err, automation.ErrNoMarketInRange)
}

func TestService_SyncReportsWaypointCount(t *testing.T) {
	// Arrange
	store := helpers.NewMemoryMarketStore()
	world := newWorld()
	svc := newService(world, store)

	// Act
	count, err := svc.Sync(context.Background(), system)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	goods, err := store.ListBySystem(context.Background(), system)
	require.NoError(t, err)
	assert.Len(t, goods, 3)
}

func TestService_SyncSkipsFailingMarket(t *testing.T) {
	world := &flakyMarkets{StaticWorld: newWorld(), failing: "X1-CAT-M2"}
	store := helpers.NewMemoryMarketStore()
	svc := newService(world, store)

	count, err := svc.Sync(context.Background(), system)

	require.NoError(t, err)
	assert.Equal(t, 5, count)
	goods, _ := store.ListBySystem(context.Background(), system)
	assert.Len(t, goods, 2)
}

func TestService_ConcurrentLookupsAllSucceed(t *testing.T) {
	// Arrange
	world := newWorld()
	svc := helpers.NewMemoryCatalog(world)
	var wg sync.WaitGroup
	errs := make([]error, 8)

	// Act
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.NearestAsteroid(context.Background(), system, "X1-CAT-HQ")
		}(i)
	}
	wg.Wait()

	// Assert
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.GreaterOrEqual(t, world.ListCalls(), 1)
}

type flakyMarkets struct {
	*helpers.StaticWorld
	failing string
}

func (f *flakyMarkets) GetMarket(ctx context.Context, systemSymbol, waypoint string) ([]automation.MarketGood, error) {
	if waypoint == f.failing {
		return nil, errors.New("market unavailable")
	}
	return f.StaticWorld.GetMarket(ctx, systemSymbol, waypoint)
}
