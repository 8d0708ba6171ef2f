package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/persistence"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
	"github.com/andrescamacho/spacetraders-autopilot/test/helpers"
)

func TestWaypointRepository_SaveAllAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db)
	market := helpers.NewWaypoint("X1-GZ7-A1", "PLANET", 10.5, 20.3, shared.TraitMarketplace, "SHIPYARD")
	asteroid := helpers.NewWaypoint("X1-GZ7-B7", shared.WaypointTypeAsteroid, -4, 8)

	// Act
	err := repo.SaveAll(context.Background(), []*shared.Waypoint{market, asteroid})
	require.NoError(t, err)
	found, err := repo.FindBySymbol(context.Background(), "X1-GZ7-A1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, market.SystemSymbol, found.SystemSymbol)
	assert.Equal(t, market.Type, found.Type)
	assert.Equal(t, market.X, found.X)
	assert.True(t, found.HasFuel)
	assert.Equal(t, market.Traits, found.Traits)
}

func TestWaypointRepository_ListBySystem(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db)
	require.NoError(t, repo.SaveAll(context.Background(), []*shared.Waypoint{
		helpers.NewWaypoint("X1-GZ7-B2", "MOON", 30, 40),
		helpers.NewWaypoint("X1-GZ7-A1", "PLANET", 10, 20),
		helpers.NewWaypoint("X1-ABC-C3", shared.WaypointTypeAsteroid, 50, 60),
	}))

	// Act
	waypoints, err := repo.ListBySystem(context.Background(), "X1-GZ7")

	// Assert
	require.NoError(t, err)
	require.Len(t, waypoints, 2)
	assert.Equal(t, "X1-GZ7-A1", waypoints[0].Symbol)
	assert.Equal(t, "X1-GZ7-B2", waypoints[1].Symbol)
}

func TestWaypointRepository_SaveAllOverwritesExisting(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.SaveAll(ctx, []*shared.Waypoint{helpers.NewWaypoint("X1-GZ7-A1", "PLANET", 10, 20)}))

	// Act
	err := repo.SaveAll(ctx, []*shared.Waypoint{
		helpers.NewWaypoint("X1-GZ7-A1", "PLANET", 11, 22, shared.TraitMarketplace),
	})

	// Assert
	require.NoError(t, err)
	waypoints, err := repo.ListBySystem(ctx, "X1-GZ7")
	require.NoError(t, err)
	require.Len(t, waypoints, 1)
	assert.Equal(t, 11.0, waypoints[0].X)
	assert.True(t, waypoints[0].HasTrait(shared.TraitMarketplace))
}

func TestWaypointRepository_FindUnknown(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db)

	// Act
	_, err := repo.FindBySymbol(context.Background(), "X1-NOPE-A1")

	// Assert
	assert.ErrorIs(t, err, automation.ErrUnknownWaypoint)
}

func TestMarketRepository_ReplaceMarket(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewMarketRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceMarket(ctx, "X1-GZ7-A1", []automation.MarketGood{
		{Waypoint: "X1-GZ7-A1", Good: "IRON_ORE", SellPrice: 40, UpdatedAt: helpers.Epoch},
		{Waypoint: "X1-GZ7-A1", Good: "COPPER_ORE", SellPrice: 55, UpdatedAt: helpers.Epoch},
	}))

	// Act
	err := repo.ReplaceMarket(ctx, "X1-GZ7-A1", []automation.MarketGood{
		{Waypoint: "X1-GZ7-A1", Good: "IRON_ORE", SellPrice: 44, TradeVolume: 60, UpdatedAt: helpers.Epoch},
	})
	require.NoError(t, err)
	goods, err := repo.ListBySystem(ctx, "X1-GZ7")

	// Assert
	require.NoError(t, err)
	require.Len(t, goods, 1)
	assert.Equal(t, "IRON_ORE", goods[0].Good)
	assert.Equal(t, 44, goods[0].SellPrice)
	assert.Equal(t, 60, goods[0].TradeVolume)
	assert.Equal(t, helpers.Epoch, goods[0].UpdatedAt)
}
