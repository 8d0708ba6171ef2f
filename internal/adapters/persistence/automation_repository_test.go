package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/persistence"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/test/helpers"
)

func TestAutomationRepository_SaveAndLoadRoundTrip(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewAutomationRepository(db)
	record := helpers.SampleRecord("MINER-1", helpers.Epoch)

	// Act
	err := repo.Save(context.Background(), record)
	require.NoError(t, err)
	loaded, err := repo.Load(context.Background(), "MINER-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, record.State, loaded.State)
	require.Len(t, loaded.Queue, len(record.Queue))
	for i := range record.Queue {
		assert.Equal(t, record.Queue[i].Payload(), loaded.Queue[i].Payload())
		assert.Equal(t, record.Queue[i].RetryCount(), loaded.Queue[i].RetryCount())
		assert.Equal(t, record.Queue[i].MaxRetries(), loaded.Queue[i].MaxRetries())
	}
	assert.Equal(t, 1, loaded.Queue[0].RetryCount())
}

func TestAutomationRepository_SaveOverwritesSnapshot(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewAutomationRepository(db)
	record := helpers.SampleRecord("MINER-1", helpers.Epoch)
	require.NoError(t, repo.Save(context.Background(), record))

	record.Stop(helpers.Epoch.Add(time.Hour))
	record.Queue = nil

	// Act
	err := repo.Save(context.Background(), record)

	// Assert
	require.NoError(t, err)
	loaded, err := repo.Load(context.Background(), "MINER-1")
	require.NoError(t, err)
	assert.Equal(t, automation.RunStatusStopped, loaded.Status)
	assert.Empty(t, loaded.Queue)
}

func TestAutomationRepository_LoadMissingShip(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewAutomationRepository(db)

	// Act
	_, err := repo.Load(context.Background(), "GHOST-1")

	// Assert
	assert.ErrorIs(t, err, automation.ErrRecordNotFound)
}

func TestAutomationRepository_LoadAllOrdersByShip(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewAutomationRepository(db)
	require.NoError(t, repo.Save(context.Background(), helpers.SampleRecord("TRADER-2", helpers.Epoch)))
	require.NoError(t, repo.Save(context.Background(), helpers.SampleRecord("MINER-1", helpers.Epoch)))

	// Act
	records, err := repo.LoadAll(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "MINER-1", records[0].ShipSymbol)
	assert.Equal(t, "TRADER-2", records[1].ShipSymbol)
}
