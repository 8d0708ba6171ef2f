package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// GormWaypointRepository is the catalog's waypoint cache
type GormWaypointRepository struct {
	db *gorm.DB
}

func NewGormWaypointRepository(db *gorm.DB) *GormWaypointRepository {
	return &GormWaypointRepository{db: db}
}

// FindBySymbol wraps automation.ErrUnknownWaypoint when the waypoint was never synced
func (r *GormWaypointRepository) FindBySymbol(ctx context.Context, symbol string) (*shared.Waypoint, error) {
	var row WaypointModel
	err := r.db.WithContext(ctx).Take(&row, "waypoint_symbol = ?", symbol).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: %s", automation.ErrUnknownWaypoint, symbol)
	case err != nil:
		return nil, fmt.Errorf("failed to find waypoint %s: %w", symbol, err)
	}
	return rowToWaypoint(row)
}

// ListBySystem returns the cached waypoints of a system in symbol order.
// An empty result means the system has not been synced yet.
func (r *GormWaypointRepository) ListBySystem(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error) {
	var rows []WaypointModel
	if err := r.db.WithContext(ctx).
		Where("system_symbol = ?", systemSymbol).
		Order("waypoint_symbol").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list waypoints of %s: %w", systemSymbol, err)
	}

	out := make([]*shared.Waypoint, len(rows))
	for i, row := range rows {
		wp, err := rowToWaypoint(row)
		if err != nil {
			return nil, err
		}
		out[i] = wp
	}
	return out, nil
}

// SaveAll upserts a batch of waypoints keyed by symbol
func (r *GormWaypointRepository) SaveAll(ctx context.Context, waypoints []*shared.Waypoint) error {
	if len(waypoints) == 0 {
		return nil
	}

	rows := make([]WaypointModel, len(waypoints))
	for i, wp := range waypoints {
		row, err := waypointToRow(wp)
		if err != nil {
			return err
		}
		rows[i] = row
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "waypoint_symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"system_symbol", "type", "x", "y", "traits", "has_fuel"}),
		}).
		CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d waypoints: %w", len(rows), err)
	}
	return nil
}

func rowToWaypoint(row WaypointModel) (*shared.Waypoint, error) {
	wp, err := shared.NewWaypoint(row.WaypointSymbol, row.X, row.Y)
	if err != nil {
		return nil, err
	}
	wp.SystemSymbol = row.SystemSymbol
	wp.Type = row.Type
	wp.HasFuel = row.HasFuel == 1
	if row.Traits != "" {
		// Unreadable traits degrade to none; the waypoint itself is still usable.
		if json.Unmarshal([]byte(row.Traits), &wp.Traits) != nil {
			wp.Traits = []string{}
		}
	}
	return wp, nil
}

func waypointToRow(wp *shared.Waypoint) (WaypointModel, error) {
	row := WaypointModel{
		WaypointSymbol: wp.Symbol,
		SystemSymbol:   wp.SystemSymbol,
		Type:           wp.Type,
		X:              wp.X,
		Y:              wp.Y,
	}
	if wp.HasFuel {
		row.HasFuel = 1
	}
	if len(wp.Traits) > 0 {
		raw, err := json.Marshal(wp.Traits)
		if err != nil {
			return WaypointModel{}, fmt.Errorf("failed to encode traits of %s: %w", wp.Symbol, err)
		}
		row.Traits = string(raw)
	}
	return row, nil
}
