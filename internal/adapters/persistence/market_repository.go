package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// MarketRepositoryGORM implements catalog.MarketStore using GORM
type MarketRepositoryGORM struct {
	db *gorm.DB
}

// NewMarketRepository creates a new GORM-based market repository
func NewMarketRepository(db *gorm.DB) *MarketRepositoryGORM {
	return &MarketRepositoryGORM{db: db}
}

// ReplaceMarket swaps every stored good of a market for the given ones.
// One row per (waypoint, good).
func (r *MarketRepositoryGORM) ReplaceMarket(ctx context.Context, waypointSymbol string, goods []automation.MarketGood) error {
	systemSymbol := shared.ExtractSystemSymbol(waypointSymbol)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("waypoint_symbol = ?", waypointSymbol).Delete(&MarketData{}).Error; err != nil {
			return fmt.Errorf("failed to delete old market data: %w", err)
		}

		if len(goods) == 0 {
			return nil
		}

		records := make([]MarketData, len(goods))
		for i, good := range goods {
			records[i] = MarketData{
				WaypointSymbol: waypointSymbol,
				GoodSymbol:     good.Good,
				SystemSymbol:   systemSymbol,
				PurchasePrice:  good.PurchasePrice,
				SellPrice:      good.SellPrice,
				TradeVolume:    good.TradeVolume,
				LastUpdated:    good.UpdatedAt,
			}
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to insert market data: %w", err)
		}
		return nil
	})
}

// ListBySystem retrieves every known good at every market in a system
func (r *MarketRepositoryGORM) ListBySystem(ctx context.Context, systemSymbol string) ([]automation.MarketGood, error) {
	var records []MarketData
	err := r.db.WithContext(ctx).
		Where("system_symbol = ?", systemSymbol).
		Order("waypoint_symbol, good_symbol").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list market data: %w", err)
	}

	goods := make([]automation.MarketGood, 0, len(records))
	for _, record := range records {
		goods = append(goods, automation.MarketGood{
			Waypoint:      record.WaypointSymbol,
			Good:          record.GoodSymbol,
			PurchasePrice: record.PurchasePrice,
			SellPrice:     record.SellPrice,
			TradeVolume:   record.TradeVolume,
			UpdatedAt:     record.LastUpdated.UTC(),
		})
	}
	return goods, nil
}
