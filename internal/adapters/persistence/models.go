package persistence

import (
	"time"
)

// AutomationStateModel represents the automation_states table.
// One row per ship; each save overwrites the full snapshot.
type AutomationStateModel struct {
	ShipSymbol      string     `gorm:"column:ship_symbol;primaryKey;size:64"`
	RunID           string     `gorm:"column:run_id;not null;size:64"`
	Behavior        string     `gorm:"column:behavior;not null;size:32"`
	Status          string     `gorm:"column:status;not null;size:16;index"`
	CurrentTask     string     `gorm:"column:current_task;type:text"`
	ProgressPercent int        `gorm:"column:progress_percent;not null;default:0"`
	LastActionAt    *time.Time `gorm:"column:last_action_at"`
	ErrorMessage    string     `gorm:"column:error_message;type:text"`
	PolicyJSON      string     `gorm:"column:policy;type:text"` // JSON object as text
	QueueJSON       string     `gorm:"column:queue;type:text"`  // JSON array as text
	StartedAt       time.Time  `gorm:"column:started_at;not null"`
	LastUpdatedAt   time.Time  `gorm:"column:updated_at;not null"` // not UpdatedAt: gorm would overwrite it on save
}

func (AutomationStateModel) TableName() string {
	return "automation_states"
}

// WaypointModel represents the waypoints table
type WaypointModel struct {
	WaypointSymbol string  `gorm:"column:waypoint_symbol;primaryKey"`
	SystemSymbol   string  `gorm:"column:system_symbol;not null;index"`
	Type           string  `gorm:"column:type;not null"`
	X              float64 `gorm:"column:x;not null"`
	Y              float64 `gorm:"column:y;not null"`
	Traits         string  `gorm:"column:traits;type:text"`            // JSON array as text
	HasFuel        int     `gorm:"column:has_fuel;not null;default:0"` // 0 or 1 (SQLite compatible)
}

func (WaypointModel) TableName() string {
	return "waypoints"
}

// MarketData represents the market_data table.
// Primary key is composite: (waypoint_symbol, good_symbol)
type MarketData struct {
	WaypointSymbol string    `gorm:"primaryKey;size:255;not null"`
	GoodSymbol     string    `gorm:"primaryKey;size:100;not null"`
	SystemSymbol   string    `gorm:"size:64;index;not null"`
	PurchasePrice  int       `gorm:"not null"`
	SellPrice      int       `gorm:"not null"`
	TradeVolume    int       `gorm:"not null"`
	LastUpdated    time.Time `gorm:"index;not null"`
}

func (MarketData) TableName() string {
	return "market_data"
}
