package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

// AutomationRepositoryGORM implements automation.StateRepository using GORM
type AutomationRepositoryGORM struct {
	db *gorm.DB
}

// NewAutomationRepository creates a new GORM automation state repository
func NewAutomationRepository(db *gorm.DB) *AutomationRepositoryGORM {
	return &AutomationRepositoryGORM{db: db}
}

// Save overwrites the stored snapshot for the record's ship
func (r *AutomationRepositoryGORM) Save(ctx context.Context, record automation.Record) error {
	model, err := recordToModel(record)
	if err != nil {
		return fmt.Errorf("failed to convert automation record: %w", err)
	}

	// Upsert: create or update
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to save automation state: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a ship, or automation.ErrRecordNotFound
func (r *AutomationRepositoryGORM) Load(ctx context.Context, shipSymbol string) (*automation.Record, error) {
	var model AutomationStateModel
	result := r.db.WithContext(ctx).Where("ship_symbol = ?", shipSymbol).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, automation.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load automation state: %w", result.Error)
	}
	return modelToRecord(&model)
}

// LoadAll retrieves every stored snapshot ordered by ship symbol
func (r *AutomationRepositoryGORM) LoadAll(ctx context.Context) ([]automation.Record, error) {
	var models []AutomationStateModel
	if err := r.db.WithContext(ctx).Order("ship_symbol").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list automation states: %w", err)
	}

	records := make([]automation.Record, 0, len(models))
	for i := range models {
		record, err := modelToRecord(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert automation state %s: %w", models[i].ShipSymbol, err)
		}
		records = append(records, *record)
	}
	return records, nil
}

func recordToModel(record automation.Record) (*AutomationStateModel, error) {
	policyJSON, err := json.Marshal(record.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy: %w", err)
	}

	queue := record.Queue
	if queue == nil {
		queue = []automation.ActionStep{}
	}
	queueJSON, err := json.Marshal(queue)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue: %w", err)
	}

	return &AutomationStateModel{
		ShipSymbol:      record.ShipSymbol,
		RunID:           record.RunID,
		Behavior:        string(record.Behavior),
		Status:          string(record.Status),
		CurrentTask:     record.CurrentTask,
		ProgressPercent: record.ProgressPercent,
		LastActionAt:    record.LastActionAt,
		ErrorMessage:    record.ErrorMessage,
		PolicyJSON:      string(policyJSON),
		QueueJSON:       string(queueJSON),
		StartedAt:       record.StartedAt,
		LastUpdatedAt:   record.UpdatedAt,
	}, nil
}

func modelToRecord(model *AutomationStateModel) (*automation.Record, error) {
	behavior, err := automation.ParseBehaviorKind(model.Behavior)
	if err != nil {
		return nil, err
	}
	status, err := automation.ParseRunStatus(model.Status)
	if err != nil {
		return nil, err
	}

	var policy automation.Policy
	if model.PolicyJSON != "" {
		if err := json.Unmarshal([]byte(model.PolicyJSON), &policy); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
		}
	}

	queue := []automation.ActionStep{}
	if model.QueueJSON != "" {
		if err := json.Unmarshal([]byte(model.QueueJSON), &queue); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue: %w", err)
		}
	}

	record := &automation.Record{
		State: automation.State{
			ShipSymbol:      model.ShipSymbol,
			RunID:           model.RunID,
			Behavior:        behavior,
			Status:          status,
			CurrentTask:     model.CurrentTask,
			ProgressPercent: model.ProgressPercent,
			ErrorMessage:    model.ErrorMessage,
			Policy:          policy,
			StartedAt:       model.StartedAt.UTC(),
			UpdatedAt:       model.LastUpdatedAt.UTC(),
		},
		Queue: queue,
	}
	if model.LastActionAt != nil {
		at := model.LastActionAt.UTC()
		record.LastActionAt = &at
	}
	return record, nil
}
