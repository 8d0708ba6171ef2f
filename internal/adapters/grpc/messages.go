package grpc

import (
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

type StartAutomationRequest struct {
	ShipSymbol string                 `json:"shipSymbol"`
	Behavior   string                 `json:"behavior"`
	Overrides  map[string]interface{} `json:"overrides,omitempty"`
}

type ListAutomationsRequest struct {
	// Status filters by run status when set
	Status string `json:"status,omitempty"`
}

type SyncCatalogRequest struct {
	SystemSymbol string `json:"systemSymbol"`
}

// AutomationState is the wire form of automation.State
type AutomationState struct {
	ShipSymbol      string                 `json:"shipSymbol"`
	RunID           string                 `json:"runId"`
	Behavior        string                 `json:"behavior"`
	Status          string                 `json:"status"`
	CurrentTask     string                 `json:"currentTask"`
	ProgressPercent int32                  `json:"progressPercent"`
	LastActionAt    *time.Time             `json:"lastActionAt,omitempty"`
	ErrorMessage    string                 `json:"errorMessage,omitempty"`
	Policy          automation.Policy      `json:"policy"`
	StartedAt       time.Time              `json:"startedAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// AutomationDetail is a state plus its pending steps, head first
type AutomationDetail struct {
	State AutomationState         `json:"state"`
	Queue []automation.ActionStep `json:"queue"`
}

type ListAutomationsResponse struct {
	Automations []AutomationState `json:"automations"`
}

func toWireState(state *automation.State) AutomationState {
	wire := AutomationState{
		ShipSymbol:      state.ShipSymbol,
		RunID:           state.RunID,
		Behavior:        string(state.Behavior),
		Status:          string(state.Status),
		CurrentTask:     state.CurrentTask,
		ProgressPercent: int32(state.ProgressPercent),
		ErrorMessage:    state.ErrorMessage,
		Policy:          state.Policy,
		StartedAt:       state.StartedAt.UTC(),
		UpdatedAt:       state.UpdatedAt.UTC(),
	}
	if state.LastActionAt != nil {
		at := state.LastActionAt.UTC()
		wire.LastActionAt = &at
	}
	return wire
}

// ToDomain converts the wire form back to a domain state
func (s AutomationState) ToDomain() automation.State {
	state := automation.State{
		ShipSymbol:      s.ShipSymbol,
		RunID:           s.RunID,
		Behavior:        automation.BehaviorKind(s.Behavior),
		Status:          automation.RunStatus(s.Status),
		CurrentTask:     s.CurrentTask,
		ProgressPercent: int(s.ProgressPercent),
		ErrorMessage:    s.ErrorMessage,
		Policy:          s.Policy,
		StartedAt:       s.StartedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.LastActionAt != nil {
		at := *s.LastActionAt
		state.LastActionAt = &at
	}
	return state
}
