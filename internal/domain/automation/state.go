package automation

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle position of an automation
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusPaused  RunStatus = "paused"
	RunStatusStopped RunStatus = "stopped"
	RunStatusError   RunStatus = "error"
)

// ParseRunStatus validates a persisted status value
func ParseRunStatus(s string) (RunStatus, error) {
	switch status := RunStatus(s); status {
	case RunStatusRunning, RunStatusPaused, RunStatusStopped, RunStatusError:
		return status, nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}

// State is the per-ship automation record.
//
// Transitions:
//
//	running -> paused   (Pause)
//	paused  -> running  (Resume)
//	running|paused|error -> stopped (Stop)
//	running -> error    (Fail)
//
// Any other transition request leaves the state unchanged.
type State struct {
	ShipSymbol      string       `json:"shipId"`
	RunID           string       `json:"runId"`
	Behavior        BehaviorKind `json:"behaviorKind"`
	Status          RunStatus    `json:"runStatus"`
	CurrentTask     string       `json:"currentTaskDescription"`
	ProgressPercent int          `json:"progressPercent"`
	LastActionAt    *time.Time   `json:"lastActionTimestamp,omitempty"`
	ErrorMessage    string       `json:"errorMessage,omitempty"`
	Policy          Policy       `json:"policy"`
	StartedAt       time.Time    `json:"startedAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// NewState creates a running automation for a ship
func NewState(shipSymbol, runID string, behavior BehaviorKind, policy Policy, now time.Time) *State {
	return &State{
		ShipSymbol:  shipSymbol,
		RunID:       runID,
		Behavior:    behavior,
		Status:      RunStatusRunning,
		CurrentTask: "starting " + string(behavior) + " automation",
		Policy:      policy,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *State) IsRunning() bool {
	return s.Status == RunStatusRunning
}

// Pause moves a running automation to paused with reason as its task
func (s *State) Pause(now time.Time, reason string) bool {
	if s.Status != RunStatusRunning {
		return false
	}
	s.Status = RunStatusPaused
	if reason != "" {
		s.CurrentTask = reason
	}
	s.UpdatedAt = now
	return true
}

// Resume moves a paused automation back to running and clears the last error
func (s *State) Resume(now time.Time) bool {
	if s.Status != RunStatusPaused {
		return false
	}
	s.Status = RunStatusRunning
	s.ErrorMessage = ""
	s.UpdatedAt = now
	return true
}

// Stop ends the automation; it stays stopped until restarted
func (s *State) Stop(now time.Time) bool {
	if s.Status == RunStatusStopped {
		return false
	}
	s.Status = RunStatusStopped
	s.CurrentTask = "stopped"
	s.UpdatedAt = now
	return true
}

// Fail records an unrecoverable fault; only a restart leaves the error state
func (s *State) Fail(now time.Time, message string) bool {
	if s.Status != RunStatusRunning {
		return false
	}
	s.Status = RunStatusError
	s.ErrorMessage = message
	s.UpdatedAt = now
	return true
}

func (s *State) SetTask(now time.Time, task string) {
	s.CurrentTask = task
	s.UpdatedAt = now
}

// SetProgress stores an estimate clamped to 0..100
func (s *State) SetProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.ProgressPercent = percent
}

// RecordAction stamps a successful step. A step that went through means
// whatever failed before has recovered, so the error message is cleared.
func (s *State) RecordAction(now time.Time) {
	t := now
	s.LastActionAt = &t
	s.ErrorMessage = ""
	s.UpdatedAt = now
}

func (s *State) RecordError(now time.Time, message string) {
	s.ErrorMessage = message
	s.UpdatedAt = now
}

// Clone returns a snapshot that shares no memory with s
func (s *State) Clone() *State {
	out := *s
	out.Policy = s.Policy.Clone()
	if s.LastActionAt != nil {
		t := *s.LastActionAt
		out.LastActionAt = &t
	}
	return &out
}

// Record is the persisted form of one ship's automation: its state plus its queue
type Record struct {
	State
	Queue []ActionStep `json:"queue"`
}

// NewRecord snapshots state and queue for persistence
func NewRecord(state *State, queue *PlanQueue) Record {
	rec := Record{State: *state.Clone(), Queue: []ActionStep{}}
	if queue != nil {
		rec.Queue = queue.Steps()
	}
	return rec
}
