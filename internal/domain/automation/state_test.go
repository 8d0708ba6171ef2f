package automation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

var (
	startedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later     = startedAt.Add(time.Minute)
)

func newMiningState() *automation.State {
	return automation.NewState("SHIP-1", "run-1", automation.BehaviorMining,
		automation.DefaultPolicy(automation.BehaviorMining), startedAt)
}

func stateIn(status automation.RunStatus) *automation.State {
	s := newMiningState()
	s.Status = status
	return s
}

func TestNewState_StartsRunning(t *testing.T) {
	s := newMiningState()

	assert.Equal(t, automation.RunStatusRunning, s.Status)
	assert.Equal(t, "starting mining automation", s.CurrentTask)
	assert.Equal(t, startedAt, s.StartedAt)
	assert.Nil(t, s.LastActionAt)
}

func TestState_Transitions(t *testing.T) {
	type transition func(s *automation.State) bool
	pause := func(s *automation.State) bool { return s.Pause(later, "paused by operator") }
	resume := func(s *automation.State) bool { return s.Resume(later) }
	stop := func(s *automation.State) bool { return s.Stop(later) }
	fail := func(s *automation.State) bool { return s.Fail(later, "boom") }

	tests := []struct {
		name    string
		from    automation.RunStatus
		apply   transition
		applied bool
		want    automation.RunStatus
	}{
		{"pause running", automation.RunStatusRunning, pause, true, automation.RunStatusPaused},
		{"pause paused", automation.RunStatusPaused, pause, false, automation.RunStatusPaused},
		{"pause stopped", automation.RunStatusStopped, pause, false, automation.RunStatusStopped},
		{"pause error", automation.RunStatusError, pause, false, automation.RunStatusError},
		{"resume paused", automation.RunStatusPaused, resume, true, automation.RunStatusRunning},
		{"resume running", automation.RunStatusRunning, resume, false, automation.RunStatusRunning},
		{"resume stopped", automation.RunStatusStopped, resume, false, automation.RunStatusStopped},
		{"resume error", automation.RunStatusError, resume, false, automation.RunStatusError},
		{"stop running", automation.RunStatusRunning, stop, true, automation.RunStatusStopped},
		{"stop paused", automation.RunStatusPaused, stop, true, automation.RunStatusStopped},
		{"stop error", automation.RunStatusError, stop, true, automation.RunStatusStopped},
		{"stop stopped", automation.RunStatusStopped, stop, false, automation.RunStatusStopped},
		{"fail running", automation.RunStatusRunning, fail, true, automation.RunStatusError},
		{"fail paused", automation.RunStatusPaused, fail, false, automation.RunStatusPaused},
		{"fail stopped", automation.RunStatusStopped, fail, false, automation.RunStatusStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := stateIn(tt.from)

			// Act
			applied := tt.apply(s)

			// Assert
			assert.Equal(t, tt.applied, applied)
			assert.Equal(t, tt.want, s.Status)
			if applied {
				assert.Equal(t, later, s.UpdatedAt)
			} else {
				assert.Equal(t, startedAt, s.UpdatedAt)
			}
		})
	}
}

func TestState_StopAndFailDescribeOutcome(t *testing.T) {
	stopped := newMiningState()
	stopped.Stop(later)
	failed := newMiningState()
	failed.Fail(later, "ship destroyed")

	assert.Equal(t, "stopped", stopped.CurrentTask)
	assert.Equal(t, "ship destroyed", failed.ErrorMessage)
}

func TestState_SetProgressClamps(t *testing.T) {
	s := newMiningState()

	s.SetProgress(-5)
	assert.Equal(t, 0, s.ProgressPercent)
	s.SetProgress(250)
	assert.Equal(t, 100, s.ProgressPercent)
	s.SetProgress(42)
	assert.Equal(t, 42, s.ProgressPercent)
}

func TestState_CloneSharesNoMemory(t *testing.T) {
	// Arrange
	s := newMiningState()
	s.RecordAction(later)

	// Act
	clone := s.Clone()
	clone.Policy.Mining.MinFuelPercent = 77
	*clone.LastActionAt = later.Add(time.Hour)

	// Assert
	assert.Equal(t, 10, s.Policy.Mining.MinFuelPercent)
	assert.Equal(t, later, *s.LastActionAt)
}

func TestNewRecord_SnapshotsQueue(t *testing.T) {
	// Arrange
	s := newMiningState()
	q := automation.NewPlanQueue(3)
	require.NoError(t, q.Enqueue(automation.ExtractPayload{}))

	// Act
	rec := automation.NewRecord(s, q)
	require.NoError(t, q.Enqueue(automation.DockPayload{}))
	empty := automation.NewRecord(s, nil)

	// Assert
	assert.Len(t, rec.Queue, 1)
	assert.NotNil(t, empty.Queue)
	assert.Empty(t, empty.Queue)
}

func TestParseRunStatus(t *testing.T) {
	status, err := automation.ParseRunStatus("paused")
	require.NoError(t, err)
	assert.Equal(t, automation.RunStatusPaused, status)

	_, err = automation.ParseRunStatus("sleeping")
	assert.Error(t, err)
}

func TestState_RecoveryClearsErrorMessage(t *testing.T) {
	t.Run("successful action", func(t *testing.T) {
		s := newMiningState()
		s.RecordError(startedAt, "dropped extract after 3 attempts")

		s.RecordAction(later)

		assert.Empty(t, s.ErrorMessage)
		require.NotNil(t, s.LastActionAt)
	})

	t.Run("resume", func(t *testing.T) {
		s := newMiningState()
		s.RecordError(startedAt, "dropped sell after 3 attempts")
		s.Pause(startedAt, "paused by operator")

		s.Resume(later)

		assert.Empty(t, s.ErrorMessage)
	})
}
