package autopilot

import (
	"context"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// Behavior is a planning strategy. Plan is only called with an empty queue and
// may append steps, update the task and progress of state, or pause it.
// It must not assume anything about how often it is called.
type Behavior interface {
	Kind() automation.BehaviorKind
	Plan(ctx context.Context, ship *automation.ShipSnapshot, state *automation.State, queue *automation.PlanQueue) error
}

// IdleBehavior plans nothing and parks the automation
type IdleBehavior struct {
	clock shared.Clock
}

func NewIdleBehavior(clock shared.Clock) *IdleBehavior {
	return &IdleBehavior{clock: clock}
}

func (b *IdleBehavior) Kind() automation.BehaviorKind {
	return automation.BehaviorIdle
}

func (b *IdleBehavior) Plan(ctx context.Context, ship *automation.ShipSnapshot, state *automation.State, queue *automation.PlanQueue) error {
	state.Pause(b.clock.Now(), "idle: no behavior assigned")
	return nil
}
