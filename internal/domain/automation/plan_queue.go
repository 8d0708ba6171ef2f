package automation

import (
	"encoding/json"
	"fmt"
)

// DefaultMaxRetries is the retry budget given to planned steps when none is configured
const DefaultMaxRetries = 3

// PlanQueue is the ordered backlog of steps for one ship.
//
// Invariants:
// - steps are only appended at the tail or removed from the head
// - the head is always the next step to attempt
type PlanQueue struct {
	steps      []ActionStep
	maxRetries int
}

// NewPlanQueue creates an empty queue whose new steps get maxRetries attempts
func NewPlanQueue(maxRetries int) *PlanQueue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &PlanQueue{maxRetries: maxRetries}
}

// RestorePlanQueue rebuilds a queue from persisted steps, keeping their order and counters
func RestorePlanQueue(maxRetries int, steps []ActionStep) *PlanQueue {
	q := NewPlanQueue(maxRetries)
	q.steps = append(q.steps, steps...)
	return q
}

// Enqueue appends one step per payload, in argument order
func (q *PlanQueue) Enqueue(payloads ...Payload) error {
	for _, payload := range payloads {
		step, err := NewActionStep(payload, q.maxRetries)
		if err != nil {
			return err
		}
		q.steps = append(q.steps, step)
	}
	return nil
}

// Head returns the next step to attempt
func (q *PlanQueue) Head() (ActionStep, bool) {
	if len(q.steps) == 0 {
		return ActionStep{}, false
	}
	return q.steps[0], true
}

// Pop removes the head step after it succeeded
func (q *PlanQueue) Pop() (ActionStep, bool) {
	if len(q.steps) == 0 {
		return ActionStep{}, false
	}
	head := q.steps[0]
	q.steps = q.steps[1:]
	return head, true
}

// RecordFailure counts a failed attempt of the head step. When the step has
// used its whole budget it is removed and dropped is true.
func (q *PlanQueue) RecordFailure() (step ActionStep, dropped bool, err error) {
	if len(q.steps) == 0 {
		return ActionStep{}, false, fmt.Errorf("cannot record failure on empty plan queue")
	}
	q.steps[0].retryCount++
	step = q.steps[0]
	if step.Exhausted() {
		q.steps = q.steps[1:]
		return step, true, nil
	}
	return step, false, nil
}

func (q *PlanQueue) Len() int {
	return len(q.steps)
}

func (q *PlanQueue) IsEmpty() bool {
	return len(q.steps) == 0
}

// MaxRetries is the budget stamped on newly enqueued steps
func (q *PlanQueue) MaxRetries() int {
	return q.maxRetries
}

// Steps returns a copy of the queued steps, head first
func (q *PlanQueue) Steps() []ActionStep {
	out := make([]ActionStep, len(q.steps))
	copy(out, q.steps)
	return out
}

// Clone returns an independent copy of the queue
func (q *PlanQueue) Clone() *PlanQueue {
	return RestorePlanQueue(q.maxRetries, q.steps)
}

func (q *PlanQueue) MarshalJSON() ([]byte, error) {
	steps := q.steps
	if steps == nil {
		steps = []ActionStep{}
	}
	return json.Marshal(steps)
}

func (q *PlanQueue) UnmarshalJSON(data []byte) error {
	var steps []ActionStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return fmt.Errorf("failed to decode plan queue: %w", err)
	}
	if q.maxRetries <= 0 {
		q.maxRetries = DefaultMaxRetries
	}
	q.steps = steps
	return nil
}
