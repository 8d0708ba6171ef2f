package automation

import (
	"encoding/json"
	"fmt"
)

// ActionType identifies the remote operation an ActionStep performs
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionDock     ActionType = "dock"
	ActionOrbit    ActionType = "orbit"
	ActionRefuel   ActionType = "refuel"
	ActionExtract  ActionType = "extract"
	ActionSurvey   ActionType = "survey"
	ActionSell     ActionType = "sell"
	ActionBuy      ActionType = "buy"
	ActionDeliver  ActionType = "deliver"
	ActionJettison ActionType = "jettison"
)

// Payload is the operation-specific data of an ActionStep.
// The set of implementations is closed: one struct per ActionType.
type Payload interface {
	Type() ActionType
	isPayload()
}

type NavigatePayload struct {
	Waypoint string `json:"waypoint"`
}

type DockPayload struct{}

type OrbitPayload struct{}

type RefuelPayload struct{}

type ExtractPayload struct{}

type SurveyPayload struct{}

// SellPayload sells Units of Good. An empty Good sells the whole inventory;
// zero Units sells everything held of Good.
type SellPayload struct {
	Good  string `json:"good,omitempty"`
	Units int    `json:"units,omitempty"`
}

type BuyPayload struct {
	Good  string `json:"good"`
	Units int    `json:"units"`
}

type DeliverPayload struct {
	ContractID  string `json:"contractId"`
	Good        string `json:"good"`
	Units       int    `json:"units"`
	Destination string `json:"destination"`
}

type JettisonPayload struct {
	Good  string `json:"good"`
	Units int    `json:"units"`
}

func (NavigatePayload) Type() ActionType { return ActionNavigate }
func (DockPayload) Type() ActionType { return ActionDock }
func (OrbitPayload) Type() ActionType { return ActionOrbit }
func (RefuelPayload) Type() ActionType { return ActionRefuel }
func (ExtractPayload) Type() ActionType { return ActionExtract }
func (SurveyPayload) Type() ActionType { return ActionSurvey }
func (SellPayload) Type() ActionType { return ActionSell }
func (BuyPayload) Type() ActionType { return ActionBuy }
func (DeliverPayload) Type() ActionType { return ActionDeliver }
func (JettisonPayload) Type() ActionType { return ActionJettison }

func (NavigatePayload) isPayload() {}
func (DockPayload) isPayload() {}
func (OrbitPayload) isPayload() {}
func (RefuelPayload) isPayload() {}
func (ExtractPayload) isPayload() {}
func (SurveyPayload) isPayload() {}
func (SellPayload) isPayload() {}
func (BuyPayload) isPayload() {}
func (DeliverPayload) isPayload() {}
func (JettisonPayload) isPayload() {}

// ActionStep is the smallest unit of automation work.
//
// Invariants:
// - payload and maxRetries never change after creation
// - 0 <= retryCount <= maxRetries
type ActionStep struct {
	payload    Payload
	retryCount int
	maxRetries int
}

// NewActionStep creates a step with a zero retry count
func NewActionStep(payload Payload, maxRetries int) (ActionStep, error) {
	if payload == nil {
		return ActionStep{}, fmt.Errorf("action payload is required")
	}
	if maxRetries <= 0 {
		return ActionStep{}, fmt.Errorf("maxRetries must be positive, got %d", maxRetries)
	}
	return ActionStep{payload: payload, maxRetries: maxRetries}, nil
}

func (s ActionStep) Type() ActionType { return s.payload.Type() }
func (s ActionStep) Payload() Payload { return s.payload }
func (s ActionStep) RetryCount() int { return s.retryCount }
func (s ActionStep) MaxRetries() int { return s.maxRetries }
func (s ActionStep) Exhausted() bool { return s.retryCount >= s.maxRetries }

// Target returns the location the step operates on, if it has one
func (s ActionStep) Target() string {
	switch p := s.payload.(type) {
	case NavigatePayload:
		return p.Waypoint
	case DeliverPayload:
		return p.Destination
	}
	return ""
}

func (s ActionStep) String() string {
	if target := s.Target(); target != "" {
		return fmt.Sprintf("%s(%s)", s.Type(), target)
	}
	return string(s.Type())
}

type actionStepJSON struct {
	Type       ActionType      `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
}

func (s ActionStep) MarshalJSON() ([]byte, error) {
	if s.payload == nil {
		return nil, fmt.Errorf("cannot encode action step without payload")
	}
	payload, err := json.Marshal(s.payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", s.Type(), err)
	}
	return json.Marshal(actionStepJSON{
		Type:       s.Type(),
		Payload:    payload,
		RetryCount: s.retryCount,
		MaxRetries: s.maxRetries,
	})
}

func (s *ActionStep) UnmarshalJSON(data []byte) error {
	var raw actionStepJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	payload, err := decodePayload(raw.Type, raw.Payload)
	if err != nil {
		return err
	}
	if raw.MaxRetries <= 0 {
		return fmt.Errorf("action step %s has invalid maxRetries %d", raw.Type, raw.MaxRetries)
	}
	if raw.RetryCount < 0 || raw.RetryCount > raw.MaxRetries {
		return fmt.Errorf("action step %s has retryCount %d outside [0, %d]", raw.Type, raw.RetryCount, raw.MaxRetries)
	}

	s.payload = payload
	s.retryCount = raw.RetryCount
	s.maxRetries = raw.MaxRetries
	return nil
}

func decodePayload(actionType ActionType, data json.RawMessage) (Payload, error) {
	var target Payload
	switch actionType {
	case ActionNavigate:
		target = &NavigatePayload{}
	case ActionDock:
		return DockPayload{}, nil
	case ActionOrbit:
		return OrbitPayload{}, nil
	case ActionRefuel:
		return RefuelPayload{}, nil
	case ActionExtract:
		return ExtractPayload{}, nil
	case ActionSurvey:
		return SurveyPayload{}, nil
	case ActionSell:
		target = &SellPayload{}
	case ActionBuy:
		target = &BuyPayload{}
	case ActionDeliver:
		target = &DeliverPayload{}
	case ActionJettison:
		target = &JettisonPayload{}
	default:
		return nil, fmt.Errorf("unknown action type %q", actionType)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, target); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", actionType, err)
		}
	}

	switch p := target.(type) {
	case *NavigatePayload:
		return *p, nil
	case *SellPayload:
		return *p, nil
	case *BuyPayload:
		return *p, nil
	case *DeliverPayload:
		return *p, nil
	case *JettisonPayload:
		return *p, nil
	}
	return nil, fmt.Errorf("unhandled payload for %q", actionType)
}
