package autopilot

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/common"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// Executor attempts one ActionStep against the gateway. Preconditions are
// checked on the snapshot fetched this tick; an unmet one fails the step with
// a shared.PreconditionError and no remote call is made.
//
//	navigate  not in transit, fuel left (orbits first when docked); no-op at target
//	dock      not in transit; no-op when docked
//	orbit     not in transit; no-op when in orbit
//	refuel    docked; no-op when the tank is full
//	extract   in orbit, free cargo space
//	survey    in orbit, surveyor mount
//	sell      docked, good held; selling everything from an empty hold is a no-op
//	buy       docked, free cargo space for the units
//	deliver   docked at the destination, good held
//	jettison  not in transit, good held
type Executor struct {
	gateway automation.Gateway
	surveys *SurveyCache
}

func NewExecutor(gateway automation.Gateway, surveys *SurveyCache) *Executor {
	return &Executor{gateway: gateway, surveys: surveys}
}

// Execute returns nil when the step succeeded
func (e *Executor) Execute(ctx context.Context, ship *automation.ShipSnapshot, step automation.ActionStep) error {
	switch p := step.Payload().(type) {
	case automation.NavigatePayload:
		return e.navigate(ctx, ship, p)
	case automation.DockPayload:
		return e.dock(ctx, ship)
	case automation.OrbitPayload:
		return e.orbit(ctx, ship)
	case automation.RefuelPayload:
		return e.refuel(ctx, ship)
	case automation.ExtractPayload:
		return e.extract(ctx, ship)
	case automation.SurveyPayload:
		return e.survey(ctx, ship)
	case automation.SellPayload:
		return e.sell(ctx, ship, p)
	case automation.BuyPayload:
		return e.buy(ctx, ship, p)
	case automation.DeliverPayload:
		return e.deliver(ctx, ship, p)
	case automation.JettisonPayload:
		return e.jettison(ctx, ship, p)
	}
	return fmt.Errorf("unsupported action %s", step.Type())
}

func (e *Executor) navigate(ctx context.Context, ship *automation.ShipSnapshot, p automation.NavigatePayload) error {
	if ship.IsInTransit() {
		return shared.NewPreconditionError("navigate", "ship is in transit")
	}
	if ship.Waypoint == p.Waypoint {
		return nil
	}
	if ship.Fuel.Capacity > 0 && ship.Fuel.Current == 0 {
		return shared.NewPreconditionError("navigate", "fuel tank is empty")
	}

	if ship.IsDocked() {
		if _, err := e.gateway.Orbit(ctx, ship.Symbol); err != nil {
			return fmt.Errorf("failed to orbit before navigating: %w", err)
		}
	}

	result, err := e.gateway.Navigate(ctx, ship.Symbol, p.Waypoint)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", p.Waypoint, err)
	}

	common.LoggerFromContext(ctx).Log("INFO", "Navigation started", map[string]interface{}{
		"ship_symbol": ship.Symbol,
		"action":      "navigate",
		"destination": p.Waypoint,
		"arrival":     result.Arrival,
		"fuel":        result.Fuel.Current,
	})
	return nil
}

func (e *Executor) dock(ctx context.Context, ship *automation.ShipSnapshot) error {
	if ship.IsInTransit() {
		return shared.NewPreconditionError("dock", "ship is in transit")
	}
	if ship.IsDocked() {
		return nil
	}
	if _, err := e.gateway.Dock(ctx, ship.Symbol); err != nil {
		return fmt.Errorf("failed to dock: %w", err)
	}
	return nil
}

func (e *Executor) orbit(ctx context.Context, ship *automation.ShipSnapshot) error {
	if ship.IsInTransit() {
		return shared.NewPreconditionError("orbit", "ship is in transit")
	}
	if ship.IsInOrbit() {
		return nil
	}
	if _, err := e.gateway.Orbit(ctx, ship.Symbol); err != nil {
		return fmt.Errorf("failed to orbit: %w", err)
	}
	return nil
}

func (e *Executor) refuel(ctx context.Context, ship *automation.ShipSnapshot) error {
	if !ship.IsDocked() {
		return shared.NewPreconditionError("refuel", "ship must be docked")
	}
	if ship.Fuel.IsFull() {
		return nil
	}
	result, err := e.gateway.Refuel(ctx, ship.Symbol)
	if err != nil {
		return fmt.Errorf("failed to refuel: %w", err)
	}

	common.LoggerFromContext(ctx).Log("INFO", "Ship refuelled", map[string]interface{}{
		"ship_symbol": ship.Symbol,
		"action":      "refuel",
		"fuel":        result.Fuel.Current,
		"cost":        result.Transaction.TotalPrice,
	})
	return nil
}

func (e *Executor) extract(ctx context.Context, ship *automation.ShipSnapshot) error {
	if !ship.IsInOrbit() {
		return shared.NewPreconditionError("extract", "ship must be in orbit")
	}
	if ship.Cargo.AvailableCapacity() <= 0 {
		return shared.NewPreconditionError("extract", "cargo hold is full")
	}

	survey := e.surveys.Best(ship.Waypoint)
	result, err := e.gateway.Extract(ctx, ship.Symbol, survey)
	if err != nil {
		if survey != nil {
			e.surveys.Remove(survey.Signature)
		}
		return fmt.Errorf("failed to extract: %w", err)
	}

	meta := map[string]interface{}{
		"ship_symbol": ship.Symbol,
		"action":      "extract",
		"good":        result.Good,
		"units":       result.Units,
		"cargo":       fmt.Sprintf("%d/%d", result.Cargo.Units, result.Cargo.Capacity),
	}
	if survey != nil {
		meta["survey"] = survey.Signature
	}
	common.LoggerFromContext(ctx).Log("INFO", "Resources extracted", meta)
	return nil
}

func (e *Executor) survey(ctx context.Context, ship *automation.ShipSnapshot) error {
	if !ship.IsInOrbit() {
		return shared.NewPreconditionError("survey", "ship must be in orbit")
	}
	if !ship.HasSurveyor() {
		return shared.NewPreconditionError("survey", "ship has no surveyor mount")
	}

	result, err := e.gateway.Survey(ctx, ship.Symbol)
	if err != nil {
		return fmt.Errorf("failed to survey: %w", err)
	}
	e.surveys.Add(result.Surveys...)

	common.LoggerFromContext(ctx).Log("INFO", "Survey completed", map[string]interface{}{
		"ship_symbol": ship.Symbol,
		"action":      "survey",
		"surveys":     len(result.Surveys),
	})
	return nil
}

func (e *Executor) sell(ctx context.Context, ship *automation.ShipSnapshot, p automation.SellPayload) error {
	if !ship.IsDocked() {
		return shared.NewPreconditionError("sell", "ship must be docked")
	}

	if p.Good == "" {
		return e.sellAll(ctx, ship)
	}

	held := ship.Cargo.GetItemUnits(p.Good)
	if held == 0 {
		return shared.NewPreconditionError("sell", fmt.Sprintf("no %s in cargo", p.Good))
	}
	units := p.Units
	if units == 0 || units > held {
		units = held
	}
	return e.sellGood(ctx, ship.Symbol, p.Good, units)
}

// sellAll offers every held good. Goods the market refuses stay in the hold;
// the step only fails when nothing at all could be sold.
func (e *Executor) sellAll(ctx context.Context, ship *automation.ShipSnapshot) error {
	var (
		sold int
		errs []error
	)
	for _, item := range ship.Cargo.Inventory {
		if item.Units == 0 {
			continue
		}
		if err := e.sellGood(ctx, ship.Symbol, item.Symbol, item.Units); err != nil {
			errs = append(errs, err)
			continue
		}
		sold++
	}

	if len(errs) == 0 {
		return nil
	}
	if sold == 0 {
		return errors.Join(errs...)
	}
	common.LoggerFromContext(ctx).Log("WARNING", "Market refused part of the cargo", map[string]interface{}{
		"ship_symbol": ship.Symbol,
		"action":      "sell",
		"error":       errors.Join(errs...).Error(),
	})
	return nil
}

func (e *Executor) sellGood(ctx context.Context, shipSymbol, good string, units int) error {
	result, err := e.gateway.SellCargo(ctx, shipSymbol, good, units)
	if err != nil {
		return fmt.Errorf("failed to sell %d %s: %w", units, good, err)
	}

	common.LoggerFromContext(ctx).Log("INFO", "Cargo sold", map[string]interface{}{
		"ship_symbol": shipSymbol,
		"action":      "sell",
		"good":        good,
		"units":       result.Transaction.Units,
		"revenue":     result.Transaction.TotalPrice,
		"credits":     result.Credits,
	})
	return nil
}

func (e *Executor) buy(ctx context.Context, ship *automation.ShipSnapshot, p automation.BuyPayload) error {
	if !ship.IsDocked() {
		return shared.NewPreconditionError("buy", "ship must be docked")
	}
	if p.Units <= 0 {
		return shared.NewPreconditionError("buy", "units must be positive")
	}
	if ship.Cargo.AvailableCapacity() < p.Units {
		return shared.NewPreconditionError("buy", fmt.Sprintf("needs %d free cargo units, has %d", p.Units, ship.Cargo.AvailableCapacity()))
	}

	result, err := e.gateway.PurchaseCargo(ctx, ship.Symbol, p.Good, p.Units)
	if err != nil {
		return fmt.Errorf("failed to buy %d %s: %w", p.Units, p.Good, err)
	}

	common.LoggerFromContext(ctx).Log("INFO", "Cargo purchased", map[string]interface{}{
		"ship_symbol": ship.Symbol,
		"action":      "buy",
		"good":        p.Good,
		"units":       result.Transaction.Units,
		"cost":        result.Transaction.TotalPrice,
	})
	return nil
}

func (e *Executor) deliver(ctx context.Context, ship *automation.ShipSnapshot, p automation.DeliverPayload) error {
	if !ship.IsDocked() {
		return shared.NewPreconditionError("deliver", "ship must be docked")
	}
	if ship.Waypoint != p.Destination {
		return shared.NewPreconditionError("deliver", fmt.Sprintf("ship is at %s, not %s", ship.Waypoint, p.Destination))
	}
	held := ship.Cargo.GetItemUnits(p.Good)
	if held == 0 {
		return shared.NewPreconditionError("deliver", fmt.Sprintf("no %s in cargo", p.Good))
	}

	units := min(p.Units, held)
	progress, err := e.gateway.DeliverContract(ctx, p.ContractID, ship.Symbol, p.Good, units)
	if err != nil {
		return fmt.Errorf("failed to deliver %d %s: %w", units, p.Good, err)
	}

	common.LoggerFromContext(ctx).Log("INFO", "Contract delivery made", map[string]interface{}{
		"ship_symbol": ship.Symbol,
		"action":      "deliver",
		"contract_id": p.ContractID,
		"good":        p.Good,
		"units":       units,
		"progress":    progress.Contract.ProgressPercent(),
	})
	return nil
}

func (e *Executor) jettison(ctx context.Context, ship *automation.ShipSnapshot, p automation.JettisonPayload) error {
	if ship.IsInTransit() {
		return shared.NewPreconditionError("jettison", "ship is in transit")
	}
	held := ship.Cargo.GetItemUnits(p.Good)
	if held == 0 {
		return shared.NewPreconditionError("jettison", fmt.Sprintf("no %s in cargo", p.Good))
	}

	units := p.Units
	if units == 0 || units > held {
		units = held
	}
	if _, err := e.gateway.Jettison(ctx, ship.Symbol, p.Good, units); err != nil {
		return fmt.Errorf("failed to jettison %d %s: %w", units, p.Good, err)
	}
	return nil
}
