package autopilot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/common"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// ContractBehavior delivers goods the ship already holds to its active contract.
// Acquiring a shortfall (mining or buying) is left to the operator: the
// automation pauses and names what is missing.
type ContractBehavior struct {
	gateway automation.Gateway
	clock   shared.Clock
}

func NewContractBehavior(gateway automation.Gateway, clock shared.Clock) *ContractBehavior {
	return &ContractBehavior{gateway: gateway, clock: clock}
}

func (b *ContractBehavior) Kind() automation.BehaviorKind {
	return automation.BehaviorContract
}

func (b *ContractBehavior) Plan(ctx context.Context, ship *automation.ShipSnapshot, state *automation.State, queue *automation.PlanQueue) error {
	logger := common.LoggerFromContext(ctx)
	now := b.clock.Now()

	policy := automation.DefaultContractPolicy()
	if state.Policy.Contract != nil {
		policy = *state.Policy.Contract
	}

	contracts, err := b.gateway.GetContracts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch contracts: %w", err)
	}

	contract := findActiveContract(contracts)
	if contract == nil && policy.AutoAccept {
		offer := findAcceptableOffer(contracts, policy, now)
		if offer != nil {
			accepted, err := b.gateway.AcceptContract(ctx, offer.ID)
			if err != nil {
				return fmt.Errorf("failed to accept contract %s: %w", offer.ID, err)
			}
			logger.Log("INFO", "Contract accepted", map[string]interface{}{
				"ship_symbol": ship.Symbol,
				"contract_id": accepted.ID,
				"payment":     accepted.TotalPayment(),
			})
			contract = accepted
		}
	}
	if contract == nil {
		state.Pause(now, "no active contracts")
		return nil
	}

	state.SetProgress(contract.ProgressPercent())

	if contract.DeliveriesComplete() {
		if _, err := b.gateway.FulfillContract(ctx, contract.ID); err != nil {
			return fmt.Errorf("failed to fulfill contract %s: %w", contract.ID, err)
		}
		state.SetProgress(100)
		state.Pause(now, fmt.Sprintf("contract %s fulfilled", contract.ID))
		return nil
	}

	if contract.IsExpired(now) {
		state.Pause(now, fmt.Sprintf("contract %s deadline passed (%s)", contract.ID, contract.Deadline.Format(time.RFC3339)))
		return nil
	}

	position := ship.Waypoint
	var delivering, shortfalls []string
	for _, delivery := range contract.Deliveries {
		needed := delivery.Remaining()
		if needed == 0 {
			continue
		}
		held := ship.Cargo.GetItemUnits(delivery.TradeSymbol)
		if held == 0 {
			shortfalls = append(shortfalls, fmt.Sprintf("%d %s", needed, delivery.TradeSymbol))
			continue
		}

		units := min(needed, held)
		if position != delivery.DestinationSymbol {
			if err := queue.Enqueue(automation.NavigatePayload{Waypoint: delivery.DestinationSymbol}); err != nil {
				return err
			}
			position = delivery.DestinationSymbol
		}
		err := queue.Enqueue(
			automation.DockPayload{},
			automation.DeliverPayload{
				ContractID:  contract.ID,
				Good:        delivery.TradeSymbol,
				Units:       units,
				Destination: delivery.DestinationSymbol,
			},
		)
		if err != nil {
			return err
		}
		delivering = append(delivering, fmt.Sprintf("%d %s to %s", units, delivery.TradeSymbol, delivery.DestinationSymbol))
	}

	if queue.IsEmpty() {
		state.Pause(now, fmt.Sprintf("acquire %s for contract %s", strings.Join(shortfalls, ", "), contract.ID))
		return nil
	}

	task := fmt.Sprintf("delivering %s for contract %s", strings.Join(delivering, ", "), contract.ID)
	if len(shortfalls) > 0 {
		task += fmt.Sprintf("; still need %s", strings.Join(shortfalls, ", "))
	}
	state.SetTask(now, task)
	return nil
}

func findActiveContract(contracts []automation.Contract) *automation.Contract {
	for i := range contracts {
		if contracts[i].IsActive() {
			return &contracts[i]
		}
	}
	return nil
}

// findAcceptableOffer returns the first unaccepted contract that pays at least
// the policy minimum and whose deadline falls within the policy window.
func findAcceptableOffer(contracts []automation.Contract, policy automation.ContractPolicy, now time.Time) *automation.Contract {
	for i := range contracts {
		c := &contracts[i]
		if c.Accepted || c.Fulfilled || c.IsExpired(now) {
			continue
		}
		if !c.DeadlineToAccept.IsZero() && now.After(c.DeadlineToAccept) {
			continue
		}
		if c.TotalPayment() < policy.MinRewardCredits {
			continue
		}
		if policy.MaxDeadlineDays > 0 && c.Deadline.Sub(now) > time.Duration(policy.MaxDeadlineDays)*24*time.Hour {
			continue
		}
		return c
	}
	return nil
}
