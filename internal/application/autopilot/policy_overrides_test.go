package autopilot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/autopilot"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

func TestBuildPolicy_DefaultsWithoutOverrides(t *testing.T) {
	for _, kind := range []automation.BehaviorKind{
		automation.BehaviorMining,
		automation.BehaviorTrading,
		automation.BehaviorContract,
		automation.BehaviorIdle,
	} {
		policy, err := autopilot.BuildPolicy(kind, nil)

		require.NoError(t, err)
		assert.Equal(t, automation.DefaultPolicy(kind), policy)
	}
}

func TestBuildPolicy_AcceptsCommandLineStrings(t *testing.T) {
	policy, err := autopilot.BuildPolicy(automation.BehaviorTrading, map[string]interface{}{
		"minProfitMarginPercent": "12",
		"reserveCredits":         "50000",
		"maxDistance":            "250.5",
	})

	require.NoError(t, err)
	require.NotNil(t, policy.Trading)
	assert.Equal(t, 12, policy.Trading.MinProfitMarginPercent)
	assert.Equal(t, int64(50000), policy.Trading.ReserveCredits)
	assert.Equal(t, 250.5, policy.Trading.MaxDistance)
	assert.Equal(t, 10, policy.Trading.MaxBuyPriceDeviationPercent)
}

func TestBuildPolicy_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		kind      automation.BehaviorKind
		overrides map[string]interface{}
		message   string
	}{
		{"unknown option", automation.BehaviorMining, map[string]interface{}{"drillSpeed": 3}, "drillSpeed"},
		{"percent above range", automation.BehaviorMining, map[string]interface{}{"maxCargoPercent": 120}, "maxCargoPercent must satisfy lte=100"},
		{"negative credits", automation.BehaviorContract, map[string]interface{}{"minRewardCredits": -1}, "minRewardCredits must satisfy gte=0"},
		{"not a number", automation.BehaviorTrading, map[string]interface{}{"maxDistance": "far"}, "maxDistance"},
		{"options for idle", automation.BehaviorIdle, map[string]interface{}{"autoAccept": true}, "takes no policy options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := autopilot.BuildPolicy(tt.kind, tt.overrides)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
