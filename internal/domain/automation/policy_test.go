package automation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

func TestDefaultPolicy_OnlyMatchingSection(t *testing.T) {
	mining := automation.DefaultPolicy(automation.BehaviorMining)
	trading := automation.DefaultPolicy(automation.BehaviorTrading)
	contract := automation.DefaultPolicy(automation.BehaviorContract)
	idle := automation.DefaultPolicy(automation.BehaviorIdle)

	require.NotNil(t, mining.Mining)
	assert.Nil(t, mining.Trading)
	assert.Equal(t, 10, mining.Mining.MinFuelPercent)
	assert.Equal(t, 90, mining.Mining.MaxCargoPercent)
	require.NotNil(t, trading.Trading)
	assert.Nil(t, trading.Contract)
	require.NotNil(t, contract.Contract)
	assert.Equal(t, 7, contract.Contract.MaxDeadlineDays)
	assert.Equal(t, automation.Policy{}, idle)
	assert.Nil(t, idle.Section(automation.BehaviorIdle))
}

func TestPolicy_CloneIsDeep(t *testing.T) {
	p := automation.DefaultPolicy(automation.BehaviorContract)

	clone := p.Clone()
	clone.Contract.AutoAccept = true

	assert.False(t, p.Contract.AutoAccept)
}

func TestParseBehaviorKind(t *testing.T) {
	for _, name := range []string{"mining", "trading", "contract", "idle"} {
		kind, err := automation.ParseBehaviorKind(name)
		require.NoError(t, err)
		assert.Equal(t, automation.BehaviorKind(name), kind)
	}

	_, err := automation.ParseBehaviorKind("piracy")
	assert.Error(t, err)
}
