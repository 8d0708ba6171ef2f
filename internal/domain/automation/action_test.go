package automation_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

func TestActionStep_JSONRoundTripEveryPayload(t *testing.T) {
	payloads := []automation.Payload{
		automation.NavigatePayload{Waypoint: "X1-A-B7"},
		automation.DockPayload{},
		automation.OrbitPayload{},
		automation.RefuelPayload{},
		automation.ExtractPayload{},
		automation.SurveyPayload{},
		automation.SellPayload{Good: "IRON_ORE", Units: 12},
		automation.SellPayload{},
		automation.BuyPayload{Good: "FUEL", Units: 5},
		automation.DeliverPayload{ContractID: "C-1", Good: "COPPER_ORE", Units: 40, Destination: "X1-A-H1"},
		automation.JettisonPayload{Good: "ICE_WATER", Units: 3},
	}

	for _, payload := range payloads {
		t.Run(string(payload.Type()), func(t *testing.T) {
			step, err := automation.NewActionStep(payload, 3)
			require.NoError(t, err)

			data, err := json.Marshal(step)
			require.NoError(t, err)
			var decoded automation.ActionStep
			require.NoError(t, json.Unmarshal(data, &decoded))

			assert.Equal(t, step, decoded)
			assert.Equal(t, payload, decoded.Payload())
		})
	}
}

func TestActionStep_WireFormat(t *testing.T) {
	step, err := automation.NewActionStep(automation.NavigatePayload{Waypoint: "X1-A-B7"}, 3)
	require.NoError(t, err)

	data, err := json.Marshal(step)

	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"navigate","payload":{"waypoint":"X1-A-B7"},"retryCount":0,"maxRetries":3}`, string(data))
}

func TestActionStep_RejectsInvalidJSON(t *testing.T) {
	cases := map[string]string{
		"unknown type":       `{"type":"warp","payload":{},"retryCount":0,"maxRetries":3}`,
		"retry above budget": `{"type":"dock","payload":{},"retryCount":4,"maxRetries":3}`,
		"negative retry":     `{"type":"dock","payload":{},"retryCount":-1,"maxRetries":3}`,
		"zero budget":        `{"type":"dock","payload":{},"retryCount":0,"maxRetries":0}`,
		"mistyped payload":   `{"type":"sell","payload":{"units":"many"},"retryCount":0,"maxRetries":3}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var step automation.ActionStep
			assert.Error(t, json.Unmarshal([]byte(raw), &step))
		})
	}
}

func TestNewActionStep_Validation(t *testing.T) {
	_, err := automation.NewActionStep(nil, 3)
	assert.Error(t, err)

	_, err = automation.NewActionStep(automation.DockPayload{}, 0)
	assert.Error(t, err)
}

func TestActionStep_String(t *testing.T) {
	nav, _ := automation.NewActionStep(automation.NavigatePayload{Waypoint: "X1-A-B7"}, 3)
	deliver, _ := automation.NewActionStep(automation.DeliverPayload{Destination: "X1-A-H1"}, 3)
	dock, _ := automation.NewActionStep(automation.DockPayload{}, 3)

	assert.Equal(t, "navigate(X1-A-B7)", nav.String())
	assert.Equal(t, "deliver(X1-A-H1)", deliver.String())
	assert.Equal(t, "dock", dock.String())
}
