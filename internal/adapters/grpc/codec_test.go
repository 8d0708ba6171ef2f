package grpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestJSONCodec_WrapperMessagesUseProtoJSON(t *testing.T) {
	// Arrange
	codec := jsonCodec{}

	// Act
	data, err := codec.Marshal(wrapperspb.String("MINER-1"))
	require.NoError(t, err)
	decoded := &wrapperspb.StringValue{}
	err = codec.Unmarshal(data, decoded)

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `"MINER-1"`, string(data))
	assert.Equal(t, "MINER-1", decoded.GetValue())
}

func TestJSONCodec_EmptyMessage(t *testing.T) {
	data, err := jsonCodec{}.Marshal(&emptypb.Empty{})

	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
	assert.NoError(t, jsonCodec{}.Unmarshal(data, &emptypb.Empty{}))
}

func TestJSONCodec_StateTimestampsAreRFC3339(t *testing.T) {
	// Arrange
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	wire := AutomationState{ShipSymbol: "MINER-1", StartedAt: at, UpdatedAt: at, LastActionAt: &at}

	// Act
	data, err := jsonCodec{}.Marshal(&wire)
	require.NoError(t, err)
	var decoded AutomationState
	err = jsonCodec{}.Unmarshal(data, &decoded)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, string(data), `"startedAt":"2026-03-01T12:30:00Z"`)
	require.NotNil(t, decoded.LastActionAt)
	assert.True(t, decoded.LastActionAt.Equal(at))
	assert.True(t, decoded.StartedAt.Equal(at))
}
