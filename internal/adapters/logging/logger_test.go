package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/logging"
	"github.com/andrescamacho/spacetraders-autopilot/internal/infrastructure/config"
)

func TestLog_JSONIncludesMetadata(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"})

	// Act
	logger.Log("WARNING", "step failed", map[string]interface{}{
		"ship_symbol": "MINER-1",
		"attempt":     2,
	})

	// Assert
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "step failed", entry["msg"])
	assert.Equal(t, "MINER-1", entry["ship_symbol"])
	assert.Equal(t, float64(2), entry["attempt"])
}

func TestLog_FiltersBelowConfiguredLevel(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, config.LoggingConfig{Level: "warn", Format: "text"})

	// Act
	logger.Log("INFO", "tick", nil)
	logger.Log("ERROR", "persist failed", nil)

	// Assert
	assert.NotContains(t, buf.String(), "tick")
	assert.Contains(t, buf.String(), "persist failed")
}

func TestNew_WritesToFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "logs", "autopilot.log")
	logger, closer, err := logging.New(config.LoggingConfig{
		Level:    "info",
		Format:   "text",
		Output:   "file",
		FilePath: path,
	})
	require.NoError(t, err)

	// Act
	logger.Log("INFO", "daemon started", nil)
	require.NoError(t, closer.Close())

	// Assert
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "daemon started")
}

func TestNew_RejectsUnknownOutput(t *testing.T) {
	_, _, err := logging.New(config.LoggingConfig{Output: "syslog"})

	assert.Error(t, err)
}
