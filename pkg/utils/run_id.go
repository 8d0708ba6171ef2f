package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateRunID creates a short, human-readable automation run ID.
// Format: {behavior}-{shipSymbolWithoutAgentPrefix}-{8charHexUUID}
//
// Example:
//   - Input: behavior="mining", shipSymbol="AGENT-MINER-1"
//   - Output: "mining-MINER-1-a3f8e2b1"
func GenerateRunID(behavior, shipSymbol string) string {
	return behavior + "-" + stripAgentPrefix(shipSymbol) + "-" + generateShortUUID()
}

// stripAgentPrefix keeps the last two hyphen-separated segments of a ship
// symbol (type and number). The agent prefix may itself contain hyphens.
//   - "MY-AGENT-MINER-2" -> "MINER-2"
//   - "SCOUT-1" -> "SCOUT-1"
//   - "SINGLE" -> "SINGLE"
func stripAgentPrefix(shipSymbol string) string {
	parts := strings.Split(shipSymbol, "-")
	if len(parts) <= 2 {
		return shipSymbol
	}
	return strings.Join(parts[len(parts)-2:], "-")
}

func generateShortUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
