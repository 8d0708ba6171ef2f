package cli

import (
	"fmt"
	"strings"
	"time"
)

// resolveShip returns the --ship flag, falling back to the default ship from
// the user config
func (a *app) resolveShip(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	handler, err := a.userConfig()
	if err != nil {
		return "", fmt.Errorf("no ship specified and failed to load user config: %w", err)
	}
	userCfg, err := handler.Load()
	if err != nil {
		return "", fmt.Errorf("no ship specified and failed to load user config: %w", err)
	}
	if userCfg.DefaultShip != "" {
		return userCfg.DefaultShip, nil
	}

	return "", fmt.Errorf("no ship specified: use --ship, or set a default with 'spacetraders config set-ship'")
}

// parseOverrides turns repeated key=value flags into policy overrides.
// Values stay strings; the daemon converts them to the option's type.
func parseOverrides(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid policy option %q: expected key=value", pair)
		}
		overrides[key] = strings.TrimSpace(value)
	}
	return overrides, nil
}

// formatTimestamp formats a timestamp for display, or "-" when unset
func formatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// truncate shortens s to max runes, marking the cut with an ellipsis
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
