package config

import "time"

// AutomationConfig tunes the orchestrator
type AutomationConfig struct {
	// Interval between ticks of the background loop
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"required"`

	// Failed attempts allowed per planned step before it is dropped
	MaxRetries int `mapstructure:"max_retries" validate:"min=1"`

	// Skip ships on cooldown or in transit without a remote action.
	// A pointer so an explicit false survives defaults.
	CooldownEarlyExit *bool `mapstructure:"cooldown_early_exit"`
}

// EarlyExit reports the effective cooldown early exit setting
func (c AutomationConfig) EarlyExit() bool {
	return c.CooldownEarlyExit == nil || *c.CooldownEarlyExit
}
