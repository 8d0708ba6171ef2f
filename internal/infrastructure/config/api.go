package config

import "time"

// APIConfig holds SpaceTraders API client configuration
type APIConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// Agent bearer token
	Token string `mapstructure:"token"`

	Timeout time.Duration `mapstructure:"timeout" validate:"required"`

	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Retry          RetryConfig          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Maximum requests per second
	Requests int `mapstructure:"requests" validate:"min=1"`

	// Burst size for token bucket
	Burst int `mapstructure:"burst" validate:"min=1"`
}

// RetryConfig holds retry configuration for failed requests
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=0"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

// CircuitBreakerConfig controls when the client stops calling a failing API
type CircuitBreakerConfig struct {
	// Consecutive transient failures before the circuit opens
	MaxFailures int `mapstructure:"max_failures" validate:"min=1"`

	// Time the circuit stays open before a probe request
	Timeout time.Duration `mapstructure:"timeout"`
}
