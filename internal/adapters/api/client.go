package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://api.spacetraders.io/v2"
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = time.Second
)

// Options configures a SpaceTradersClient. Zero values fall back to defaults:
// 2 requests/second with burst 2, 3 retries, 1s backoff base, breaker opening
// after 5 transient failures for 60s.
type Options struct {
	BaseURL            string
	Token              string
	Timeout            time.Duration
	RequestsPerSecond  float64
	Burst              int
	MaxRetries         int
	BackoffBase        time.Duration
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
	Clock              shared.Clock
	Observer           RequestObserver
}

// RequestObserver receives per-attempt request telemetry. Endpoints are
// normalized so ship, system and waypoint symbols do not explode label sets.
type RequestObserver interface {
	RecordAPIRequest(method, endpoint string, statusCode int, duration float64)
	RecordAPIRetry(method, endpoint, reason string)
	RecordRateLimitWait(method, endpoint string, duration float64)
	RecordCircuitState(state string)
}

type noopObserver struct{}

func (noopObserver) RecordAPIRequest(string, string, int, float64) {}
func (noopObserver) RecordAPIRetry(string, string, string) {}
func (noopObserver) RecordRateLimitWait(string, string, float64) {}
func (noopObserver) RecordCircuitState(string)                    {}

// SpaceTradersClient is the remote ship gateway. One client (and so one rate
// limiter) is shared by every ship in the process.
type SpaceTradersClient struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *CircuitBreaker
	baseURL     string
	token       string
	maxRetries  int
	backoffBase time.Duration
	clock       shared.Clock
	observer    RequestObserver
}

// NewSpaceTradersClient creates a client from options
func NewSpaceTradersClient(opts Options) *SpaceTradersClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 60 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = shared.NewRealClock()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}

	breaker := NewCircuitBreaker(opts.BreakerMaxFailures, opts.BreakerTimeout, opts.Clock)
	observer := opts.Observer
	breaker.OnStateChange(func(_, to CircuitState) {
		observer.RecordCircuitState(to.String())
	})

	return &SpaceTradersClient{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		breaker:     breaker,
		baseURL:     opts.BaseURL,
		token:       opts.Token,
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		clock:       opts.Clock,
		observer:    opts.Observer,
	}
}

// APIError is a non-retryable error response (4xx) from the remote API
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("API error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{StatusCode: status, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}

// retryableError represents a failed attempt that should be retried
type retryableError struct {
	message    string
	reason     string
	retryAfter time.Duration
}

func (e *retryableError) Error() string {
	return e.message
}

// addJitter adds random jitter to a duration to avoid thundering herd
// Returns a duration between 50% and 150% of the original value
func addJitter(d time.Duration) time.Duration {
	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(d) * jitter)
}

// request performs an API call through the circuit breaker
func (c *SpaceTradersClient) request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.breaker.Call(func() error {
		return c.doWithRetry(ctx, method, path, body, result)
	})
}

// doWithRetry makes an HTTP request with rate limiting and exponential
// backoff retries on network errors, 429 and 5xx. Exhausted retries surface
// as a shared.TransientError.
func (c *SpaceTradersClient) doWithRetry(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	endpoint := NormalizeEndpoint(path)
	var lastErr *retryableError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		waitStart := time.Now()
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}
		c.observer.RecordRateLimitWait(method, endpoint, time.Since(waitStart).Seconds())

		retry, err := c.do(ctx, method, path, payload, result)
		if retry == nil {
			return err
		}
		lastErr = retry

		if attempt >= c.maxRetries {
			break
		}
		c.observer.RecordAPIRetry(method, endpoint, retry.reason)
		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := addJitter(c.backoffBase * time.Duration(1<<attempt))
		if retry.retryAfter > 0 {
			delay = retry.retryAfter
		}
		c.clock.Sleep(delay)
	}

	return shared.NewTransientError(fmt.Errorf("max retries exceeded: %w", lastErr))
}

// do performs one attempt. A non-nil retryableError means the attempt may be repeated.
func (c *SpaceTradersClient) do(ctx context.Context, method, path string, payload []byte, result interface{}) (*retryableError, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	endpoint := NormalizeEndpoint(path)
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observer.RecordAPIRequest(method, endpoint, 0, time.Since(started).Seconds())
		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		}
		return &retryableError{message: fmt.Sprintf("network error: %v", err), reason: "network_error"}, nil
	}
	defer resp.Body.Close()
	c.observer.RecordAPIRequest(method, endpoint, resp.StatusCode, time.Since(started).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{message: fmt.Sprintf("failed to read response: %v", err), reason: "network_error"}, nil
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retry := &retryableError{message: "rate limited (429)", reason: "rate_limit"}
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.ParseFloat(retryAfter, 64); err == nil {
				retry.retryAfter = time.Duration(seconds * float64(time.Second))
			}
		}
		return retry, nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return &retryableError{message: "service unavailable (503)", reason: "server_error"}, nil
	case resp.StatusCode >= 500:
		return &retryableError{message: fmt.Sprintf("server error (%d)", resp.StatusCode), reason: "server_error"}, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil, nil
}

// NormalizeEndpoint replaces path segments that carry symbols with
// placeholders and drops the query string.
//
//	/my/ships/ALPHA-1/extract -> /my/ships/{ship}/extract
//	/systems/X1-A/waypoints/X1-A-B/market -> /systems/{system}/waypoints/{waypoint}/market
func NormalizeEndpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		switch segments[i-1] {
		case "ships":
			segments[i] = "{ship}"
		case "systems":
			segments[i] = "{system}"
		case "waypoints":
			segments[i] = "{waypoint}"
		case "contracts":
			segments[i] = "{contract}"
		}
	}
	return strings.Join(segments, "/")
}
