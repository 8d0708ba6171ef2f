package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var circuitStates = []string{"closed", "open", "half-open"}

// APIMetricsCollector records gateway traffic: per-attempt requests, retries,
// time spent queued behind the shared rate limiter and the circuit breaker
// state. It satisfies api.RequestObserver.
type APIMetricsCollector struct {
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	retries            *prometheus.CounterVec
	rateLimitWait      *prometheus.HistogramVec
	circuitState       *prometheus.GaugeVec
	circuitTransitions *prometheus.CounterVec
}

func NewAPIMetricsCollector() *APIMetricsCollector {
	return &APIMetricsCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_requests_total",
			Help:      "Gateway request attempts by method, endpoint and status code (0 for network errors)",
		}, []string{"method", "endpoint", "status_code"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_request_duration_seconds",
			Help:      "Gateway request attempt latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "endpoint"}),

		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_retries_total",
			Help:      "Gateway retries by reason (rate_limit, server_error, network_error)",
		}, []string{"method", "endpoint", "reason"}),

		rateLimitWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_rate_limit_wait_seconds",
			Help:      "Time a request waited for the process-wide rate limiter",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"method", "endpoint"}),

		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_circuit_state",
			Help:      "1 for the current gateway circuit breaker state, 0 for the others",
		}, []string{"state"}),

		circuitTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_circuit_transitions_total",
			Help:      "Gateway circuit breaker transitions by target state",
		}, []string{"state"}),
	}
}

// Register adds every API collector to registerer and marks the circuit closed
func (c *APIMetricsCollector) Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		c.requests,
		c.requestDuration,
		c.retries,
		c.rateLimitWait,
		c.circuitState,
		c.circuitTransitions,
	} {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	c.setCircuitState("closed")
	return nil
}

func (c *APIMetricsCollector) RecordAPIRequest(method, endpoint string, statusCode int, duration float64) {
	c.requests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

func (c *APIMetricsCollector) RecordAPIRetry(method, endpoint, reason string) {
	c.retries.WithLabelValues(method, endpoint, reason).Inc()
}

func (c *APIMetricsCollector) RecordRateLimitWait(method, endpoint string, duration float64) {
	c.rateLimitWait.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordCircuitState is called on every breaker transition
func (c *APIMetricsCollector) RecordCircuitState(state string) {
	c.circuitTransitions.WithLabelValues(state).Inc()
	c.setCircuitState(state)
}

func (c *APIMetricsCollector) setCircuitState(current string) {
	for _, state := range circuitStates {
		value := 0.0
		if state == current {
			value = 1
		}
		c.circuitState.WithLabelValues(state).Set(value)
	}
}
