package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
)

// AutomationMetricsCollector records orchestrator activity. It satisfies
// automation.MetricsRecorder.
type AutomationMetricsCollector struct {
	tickDuration prometheus.Histogram
	runningShips prometheus.Gauge
	steps        *prometheus.CounterVec
	plans        *prometheus.CounterVec
	planSteps    *prometheus.HistogramVec
	automations  *prometheus.GaugeVec
}

// NewAutomationMetricsCollector creates a new automation metrics collector
func NewAutomationMetricsCollector() *AutomationMetricsCollector {
	return &AutomationMetricsCollector{
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tick_duration_seconds",
				Help:      "Time spent executing one orchestrator tick",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),

		runningShips: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tick_ships",
				Help:      "Number of running ships visited by the last tick",
			},
		),

		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "steps_total",
				Help:      "Executed action steps by action type and outcome",
			},
			[]string{"action", "outcome"},
		),

		plans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plans_total",
				Help:      "Plans produced by behavior",
			},
			[]string{"behavior"},
		),

		planSteps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plan_steps",
				Help:      "Number of steps per produced plan",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
			},
			[]string{"behavior"},
		),

		automations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "automations",
				Help:      "Current automations by behavior and run status",
			},
			[]string{"behavior", "status"},
		),
	}
}

// Register registers all automation metrics with the given registerer
func (c *AutomationMetricsCollector) Register(registerer prometheus.Registerer) error {
	metrics := []prometheus.Collector{
		c.tickDuration,
		c.runningShips,
		c.steps,
		c.plans,
		c.planSteps,
		c.automations,
	}

	for _, metric := range metrics {
		if err := registerer.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

// RecordTick records one completed tick
func (c *AutomationMetricsCollector) RecordTick(duration time.Duration, ships int) {
	c.tickDuration.Observe(duration.Seconds())
	c.runningShips.Set(float64(ships))
}

// RecordStep records the outcome of one executed step
func (c *AutomationMetricsCollector) RecordStep(action automation.ActionType, outcome string) {
	c.steps.WithLabelValues(string(action), outcome).Inc()
}

// RecordPlan records a plan produced by a behavior
func (c *AutomationMetricsCollector) RecordPlan(behavior automation.BehaviorKind, steps int) {
	c.plans.WithLabelValues(string(behavior)).Inc()
	c.planSteps.WithLabelValues(string(behavior)).Observe(float64(steps))
}

// RecordStatus replaces the automation gauge with the given snapshot
func (c *AutomationMetricsCollector) RecordStatus(states []automation.State) {
	c.automations.Reset()
	for _, state := range states {
		c.automations.WithLabelValues(string(state.Behavior), string(state.Status)).Inc()
	}
}
