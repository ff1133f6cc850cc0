package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dessplan/core/metrics"
)

// PromSink records planner runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	objective prometheus.Gauge
	netCost   prometheus.Gauge
	solve     prometheus.Histogram
	ignored   prometheus.Counter
	publishes *prometheus.CounterVec
	latency   prometheus.Histogram
}

// NewPromSink registers planner metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dessplan_runs_total",
		Help: "Planner runs by solver status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dessplan_objective_value",
		Help: "Objective value of the last solved plan in cents",
	})); err != nil {
		return nil, err
	}
	if s.netCost, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dessplan_net_cost_cents",
		Help: "Net energy cost of the last plan in cents",
	})); err != nil {
		return nil, err
	}
	if s.solve, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dessplan_solve_duration_seconds",
		Help:    "Time spent in the LP solver",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})); err != nil {
		return nil, err
	}
	if s.ignored, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dessplan_ignored_columns_total",
		Help: "Solver columns the decoder could not map onto a slot",
	})); err != nil {
		return nil, err
	}
	if s.publishes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dessplan_schedule_publish_total",
		Help: "Schedule publish attempts by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dessplan_schedule_publish_latency_seconds",
		Help:    "Time to hand a schedule to the control channel",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlanRun updates the run counters and last-run gauges.
func (s *PromSink) RecordPlanRun(ev coremetrics.PlanRunEvent) error {
	status := ev.Status
	if ev.Error != "" {
		status = "failed"
	}
	s.runs.WithLabelValues(status).Inc()
	if ev.Error != "" {
		return nil
	}
	s.objective.Set(ev.ObjectiveValue)
	s.netCost.Set(ev.NetCostCents)
	s.solve.Observe(ev.SolveDuration.Seconds())
	s.ignored.Add(float64(ev.IgnoredColumns))
	return nil
}

// RecordSchedulePublish counts publish attempts and their latency.
func (s *PromSink) RecordSchedulePublish(ev coremetrics.SchedulePublishEvent) error {
	result := "ok"
	if ev.Error != "" {
		result = "error"
	}
	s.publishes.WithLabelValues(result).Inc()
	s.latency.Observe(ev.Latency.Seconds())
	return nil
}
