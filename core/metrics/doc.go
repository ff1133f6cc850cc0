// Package metrics defines the sinks that record planner activity. A sink
// implements MetricsSink and may implement the optional recorder interfaces
// for per-slot schedules and publish attempts. The factory returns a
// MultiSink when several sinks are configured.
package metrics
