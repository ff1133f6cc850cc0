package metrics

import "time"

// PlanRunEvent summarises one planner run.
type PlanRunEvent struct {
	RunID          string
	Status         string
	ObjectiveValue float64
	Slots          int
	IgnoredColumns int
	SolveDuration  time.Duration
	Duration       time.Duration
	ImportWh       float64
	ExportWh       float64
	NetCostCents   float64
	Error          string
	Time           time.Time
}

// MetricsSink records planner runs for observability purposes.
type MetricsSink interface {
	RecordPlanRun(ev PlanRunEvent) error
}

// SlotRecord is one planned slot as exported to time-series backends.
type SlotRecord struct {
	Time         time.Time
	Strategy     string
	Restrictions string
	FeedIn       bool
	SoCTargetWh  float64
	SoCPercent   float64
	GridImportW  float64
	GridExportW  float64
	ImportPrice  float64
	ExportPrice  float64
}

// ScheduleRecorder records the per-slot schedule of a run.
type ScheduleRecorder interface {
	RecordSchedule(runID string, slots []SlotRecord) error
}

// SchedulePublishEvent captures a hand-off to the device control channel.
type SchedulePublishEvent struct {
	RunID   string
	Topic   string
	Slots   int
	Latency time.Duration
	Error   string
	Time    time.Time
}

// SchedulePublishRecorder records schedule publish attempts.
type SchedulePublishRecorder interface {
	RecordSchedulePublish(ev SchedulePublishEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlanRun(PlanRunEvent) error                 { return nil }
func (NopSink) RecordSchedule(string, []SlotRecord) error        { return nil }
func (NopSink) RecordSchedulePublish(SchedulePublishEvent) error { return nil }
