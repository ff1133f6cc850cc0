package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlanRun forwards the run to all sinks.
func (m *MultiSink) RecordPlanRun(ev PlanRunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordPlanRun(ev))
	}
	return errors.Join(errs...)
}

// RecordSchedule forwards the schedule to sinks that support it.
func (m *MultiSink) RecordSchedule(runID string, slots []SlotRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ScheduleRecorder); ok {
			errs = append(errs, rec.RecordSchedule(runID, slots))
		}
	}
	return errors.Join(errs...)
}

// RecordSchedulePublish forwards publish attempts to sinks that support it.
func (m *MultiSink) RecordSchedulePublish(ev SchedulePublishEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SchedulePublishRecorder); ok {
			errs = append(errs, rec.RecordSchedulePublish(ev))
		}
	}
	return errors.Join(errs...)
}
