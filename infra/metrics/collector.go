package metrics

import (
	"context"

	"github.com/kilianp07/dessplan/core/events"
	coremetrics "github.com/kilianp07/dessplan/core/metrics"
	"github.com/kilianp07/dessplan/core/strategy"
	"github.com/kilianp07/dessplan/infra/logger"
	"github.com/kilianp07/dessplan/internal/eventbus"
)

// Collector forwards planner events from the bus to a metrics sink.
type Collector struct {
	done chan struct{}
}

// Wait blocks until the collector stopped, either because the bus was
// closed and drained or because the context was canceled.
func (c *Collector) Wait() { <-c.done }

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) *Collector {
	c := &Collector{done: make(chan struct{})}
	if bus == nil || sink == nil {
		close(c.done)
		return c
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(c.done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record metrics: %v", err)
				}
			}
		}
	}()
	return c
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.PlanEvent:
		run := coremetrics.PlanRunEvent{
			RunID:          e.RunID,
			Status:         e.Status,
			ObjectiveValue: e.ObjectiveValue,
			Slots:          len(e.Decisions),
			IgnoredColumns: e.IgnoredColumns,
			SolveDuration:  e.SolveDuration,
			Duration:       e.Duration,
			ImportWh:       e.ImportWh,
			ExportWh:       e.ExportWh,
			NetCostCents:   e.NetCostCents,
			Error:          errString(e.Err),
			Time:           e.Time,
		}
		if err := sink.RecordPlanRun(run); err != nil {
			return err
		}
		if rec, ok := sink.(coremetrics.ScheduleRecorder); ok && len(e.Decisions) > 0 {
			return rec.RecordSchedule(e.RunID, SlotRecords(e))
		}
	case events.ScheduleEvent:
		if rec, ok := sink.(coremetrics.SchedulePublishRecorder); ok {
			return rec.RecordSchedulePublish(coremetrics.SchedulePublishEvent{
				RunID:   e.RunID,
				Topic:   e.Topic,
				Slots:   e.Slots,
				Latency: e.Latency,
				Error:   errString(e.Err),
				Time:    e.Time,
			})
		}
	}
	return nil
}

// SlotRecords joins the decisions of a run with their solved flows.
func SlotRecords(e events.PlanEvent) []coremetrics.SlotRecord {
	out := make([]coremetrics.SlotRecord, 0, len(e.Decisions))
	for i, d := range e.Decisions {
		r := coremetrics.SlotRecord{
			Time:         d.Start,
			Strategy:     d.Strategy.String(),
			Restrictions: d.Restrictions.String(),
			FeedIn:       d.FeedIn == strategy.FeedInAllowed,
			SoCTargetWh:  d.SoCTargetWh,
		}
		if i < len(e.Flows) {
			f := e.Flows[i]
			r.SoCPercent = f.SoCPercent
			r.GridImportW = f.GridImport
			r.GridExportW = f.GridExport
			r.ImportPrice = f.ImportPrice
			r.ExportPrice = f.ExportPrice
		}
		out = append(out, r)
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
