package events

import (
	"time"

	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/strategy"
)

// PlanEvent is published once per planner run. Err is set when the run
// aborted before a solver status was available; Flows and Decisions are
// empty in that case.
type PlanEvent struct {
	RunID          string
	Status         string
	ObjectiveValue float64
	IgnoredColumns int
	SolveDuration  time.Duration
	Duration       time.Duration
	ImportWh       float64
	ExportWh       float64
	NetCostCents   float64
	Flows          []model.SolvedFlow
	Decisions      []strategy.Decision
	Err            error
	Time           time.Time
}

// ScheduleEvent is published after a schedule publish attempt.
type ScheduleEvent struct {
	RunID   string
	Topic   string
	Slots   int
	Latency time.Duration
	Err     error
	Time    time.Time
}
