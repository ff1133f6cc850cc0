// Package planlog persists one record per planner run and answers time and
// status filtered queries over them.
package planlog

import (
	"context"
	"time"

	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/strategy"
)

// Record captures one planner run.
type Record struct {
	RunID          string                `json:"run_id"`
	Timestamp      time.Time             `json:"timestamp"`
	Status         string                `json:"status"`
	ObjectiveValue float64               `json:"objective_value"`
	HorizonStart   time.Time             `json:"horizon_start"`
	Slots          int                   `json:"slots"`
	Summary        *model.Summary        `json:"summary,omitempty"`
	Decisions      []strategy.Decision   `json:"decisions,omitempty"`
	Diagnostics    *strategy.Diagnostics `json:"diagnostics,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	Start  time.Time
	End    time.Time
	Status string
	RunID  string
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return q.RunID == "" || r.RunID == q.RunID
}

// LogStore persists Records and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
