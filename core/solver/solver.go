// Package solver defines the boundary to the external LP solver engine. A
// Solver consumes the LP text produced by lpmodel and returns the achieved
// status with a named-column primal solution.
package solver

import "context"

// Status is the solver's model status passed through verbatim.
type Status string

// StatusOptimal is the canonical success value.
const StatusOptimal Status = "Optimal"

// Other statuses reported by the in-process adapters.
const (
	StatusInfeasible Status = "Infeasible"
	StatusUnbounded  Status = "Unbounded"
	StatusError      Status = "Error"
)

// IsOptimal reports whether the solve reached proven optimality.
func (s Status) IsOptimal() bool { return s == StatusOptimal }

// Result is the outcome of a solve. A non-optimal Status is data, not an
// error: Columns holds whatever solution the engine returned.
type Result struct {
	Status         Status
	ObjectiveValue float64
	Columns        ColumnSet
}

// Solver solves an LP model given in text form.
type Solver interface {
	Solve(ctx context.Context, lp string) (Result, error)
}

// Func adapts a plain function to the Solver interface.
type Func func(ctx context.Context, lp string) (Result, error)

// Solve calls f.
func (f Func) Solve(ctx context.Context, lp string) (Result, error) { return f(ctx, lp) }
