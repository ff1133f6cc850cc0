package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/dessplan/core/lpfile"
	coresolver "github.com/kilianp07/dessplan/core/solver"
)

const (
	// DefaultTolerance is the simplex tolerance used when none is configured.
	DefaultTolerance = 1e-8
	// DefaultMaxVariables bounds the model size the dense simplex accepts:
	// 48 slots of the dispatch model, nine variables each.
	DefaultMaxVariables = 432
)

// ErrModelTooLarge is returned when a model exceeds the gonum solver's
// variable limit. Longer horizons need the highs or remote solver.
var ErrModelTooLarge = errors.New("model too large for the gonum solver, use the highs or remote solver")

// GonumSolver solves LP text in process with gonum's dense simplex. It
// suits short horizons; models above MaxVariables are rejected.
type GonumSolver struct {
	Tolerance float64
	// MaxVariables caps the number of LP variables, DefaultMaxVariables
	// when zero.
	MaxVariables int
}

// simplex points to the function used to solve the standard form problem.
// Tests override it to simulate engine failures.
var simplex = func(c []float64, a mat.Matrix, b []float64, tol float64) (float64, []float64, error) {
	return lp.Simplex(c, a, b, tol, nil)
}

// Solve implements solver.Solver.
func (g GonumSolver) Solve(ctx context.Context, text string) (coresolver.Result, error) {
	if err := ctx.Err(); err != nil {
		return coresolver.Result{}, err
	}
	m, err := lpfile.Parse(text)
	if err != nil {
		return coresolver.Result{}, fmt.Errorf("gonum solver: %w", err)
	}
	limit := g.MaxVariables
	if limit <= 0 {
		limit = DefaultMaxVariables
	}
	if len(m.Vars) > limit {
		return coresolver.Result{}, fmt.Errorf("%w: %d variables, limit %d", ErrModelTooLarge, len(m.Vars), limit)
	}
	sf, err := toStandardForm(m)
	if errors.Is(err, lp.ErrInfeasible) || errors.Is(err, lp.ErrUnbounded) {
		return coresolver.Result{Status: statusOf(err)}, nil
	}
	if err != nil {
		return coresolver.Result{}, fmt.Errorf("gonum solver: %w", err)
	}

	tol := g.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	var y []float64
	if len(sf.b) > 0 {
		_, y, err = simplex(sf.c, sf.a, sf.b, tol)
	} else {
		y, err = sf.unconstrained()
	}
	if cerr := ctx.Err(); cerr != nil {
		return coresolver.Result{}, cerr
	}
	if err != nil {
		return coresolver.Result{Status: statusOf(err)}, nil
	}

	x := sf.recover(y)
	var obj float64
	for _, t := range m.Objective {
		obj += t.Coef * x[t.Var]
	}
	cols := make(coresolver.ColumnList, len(m.Vars))
	for i, name := range m.Vars {
		cols[i] = coresolver.Column{Name: name, Value: x[i]}
	}
	return coresolver.Result{Status: coresolver.StatusOptimal, ObjectiveValue: obj, Columns: cols}, nil
}

func statusOf(err error) coresolver.Status {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return coresolver.StatusInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return coresolver.StatusUnbounded
	default:
		return coresolver.StatusError
	}
}

// column maps an original variable onto standard form columns:
// x = offset + sign*y[pos] - y[neg] (neg < 0 when unused). A fixed
// variable has no column at all (pos < 0) and x = offset.
type column struct {
	pos, neg int
	sign     float64
	offset   float64
}

type standardForm struct {
	c    []float64
	a    *mat.Dense
	b    []float64
	cols []column
}

type row struct {
	coef  map[int]float64
	slack float64 // +1, -1 or 0 for equality rows
	rhs   float64
}

// toStandardForm rewrites min c'x s.t. rows, bounds as min c'y s.t. Ay = b,
// y >= 0. Fixed variables are substituted as constants, finite lower bounds
// are shifted out, variables bounded only above are mirrored and free
// variables are split. Inequalities receive slack columns, and finite upper
// bounds become rows unless another row already implies them.
func toStandardForm(m *lpfile.Model) (*standardForm, error) {
	n := len(m.Vars)
	sf := &standardForm{cols: make([]column, n)}
	next := 0
	for j := 0; j < n; j++ {
		lo, up := m.Lower[j], m.Upper[j]
		if lo > up {
			return nil, fmt.Errorf("variable %s: %w", m.Vars[j], lp.ErrInfeasible)
		}
		switch {
		case lo == up:
			sf.cols[j] = column{pos: -1, neg: -1, sign: 1, offset: lo}
		case !math.IsInf(lo, -1):
			sf.cols[j] = column{pos: next, neg: -1, sign: 1, offset: lo}
			next++
		case !math.IsInf(up, 1):
			sf.cols[j] = column{pos: next, neg: -1, sign: -1, offset: up}
			next++
		default:
			sf.cols[j] = column{pos: next, neg: next + 1, sign: 1}
			next += 2
		}
	}

	var rows []row
	for _, con := range m.Constraints {
		r := row{coef: make(map[int]float64), rhs: con.RHS}
		for _, t := range con.Terms {
			r.add(sf.cols[t.Var], t.Coef)
		}
		switch con.Op {
		case lpfile.LE:
			r.slack = 1
		case lpfile.GE:
			r.slack = -1
		}
		if r.empty() {
			if !r.satisfied() {
				return nil, fmt.Errorf("row %s: %w", con.Name, lp.ErrInfeasible)
			}
			continue
		}
		rows = append(rows, r)
	}

	implied := impliedUpper(rows, next)
	for j := 0; j < n; j++ {
		lo, up := m.Lower[j], m.Upper[j]
		col := sf.cols[j]
		if col.pos < 0 || math.IsInf(lo, -1) || math.IsInf(up, 1) {
			continue
		}
		if implied[col.pos] <= up-lo {
			continue
		}
		r := row{coef: map[int]float64{}, slack: 1, rhs: up}
		r.add(col, 1)
		rows = append(rows, r)
	}

	cost := make([]float64, next)
	sign := 1.0
	if m.Maximize {
		sign = -1
	}
	for _, t := range m.Objective {
		col := sf.cols[t.Var]
		if col.pos < 0 {
			continue
		}
		cost[col.pos] += sign * t.Coef * col.sign
		if col.neg >= 0 {
			cost[col.neg] -= sign * t.Coef
		}
	}

	// the simplex rejects all-zero columns: pin unused ones to zero
	used := make([]bool, next)
	for _, r := range rows {
		for k, v := range r.coef {
			if v != 0 {
				used[k] = true
			}
		}
	}
	for k, ok := range used {
		if ok || len(rows) == 0 {
			continue
		}
		if cost[k] < 0 {
			return nil, lp.ErrUnbounded
		}
		rows = append(rows, row{coef: map[int]float64{k: 1}})
	}

	slacks := 0
	for _, r := range rows {
		if r.slack != 0 {
			slacks++
		}
	}
	width := next + slacks
	sf.c = make([]float64, width)
	copy(sf.c, cost)
	if len(rows) == 0 {
		return sf, nil
	}

	sf.a = mat.NewDense(len(rows), width, nil)
	sf.b = make([]float64, len(rows))
	s := next
	for i, r := range rows {
		flip := 1.0
		if r.rhs < 0 {
			flip = -1
		}
		for k, v := range r.coef {
			sf.a.Set(i, k, flip*v)
		}
		if r.slack != 0 {
			sf.a.Set(i, s, flip*r.slack)
			s++
		}
		sf.b[i] = flip * r.rhs
	}
	return sf, nil
}

// impliedUpper returns, per standard form column, the tightest upper bound
// implied by a <= or = row whose coefficients are all non-negative. Columns
// no such row covers get +Inf.
func impliedUpper(rows []row, width int) []float64 {
	out := make([]float64, width)
	for k := range out {
		out[k] = math.Inf(1)
	}
	for _, r := range rows {
		if r.slack < 0 || r.rhs < 0 || !r.nonNegative() {
			continue
		}
		for k, v := range r.coef {
			if v > 0 {
				out[k] = math.Min(out[k], r.rhs/v)
			}
		}
	}
	return out
}

func (r *row) add(col column, coef float64) {
	r.rhs -= coef * col.offset
	if col.pos < 0 {
		return
	}
	r.coef[col.pos] += coef * col.sign
	if col.neg >= 0 {
		r.coef[col.neg] -= coef
	}
}

func (r row) empty() bool {
	for _, v := range r.coef {
		if v != 0 {
			return false
		}
	}
	return true
}

func (r row) nonNegative() bool {
	for _, v := range r.coef {
		if v < 0 {
			return false
		}
	}
	return true
}

func (r row) satisfied() bool {
	switch r.slack {
	case 1:
		return 0 <= r.rhs
	case -1:
		return 0 >= r.rhs
	}
	return r.rhs == 0
}

// unconstrained solves a problem without rows: every column sits at zero
// unless its cost is negative, in which case the problem is unbounded.
func (sf *standardForm) unconstrained() ([]float64, error) {
	for _, v := range sf.c {
		if v < 0 {
			return nil, lp.ErrUnbounded
		}
	}
	return make([]float64, len(sf.c)), nil
}

func (sf *standardForm) recover(y []float64) []float64 {
	x := make([]float64, len(sf.cols))
	for j, col := range sf.cols {
		if col.pos < 0 {
			x[j] = col.offset
			continue
		}
		v := col.offset + col.sign*y[col.pos]
		if col.neg >= 0 {
			v -= y[col.neg]
		}
		x[j] = v
	}
	return x
}
