// Package planner runs the optimisation pipeline: it builds the LP model,
// solves it, decodes the flows and maps them to DESS decisions. Each run is
// reported on the event bus, appended to the plan log and optionally
// published to the battery system.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dessplan/core/control"
	"github.com/kilianp07/dessplan/core/decoder"
	"github.com/kilianp07/dessplan/core/events"
	"github.com/kilianp07/dessplan/core/logger"
	"github.com/kilianp07/dessplan/core/lpmodel"
	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/planlog"
	"github.com/kilianp07/dessplan/core/solver"
	"github.com/kilianp07/dessplan/core/strategy"
	"github.com/kilianp07/dessplan/internal/eventbus"
)

// DefaultAckTimeout bounds the wait for a schedule acknowledgment.
const DefaultAckTimeout = 5 * time.Second

// Options wires the optional collaborators of a Planner.
type Options struct {
	Logger logger.Logger
	Bus    eventbus.EventBus
	Store  planlog.LogStore

	// Publisher receives the schedule of optimal runs when Publish is set.
	Publisher control.SchedulePublisher
	Publish   bool
	// Topic is reported on schedule events.
	Topic string
	// WaitAck makes the run wait for the device acknowledgment.
	WaitAck    bool
	AckTimeout time.Duration

	// SolveTimeout bounds the solver call when positive.
	SolveTimeout time.Duration
}

// Planner executes planning runs. It is safe for concurrent use when its
// solver is.
type Planner struct {
	solver solver.Solver
	opts   Options
	log    logger.Logger
	now    func() time.Time
	newID  func() string
}

// Result is the outcome of one run. Flows, Decisions, Diagnostics and
// Summary are set whenever the solver returned a solution, even when the
// status is not optimal.
type Result struct {
	RunID          string               `json:"run_id"`
	Status         solver.Status        `json:"status"`
	ObjectiveValue float64              `json:"objective_value"`
	Flows          []model.SolvedFlow   `json:"flows"`
	Decisions      []strategy.Decision  `json:"decisions"`
	Diagnostics    strategy.Diagnostics `json:"diagnostics"`
	Summary        model.Summary        `json:"summary"`
	IgnoredColumns int                  `json:"ignored_columns"`
	// MessageID identifies the published schedule, empty when nothing was sent.
	MessageID string `json:"message_id,omitempty"`
	// Acknowledged reports whether the device acknowledged the schedule.
	Acknowledged bool `json:"acknowledged"`
}

// New creates a planner around s.
func New(s solver.Solver, opts Options) (*Planner, error) {
	if s == nil {
		return nil, fmt.Errorf("planner: nil solver")
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	if opts.Store == nil {
		opts.Store = planlog.NopStore{}
	}
	return &Planner{
		solver: s,
		opts:   opts,
		log:    logger.OrNop(opts.Logger),
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Plan runs the full pipeline on cfg. Configuration contract violations and
// solver failures are returned as errors; a non-optimal status is reported
// in Result.Status.
func (p *Planner) Plan(ctx context.Context, cfg model.Config) (Result, error) {
	start := p.now()
	res := Result{RunID: p.newID()}
	p.log.Infof("plan %s: %d slots", res.RunID, cfg.Series.Len())

	solveDur, err := p.run(ctx, cfg, &res)
	if err != nil {
		p.log.Errorf("plan %s failed: %v", res.RunID, err)
		p.report(ctx, cfg, res, solveDur, p.now().Sub(start), err)
		return res, err
	}
	if !res.Status.IsOptimal() {
		p.log.Warnf("plan %s: solver status %q", res.RunID, res.Status)
	} else {
		p.log.Infof("plan %s: optimal, objective %.4f", res.RunID, res.ObjectiveValue)
	}
	p.report(ctx, cfg, res, solveDur, p.now().Sub(start), nil)

	if p.opts.Publish && p.opts.Publisher != nil && res.Status.IsOptimal() {
		p.publish(ctx, &res)
	}
	return res, nil
}

func (p *Planner) run(ctx context.Context, cfg model.Config, res *Result) (time.Duration, error) {
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("planner: %w", err)
	}
	params := cfg.Params.Normalize()
	if cfg.Timing.SlotDuration <= 0 {
		cfg.Timing.SlotDuration = params.SlotDuration
	}
	if _, err := cfg.Timing.SlotTimes(cfg.Series.Len()); err != nil {
		return 0, fmt.Errorf("planner: %w", err)
	}

	text, err := lpmodel.Build(cfg.Series, params)
	if err != nil {
		return 0, fmt.Errorf("planner: build model: %w", err)
	}
	p.log.Debugw("model built", map[string]any{"run_id": res.RunID, "bytes": len(text)})

	sctx := ctx
	if p.opts.SolveTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, p.opts.SolveTimeout)
		defer cancel()
	}
	solveStart := p.now()
	sol, err := p.solver.Solve(sctx, text)
	solveDur := p.now().Sub(solveStart)
	if err != nil {
		return solveDur, fmt.Errorf("planner: solve: %w", err)
	}
	res.Status = sol.Status
	res.ObjectiveValue = sol.ObjectiveValue
	if sol.Columns == nil {
		return solveDur, nil
	}

	flows, st, err := decoder.DecodeWithStats(sol, cfg)
	if err != nil {
		return solveDur, fmt.Errorf("planner: %w", err)
	}
	res.IgnoredColumns = st.Unmatched + st.OutOfRange
	if res.IgnoredColumns > 0 {
		p.log.Debugw("ignored solver columns", map[string]any{
			"run_id": res.RunID, "unmatched": st.Unmatched, "out_of_range": st.OutOfRange,
		})
	}
	plan := strategy.Map(flows, params)
	res.Flows = flows
	res.Decisions = plan.Decisions
	res.Diagnostics = plan.Diagnostics
	res.Summary = model.Summarize(flows, params)
	return solveDur, nil
}

// report publishes the run on the bus and appends it to the plan log.
func (p *Planner) report(ctx context.Context, cfg model.Config, res Result, solveDur, total time.Duration, runErr error) {
	now := p.now()
	if p.opts.Bus != nil {
		importWh, _ := res.Summary.ImportWh.Float64()
		exportWh, _ := res.Summary.ExportWh.Float64()
		net, _ := res.Summary.NetCostCents.Float64()
		p.opts.Bus.Publish(events.PlanEvent{
			RunID:          res.RunID,
			Status:         string(res.Status),
			ObjectiveValue: res.ObjectiveValue,
			IgnoredColumns: res.IgnoredColumns,
			SolveDuration:  solveDur,
			Duration:       total,
			ImportWh:       importWh,
			ExportWh:       exportWh,
			NetCostCents:   net,
			Flows:          res.Flows,
			Decisions:      res.Decisions,
			Err:            runErr,
			Time:           now,
		})
	}

	rec := planlog.Record{
		RunID:          res.RunID,
		Timestamp:      now,
		Status:         string(res.Status),
		ObjectiveValue: res.ObjectiveValue,
		Slots:          cfg.Series.Len(),
		Decisions:      res.Decisions,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
		if rec.Status == "" {
			rec.Status = "failed"
		}
	}
	if len(res.Flows) > 0 {
		rec.HorizonStart = res.Flows[0].Time
		summary := res.Summary
		diag := res.Diagnostics
		rec.Summary = &summary
		rec.Diagnostics = &diag
	}
	if err := p.opts.Store.Append(ctx, rec); err != nil {
		p.log.Errorf("plan log append: %v", err)
	}
}

func (p *Planner) publish(ctx context.Context, res *Result) {
	start := p.now()
	sched := control.Schedule{RunID: res.RunID, CreatedAt: start, Decisions: res.Decisions}
	msgID, err := p.opts.Publisher.PublishSchedule(ctx, sched)
	if err == nil {
		res.MessageID = msgID
		if p.opts.WaitAck {
			res.Acknowledged, err = p.opts.Publisher.WaitForAck(msgID, p.opts.AckTimeout)
		}
	}
	if err != nil {
		p.log.Errorf("plan %s: publish schedule: %v", res.RunID, err)
	} else {
		p.log.Infof("plan %s: schedule %s published", res.RunID, msgID)
	}
	if p.opts.Bus != nil {
		p.opts.Bus.Publish(events.ScheduleEvent{
			RunID:   res.RunID,
			Topic:   p.opts.Topic,
			Slots:   len(res.Decisions),
			Latency: p.now().Sub(start),
			Err:     err,
			Time:    p.now(),
		})
	}
}
