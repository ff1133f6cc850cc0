package scenarios

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/dessplan/core/planner"
	"github.com/kilianp07/dessplan/infra/logger"
	"github.com/kilianp07/dessplan/infra/metrics"
	"github.com/kilianp07/dessplan/infra/mqtt"
	infrasolver "github.com/kilianp07/dessplan/infra/solver"
	"github.com/kilianp07/dessplan/internal/eventbus"
)

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	cfg, err := sc.Config()
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	collector := metrics.StartEventCollector(ctx, bus, sink, logger.NopLogger{})

	pub := mqtt.NewMockPublisher()
	p, err := planner.New(infrasolver.GonumSolver{}, planner.Options{
		Logger:    logger.NopLogger{},
		Bus:       bus,
		Publisher: pub,
		Publish:   sc.Publish,
		WaitAck:   sc.Publish,
	})
	if err != nil {
		t.Fatalf("planner: %v", err)
	}

	res, err := p.Plan(ctx, cfg)
	if err != nil {
		t.Fatalf("scenario %s: plan: %v", sc.Name, err)
	}
	bus.Close()
	collector.Wait()

	want := sc.Expected.Status
	if want == "" {
		want = "Optimal"
	}
	if string(res.Status) != want {
		t.Fatalf("scenario %s: status %q, want %q", sc.Name, res.Status, want)
	}
	for _, exp := range sc.Expected.Decisions {
		if exp.Slot < 0 || exp.Slot >= len(res.Decisions) {
			t.Errorf("scenario %s: no decision for slot %d", sc.Name, exp.Slot)
			continue
		}
		for _, diff := range exp.Check(res.Decisions[exp.Slot]) {
			t.Errorf("scenario %s slot %d: %s", sc.Name, exp.Slot, diff)
		}
	}

	published := len(pub.Schedules) > 0
	if published != sc.Expected.Published {
		t.Errorf("scenario %s: published %t, want %t", sc.Name, published, sc.Expected.Published)
	}
	if published && !res.Acknowledged {
		t.Errorf("scenario %s: schedule not acknowledged", sc.Name)
	}
	n, err := testutil.GatherAndCount(reg, "dessplan_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("scenario %s: %d run series recorded, want 1", sc.Name, n)
	}
}
