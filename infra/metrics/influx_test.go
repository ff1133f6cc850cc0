package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dessplan/core/metrics"
)

type capture struct {
	mu     sync.Mutex
	bodies []string
}

func (c *capture) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, strings.TrimSpace(string(data)))
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func lineProtocol(points ...*write.Point) string {
	var lines []string
	for _, p := range points {
		lines = append(lines, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)))
	}
	return strings.Join(lines, "\n")
}

func TestInfluxSink_RecordPlanRun(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.PlanRunEvent{
		RunID:          "r1",
		Status:         "Optimal",
		ObjectiveValue: 1.25,
		Slots:          96,
		SolveDuration:  250 * time.Millisecond,
		ImportWh:       1500,
		NetCostCents:   42,
		Time:           now,
	}
	if err := sink.RecordPlanRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("plan_run").
		AddTag("run_id", "r1").
		AddTag("status", "Optimal").
		AddTag("component", "planner").
		AddField("objective", 1.25).
		AddField("slots", 96).
		AddField("ignored_columns", 0).
		AddField("solve_ms", 250.0).
		AddField("import_wh", 1500.0).
		AddField("export_wh", 0.0).
		AddField("net_cost_cents", 42.0).
		SetTime(now)
	if len(c.bodies) != 1 || c.bodies[0] != lineProtocol(p) {
		t.Errorf("unexpected body: %#v", c.bodies)
	}
}

func TestInfluxSink_RecordSchedule(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	slots := []coremetrics.SlotRecord{
		{Time: now, Strategy: "pro_battery", Restrictions: "battery_to_grid_blocked", FeedIn: true, SoCTargetWh: 5000, GridImportW: 1000, ImportPrice: 12},
		{Time: now.Add(15 * time.Minute), Strategy: "self_consumption", Restrictions: "both_blocked", SoCTargetWh: 4800, ExportPrice: -2},
	}
	if err := sink.RecordSchedule("r1", slots); err != nil {
		t.Fatalf("record error: %v", err)
	}
	var points []*write.Point
	for _, sl := range slots {
		feed := "false"
		if sl.FeedIn {
			feed = "true"
		}
		points = append(points, write.NewPointWithMeasurement("plan_slot").
			AddTag("run_id", "r1").
			AddTag("strategy", sl.Strategy).
			AddTag("restrictions", sl.Restrictions).
			AddTag("feed_in", feed).
			AddField("soc_target_wh", sl.SoCTargetWh).
			AddField("soc_percent", 0.0).
			AddField("grid_import_w", sl.GridImportW).
			AddField("grid_export_w", 0.0).
			AddField("import_price", sl.ImportPrice).
			AddField("export_price", sl.ExportPrice).
			SetTime(sl.Time))
	}
	if len(c.bodies) != 1 || c.bodies[0] != lineProtocol(points...) {
		t.Errorf("unexpected bodies: %#v", c.bodies)
	}

	if err := sink.RecordSchedule("r2", nil); err != nil || len(c.bodies) != 1 {
		t.Errorf("empty schedule should not write")
	}
}

func TestInfluxSink_RecordSchedulePublish(t *testing.T) {
	var c capture
	srv := c.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordSchedulePublish(coremetrics.SchedulePublishEvent{
		RunID: "r1", Topic: "dess/schedule", Slots: 4, Latency: time.Second, Error: "timeout", Time: now,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("schedule_publish").
		AddTag("run_id", "r1").
		AddTag("topic", "dess/schedule").
		AddTag("success", "false").
		AddField("slots", 4).
		AddField("latency_ms", 1000.0).
		AddField("error", "timeout").
		SetTime(now)
	if len(c.bodies) != 1 || c.bodies[0] != lineProtocol(p) {
		t.Errorf("bodies: %#v", c.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
