package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dessplan/core/metrics"
	"github.com/kilianp07/dessplan/infra/logger"
)

// InfluxSink writes planner runs and schedules to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig identifies the InfluxDB bucket to write to.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordPlanRun writes one plan_run point.
func (s *InfluxSink) RecordPlanRun(ev coremetrics.PlanRunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_run").
		AddTag("run_id", ev.RunID).
		AddTag("status", ev.Status).
		AddTag("component", "planner").
		AddField("objective", round3(ev.ObjectiveValue)).
		AddField("slots", ev.Slots).
		AddField("ignored_columns", ev.IgnoredColumns).
		AddField("solve_ms", round3(ev.SolveDuration.Seconds()*1000)).
		AddField("import_wh", round3(ev.ImportWh)).
		AddField("export_wh", round3(ev.ExportWh)).
		AddField("net_cost_cents", round3(ev.NetCostCents)).
		SetTime(ev.Time)
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSchedule writes one plan_slot point per slot in a single request.
func (s *InfluxSink) RecordSchedule(runID string, slots []coremetrics.SlotRecord) error {
	if len(slots) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(slots))
	for _, sl := range slots {
		points = append(points, write.NewPointWithMeasurement("plan_slot").
			AddTag("run_id", runID).
			AddTag("strategy", sl.Strategy).
			AddTag("restrictions", sl.Restrictions).
			AddTag("feed_in", strconv.FormatBool(sl.FeedIn)).
			AddField("soc_target_wh", round3(sl.SoCTargetWh)).
			AddField("soc_percent", round3(sl.SoCPercent)).
			AddField("grid_import_w", round3(sl.GridImportW)).
			AddField("grid_export_w", round3(sl.GridExportW)).
			AddField("import_price", round3(sl.ImportPrice)).
			AddField("export_price", round3(sl.ExportPrice)).
			SetTime(sl.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordSchedulePublish writes a schedule_publish point.
func (s *InfluxSink) RecordSchedulePublish(ev coremetrics.SchedulePublishEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_publish").
		AddTag("run_id", ev.RunID).
		AddTag("topic", ev.Topic).
		AddTag("success", strconv.FormatBool(ev.Error == "")).
		AddField("slots", ev.Slots).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
