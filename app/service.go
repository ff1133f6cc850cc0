// Package app wires the planner with its stores, metrics and control
// channel from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/dessplan/api/plan"
	"github.com/kilianp07/dessplan/config"
	"github.com/kilianp07/dessplan/core/control"
	"github.com/kilianp07/dessplan/core/inputs"
	coremetrics "github.com/kilianp07/dessplan/core/metrics"
	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/planlog"
	"github.com/kilianp07/dessplan/core/planner"
	"github.com/kilianp07/dessplan/infra/logger"
	"github.com/kilianp07/dessplan/infra/metrics"
	"github.com/kilianp07/dessplan/infra/mqtt"
	"github.com/kilianp07/dessplan/infra/solver"
	"github.com/kilianp07/dessplan/internal/eventbus"
)

// Options tweaks how the service is assembled.
type Options struct {
	// InputsPath is the horizon inputs file read before every run.
	InputsPath string
	// Publish overrides plan.publish when set.
	Publish *bool
	// Publisher replaces the MQTT client built from the configuration.
	Publisher control.SchedulePublisher
}

// Service orchestrates the planner and its collaborators.
type Service struct {
	Planner *planner.Planner
	Store   planlog.LogStore

	cfg        *config.Config
	params     model.StaticParameters
	inputsPath string
	bus        *eventbus.Bus
	collector  *metrics.Collector
	stop       context.CancelFunc
	mqtt       *mqtt.PahoClient
	log        logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts Options) (*Service, error) {
	logg := logger.New("service")
	params, err := cfg.Plan.Params()
	if err != nil {
		return nil, fmt.Errorf("plan parameters: %w", err)
	}
	slv, err := solver.New(cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := planlog.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("plan log: %w", err)
	}

	svc := &Service{
		Store:      store,
		cfg:        cfg,
		params:     params,
		inputsPath: opts.InputsPath,
		bus:        eventbus.New(),
		log:        logg,
	}
	publish := cfg.Plan.Publish
	if opts.Publish != nil {
		publish = *opts.Publish
	}
	pub := opts.Publisher
	if pub == nil && publish {
		if cfg.MQTT.Broker == "" {
			_ = store.Close()
			return nil, fmt.Errorf("publish requires mqtt.broker")
		}
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
		pub = client
	}

	ctx, stop := context.WithCancel(context.Background())
	svc.stop = stop
	svc.collector = metrics.StartEventCollector(ctx, svc.bus, sink, logger.New("metrics"))

	svc.Planner, err = planner.New(slv, planner.Options{
		Logger:       logger.New("planner"),
		Bus:          svc.bus,
		Store:        store,
		Publisher:    pub,
		Publish:      publish,
		Topic:        cfg.MQTT.ScheduleTopic,
		WaitAck:      cfg.Plan.WaitAck,
		AckTimeout:   cfg.Plan.AckTimeout(),
		SolveTimeout: cfg.Plan.SolveTimeout(),
	})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

// PlanOnce loads the inputs file and runs the planner on it.
func (s *Service) PlanOnce(ctx context.Context) (planner.Result, error) {
	if s.inputsPath == "" {
		return planner.Result{}, fmt.Errorf("no inputs file configured")
	}
	in, err := inputs.LoadInputs(s.inputsPath)
	if err != nil {
		return planner.Result{}, fmt.Errorf("load inputs: %w", err)
	}
	run, err := in.Config(s.params)
	if err != nil {
		return planner.Result{}, fmt.Errorf("inputs: %w", err)
	}
	return s.Planner.Plan(ctx, run)
}

// Run starts the HTTP endpoints, plans once and, when a re-plan interval is
// configured, keeps planning until the context is cancelled. Without an
// interval it returns after the first run unless an HTTP endpoint is
// configured, in which case it serves until cancellation.
func (s *Service) Run(ctx context.Context) error {
	serving := false
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		serving = true
		go func() {
			if err := metrics.StartPromServer(ctx, addr, prometheus.DefaultGatherer); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if addr := s.cfg.API.Addr; addr != "" {
		serving = true
		go func() {
			if err := serveAPI(ctx, addr, plan.NewMux(s.Store, s.cfg.API.Token)); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}

	if s.inputsPath != "" {
		if _, err := s.PlanOnce(ctx); err != nil {
			s.log.Errorf("plan: %v", err)
		}
	}
	interval := s.cfg.Plan.ReplanInterval()
	if interval <= 0 {
		if serving {
			<-ctx.Done()
		}
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.PlanOnce(ctx); err != nil {
				s.log.Errorf("plan: %v", err)
			}
		}
	}
}

func serveAPI(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close flushes pending metrics and releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.collector.Wait()
	s.stop()
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	return s.Store.Close()
}
