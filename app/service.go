// Package app assembles the charging service from its configuration: the
// SQLite store, the cloud connectors, the decision engine and the outer
// surfaces (HTTP API, Prometheus endpoint, MQTT state publisher).
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/laddvakt/laddvakt/api"
	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/connectors/elpris"
	"github.com/laddvakt/laddvakt/connectors/homeassistant"
	"github.com/laddvakt/laddvakt/connectors/openmeteo"
	"github.com/laddvakt/laddvakt/connectors/zaptec"
	"github.com/laddvakt/laddvakt/core/engine"
	"github.com/laddvakt/laddvakt/core/events"
	"github.com/laddvakt/laddvakt/core/forecast"
	coremetrics "github.com/laddvakt/laddvakt/core/metrics"
	coremonitoring "github.com/laddvakt/laddvakt/core/monitoring"
	"github.com/laddvakt/laddvakt/core/override"
	"github.com/laddvakt/laddvakt/core/resolver"
	"github.com/laddvakt/laddvakt/core/scheduler"
	"github.com/laddvakt/laddvakt/core/session"
	"github.com/laddvakt/laddvakt/core/target"
	"github.com/laddvakt/laddvakt/core/vehicle"
	"github.com/laddvakt/laddvakt/core/vehiclestatus"
	"github.com/laddvakt/laddvakt/infra/logger"
	"github.com/laddvakt/laddvakt/infra/metrics"
	"github.com/laddvakt/laddvakt/infra/monitoring"
	"github.com/laddvakt/laddvakt/infra/mqtt"
	"github.com/laddvakt/laddvakt/infra/store"
	"github.com/laddvakt/laddvakt/internal/eventbus"
)

// Service orchestrates the decision engine and its surrounding machinery.
type Service struct {
	Engine *engine.Engine

	cfg        *config.Config
	log        logger.Logger
	db         *store.DB
	api        *api.Server
	accountant *session.Accountant
	state      *mqtt.StateManager
	sink       coremetrics.Sink
	pollBus    *eventbus.Bus[events.PollEvent]
	sessionBus *eventbus.Bus[events.SessionEvent]
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	if cfg.Sentry.DSN != "" {
		mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		coremonitoring.Init(mon)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	// The cost sink always runs: the daily report reads what it writes.
	sink = coremetrics.NewMultiSink(sink, metrics.NewCostSink(db.Costs(), prometheus.DefaultRegisterer))

	ha := homeassistant.New(cfg.HomeAssistant)
	vehicles := make([]vehicle.Client, 0, len(cfg.Vehicles))
	byID := make(map[string]vehicle.Client, len(cfg.Vehicles))
	for _, vc := range cfg.Vehicles {
		v := homeassistant.NewVehicle(ha, vc)
		vehicles = append(vehicles, v)
		byID[vc.ID] = v
	}

	pollBus := eventbus.New[events.PollEvent]()
	sessionBus := eventbus.New[events.SessionEvent]()

	accountant := session.New(db.Sessions(), cfg.Session, logger.New("session"))
	accountant.Notify(sessionBus.Publish)

	overrides := override.NewManager(db.Overrides(), logger.New("override"))

	eng := engine.New(cfg.Engine, engine.Deps{
		Log:        logger.New("engine"),
		Charger:    zaptec.New(cfg.Charger),
		Vehicles:   vehicles,
		Prices:     elpris.New(cfg.Elpris, cfg.Fees.TotalPerKWh()),
		Weather:    openmeteo.New(cfg.OpenMeteo),
		Synth:      forecast.NewSynthesizer(cfg.Forecast, logger.New("forecast")),
		Calibrator: forecast.NewCalibrator(db.Forecasts(), logger.New("forecast")),
		History:    db.Forecasts(),
		Target:     target.NewCalculator(cfg.Target),
		Scheduler:  scheduler.New(cfg.Scheduler, logger.New("scheduler")),
		Overrides:  overrides,
		Accountant: accountant,
		Sessions:   db.Sessions(),
		Settings:   db.Settings(),
		Resolver:   resolver.New(logger.New("resolver")),
		Sink:       sink,
		Bus:        pollBus,
	})

	apiSrv := api.New(cfg.API, api.Deps{
		Planner:   eng,
		Settings:  db.Settings(),
		Overrides: overrides,
		Sessions:  db.Sessions(),
		Costs:     db.Costs(),
		History:   db.StatusLog(),
		Vehicles:  byID,
		Log:       logger.New("api"),
	})

	svc := &Service{
		Engine:     eng,
		cfg:        cfg,
		log:        log,
		db:         db,
		api:        apiSrv,
		accountant: accountant,
		sink:       sink,
		pollBus:    pollBus,
		sessionBus: sessionBus,
	}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.state = mqtt.NewStateManager(pub, cfg.MQTT.Prefix(), pollBus, sessionBus)
		announced := make([]mqtt.DiscoveryVehicle, 0, len(cfg.Vehicles))
		for _, v := range cfg.Vehicles {
			announced = append(announced, mqtt.DiscoveryVehicle{ID: v.ID, Name: v.Name})
		}
		if err := mqtt.NewDiscovery(pub, cfg.MQTT).Announce(announced); err != nil {
			log.Errorf("mqtt discovery: %v", err)
		}
	}
	return svc, nil
}

// Run starts the poll loop and all service surfaces, blocking until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer coremonitoring.Recover()

	if err := s.accountant.Resume(ctx); err != nil {
		s.log.Warnf("resume open session: %v", err)
	}
	metrics.StartSessionCollector(ctx, s.sessionBus, s.sink)

	go s.recordStatus(ctx)
	go s.maintenance(ctx)
	go func() {
		if err := s.api.Start(ctx); err != nil {
			s.log.Errorf("http api: %v", err)
		}
	}()
	go func() {
		if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Addr); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
	if s.state != nil {
		go s.state.Start(ctx)
	}

	return s.Engine.Run(ctx)
}

// recordStatus appends one status row per vehicle after each poll.
func (s *Service) recordStatus(ctx context.Context) {
	sub := s.pollBus.Subscribe()
	defer s.pollBus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := s.db.StatusLog().Append(ctx, vehiclestatus.FromSnapshot(ev.Snapshot)); err != nil {
				s.log.Warnf("status log: %v", err)
			}
		}
	}
}

// maintenance prunes the history tables once a day. Forecasts are kept two
// weeks for bias calibration, status rows a month for the history endpoint.
func (s *Service) maintenance(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := s.db.Forecasts().Prune(ctx, now.AddDate(0, 0, -14)); err != nil {
				s.log.Warnf("prune forecasts: %v", err)
			}
			if err := s.db.StatusLog().Prune(ctx, now.AddDate(0, 0, -30)); err != nil {
				s.log.Warnf("prune status log: %v", err)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.pollBus.Close()
	s.sessionBus.Close()
	coremonitoring.Flush(2 * time.Second)
	return s.db.Close()
}
