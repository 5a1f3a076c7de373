// Package api exposes the service over HTTP: poll snapshots, charge plans,
// user settings, overrides, session history and reports.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/core/engine"
	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/metrics/cost"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/core/override"
	"github.com/laddvakt/laddvakt/core/session"
	"github.com/laddvakt/laddvakt/core/settings"
	"github.com/laddvakt/laddvakt/core/vehicle"
	"github.com/laddvakt/laddvakt/core/vehiclestatus"
)

// Planner is the engine surface the API reads: the latest poll snapshot,
// the synthesized price series and on-demand charge plans.
type Planner interface {
	Snapshot() (model.Snapshot, bool)
	Series() []model.PriceSample
	Plan(ctx context.Context, vehicleID string) (engine.Plan, error)
}

// Deps bundles the handlers' collaborators.
type Deps struct {
	Planner   Planner
	Settings  settings.Store
	Overrides *override.Manager
	Sessions  session.Store
	Costs     cost.Store
	History   vehiclestatus.Store
	Vehicles  map[string]vehicle.Client
	Log       logger.Logger
}

// Server serves the HTTP API.
type Server struct {
	deps Deps
	log  logger.Logger
	srv  *http.Server
}

// New builds the server and its routes.
func New(cfg config.APIConfig, deps Deps) *Server {
	cfg.SetDefaults()
	s := &Server{deps: deps, log: deps.Log}
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
	return s
}

// Router returns the configured route set, exposed for tests.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/plan", s.getPlan).Methods(http.MethodGet)
	api.HandleFunc("/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.putSettings).Methods(http.MethodPut)
	api.HandleFunc("/overrides", s.listOverrides).Methods(http.MethodGet)
	api.HandleFunc("/overrides/{vehicle}", s.putOverride).Methods(http.MethodPut)
	api.HandleFunc("/overrides/{vehicle}", s.deleteOverride).Methods(http.MethodDelete)
	api.HandleFunc("/sessions", s.listSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/export", s.exportSessions).Methods(http.MethodGet)
	api.HandleFunc("/report/daily", s.dailyReport).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}/climate", s.postClimate).Methods(http.MethodPost)

	r.HandleFunc("/chart", s.priceChart).Methods(http.MethodGet)

	return s.logRequests(r)
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("http api listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(started))
	})
}
