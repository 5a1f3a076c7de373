package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/pkg/export"
)

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 50)

	var (
		out []model.ChargingSession
		err error
	)
	if vehicleID := r.URL.Query().Get("vehicle"); vehicleID != "" {
		out, err = s.deps.Sessions.Recent(r.Context(), vehicleID, limit)
	} else {
		out, err = s.recentSessions(r.Context(), limit)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []model.ChargingSession{}
	}
	s.sendJSON(w, http.StatusOK, out)
}

// recentSessions returns closed sessions across all vehicles, newest first.
func (s *Server) recentSessions(ctx context.Context, limit int) ([]model.ChargingSession, error) {
	all, err := s.deps.Sessions.List(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	var out []model.ChargingSession
	for _, sess := range all {
		if !sess.Open() {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Server) exportSessions(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.Sessions.List(r.Context(), time.Time{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sessions.csv"`)
	if err := export.WriteSessionsCSV(w, all); err != nil {
		s.log.Errorf("export sessions: %v", err)
	}
}
