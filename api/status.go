package api

import (
	"net/http"
	"time"

	"github.com/laddvakt/laddvakt/core/vehiclestatus"
)

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.deps.Planner.Snapshot()
	if !ok {
		http.Error(w, "no poll completed yet", http.StatusServiceUnavailable)
		return
	}
	s.sendJSON(w, http.StatusOK, snap)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	q := vehiclestatus.Query{
		VehicleID: r.URL.Query().Get("vehicle"),
		Limit:     intParam(r, "limit", 100),
	}
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "start must be RFC3339", http.StatusBadRequest)
			return
		}
		q.Start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "end must be RFC3339", http.StatusBadRequest)
			return
		}
		q.End = t
	}

	entries, err := s.deps.History.Query(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []vehiclestatus.Entry{}
	}
	s.sendJSON(w, http.StatusOK, entries)
}
