package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/laddvakt/laddvakt/core/model"
)

type overrideView struct {
	VehicleID string    `json:"vehicle_id"`
	Action    string    `json:"action"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toOverrideView(o model.Override) overrideView {
	return overrideView{
		VehicleID: o.VehicleID,
		Action:    o.Action.String(),
		ExpiresAt: o.ExpiresAt,
	}
}

func (s *Server) listOverrides(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Overrides.All(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]overrideView, len(list))
	for i, o := range list {
		views[i] = toOverrideView(o)
	}
	s.sendJSON(w, http.StatusOK, views)
}

type overrideRequest struct {
	// Action is "charge", "stop" or "auto"; "auto" clears the override.
	Action  string `json:"action"`
	Minutes int    `json:"minutes"`
}

func (s *Server) putOverride(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle"]
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid override body: "+err.Error(), http.StatusBadRequest)
		return
	}
	o, err := s.deps.Overrides.Apply(r.Context(), vehicleID, req.Action, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if o == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.sendJSON(w, http.StatusOK, toOverrideView(*o))
}

func (s *Server) deleteOverride(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle"]
	if err := s.deps.Overrides.Clear(r.Context(), vehicleID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
