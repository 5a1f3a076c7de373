package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/laddvakt/laddvakt/core/settings"
)

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Show effective values for every configured vehicle, not just the
	// ones the user has touched.
	for _, id := range s.vehicleIDs() {
		prefs.Put(prefs.ForVehicle(id))
	}
	s.sendJSON(w, http.StatusOK, prefs)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var prefs settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, "invalid settings body: "+err.Error(), http.StatusBadRequest)
		return
	}
	for id, v := range prefs.Vehicles {
		v.VehicleID = id
		if !v.Band.Valid() {
			http.Error(w, fmt.Sprintf("invalid target band for %s", id), http.StatusBadRequest)
			return
		}
		if v.Departure != "" {
			if _, err := time.Parse("15:04", v.Departure); err != nil {
				http.Error(w, fmt.Sprintf("departure for %s must be HH:MM", id), http.StatusBadRequest)
				return
			}
		}
		prefs.Vehicles[id] = v
	}
	if err := s.deps.Settings.Save(r.Context(), prefs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Infof("settings updated for %d vehicle(s)", len(prefs.Vehicles))
	s.sendJSON(w, http.StatusOK, prefs)
}
