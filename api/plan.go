package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/laddvakt/laddvakt/pkg/export"
)

type planView struct {
	VehicleID string      `json:"vehicle_id"`
	TargetSoC int         `json:"target_soc"`
	Mode      string      `json:"mode"`
	Hours     []time.Time `json:"hours"`
}

type planResponse struct {
	Series []export.PriceRow `json:"series"`
	Plans  []planView        `json:"plans"`
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	ids := s.vehicleIDs()
	if v := r.URL.Query().Get("vehicle"); v != "" {
		if _, ok := s.deps.Vehicles[v]; !ok {
			http.Error(w, "unknown vehicle", http.StatusNotFound)
			return
		}
		ids = []string{v}
	}

	resp := planResponse{
		Series: export.SeriesRows(s.deps.Planner.Series()),
		Plans:  make([]planView, 0, len(ids)),
	}
	for _, id := range ids {
		plan, err := s.deps.Planner.Plan(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hours := plan.Hours
		if hours == nil {
			hours = []time.Time{}
		}
		resp.Plans = append(resp.Plans, planView{
			VehicleID: plan.VehicleID,
			TargetSoC: plan.TargetSoC,
			Mode:      plan.Mode,
			Hours:     hours,
		})
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) vehicleIDs() []string {
	ids := make([]string, 0, len(s.deps.Vehicles))
	for id := range s.deps.Vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
