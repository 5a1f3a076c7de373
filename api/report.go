package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/laddvakt/laddvakt/core/metrics/cost"
	"github.com/laddvakt/laddvakt/core/model"
)

type dailyReportRow struct {
	Date        string  `json:"date"`
	VehicleID   string  `json:"vehicle_id"`
	EnergyKWh   float64 `json:"energy_kwh"`
	CostSpot    float64 `json:"cost_spot"`
	CostGrid    float64 `json:"cost_grid"`
	CostTotal   float64 `json:"cost_total"`
	AvgPriceKWh float64 `json:"avg_price_kwh"`
	Sessions    int     `json:"sessions"`
}

func (s *Server) dailyReport(w http.ResponseWriter, r *http.Request) {
	days := intParam(r, "days", 7)
	if days < 1 {
		days = 1
	}
	end := time.Now()
	start := cost.Day(end).AddDate(0, 0, -(days - 1))

	ids := s.vehicleIDs()
	if v := r.URL.Query().Get("vehicle"); v != "" {
		ids = []string{v}
	} else {
		// Guest charging shows up in the report even though no vehicle
		// is configured for it.
		ids = append(ids, model.GuestID)
	}

	rows := []dailyReportRow{}
	for _, id := range ids {
		recs, err := s.deps.Costs.Query(id, start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, rec := range recs {
			rows = append(rows, dailyReportRow{
				Date:        rec.Date.Format("2006-01-02"),
				VehicleID:   rec.VehicleID,
				EnergyKWh:   rec.EnergyKWh,
				CostSpot:    rec.CostSpot,
				CostGrid:    rec.CostGrid,
				CostTotal:   rec.TotalCost(),
				AvgPriceKWh: rec.AvgPriceKWh(),
				Sessions:    rec.Sessions,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].VehicleID < rows[j].VehicleID
	})
	s.sendJSON(w, http.StatusOK, rows)
}
