// Package cost aggregates charging cost and energy per vehicle and day,
// the KPI behind the daily report.
package cost

import "time"

// Record aggregates charging cost for a vehicle and day.
type Record struct {
	VehicleID string
	Date      time.Time
	EnergyKWh float64
	CostSpot  float64
	CostGrid  float64
	Sessions  int
}

// TotalCost returns spot and grid cost combined.
func (r Record) TotalCost() float64 {
	return r.CostSpot + r.CostGrid
}

// AvgPriceKWh returns the effective price paid per kWh over the day.
func (r Record) AvgPriceKWh() float64 {
	if r.EnergyKWh == 0 {
		return 0
	}
	return r.TotalCost() / r.EnergyKWh
}
