package model

import "time"

// ChargingSession accumulates energy and cost between a charge start and
// stop. At most one session per vehicle is open at any time.
type ChargingSession struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"` // zero while the session is open

	EnergyKWh float64 `json:"energy_kwh"` // monotonically increasing while open
	CostSpot  float64 `json:"cost_spot"`  // energy cost at spot price, grid fees excluded
	CostGrid  float64 `json:"cost_grid"`  // grid fees, taxes and VAT share

	StartSoC      int     `json:"start_soc"`
	EndSoC        int     `json:"end_soc"`
	StartOdometer float64 `json:"start_odometer_km"`
	EndOdometer   float64 `json:"end_odometer_km"`

	// Last good readings observed while charging, used when the final
	// reading is unavailable at close time.
	LastSoC      int     `json:"last_soc"`
	LastOdometer float64 `json:"last_odometer_km"`

	AvgPowerKW float64 `json:"avg_power_kw"` // set at close when the session lasted long enough
}

// Open reports whether the session is still accumulating.
func (s ChargingSession) Open() bool {
	return s.EndTime.IsZero()
}

// TotalCost returns spot and grid cost combined.
func (s ChargingSession) TotalCost() float64 {
	return s.CostSpot + s.CostGrid
}

// Duration returns the session length, zero while open.
func (s ChargingSession) Duration() time.Duration {
	if s.Open() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
