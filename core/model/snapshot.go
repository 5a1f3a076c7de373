package model

import "time"

// Snapshot is the engine's view of the world after one poll, published for
// dashboards and metrics sinks.
type Snapshot struct {
	Time          time.Time         `json:"time"`
	ActiveVehicle string            `json:"active_vehicle"`
	Charger       ChargerSnapshot   `json:"charger"`
	PriceSEK      float64           `json:"price_sek_kwh"`
	PriceSource   string            `json:"price_source"`
	TempC         float64           `json:"temp_c"`
	Vehicles      []VehicleSnapshot `json:"vehicles"`
}

// ChargerSnapshot is the charger part of a Snapshot.
type ChargerSnapshot struct {
	Mode         string  `json:"mode"`
	PowerKW      float64 `json:"power_kw"`
	EnergyKWh    float64 `json:"session_energy_kwh"`
	ActivePhases int     `json:"active_phases"`
}

// VehicleSnapshot is the per-vehicle part of a Snapshot. The decision is
// flattened into strings so consumers need no knowledge of internal enums.
type VehicleSnapshot struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	SoC          int     `json:"soc"`
	RangeKM      float64 `json:"range_km"`
	PluggedIn    bool    `json:"plugged_in"`
	ClimateOn    bool    `json:"climate_on"`
	OdometerKM   float64 `json:"odometer_km"`
	TargetSoC    int     `json:"target_soc"`
	Action       string  `json:"action"`
	Reason       string  `json:"reason"`
	Mode         string  `json:"mode"`
	UrgencyHours float64 `json:"urgency_hours"`
	Gated        bool    `json:"gated"` // true when the resolver idled this vehicle's decision
}
