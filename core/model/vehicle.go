package model

// Reserved vehicle identities. Real vehicle ids come from configuration.
const (
	// GuestID is assigned when a vehicle is connected but cannot be
	// matched to a configured one.
	GuestID = "guest"
	// NoneID means no vehicle is connected to the charger.
	NoneID = "none"
)

// VehicleStatus is a point-in-time reading of a vehicle's telemetry.
// The zero value represents an unknown state after a failed read.
type VehicleStatus struct {
	SoC        int     // state of charge in percent, 0-100
	RangeKM    float64 // estimated remaining range
	PluggedIn  bool    // cable connected according to the vehicle
	OdometerKM float64
	ClimateOn  bool
	Charging   bool // charging according to the vehicle
}

// TargetBand is the per-vehicle SoC window the planner works within.
type TargetBand struct {
	MinSoC int `json:"min_soc"`
	MaxSoC int `json:"max_soc"`
}

// Valid reports whether the band is ordered and within percent bounds.
func (b TargetBand) Valid() bool {
	return b.MinSoC >= 0 && b.MaxSoC <= 100 && b.MinSoC <= b.MaxSoC
}

// Clamp bounds soc to the band.
func (b TargetBand) Clamp(soc int) int {
	if soc < b.MinSoC {
		return b.MinSoC
	}
	if soc > b.MaxSoC {
		return b.MaxSoC
	}
	return soc
}
