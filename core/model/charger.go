package model

// OperatingMode is the charger's reported state.
type OperatingMode int

const (
	ModeUnknown OperatingMode = iota
	ModeDisconnected
	ModeConnectedWaiting
	ModeCharging
	ModeChargeDone
	ModeError
)

// DrawingThresholdKW is the power above which the charger is considered to
// deliver current even when its charging flag lags behind.
const DrawingThresholdKW = 0.1

// ModeFromCode maps the charger's raw mode code to an OperatingMode.
func ModeFromCode(code int) OperatingMode {
	switch code {
	case 0:
		return ModeUnknown
	case 1:
		return ModeDisconnected
	case 2:
		return ModeConnectedWaiting
	case 3:
		return ModeCharging
	case 5:
		return ModeChargeDone
	default:
		return ModeError
	}
}

// String returns a human-readable representation of the operating mode.
func (m OperatingMode) String() string {
	switch m {
	case ModeDisconnected:
		return "disconnected"
	case ModeConnectedWaiting:
		return "connected_waiting"
	case ModeCharging:
		return "charging"
	case ModeChargeDone:
		return "charge_done"
	case ModeError:
		return "error"
	default:
		return "unknown"
	}
}

// Connected reports whether a cable is attached to the charger.
func (m OperatingMode) Connected() bool {
	switch m {
	case ModeConnectedWaiting, ModeCharging, ModeChargeDone:
		return true
	default:
		return false
	}
}

// ChargerStatus is a point-in-time reading of the charge point.
type ChargerStatus struct {
	Mode             OperatingMode
	ModeCode         int // raw code as reported, kept for diagnostics
	PowerKW          float64
	SessionEnergyKWh float64
	Charging         bool
	ActivePhases     int
	PhaseMap         [3]bool // per-line current presence, index 1 is L2
}

// Drawing reports whether current is actually flowing.
func (c ChargerStatus) Drawing() bool {
	return c.Charging || c.PowerKW > DrawingThresholdKW
}
