package config

import "fmt"

// Adapter kinds for vehicle telemetry. The attribute adapter reads plug
// state from attributes of the SoC sensor, the entity adapter expects a
// dedicated binary sensor per signal.
const (
	AdapterAttribute = "attribute"
	AdapterEntity    = "entity"
)

// SensorsConfig names the Home Assistant entities backing one vehicle.
// Only SoC is mandatory; the rest degrade gracefully when absent.
type SensorsConfig struct {
	SoC           string `json:"soc"`
	Plugged       string `json:"plugged"`
	Charging      string `json:"charging"`
	Range         string `json:"range"`
	Climate       string `json:"climate"`
	ClimateStatus string `json:"climate_status"`
	ChargeSwitch  string `json:"charge_switch"`
	Odometer      string `json:"odometer"`
	LastUpdated   string `json:"last_updated"`
	Refresh       string `json:"refresh"`
}

// VehicleConfig describes one configured vehicle and its telemetry wiring.
type VehicleConfig struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CapacityKWh  float64       `json:"capacity_kwh"`
	ChargeRateKW float64       `json:"charge_rate_kw"`
	Phases       int           `json:"phases"`
	Adapter      string        `json:"adapter"`
	Sensors      SensorsConfig `json:"sensors"`
}

// SetDefaults fills presentation and adapter defaults.
func (c *VehicleConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.Phases == 0 {
		c.Phases = 1
	}
	if c.Adapter == "" {
		c.Adapter = AdapterAttribute
	}
}

// Validate checks mandatory fields.
func (c VehicleConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if c.CapacityKWh <= 0 {
		return fmt.Errorf("vehicle %s: capacity_kwh must be positive", c.ID)
	}
	if c.ChargeRateKW <= 0 {
		return fmt.Errorf("vehicle %s: charge_rate_kw must be positive", c.ID)
	}
	if c.Phases != 1 && c.Phases != 3 {
		return fmt.Errorf("vehicle %s: phases must be 1 or 3", c.ID)
	}
	switch c.Adapter {
	case AdapterAttribute, AdapterEntity:
	default:
		return fmt.Errorf("vehicle %s: unknown adapter %s", c.ID, c.Adapter)
	}
	if c.Sensors.SoC == "" {
		return fmt.Errorf("vehicle %s: sensors.soc is required", c.ID)
	}
	if c.Adapter == AdapterEntity && c.Sensors.Plugged == "" {
		return fmt.Errorf("vehicle %s: entity adapter needs sensors.plugged", c.ID)
	}
	return nil
}
