// Package scenarios replays charging situations against the engine. Each
// YAML file pins the clock, the price curve and the observed charger and
// vehicle state, then states the decisions the engine must make.
package scenarios

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/laddvakt/laddvakt/core/model"
)

// VehicleDef is one vehicle's observed state at poll time.
type VehicleDef struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name,omitempty"`
	SoC          int     `yaml:"soc"`
	PluggedIn    bool    `yaml:"plugged_in"`
	Charging     bool    `yaml:"charging,omitempty"`
	CapacityKWh  float64 `yaml:"capacity_kwh,omitempty"`
	ChargeRateKW float64 `yaml:"charge_rate_kw,omitempty"`
}

// ChargerDef is the wallbox state reported by its cloud API.
type ChargerDef struct {
	Mode    string  `yaml:"mode"`
	PowerKW float64 `yaml:"power_kw,omitempty"`
}

// ToModel maps the definition onto a charger status.
func (c ChargerDef) ToModel() model.ChargerStatus {
	mode := parseMode(c.Mode)
	return model.ChargerStatus{
		Mode:     mode,
		PowerKW:  c.PowerKW,
		Charging: mode == model.ModeCharging,
	}
}

// BandDef is a vehicle's target band in the settings store.
type BandDef struct {
	MinSoC int `yaml:"min_soc"`
	MaxSoC int `yaml:"max_soc"`
}

// SettingsDef is one vehicle's stored preferences.
type SettingsDef struct {
	VehicleID string  `yaml:"vehicle_id"`
	Band      BandDef `yaml:"band"`
	Departure string  `yaml:"departure,omitempty"`
	TopUp     bool    `yaml:"top_up,omitempty"`
}

// OverrideDef is an active manual override.
type OverrideDef struct {
	VehicleID string `yaml:"vehicle_id"`
	Action    string `yaml:"action"`
	Minutes   int    `yaml:"minutes,omitempty"`
}

// DecisionDef is the expected outcome for one vehicle.
type DecisionDef struct {
	VehicleID      string `yaml:"vehicle_id"`
	Action         string `yaml:"action"`
	TargetSoC      int    `yaml:"target_soc,omitempty"`
	ReasonContains string `yaml:"reason_contains,omitempty"`
}

// Expect lists the assertions a scenario makes about the poll outcome.
type Expect struct {
	Active    string        `yaml:"active,omitempty"`
	Decisions []DecisionDef `yaml:"decisions"`
}

// Scenario is one recorded situation and its required outcome. Prices are
// hourly starting at Now's hour; WeeklyAvg defaults to their mean.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Now         time.Time     `yaml:"now"`
	WeeklyAvg   float64       `yaml:"weekly_avg,omitempty"`
	Prices      []float64     `yaml:"prices"`
	Charger     ChargerDef    `yaml:"charger"`
	Vehicles    []VehicleDef  `yaml:"vehicles"`
	Settings    []SettingsDef `yaml:"settings,omitempty"`
	Overrides   []OverrideDef `yaml:"overrides,omitempty"`
	Expected    Expect        `yaml:"expected"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func parseMode(m string) model.OperatingMode {
	switch m {
	case "disconnected":
		return model.ModeDisconnected
	case "connected_waiting":
		return model.ModeConnectedWaiting
	case "charging":
		return model.ModeCharging
	case "charge_done":
		return model.ModeChargeDone
	default:
		return model.ModeUnknown
	}
}
