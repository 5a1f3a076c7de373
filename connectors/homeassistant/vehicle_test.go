package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/core/vehicle"
)

func eqvConfig() config.VehicleConfig {
	return config.VehicleConfig{
		ID: "eqv", Name: "EQV", CapacityKWh: 90, ChargeRateKW: 11, Phases: 3,
		Adapter: config.AdapterAttribute,
		Sensors: config.SensorsConfig{
			SoC:           "sensor.eqv_soc",
			Odometer:      "sensor.eqv_odometer",
			Climate:       "climate.eqv_precond",
			ClimateStatus: "climate.eqv_precond",
		},
	}
}

func leafConfig() config.VehicleConfig {
	return config.VehicleConfig{
		ID: "leaf", Name: "Leaf", CapacityKWh: 40, ChargeRateKW: 6.6, Phases: 1,
		Adapter: config.AdapterEntity,
		Sensors: config.SensorsConfig{
			SoC:      "sensor.leaf_battery_level",
			Plugged:  "binary_sensor.leaf_plugged_in",
			Charging: "binary_sensor.leaf_charging",
			Range:    "sensor.leaf_range",
			Odometer: "sensor.leaf_odometer",
		},
	}
}

func numericState(id string, value float64) string {
	return fmt.Sprintf(`{"entity_id": %q, "state": "%g", "attributes": {}}`, id, value)
}

func binaryState(id, state string) string {
	return fmt.Sprintf(`{"entity_id": %q, "state": %q, "attributes": {}}`, id, state)
}

func TestAttributeVehicleStatus(t *testing.T) {
	ha, cli := newFakeHA(t)
	ha.setState("sensor.eqv_soc", `{
		"entity_id": "sensor.eqv_soc",
		"state": "54.0",
		"attributes": {"charging": true, "range": 210}
	}`)
	ha.setState("sensor.eqv_odometer", numericState("sensor.eqv_odometer", 40321.5))
	ha.setState("climate.eqv_precond", binaryState("climate.eqv_precond", "heat"))

	v := NewVehicle(cli, eqvConfig())
	st, err := v.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.SoC != 54 || !st.PluggedIn || !st.Charging {
		t.Errorf("charge state wrong: %+v", st)
	}
	if st.RangeKM != 210 || st.OdometerKM != 40321.5 {
		t.Errorf("telemetry wrong: %+v", st)
	}
	if !st.ClimateOn {
		t.Errorf("climate state not read")
	}
}

func TestAttributeVehiclePluggedFromDoorAttribute(t *testing.T) {
	ha, cli := newFakeHA(t)
	ha.setState("sensor.eqv_soc", `{
		"entity_id": "sensor.eqv_soc",
		"state": "67",
		"attributes": {"charge_port_door_closed": "true"}
	}`)
	cfg := eqvConfig()
	cfg.Sensors = config.SensorsConfig{SoC: "sensor.eqv_soc"}

	st, err := NewVehicle(cli, cfg).Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.PluggedIn {
		t.Errorf("door attribute should imply plugged in")
	}
	if st.Charging {
		t.Errorf("charging should stay false")
	}
}

func TestEntityVehicleStatus(t *testing.T) {
	ha, cli := newFakeHA(t)
	ha.setState("sensor.leaf_battery_level", numericState("sensor.leaf_battery_level", 42))
	ha.setState("binary_sensor.leaf_plugged_in", binaryState("binary_sensor.leaf_plugged_in", "on"))
	ha.setState("binary_sensor.leaf_charging", binaryState("binary_sensor.leaf_charging", "off"))
	ha.setState("sensor.leaf_range", numericState("sensor.leaf_range", 150))
	ha.setState("sensor.leaf_odometer", numericState("sensor.leaf_odometer", 88000))

	st, err := NewVehicle(cli, leafConfig()).Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.SoC != 42 || !st.PluggedIn || st.Charging {
		t.Errorf("charge state wrong: %+v", st)
	}
	if st.RangeKM != 150 || st.OdometerKM != 88000 {
		t.Errorf("telemetry wrong: %+v", st)
	}
}

func TestEntityVehicleSoCUnavailable(t *testing.T) {
	ha, cli := newFakeHA(t)
	ha.setState("sensor.leaf_battery_level", binaryState("sensor.leaf_battery_level", "unavailable"))
	ha.setState("binary_sensor.leaf_plugged_in", binaryState("binary_sensor.leaf_plugged_in", "on"))

	if _, err := NewVehicle(cli, leafConfig()).Status(context.Background()); err == nil {
		t.Fatalf("expected error when soc is unavailable")
	}
}

func TestClimateControl(t *testing.T) {
	ha, cli := newFakeHA(t)
	v := NewVehicle(cli, eqvConfig())

	if err := v.StartClimate(context.Background()); err != nil {
		t.Fatalf("start climate: %v", err)
	}
	if err := v.StopClimate(context.Background()); err != nil {
		t.Fatalf("stop climate: %v", err)
	}
	calls := ha.serviceCalls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Domain != "climate" || calls[0].Service != "turn_on" {
		t.Errorf("start called %s.%s", calls[0].Domain, calls[0].Service)
	}
	if calls[1].Service != "turn_off" {
		t.Errorf("stop called %s.%s", calls[1].Domain, calls[1].Service)
	}
}

func TestClimateButtonVariant(t *testing.T) {
	ha, cli := newFakeHA(t)
	cfg := leafConfig()
	cfg.Sensors.Climate = "button.leaf_climate_start"
	v := NewVehicle(cli, cfg)

	if err := v.StartClimate(context.Background()); err != nil {
		t.Fatalf("start climate: %v", err)
	}
	calls := ha.serviceCalls()
	if len(calls) != 1 || calls[0].Domain != "button" || calls[0].Service != "press" {
		t.Fatalf("expected button press, got %+v", calls)
	}
	if err := v.StopClimate(context.Background()); !errors.Is(err, vehicle.ErrUnsupported) {
		t.Fatalf("stop on button climate = %v, want ErrUnsupported", err)
	}
}

func TestClimateUnconfigured(t *testing.T) {
	_, cli := newFakeHA(t)
	v := NewVehicle(cli, leafConfig())
	if err := v.StartClimate(context.Background()); !errors.Is(err, vehicle.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestChargeSwitch(t *testing.T) {
	ha, cli := newFakeHA(t)
	cfg := leafConfig()
	cfg.Sensors.ChargeSwitch = "switch.leaf_charging_control"
	v := NewVehicle(cli, cfg)

	if err := v.StartCharging(context.Background()); err != nil {
		t.Fatalf("start charging: %v", err)
	}
	if err := v.StopCharging(context.Background()); err != nil {
		t.Fatalf("stop charging: %v", err)
	}
	calls := ha.serviceCalls()
	if len(calls) != 2 || calls[0].Service != "turn_on" || calls[1].Service != "turn_off" {
		t.Fatalf("unexpected calls %+v", calls)
	}

	bare := NewVehicle(cli, leafConfig())
	if err := bare.StartCharging(context.Background()); !errors.Is(err, vehicle.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestRefreshPressedWhenStale(t *testing.T) {
	ha, cli := newFakeHA(t)
	cfg := leafConfig()
	cfg.Sensors.LastUpdated = "sensor.leaf_last_updated"
	cfg.Sensors.Refresh = "button.leaf_update_data"
	ha.setState("sensor.leaf_battery_level", numericState("sensor.leaf_battery_level", 42))
	ha.setState("binary_sensor.leaf_plugged_in", binaryState("binary_sensor.leaf_plugged_in", "on"))
	ha.setState("sensor.leaf_range", numericState("sensor.leaf_range", 150))
	ha.setState("sensor.leaf_odometer", numericState("sensor.leaf_odometer", 88000))
	ha.setState("binary_sensor.leaf_charging", binaryState("binary_sensor.leaf_charging", "off"))
	stale := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	ha.setState("sensor.leaf_last_updated", binaryState("sensor.leaf_last_updated", stale))

	v := NewVehicle(cli, cfg)
	for i := 0; i < 2; i++ {
		if _, err := v.Status(context.Background()); err != nil {
			t.Fatalf("status %d: %v", i, err)
		}
	}

	presses := 0
	for _, c := range ha.serviceCalls() {
		if c.Domain == "button" && c.Service == "press" {
			presses++
		}
	}
	if presses != 1 {
		t.Fatalf("refresh pressed %d times, want 1", presses)
	}
}

func TestRefreshSkippedWhenFresh(t *testing.T) {
	ha, cli := newFakeHA(t)
	cfg := leafConfig()
	cfg.Sensors.LastUpdated = "sensor.leaf_last_updated"
	cfg.Sensors.Refresh = "button.leaf_update_data"
	ha.setState("sensor.leaf_battery_level", numericState("sensor.leaf_battery_level", 42))
	ha.setState("binary_sensor.leaf_plugged_in", binaryState("binary_sensor.leaf_plugged_in", "on"))
	ha.setState("binary_sensor.leaf_charging", binaryState("binary_sensor.leaf_charging", "off"))
	ha.setState("sensor.leaf_range", numericState("sensor.leaf_range", 150))
	ha.setState("sensor.leaf_odometer", numericState("sensor.leaf_odometer", 88000))
	fresh := time.Now().Add(-time.Minute).Format(time.RFC3339)
	ha.setState("sensor.leaf_last_updated", binaryState("sensor.leaf_last_updated", fresh))

	if _, err := NewVehicle(cli, cfg).Status(context.Background()); err != nil {
		t.Fatalf("status: %v", err)
	}
	if calls := ha.serviceCalls(); len(calls) != 0 {
		t.Fatalf("unexpected service calls %+v", calls)
	}
}
