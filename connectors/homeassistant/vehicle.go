package homeassistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/core/vehicle"
	"github.com/laddvakt/laddvakt/infra/logger"
)

// staleAfter is how old vehicle readings may get before the adapter
// presses the integration's refresh button, when one is configured.
const staleAfter = 30 * time.Minute

// Vehicle adapts Home Assistant entities to the engine's vehicle client.
// The attribute variant reads plug and charge state from attributes of
// the SoC sensor (Mercedes ME style); the entity variant expects one
// entity per signal (Nissan style).
type Vehicle struct {
	cli     *Client
	info    vehicle.Info
	adapter string
	sensors config.SensorsConfig
	log     logger.Logger

	mu          sync.Mutex
	lastRefresh time.Time
}

// NewVehicle wires one configured vehicle against the shared client.
func NewVehicle(cli *Client, cfg config.VehicleConfig) *Vehicle {
	return &Vehicle{
		cli: cli,
		info: vehicle.Info{
			ID:           cfg.ID,
			Name:         cfg.Name,
			CapacityKWh:  cfg.CapacityKWh,
			ChargeRateKW: cfg.ChargeRateKW,
			Phases:       cfg.Phases,
		},
		adapter: cfg.Adapter,
		sensors: cfg.Sensors,
		log:     logger.New("vehicle_" + cfg.ID),
	}
}

func (v *Vehicle) Info() vehicle.Info { return v.info }

// Status reads the current vehicle telemetry. SoC is mandatory; optional
// sensors degrade to zero values when unreadable.
func (v *Vehicle) Status(ctx context.Context) (model.VehicleStatus, error) {
	v.maybeRefresh(ctx)
	if v.adapter == config.AdapterEntity {
		return v.entityStatus(ctx)
	}
	return v.attributeStatus(ctx)
}

func (v *Vehicle) attributeStatus(ctx context.Context) (model.VehicleStatus, error) {
	st, err := v.cli.State(ctx, v.sensors.SoC)
	if err != nil {
		return model.VehicleStatus{}, err
	}
	soc, err := st.Float()
	if err != nil {
		return model.VehicleStatus{}, fmt.Errorf("soc: %w", err)
	}
	status := model.VehicleStatus{
		SoC:     int(soc),
		RangeKM: st.AttrFloat("range"),
		PluggedIn: st.AttrBool("charging") || st.AttrBool("pluggedIn") ||
			st.AttrBool("charge_port_door_closed"),
		Charging: st.AttrBool("charging"),
	}
	v.fillExtras(ctx, &status)
	return status, nil
}

func (v *Vehicle) entityStatus(ctx context.Context) (model.VehicleStatus, error) {
	st, err := v.cli.State(ctx, v.sensors.SoC)
	if err != nil {
		return model.VehicleStatus{}, err
	}
	soc, err := st.Float()
	if err != nil {
		return model.VehicleStatus{}, fmt.Errorf("soc: %w", err)
	}
	status := model.VehicleStatus{SoC: int(soc)}

	plugged, err := v.cli.State(ctx, v.sensors.Plugged)
	if err != nil {
		return model.VehicleStatus{}, fmt.Errorf("plugged: %w", err)
	}
	status.PluggedIn = plugged.On()

	if v.sensors.Charging != "" {
		if chg, err := v.cli.State(ctx, v.sensors.Charging); err == nil {
			status.Charging = chg.On()
		} else {
			v.log.Debugf("charging sensor: %v", err)
		}
	}
	if v.sensors.Range != "" {
		if rng, err := v.cli.State(ctx, v.sensors.Range); err == nil {
			if f, err := rng.Float(); err == nil {
				status.RangeKM = f
			}
		} else {
			v.log.Debugf("range sensor: %v", err)
		}
	}
	v.fillExtras(ctx, &status)
	return status, nil
}

// fillExtras reads the optional sensors shared by both adapter kinds.
func (v *Vehicle) fillExtras(ctx context.Context, status *model.VehicleStatus) {
	if v.sensors.Odometer != "" {
		if st, err := v.cli.State(ctx, v.sensors.Odometer); err == nil {
			if f, err := st.Float(); err == nil {
				status.OdometerKM = f
			}
		} else {
			v.log.Debugf("odometer sensor: %v", err)
		}
	}
	if v.sensors.ClimateStatus != "" {
		if st, err := v.cli.State(ctx, v.sensors.ClimateStatus); err == nil {
			status.ClimateOn = climateActive(st)
		} else {
			v.log.Debugf("climate sensor: %v", err)
		}
	}
}

// climateActive interprets both binary sensors ("on") and climate
// entities, whose state is the HVAC mode.
func climateActive(st State) bool {
	switch st.State {
	case "", "off", "unavailable", "unknown":
		return false
	default:
		return true
	}
}

// maybeRefresh presses the integration's update button when readings have
// gone stale. Best effort; the poll continues with whatever is cached.
func (v *Vehicle) maybeRefresh(ctx context.Context) {
	if v.sensors.Refresh == "" || v.sensors.LastUpdated == "" {
		return
	}
	st, err := v.cli.State(ctx, v.sensors.LastUpdated)
	if err != nil {
		return
	}
	updated, err := time.Parse(time.RFC3339, st.State)
	if err != nil {
		updated = st.LastUpdated
	}
	if time.Since(updated) < staleAfter {
		return
	}

	v.mu.Lock()
	recentlyPressed := time.Since(v.lastRefresh) < staleAfter
	if !recentlyPressed {
		v.lastRefresh = time.Now()
	}
	v.mu.Unlock()
	if recentlyPressed {
		return
	}

	v.log.Infof("readings stale since %s, pressing %s", updated.Format(time.RFC3339), v.sensors.Refresh)
	if err := v.cli.CallService(ctx, "button", "press", v.sensors.Refresh, nil); err != nil {
		v.log.Warnf("refresh failed: %v", err)
	}
}

// StartClimate begins preconditioning the cabin.
func (v *Vehicle) StartClimate(ctx context.Context) error { return v.climate(ctx, true) }

// StopClimate stops preconditioning.
func (v *Vehicle) StopClimate(ctx context.Context) error { return v.climate(ctx, false) }

func (v *Vehicle) climate(ctx context.Context, on bool) error {
	entity := v.sensors.Climate
	if entity == "" {
		return vehicle.ErrUnsupported
	}
	domain := entityDomain(entity)
	switch {
	case domain == "button":
		// Buttons fire one-shot start commands; there is nothing to stop.
		if !on {
			return vehicle.ErrUnsupported
		}
		return v.cli.CallService(ctx, "button", "press", entity, nil)
	case on:
		return v.cli.CallService(ctx, domain, "turn_on", entity, nil)
	default:
		return v.cli.CallService(ctx, domain, "turn_off", entity, nil)
	}
}

// StartCharging asks the vehicle itself to begin charging.
func (v *Vehicle) StartCharging(ctx context.Context) error {
	return v.chargeSwitch(ctx, "turn_on")
}

// StopCharging asks the vehicle itself to stop charging.
func (v *Vehicle) StopCharging(ctx context.Context) error {
	return v.chargeSwitch(ctx, "turn_off")
}

func (v *Vehicle) chargeSwitch(ctx context.Context, service string) error {
	entity := v.sensors.ChargeSwitch
	if entity == "" {
		return vehicle.ErrUnsupported
	}
	return v.cli.CallService(ctx, entityDomain(entity), service, entity, nil)
}

func entityDomain(entity string) string {
	if i := strings.IndexByte(entity, '.'); i > 0 {
		return entity[:i]
	}
	return ""
}
