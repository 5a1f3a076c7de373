package scenarios

import (
	"context"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/laddvakt/laddvakt/core/engine"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/core/override"
	"github.com/laddvakt/laddvakt/core/settings"
	"github.com/laddvakt/laddvakt/core/vehicle"
	"github.com/laddvakt/laddvakt/infra/logger"
)

type scenarioVehicle struct {
	info   vehicle.Info
	status model.VehicleStatus
}

func (v *scenarioVehicle) Info() vehicle.Info { return v.info }

func (v *scenarioVehicle) Status(context.Context) (model.VehicleStatus, error) {
	return v.status, nil
}

func (v *scenarioVehicle) StartClimate(context.Context) error  { return nil }
func (v *scenarioVehicle) StopClimate(context.Context) error   { return nil }
func (v *scenarioVehicle) StartCharging(context.Context) error { return nil }
func (v *scenarioVehicle) StopCharging(context.Context) error  { return nil }

type scenarioCharger struct {
	status model.ChargerStatus
}

func (c *scenarioCharger) Status(context.Context) (model.ChargerStatus, error) {
	return c.status, nil
}

func (c *scenarioCharger) StartCharging(context.Context) error { return nil }
func (c *scenarioCharger) StopCharging(context.Context) error  { return nil }

type scenarioPrices struct {
	series []model.PriceSample
	avg    float64
}

func (p *scenarioPrices) Prices(context.Context, time.Time) ([]model.PriceSample, error) {
	return p.series, nil
}

func (p *scenarioPrices) WeeklyAverage(context.Context, time.Time) (float64, error) {
	return p.avg, nil
}

// RunScenario evaluates one poll of the scenario and checks the outcome.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	ctx := context.Background()
	now := sc.Now.UTC()
	start := now.Truncate(time.Hour)

	series := make([]model.PriceSample, len(sc.Prices))
	for i, p := range sc.Prices {
		series[i] = model.PriceSample{
			Start:  start.Add(time.Duration(i) * time.Hour),
			Price:  p,
			Source: model.PriceOfficial,
		}
	}
	avg := sc.WeeklyAvg
	if avg <= 0 && len(sc.Prices) > 0 {
		avg = stat.Mean(sc.Prices, nil)
	}

	vehicles := make([]vehicle.Client, 0, len(sc.Vehicles))
	for _, def := range sc.Vehicles {
		info := vehicle.Info{
			ID:           def.ID,
			Name:         def.Name,
			CapacityKWh:  def.CapacityKWh,
			ChargeRateKW: def.ChargeRateKW,
			Phases:       1,
		}
		if info.Name == "" {
			info.Name = def.ID
		}
		if info.CapacityKWh == 0 {
			info.CapacityKWh = 60
		}
		if info.ChargeRateKW == 0 {
			info.ChargeRateKW = 11
		}
		vehicles = append(vehicles, &scenarioVehicle{
			info: info,
			status: model.VehicleStatus{
				SoC:       def.SoC,
				PluggedIn: def.PluggedIn,
				Charging:  def.Charging,
			},
		})
	}

	var prefs settings.Settings
	for _, def := range sc.Settings {
		prefs.Put(settings.VehicleSettings{
			VehicleID: def.VehicleID,
			Band:      model.TargetBand{MinSoC: def.Band.MinSoC, MaxSoC: def.Band.MaxSoC},
			Departure: def.Departure,
			TopUp:     def.TopUp,
		})
	}
	prefStore := settings.NewMemoryStore()
	if err := prefStore.Save(ctx, prefs); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	overrides := override.NewManager(override.NewMemoryStore(), logger.NopLogger{})
	for _, def := range sc.Overrides {
		if _, err := overrides.Apply(ctx, def.VehicleID, def.Action, time.Duration(def.Minutes)*time.Minute); err != nil {
			t.Fatalf("seed override: %v", err)
		}
	}

	eng := engine.New(engine.Config{}, engine.Deps{
		Log:       logger.NopLogger{},
		Charger:   &scenarioCharger{status: sc.Charger.ToModel()},
		Vehicles:  vehicles,
		Prices:    &scenarioPrices{series: series, avg: avg},
		Overrides: overrides,
		Settings:  prefStore,
		Now:       func() time.Time { return now },
	})

	snap := eng.RunOnce(ctx)

	if sc.Expected.Active != "" && snap.ActiveVehicle != sc.Expected.Active {
		t.Errorf("scenario %s: active vehicle %q, want %q", sc.Name, snap.ActiveVehicle, sc.Expected.Active)
	}
	byID := make(map[string]model.VehicleSnapshot, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		byID[v.ID] = v
	}
	for _, want := range sc.Expected.Decisions {
		got, ok := byID[want.VehicleID]
		if !ok {
			t.Errorf("scenario %s: no decision for %s", sc.Name, want.VehicleID)
			continue
		}
		if got.Action != want.Action {
			t.Errorf("scenario %s: %s action %q (%s), want %q",
				sc.Name, want.VehicleID, got.Action, got.Reason, want.Action)
		}
		if want.TargetSoC != 0 && got.TargetSoC != want.TargetSoC {
			t.Errorf("scenario %s: %s target %d, want %d",
				sc.Name, want.VehicleID, got.TargetSoC, want.TargetSoC)
		}
		if want.ReasonContains != "" && !strings.Contains(got.Reason, want.ReasonContains) {
			t.Errorf("scenario %s: %s reason %q does not mention %q",
				sc.Name, want.VehicleID, got.Reason, want.ReasonContains)
		}
	}
}
