package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/connectors/elpris"
	"github.com/laddvakt/laddvakt/connectors/homeassistant"
	"github.com/laddvakt/laddvakt/connectors/openmeteo"
	"github.com/laddvakt/laddvakt/core/engine"
	"github.com/laddvakt/laddvakt/core/forecast"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/core/override"
	"github.com/laddvakt/laddvakt/core/scheduler"
	"github.com/laddvakt/laddvakt/core/target"
	"github.com/laddvakt/laddvakt/core/vehicle"
	"github.com/laddvakt/laddvakt/infra/logger"
	"github.com/laddvakt/laddvakt/infra/store"
	"github.com/laddvakt/laddvakt/pkg/export"
)

var (
	planVehicle string
	planJSON    bool
	planCSV     bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute the charge plan without touching the charger",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planVehicle, "vehicle", "", "limit output to one vehicle")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")
	planCmd.Flags().BoolVar(&planCSV, "csv", false, "print the plan as CSV")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ids := make([]string, 0, len(cfg.Vehicles))
	for _, vc := range cfg.Vehicles {
		ids = append(ids, vc.ID)
	}
	if planVehicle != "" {
		found := false
		for _, id := range ids {
			found = found || id == planVehicle
		}
		if !found {
			return fmt.Errorf("unknown vehicle %q", planVehicle)
		}
		ids = []string{planVehicle}
	}
	if planCSV && len(ids) != 1 {
		return fmt.Errorf("csv output needs --vehicle")
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	log := logger.New("plan")
	ha := homeassistant.New(cfg.HomeAssistant)
	vehicles := make([]vehicle.Client, 0, len(cfg.Vehicles))
	for _, vc := range cfg.Vehicles {
		vehicles = append(vehicles, homeassistant.NewVehicle(ha, vc))
	}

	// No charger, accountant or bus: the engine fetches prices, weather
	// and vehicle state but cannot actuate or open sessions.
	eng := engine.New(cfg.Engine, engine.Deps{
		Log:        log,
		Vehicles:   vehicles,
		Prices:     elpris.New(cfg.Elpris, cfg.Fees.TotalPerKWh()),
		Weather:    openmeteo.New(cfg.OpenMeteo),
		Synth:      forecast.NewSynthesizer(cfg.Forecast, log),
		Calibrator: forecast.NewCalibrator(db.Forecasts(), log),
		Target:     target.NewCalculator(cfg.Target),
		Scheduler:  scheduler.New(cfg.Scheduler, log),
		Overrides:  override.NewManager(db.Overrides(), log),
		Settings:   db.Settings(),
	})
	eng.RunOnce(ctx)

	plans := make([]engine.Plan, 0, len(ids))
	for _, id := range ids {
		plan, err := eng.Plan(ctx, id)
		if err != nil {
			return err
		}
		plans = append(plans, plan)
	}

	switch {
	case planJSON:
		docs := make([]export.PlanDoc, len(plans))
		for i, p := range plans {
			docs[i] = export.NewPlanDoc(p)
		}
		return export.WriteJSON(os.Stdout, docs)
	case planCSV:
		return export.WritePlanCSV(os.Stdout, plans[0])
	default:
		for _, p := range plans {
			printPlan(p)
		}
		return nil
	}
}

func printPlan(p engine.Plan) {
	fmt.Printf("%s: target %d%% (%s)\n", p.VehicleID, p.TargetSoC, p.Mode)
	if len(p.Hours) == 0 {
		fmt.Println("  no charge hours planned")
		return
	}
	for _, h := range p.Hours {
		line := fmt.Sprintf("  %s", h.Local().Format("Mon 15:04"))
		if s, ok := model.PriceAt(p.Series, h); ok {
			line += fmt.Sprintf("  %.2f SEK/kWh (%s)", s.Price, s.Source)
		}
		fmt.Println(line)
	}
}
