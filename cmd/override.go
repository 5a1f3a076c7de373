package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/core/override"
	"github.com/laddvakt/laddvakt/infra/logger"
	"github.com/laddvakt/laddvakt/infra/store"
)

var overrideMinutes int

var overrideCmd = &cobra.Command{
	Use:   "override <vehicle> <charge|stop|auto>",
	Short: "Force charging on or off, or return a vehicle to automatic",
	Args:  cobra.ExactArgs(2),
	RunE:  runOverride,
}

func init() {
	overrideCmd.Flags().IntVar(&overrideMinutes, "minutes", 60, "override duration in minutes")
	rootCmd.AddCommand(overrideCmd)
}

func runOverride(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	vehicleID, action := args[0], args[1]
	known := false
	for _, vc := range cfg.Vehicles {
		known = known || vc.ID == vehicleID
	}
	if !known {
		return fmt.Errorf("unknown vehicle %q", vehicleID)
	}

	// The service reads overrides from the store on every poll, so writing
	// the shared database is enough to reach a running instance.
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	m := override.NewManager(db.Overrides(), logger.New("override"))
	o, err := m.Apply(ctx, vehicleID, action, time.Duration(overrideMinutes)*time.Minute)
	if err != nil {
		return err
	}
	if o == nil {
		fmt.Printf("%s back to automatic control\n", vehicleID)
		return nil
	}
	fmt.Printf("%s forced to %s until %s\n", o.VehicleID, o.Action, o.ExpiresAt.Local().Format("15:04"))
	return nil
}
