package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/infra/logger"
	"github.com/laddvakt/laddvakt/infra/store"
	"github.com/laddvakt/laddvakt/jobs/dailycost"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-kpi",
	Short: "Rebuild the daily cost aggregates from stored sessions",
	RunE:  runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	n, err := dailycost.Backfill(ctx, db.Sessions(), db.Costs(), logger.New("backfill"))
	if err != nil {
		return err
	}
	fmt.Printf("rebuilt daily cost from %d closed session(s)\n", n)
	return nil
}
