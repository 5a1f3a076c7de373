// Package dailycost rebuilds the per-vehicle daily cost aggregates from the
// stored charging sessions. The live path feeds the same aggregates through
// the cost sink; the backfill exists for databases that predate it and for
// repairing aggregates after manual session edits.
package dailycost

import (
	"context"
	"fmt"
	"time"

	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/metrics/cost"
	"github.com/laddvakt/laddvakt/core/session"
)

// Store is the aggregate store the backfill rebuilds. Reset drops all
// aggregates so a rerun cannot double-count.
type Store interface {
	cost.Store
	Reset() error
}

// Backfill folds every closed session into the cost store, replacing
// whatever aggregates were there. It returns the number of sessions folded.
func Backfill(ctx context.Context, sessions session.Store, costs Store, log logger.Logger) (int, error) {
	if err := costs.Reset(); err != nil {
		return 0, fmt.Errorf("reset daily cost: %w", err)
	}
	list, err := sessions.List(ctx, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	n := 0
	for _, s := range list {
		if s.Open() {
			continue
		}
		if err := costs.Add(cost.Record{
			VehicleID: s.VehicleID,
			Date:      s.EndTime,
			EnergyKWh: s.EnergyKWh,
			CostSpot:  s.CostSpot,
			CostGrid:  s.CostGrid,
			Sessions:  1,
		}); err != nil {
			return n, fmt.Errorf("fold session %s: %w", s.ID, err)
		}
		n++
	}
	log.Infof("rebuilt daily cost from %d closed session(s)", n)
	return n, nil
}
