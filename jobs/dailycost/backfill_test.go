package dailycost

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laddvakt/laddvakt/core/metrics/cost"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/core/session"
	"github.com/laddvakt/laddvakt/infra/logger"
)

func seedSessions(t *testing.T, store *session.MemoryStore) {
	t.Helper()
	day1 := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	all := []model.ChargingSession{
		{VehicleID: "eqv", StartTime: day1.Add(1 * time.Hour), EndTime: day1.Add(4 * time.Hour),
			EnergyKWh: 12, CostSpot: 9, CostGrid: 9.9},
		{VehicleID: "eqv", StartTime: day1.Add(22 * time.Hour), EndTime: day1.Add(23 * time.Hour),
			EnergyKWh: 4, CostSpot: 5, CostGrid: 3.3},
		{VehicleID: "leaf", StartTime: day2.Add(2 * time.Hour), EndTime: day2.Add(5 * time.Hour),
			EnergyKWh: 10, CostSpot: 6, CostGrid: 8.25},
		// Open session, must not be counted.
		{VehicleID: "eqv", StartTime: day2.Add(6 * time.Hour), EnergyKWh: 2},
	}
	for i := range all {
		require.NoError(t, store.Insert(context.Background(), &all[i]))
	}
}

func TestBackfillAggregatesClosedSessions(t *testing.T) {
	sessions := session.NewMemoryStore()
	costs := cost.NewMemoryStore()
	seedSessions(t, sessions)

	n, err := Backfill(context.Background(), sessions, costs, logger.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	day1 := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	recs, err := costs.Query("eqv", day1, day1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 16.0, recs[0].EnergyKWh, 1e-9)
	assert.InDelta(t, 27.2, recs[0].TotalCost(), 1e-9)
	assert.Equal(t, 2, recs[0].Sessions)

	day2 := day1.AddDate(0, 0, 1)
	recs, err = costs.Query("leaf", day2, day2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 10.0, recs[0].EnergyKWh, 1e-9)
}

func TestBackfillIsIdempotent(t *testing.T) {
	sessions := session.NewMemoryStore()
	costs := cost.NewMemoryStore()
	seedSessions(t, sessions)

	_, err := Backfill(context.Background(), sessions, costs, logger.NopLogger{})
	require.NoError(t, err)
	_, err = Backfill(context.Background(), sessions, costs, logger.NopLogger{})
	require.NoError(t, err)

	day1 := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	recs, err := costs.Query("eqv", day1, day1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 16.0, recs[0].EnergyKWh, 1e-9)
	assert.Equal(t, 2, recs[0].Sessions)
}
