package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/infra/logger"
)

func storedRun(generated time.Time, first time.Time, price float64, hours int) StoredForecast {
	run := StoredForecast{Generated: generated}
	for i := 0; i < hours; i++ {
		run.Series = append(run.Series, model.PriceSample{
			Start:  first.Add(time.Duration(i) * time.Hour),
			Price:  price,
			Source: model.PriceForecasted,
		})
	}
	return run
}

func officialSeries(first time.Time, price float64, hours int) []model.PriceSample {
	out := make([]model.PriceSample, hours)
	for i := range out {
		out[i] = model.PriceSample{
			Start:  first.Add(time.Duration(i) * time.Hour),
			Price:  price,
			Source: model.PriceOfficial,
		}
	}
	return out
}

func TestBiasNeutralWithoutHistory(t *testing.T) {
	c := NewCalibrator(NewMemoryHistory(), logger.NopLogger{})
	now := time.Date(2026, 9, 9, 10, 0, 0, 0, time.UTC)
	if b := c.Bias(context.Background(), officialSeries(now, 1.0, 24), now); b != 1 {
		t.Fatalf("expected neutral bias got %v", b)
	}
}

func TestBiasNeutralOnThinHistory(t *testing.T) {
	hist := NewMemoryHistory()
	now := time.Date(2026, 9, 9, 10, 0, 0, 0, time.UTC)
	// Only 6 forecasted hours overlap the official series, below the
	// 24-hour confidence floor.
	if err := hist.SaveForecast(context.Background(), now.AddDate(0, 0, -1), storedRun(now.AddDate(0, 0, -1), now, 1.0, 6).Series); err != nil {
		t.Fatalf("save: %v", err)
	}
	c := NewCalibrator(hist, logger.NopLogger{})
	if b := c.Bias(context.Background(), officialSeries(now, 2.0, 24), now); b != 1 {
		t.Fatalf("expected neutral bias on thin history got %v", b)
	}
}

func TestBiasComputedFromMatchedHours(t *testing.T) {
	hist := NewMemoryHistory()
	now := time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC)
	run := storedRun(now.AddDate(0, 0, -1), now, 1.0, 24)
	if err := hist.SaveForecast(context.Background(), run.Generated, run.Series); err != nil {
		t.Fatalf("save: %v", err)
	}
	c := NewCalibrator(hist, logger.NopLogger{})

	// Official prices came in 20% above the forecasts.
	b := c.Bias(context.Background(), officialSeries(now, 1.2, 24), now)
	if math.Abs(b-1.2) > 1e-9 {
		t.Fatalf("expected bias 1.2 got %v", b)
	}
}

func TestBiasClamped(t *testing.T) {
	hist := NewMemoryHistory()
	now := time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC)
	run := storedRun(now.AddDate(0, 0, -1), now, 1.0, 24)
	if err := hist.SaveForecast(context.Background(), run.Generated, run.Series); err != nil {
		t.Fatalf("save: %v", err)
	}
	c := NewCalibrator(hist, logger.NopLogger{})

	if b := c.Bias(context.Background(), officialSeries(now, 10.0, 24), now); b != 1.3 {
		t.Fatalf("expected upper clamp 1.3 got %v", b)
	}
	if b := c.Bias(context.Background(), officialSeries(now, 0.1, 24), now); b != 0.7 {
		t.Fatalf("expected lower clamp 0.7 got %v", b)
	}
}

func TestBiasIgnoresStoredOfficialSamples(t *testing.T) {
	hist := NewMemoryHistory()
	now := time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC)
	series := officialSeries(now, 1.0, 24) // official-tagged, must not be graded
	if err := hist.SaveForecast(context.Background(), now.AddDate(0, 0, -1), series); err != nil {
		t.Fatalf("save: %v", err)
	}
	c := NewCalibrator(hist, logger.NopLogger{})
	if b := c.Bias(context.Background(), officialSeries(now, 2.0, 24), now); b != 1 {
		t.Fatalf("expected neutral bias got %v", b)
	}
}

func TestMemoryHistoryPrune(t *testing.T) {
	hist := NewMemoryHistory()
	ctx := context.Background()
	old := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	if err := hist.SaveForecast(ctx, old, officialSeries(old, 1, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := hist.SaveForecast(ctx, recent, officialSeries(recent, 1, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := hist.Prune(ctx, recent); err != nil {
		t.Fatalf("prune: %v", err)
	}
	runs, err := hist.Forecasts(ctx, time.Time{})
	if err != nil {
		t.Fatalf("forecasts: %v", err)
	}
	if len(runs) != 1 || !runs[0].Generated.Equal(recent) {
		t.Fatalf("expected only the recent run, got %d", len(runs))
	}
}
