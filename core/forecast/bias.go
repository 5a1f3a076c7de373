package forecast

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/model"
)

// Calibrator grades stored forecasts against official prices published later
// for the same hours and derives a multiplicative correction for the
// synthesizer.
type Calibrator struct {
	history HistoryStore
	log     logger.Logger

	// MinMatchedHours is the number of graded hours required before the
	// calibrator trusts its own statistic. Below it the neutral factor is
	// returned.
	MinMatchedHours int
	MinRatio        float64
	MaxRatio        float64
}

// NewCalibrator creates a Calibrator with production bounds.
func NewCalibrator(history HistoryStore, log logger.Logger) *Calibrator {
	return &Calibrator{
		history:         history,
		log:             log,
		MinMatchedHours: 24,
		MinRatio:        0.7,
		MaxRatio:        1.3,
	}
}

// Bias returns the correction factor derived from the last week of stored
// forecasts. Hours are matched by timestamp: a stored synthesized price is
// graded once the official price for that hour is known. Thin or missing
// history yields the neutral 1.0.
func (c *Calibrator) Bias(ctx context.Context, official []model.PriceSample, now time.Time) float64 {
	if c.history == nil || len(official) == 0 {
		return 1
	}
	stored, err := c.history.Forecasts(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		c.log.Warnf("forecast history unavailable: %v", err)
		return 1
	}

	observedByHour := make(map[time.Time]float64, len(official))
	for _, smp := range official {
		if smp.Source == model.PriceOfficial {
			observedByHour[smp.Start.Truncate(time.Hour)] = smp.Price
		}
	}

	var predicted, observed []float64
	for _, run := range stored {
		for _, smp := range run.Series {
			if smp.Source != model.PriceForecasted || smp.Price <= 0 {
				continue
			}
			if obs, ok := observedByHour[smp.Start.Truncate(time.Hour)]; ok {
				predicted = append(predicted, smp.Price)
				observed = append(observed, obs)
			}
		}
	}

	if len(predicted) < c.MinMatchedHours {
		c.log.Debugf("bias calibration skipped: %d matched hours, need %d", len(predicted), c.MinMatchedHours)
		return 1
	}

	ratio := stat.Mean(observed, nil) / stat.Mean(predicted, nil)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return 1
	}
	ratio = clamp(ratio, c.MinRatio, c.MaxRatio)
	c.log.Debugw("bias calibrated", map[string]any{
		"matched_hours": len(predicted),
		"ratio":         ratio,
	})
	return ratio
}
