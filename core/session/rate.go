package session

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// MinRateSampleDuration excludes short sessions from rate learning;
	// they carry too much ramp-up noise to say anything about sustained
	// charge speed.
	MinRateSampleDuration = 30 * time.Minute

	rateSampleLimit  = 10
	minLearnedRateKW = 1.0
)

// LearnedRate estimates a vehicle's real-world sustained charge rate from
// its recent sessions. The result is clamped to [1 kW, ratedKW]; with no
// usable history the rated value is returned unchanged.
func LearnedRate(ctx context.Context, store Store, vehicleID string, ratedKW float64) (float64, error) {
	recent, err := store.Recent(ctx, vehicleID, rateSampleLimit)
	if err != nil {
		return ratedKW, fmt.Errorf("load recent sessions for %s: %w", vehicleID, err)
	}

	var samples []float64
	for _, s := range recent {
		if s.Duration() < MinRateSampleDuration || s.AvgPowerKW <= 0 {
			continue
		}
		samples = append(samples, s.AvgPowerKW)
	}
	if len(samples) == 0 {
		return ratedKW, nil
	}

	rate := stat.Mean(samples, nil)
	if rate < minLearnedRateKW {
		rate = minLearnedRateKW
	}
	if ratedKW > 0 && rate > ratedKW {
		rate = ratedKW
	}
	return rate, nil
}
