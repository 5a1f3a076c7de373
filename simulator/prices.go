// Package simulator backtests charge strategies over a synthetic year of
// hourly prices. It answers one tuning question: how long a rolling price
// reference gives the cheapest charging for a given cheap-hour threshold.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/laddvakt/laddvakt/core/model"
)

const yearHours = 365 * 24

// Year generates one year of synthetic hourly prices in SEK/kWh: a seasonal
// cosine with winter highs, a twice-daily peak cycle, gaussian noise and a
// handful of cold-snap spikes. The same seed yields the same series.
func Year(seed int64, start time.Time) []model.PriceSample {
	rng := rand.New(rand.NewSource(seed))
	start = start.Truncate(time.Hour)

	series := make([]model.PriceSample, yearHours)
	for i := range series {
		seasonal := 0.80 + 0.60*math.Cos(2*math.Pi*float64(i)/float64(yearHours))
		daily := 0.20 * math.Sin(math.Pi*float64(i)/6-2)
		price := seasonal + daily + rng.NormFloat64()*0.30
		if price < 0.05 {
			price = 0.05
		}
		series[i] = model.PriceSample{
			Start:  start.Add(time.Duration(i) * time.Hour),
			Price:  price,
			Source: model.PriceOfficial,
		}
	}
	// Cold snaps: fifty random hours spike well above the seasonal band.
	for _, i := range rng.Perm(yearHours)[:50] {
		series[i].Price += 2.0
	}
	return series
}
