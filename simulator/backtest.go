package simulator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/laddvakt/laddvakt/core/model"
)

// thresholdFactor marks an hour as cheap when its price is this far below
// the rolling average, matching the scheduler's cheap-hour rule.
const thresholdFactor = 0.90

// Strategy is one rolling-average window under evaluation.
type Strategy struct {
	Name string
	Days int
}

// DefaultStrategies covers the windows worth considering for the
// scheduler's price reference.
var DefaultStrategies = []Strategy{
	{Name: "3 days", Days: 3},
	{Name: "7 days", Days: 7},
	{Name: "30 days", Days: 30},
}

// Result summarizes one strategy's year.
type Result struct {
	Strategy    Strategy
	ChargeHours int
	AvgCharge   float64 // mean price over charged hours, SEK/kWh
	AvgSpot     float64 // mean price over the whole year, SEK/kWh
	SavingsPct  float64 // charged-hour discount relative to the year mean
}

// Backtest charges every hour priced below thresholdFactor times the
// strategy's trailing average and reports what that would have cost. The
// first window of each strategy is warmup and not evaluated.
func Backtest(series []model.PriceSample, strategies []Strategy) []Result {
	prices := make([]float64, len(series))
	for i, s := range series {
		prices[i] = s.Price
	}
	avgSpot := stat.Mean(prices, nil)

	results := make([]Result, 0, len(strategies))
	for _, st := range strategies {
		window := st.Days * 24
		var charged []float64
		sum := 0.0
		for i, p := range prices {
			sum += p
			if i >= window {
				sum -= prices[i-window]
			}
			if i < window {
				continue
			}
			if p < sum/float64(window)*thresholdFactor {
				charged = append(charged, p)
			}
		}

		res := Result{Strategy: st, ChargeHours: len(charged), AvgSpot: avgSpot}
		if len(charged) > 0 {
			res.AvgCharge = stat.Mean(charged, nil)
		}
		if avgSpot > 0 && len(charged) > 0 {
			res.SavingsPct = (avgSpot - res.AvgCharge) / avgSpot * 100
		}
		results = append(results, res)
	}
	return results
}
