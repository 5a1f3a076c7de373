package target

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/laddvakt/laddvakt/core/model"
)

// Mode labels attached to computed targets, surfaced on dashboards.
const (
	ModeAggressive   = "Aggressive"
	ModeBalanced     = "Balanced"
	ModeConservative = "Conservative"
	ModeFallback     = "Fallback"
)

// Config defines the price-ratio thresholds loaded from configuration.
type Config struct {
	// AggressiveBelow is the price/reference ratio under which the full
	// band is targeted.
	AggressiveBelow float64 `json:"aggressive_below" yaml:"aggressive_below"`
	// ConservativeAt is the ratio at or above which only the band floor
	// is kept.
	ConservativeAt float64 `json:"conservative_at" yaml:"conservative_at"`
}

// SetDefaults fills unset fields with production defaults.
func (c *Config) SetDefaults() {
	if c.AggressiveBelow == 0 {
		c.AggressiveBelow = 0.80
	}
	if c.ConservativeAt == 0 {
		c.ConservativeAt = 1.00
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.AggressiveBelow <= 0 || c.ConservativeAt <= c.AggressiveBelow {
		return fmt.Errorf("target thresholds must satisfy 0 < aggressive_below < conservative_at")
	}
	return nil
}

// Result is the computed session target.
type Result struct {
	SoC  int
	Mode string
}

// Calculator derives the session target SoC from how the current price
// compares to the weekly reference level.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute maps the current price level to a point in the vehicle's band.
// Cheap hours stretch toward the ceiling, expensive hours fall back to the
// floor. Without any price data the ceiling is targeted so a dead price
// feed never strands the vehicle low.
func (c *Calculator) Compute(series []model.PriceSample, band model.TargetBand, reference float64, now time.Time) Result {
	if len(series) == 0 {
		return Result{SoC: band.MaxSoC, Mode: ModeFallback}
	}

	current, ok := model.PriceAt(series, now)
	if !ok {
		// Series starts later than now; use the first upcoming hour.
		current = series[0]
	}

	if reference <= 0 {
		prices := make([]float64, len(series))
		for i, s := range series {
			prices[i] = s.Price
		}
		reference = stat.Mean(prices, nil)
	}
	if reference <= 0 {
		return Result{SoC: band.MaxSoC, Mode: ModeFallback}
	}

	ratio := current.Price / reference
	var res Result
	switch {
	case ratio < c.cfg.AggressiveBelow:
		res = Result{SoC: band.MaxSoC, Mode: ModeAggressive}
	case ratio < c.cfg.ConservativeAt:
		res = Result{SoC: (band.MinSoC + band.MaxSoC) / 2, Mode: ModeBalanced}
	default:
		res = Result{SoC: band.MinSoC, Mode: ModeConservative}
	}
	res.SoC = band.Clamp(res.SoC)
	return res
}
