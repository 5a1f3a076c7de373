package forecast

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/model"
)

// Weights blending today's official mean with the trailing weekly average
// into the synthesis base price.
const (
	baseTodayWeight   = 0.6
	baseHistoryWeight = 0.4
)

// Hour-of-day demand profiles. Weekdays show the morning and evening peaks,
// weekends and holidays flatten out.
var weekdayProfile = [24]float64{
	0.82, 0.82, 0.82, 0.82, 0.82, 0.82,
	1.05,
	1.22, 1.22, 1.22,
	1.0, 1.0, 1.0, 1.0, 1.0, 1.0,
	1.25, 1.25, 1.25, 1.25, 1.25,
	0.9, 0.9, 0.9,
}

var reducedProfile = [24]float64{
	0.93, 0.93, 0.93, 0.93, 0.93, 0.93,
	0.93, 0.93, 0.93, 0.93, 0.93, 0.93,
	0.93, 0.93, 0.93, 0.93, 0.93,
	1.08, 1.08, 1.08, 1.08,
	0.93, 0.93, 0.93,
}

// Synthesizer extends the official price series with weather-derived
// estimates through the planning horizon.
type Synthesizer struct {
	cfg Config
	log logger.Logger
}

// NewSynthesizer creates a Synthesizer with the given tunables.
func NewSynthesizer(cfg Config, log logger.Logger) *Synthesizer {
	return &Synthesizer{cfg: cfg, log: log}
}

// Inputs carries everything one synthesis run depends on. All state is
// passed in explicitly so runs are reproducible.
type Inputs struct {
	Official  []model.PriceSample
	Weather   []model.WeatherSample
	WeeklyAvg float64 // trailing 7-day mean of official prices, 0 when unknown
	Bias      float64 // calibration multiplier, neutral when <= 0
	Now       time.Time
}

// Forecast returns one sample per hour from now through the horizon.
// Official samples pass through untouched and always win over synthesis at
// the same hour. Without weather data the result is official-only; without
// any input it is empty and callers must treat that as no price information.
func (s *Synthesizer) Forecast(in Inputs) []model.PriceSample {
	now := in.Now.Truncate(time.Hour)
	official := resampleHourly(in.Official)

	out := make([]model.PriceSample, 0, len(official)+len(in.Weather))
	byHour := make(map[time.Time]bool, len(official))
	for _, smp := range official {
		byHour[smp.Start] = true
		if !smp.Start.Before(now) {
			out = append(out, smp)
		}
	}

	if len(in.Weather) == 0 {
		if len(out) == 0 {
			s.log.Warnf("no official prices and no weather data, returning empty forecast")
		} else {
			s.log.Warnf("no weather data, forecast limited to %d official hours", len(out))
		}
		return out
	}

	base := s.basePrice(official, in.WeeklyAvg, now)
	if base <= 0 {
		s.log.Warnf("no usable base price, skipping synthesis")
		return out
	}

	bias := in.Bias
	if bias <= 0 {
		bias = 1
	}

	horizon := now.Add(time.Duration(s.cfg.HorizonDays) * 24 * time.Hour)
	synthesized := 0
	for _, w := range in.Weather {
		hour := w.Time.Truncate(time.Hour)
		if hour.Before(now) || !hour.Before(horizon) || byHour[hour] {
			continue
		}
		byHour[hour] = true
		price := base *
			s.windFactor(w.EffectiveWindMS()) *
			s.solarFactor(w.IrradianceWM2) *
			s.tempFactor(w.TempC) *
			s.seasonalFactor(hour.Month()) *
			diurnalFactor(hour) *
			bias
		out = append(out, model.PriceSample{
			Start:  hour,
			Price:  clamp(price, s.cfg.MinPrice, s.cfg.MaxPrice),
			Source: model.PriceForecasted,
		})
		synthesized++
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	s.log.Debugw("forecast built", map[string]any{
		"official":    len(out) - synthesized,
		"synthesized": synthesized,
		"base_price":  base,
		"bias":        bias,
	})
	return out
}

// basePrice blends today's official mean with the trailing weekly average,
// falling back to whichever is known, then to the whole official window.
func (s *Synthesizer) basePrice(official []model.PriceSample, weeklyAvg float64, now time.Time) float64 {
	var today []float64
	var all []float64
	y, m, d := now.Date()
	for _, smp := range official {
		all = append(all, smp.Price)
		sy, sm, sd := smp.Start.In(now.Location()).Date()
		if sy == y && sm == m && sd == d {
			today = append(today, smp.Price)
		}
	}
	todayMean := 0.0
	if len(today) > 0 {
		todayMean = stat.Mean(today, nil)
	}
	switch {
	case todayMean > 0 && weeklyAvg > 0:
		return baseTodayWeight*todayMean + baseHistoryWeight*weeklyAvg
	case todayMean > 0:
		return todayMean
	case weeklyAvg > 0:
		return weeklyAvg
	case len(all) > 0:
		return stat.Mean(all, nil)
	default:
		return 0
	}
}

func (s *Synthesizer) windFactor(wind float64) float64 {
	switch {
	case wind < s.cfg.WindLowMS:
		return 1 + s.cfg.WindPenalty*(s.cfg.WindLowMS-wind)
	case wind > s.cfg.WindHighMS:
		f := 1 - s.cfg.WindDiscount*(wind-s.cfg.WindHighMS)
		if f < s.cfg.WindFloor {
			f = s.cfg.WindFloor
		}
		return f
	default:
		return 1
	}
}

func (s *Synthesizer) solarFactor(irradiance float64) float64 {
	if irradiance <= s.cfg.SolarThresholdWM2 {
		return 1
	}
	f := 1 - s.cfg.SolarDiscount*(irradiance-s.cfg.SolarThresholdWM2)
	if f < s.cfg.SolarFloor {
		f = s.cfg.SolarFloor
	}
	return f
}

func (s *Synthesizer) tempFactor(tempC float64) float64 {
	if tempC >= s.cfg.TempThresholdC {
		return 1
	}
	f := 1 + s.cfg.TempPenalty*(s.cfg.TempThresholdC-tempC)
	if f > s.cfg.TempCeil {
		f = s.cfg.TempCeil
	}
	return f
}

func (s *Synthesizer) seasonalFactor(m time.Month) float64 {
	switch m {
	case time.December, time.January, time.February:
		return s.cfg.WinterBias
	case time.March:
		return 1.05
	case time.April, time.May:
		// melt-water hydro surplus
		return 0.92
	case time.June, time.July, time.August:
		return 0.85
	case time.November:
		return 1.08
	default:
		return 1
	}
}

func diurnalFactor(hour time.Time) float64 {
	if IsReducedDemandDay(hour) {
		return reducedProfile[hour.Hour()]
	}
	return weekdayProfile[hour.Hour()]
}

// resampleHourly folds samples into hour buckets by mean and tags the result
// official. Sub-hourly market data collapses into the hourly series the
// planner works with.
func resampleHourly(samples []model.PriceSample) []model.PriceSample {
	if len(samples) == 0 {
		return nil
	}
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, smp := range samples {
		h := smp.Start.Truncate(time.Hour)
		sums[h] += smp.Price
		counts[h]++
	}
	out := make([]model.PriceSample, 0, len(sums))
	for h, sum := range sums {
		out = append(out, model.PriceSample{
			Start:  h,
			Price:  sum / float64(counts[h]),
			Source: model.PriceOfficial,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
