package scheduler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/model"
)

// Request is one vehicle evaluation at one instant. All state is explicit;
// the scheduler keeps nothing between polls.
type Request struct {
	VehicleID    string
	Series       []model.PriceSample // upcoming hours in chronological order
	SoC          int
	PluggedIn    bool
	Band         model.TargetBand
	Target       int    // dynamic target from the target calculator
	TargetMode   string // its mode label
	CapacityKWh  float64
	ChargeRateKW float64
	Departure    time.Time // absolute deadline, already rolled to the future
	TopUp        bool
	Override     *model.Override
	Now          time.Time
}

// Scheduler turns a Request into a charge or idle decision.
type Scheduler struct {
	cfg Config
	log logger.Logger
}

// New creates a Scheduler.
func New(cfg Config, log logger.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, log: log}
}

// Evaluate decides for one vehicle. Precedence: manual override, plug
// state, target reached, critical deadline pressure, planned cheap hours.
// A missing or too-short price series forces a charge: availability beats
// optimality when information runs out.
func (s *Scheduler) Evaluate(req Request) model.Decision {
	dec := s.evaluate(req)
	dec.Mode = req.TargetMode
	dec.UrgencyHours = s.hoursNeeded(req, req.Target)
	return dec
}

func (s *Scheduler) evaluate(req Request) model.Decision {
	if o := req.Override; o != nil && !o.Expired(req.Now) {
		if o.Action == model.ForceCharge {
			return model.Decision{
				Action: model.ActionCharge,
				Reason: fmt.Sprintf("manual charge override until %s", o.ExpiresAt.Format("15:04")),
			}
		}
		return model.Decision{
			Action: model.ActionIdle,
			Reason: fmt.Sprintf("manual stop override until %s", o.ExpiresAt.Format("15:04")),
		}
	}

	if !req.PluggedIn {
		return model.Decision{Action: model.ActionIdle, Reason: "not plugged in"}
	}

	if req.SoC >= req.Target {
		if req.TopUp && req.SoC < req.Band.MaxSoC && s.cheapQuartileNow(req) {
			return model.Decision{Action: model.ActionCharge, Reason: "top-up: price in cheapest quartile"}
		}
		return model.Decision{Action: model.ActionIdle, Reason: fmt.Sprintf("target %d%% reached", req.Target)}
	}

	if req.SoC < req.Band.MinSoC {
		needMin := s.hoursNeeded(req, req.Band.MinSoC)
		left := req.Departure.Sub(req.Now).Hours()
		if left <= needMin {
			return model.Decision{
				Action: model.ActionCharge,
				Reason: fmt.Sprintf("critical: %.1fh of charging needed, %.1fh to departure", needMin, left),
			}
		}
		n := hoursToSlots(needMin)
		preDeadline := before(req.Series, req.Departure)
		if len(preDeadline) < n {
			return model.Decision{Action: model.ActionCharge, Reason: "critical: forecast shorter than required, failsafe charge"}
		}
		if containsHour(CheapestHours(preDeadline, n), req.Now) {
			return model.Decision{
				Action: model.ActionCharge,
				Reason: fmt.Sprintf("critical plan: among %d cheapest hours before departure", n),
			}
		}
		// Not a planned critical hour; the opportunistic tier below may
		// still pick this hour for the remainder to the target.
	}

	n := hoursToSlots(s.hoursNeeded(req, req.Target))
	if n == 0 {
		return model.Decision{Action: model.ActionIdle, Reason: fmt.Sprintf("target %d%% reached", req.Target)}
	}
	if len(req.Series) == 0 {
		return model.Decision{Action: model.ActionCharge, Reason: "no price data, failsafe charge"}
	}
	if len(req.Series) < n {
		return model.Decision{Action: model.ActionCharge, Reason: "forecast shorter than required, failsafe charge"}
	}
	window := CheapestHours(req.Series, n)
	if containsHour(window, req.Now) {
		return model.Decision{Action: model.ActionCharge, Reason: fmt.Sprintf("among %d cheapest hours in horizon", n)}
	}
	threshold := window[len(window)-1].Price
	if cur, ok := model.PriceAt(req.Series, req.Now); ok {
		return model.Decision{
			Action: model.ActionIdle,
			Reason: fmt.Sprintf("waiting: price %.2f above charge threshold %.2f", cur.Price, threshold),
		}
	}
	return model.Decision{
		Action: model.ActionIdle,
		Reason: fmt.Sprintf("waiting for price at or below %.2f", threshold),
	}
}

// PlannedHours returns the hours the strategy would pick for this vehicle:
// the cheapest window to the target plus, under the minimum, the cheapest
// pre-departure hours. Used for plan displays, never for actuation.
func (s *Scheduler) PlannedHours(req Request) map[time.Time]bool {
	out := make(map[time.Time]bool)
	if len(req.Series) == 0 {
		return out
	}
	if req.SoC < req.Band.MinSoC {
		n := hoursToSlots(s.hoursNeeded(req, req.Band.MinSoC))
		for _, smp := range CheapestHours(before(req.Series, req.Departure), n) {
			out[smp.Start] = true
		}
	}
	n := hoursToSlots(s.hoursNeeded(req, req.Target))
	for _, smp := range CheapestHours(req.Series, n) {
		out[smp.Start] = true
	}
	return out
}

// hoursNeeded returns charging hours required to lift the vehicle from its
// current SoC to the given percentage.
func (s *Scheduler) hoursNeeded(req Request, toSoC int) float64 {
	if req.CapacityKWh <= 0 || toSoC <= req.SoC {
		return 0
	}
	if req.ChargeRateKW <= 0 {
		return math.Inf(1)
	}
	kwh := float64(toSoC-req.SoC) / 100 * req.CapacityKWh
	return kwh / req.ChargeRateKW
}

func (s *Scheduler) cheapQuartileNow(req Request) bool {
	cur, ok := model.PriceAt(req.Series, req.Now)
	if !ok || len(req.Series) < 4 {
		return false
	}
	prices := make([]float64, len(req.Series))
	for i, smp := range req.Series {
		prices[i] = smp.Price
	}
	sort.Float64s(prices)
	q := stat.Quantile(s.cfg.TopUpQuantile, stat.Empirical, prices, nil)
	return cur.Price <= q
}

// CheapestHours returns the n lowest-priced samples. The stable sort over
// the chronological input resolves equal prices to the earlier hour.
func CheapestHours(series []model.PriceSample, n int) []model.PriceSample {
	if n <= 0 || len(series) == 0 {
		return nil
	}
	sorted := make([]model.PriceSample, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Departure resolves a vehicle's departure clock, falling back to the
// configured default when the clock is empty or invalid.
func (s *Scheduler) Departure(now time.Time, clock string) time.Time {
	if clock == "" {
		clock = s.cfg.DefaultDeparture
	}
	dep, err := NextDeparture(now, clock)
	if err != nil {
		s.log.Warnf("departure: %v, using default %s", err, s.cfg.DefaultDeparture)
		dep, err = NextDeparture(now, s.cfg.DefaultDeparture)
		if err != nil {
			return now.Add(24 * time.Hour)
		}
	}
	return dep
}

// NextDeparture resolves a wall-clock deadline like "07:00" to its next
// occurrence after now.
func NextDeparture(now time.Time, clock string) (time.Time, error) {
	t, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	dep := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !dep.After(now) {
		dep = dep.Add(24 * time.Hour)
	}
	return dep, nil
}

func parseClock(clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid departure time %q: %w", clock, err)
	}
	return t, nil
}

func hoursToSlots(hours float64) int {
	if hours <= 0 {
		return 0
	}
	if math.IsInf(hours, 1) {
		return math.MaxInt32
	}
	return int(math.Ceil(hours - 1e-9))
}

func containsHour(samples []model.PriceSample, t time.Time) bool {
	hour := t.Truncate(time.Hour)
	for _, smp := range samples {
		if smp.Start.Equal(hour) {
			return true
		}
	}
	return false
}

func before(series []model.PriceSample, deadline time.Time) []model.PriceSample {
	out := make([]model.PriceSample, 0, len(series))
	for _, smp := range series {
		if smp.Start.Before(deadline) {
			out = append(out, smp)
		}
	}
	return out
}
