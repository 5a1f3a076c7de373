package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/laddvakt/laddvakt/core/charger"
	"github.com/laddvakt/laddvakt/core/events"
	"github.com/laddvakt/laddvakt/core/forecast"
	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/metrics"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/core/monitoring"
	"github.com/laddvakt/laddvakt/core/override"
	"github.com/laddvakt/laddvakt/core/resolver"
	"github.com/laddvakt/laddvakt/core/scheduler"
	"github.com/laddvakt/laddvakt/core/session"
	"github.com/laddvakt/laddvakt/core/settings"
	"github.com/laddvakt/laddvakt/core/target"
	"github.com/laddvakt/laddvakt/core/vehicle"
	"github.com/laddvakt/laddvakt/internal/eventbus"
)

// PriceFeed supplies the official spot price series and its trailing weekly
// mean.
type PriceFeed interface {
	Prices(ctx context.Context, now time.Time) ([]model.PriceSample, error)
	WeeklyAverage(ctx context.Context, now time.Time) (float64, error)
}

// WeatherFeed supplies the hourly weather forecast.
type WeatherFeed interface {
	Forecast(ctx context.Context, now time.Time) ([]model.WeatherSample, error)
}

// Deps bundles the engine's collaborators. Log, Charger and Vehicles are
// required; nil planning components are replaced with production defaults
// and nil optional pieces (Sink, Bus, stores) are simply skipped.
type Deps struct {
	Log      logger.Logger
	Charger  charger.Client
	Vehicles []vehicle.Client
	Prices   PriceFeed
	Weather  WeatherFeed

	Synth      *forecast.Synthesizer
	Calibrator *forecast.Calibrator
	History    forecast.HistoryStore
	Target     *target.Calculator
	Scheduler  *scheduler.Scheduler
	Overrides  *override.Manager
	Accountant *session.Accountant
	Sessions   session.Store
	Settings   settings.Store
	Resolver   *resolver.Resolver

	Sink metrics.Sink
	Bus  *eventbus.Bus[events.PollEvent]

	// Now overrides the engine clock. Scenario tests pin it to a fixed
	// instant; nil means wall time.
	Now func() time.Time
}

// Engine drives the poll loop: read the world, plan per vehicle, resolve
// the active identity, actuate the charger and account the session.
type Engine struct {
	cfg  Config
	deps Deps
	log  logger.Logger

	// Grading caches, touched only by the poll goroutine.
	prices   *Cache[[]model.PriceSample]
	weather  *Cache[[]model.WeatherSample]
	charger  *Cache[model.ChargerStatus]
	statuses map[string]*Cache[model.VehicleStatus]

	infoByID map[string]vehicle.Info
	now      func() time.Time

	mu         sync.RWMutex
	weeklyAvg  float64
	last       *model.Snapshot
	lastSeries []model.PriceSample
}

// New creates an Engine. Planning components left nil in deps get default
// production configurations.
func New(cfg Config, deps Deps) *Engine {
	cfg.SetDefaults()
	if deps.Sink == nil {
		deps.Sink = metrics.NopSink{}
	}
	if deps.Resolver == nil {
		deps.Resolver = resolver.New(deps.Log)
	}
	if deps.Synth == nil {
		var fc forecast.Config
		fc.SetDefaults()
		deps.Synth = forecast.NewSynthesizer(fc, deps.Log)
	}
	if deps.Target == nil {
		var tc target.Config
		tc.SetDefaults()
		deps.Target = target.NewCalculator(tc)
	}
	if deps.Scheduler == nil {
		var sc scheduler.Config
		sc.SetDefaults()
		deps.Scheduler = scheduler.New(sc, deps.Log)
	}

	e := &Engine{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Log,
		prices:   NewCache[[]model.PriceSample](cfg.TTL()),
		weather:  NewCache[[]model.WeatherSample](cfg.TTL()),
		charger:  NewCache[model.ChargerStatus](cfg.TTL()),
		statuses: make(map[string]*Cache[model.VehicleStatus], len(deps.Vehicles)),
		infoByID: make(map[string]vehicle.Info, len(deps.Vehicles)),
		now:      time.Now,
	}
	if deps.Now != nil {
		e.now = deps.Now
	}
	for _, v := range deps.Vehicles {
		info := v.Info()
		e.statuses[info.ID] = NewCache[model.VehicleStatus](cfg.TTL())
		e.infoByID[info.ID] = info
	}
	return e
}

// Run polls at the configured interval until the context is canceled. The
// first poll runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Infof("control loop started, polling every %s", e.cfg.Interval())
	ticker := time.NewTicker(e.cfg.Interval())
	defer ticker.Stop()
	for {
		e.RunOnce(ctx)
		select {
		case <-ctx.Done():
			e.log.Infof("control loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pollState carries the per-poll facts shared by all vehicle evaluations.
type pollState struct {
	series    []model.PriceSample
	reference float64
	activeID  string
	prefs     settings.Settings
	now       time.Time
}

// RunOnce executes one full poll cycle and returns the resulting snapshot.
// It never propagates a panic; a poll that blows up yields a zero snapshot
// and the loop carries on.
func (e *Engine) RunOnce(ctx context.Context) (snap model.Snapshot) {
	started := time.Now()
	defer func() {
		pollDuration.Observe(time.Since(started).Seconds())
		if r := recover(); r != nil {
			err := fmt.Errorf("poll panicked: %v", r)
			e.log.Errorf("%v", err)
			monitoring.CaptureException(err, map[string]string{"component": "engine"})
		}
	}()
	now := e.now()

	prices := e.prices.Fetch(now, func() ([]model.PriceSample, error) {
		if e.deps.Prices == nil {
			return nil, fmt.Errorf("no price feed configured")
		}
		return e.deps.Prices.Prices(ctx, now)
	})
	e.noteGrade("prices", prices.Grade, prices.Err)

	weather := e.weather.Fetch(now, func() ([]model.WeatherSample, error) {
		if e.deps.Weather == nil {
			return nil, fmt.Errorf("no weather feed configured")
		}
		return e.deps.Weather.Forecast(ctx, now)
	})
	e.noteGrade("weather", weather.Grade, weather.Err)

	reference := e.refreshWeeklyAverage(ctx, now)

	bias := 1.0
	if e.deps.Calibrator != nil {
		bias = e.deps.Calibrator.Bias(ctx, prices.Value, now)
	}
	series := e.deps.Synth.Forecast(forecast.Inputs{
		Official:  prices.Value,
		Weather:   weather.Value,
		WeeklyAvg: reference,
		Bias:      bias,
		Now:       now,
	})
	if e.deps.History != nil && len(series) > 0 {
		if err := e.deps.History.SaveForecast(ctx, now, series); err != nil {
			e.log.Warnf("forecast history save failed: %v", err)
		}
	}
	official, synthetic := countSources(series)
	e.recordForecast(metrics.ForecastRecord{
		Hours:     len(series),
		Official:  official,
		Synthetic: synthetic,
		Bias:      bias,
		Time:      now,
	})

	chg := e.charger.Fetch(now, func() (model.ChargerStatus, error) {
		if e.deps.Charger == nil {
			return model.ChargerStatus{}, fmt.Errorf("no charger configured")
		}
		return e.deps.Charger.Status(ctx)
	})
	e.noteGrade("charger", chg.Grade, chg.Err)

	candidates := e.fetchStatuses(ctx, now)
	candidates, resolved := e.deps.Resolver.Resolve(chg.Value, candidates)
	statusByID := make(map[string]model.VehicleStatus, len(candidates))
	for _, c := range candidates {
		statusByID[c.ID] = c.Status
	}
	e.log.Debugf("active vehicle: %s (%s)", resolved.ActiveID, resolved.Reason)

	ps := pollState{
		series:    series,
		reference: reference,
		activeID:  resolved.ActiveID,
		prefs:     e.loadSettings(ctx),
		now:       now,
	}

	snaps := make([]model.VehicleSnapshot, 0, len(e.deps.Vehicles)+1)
	anyCharge := false
	for _, v := range e.deps.Vehicles {
		info := v.Info()
		vsnap, dec, ok := e.evaluateVehicle(ctx, info, statusByID[info.ID], ps)
		if !ok {
			continue
		}
		snaps = append(snaps, vsnap)
		if dec.Action == model.ActionCharge {
			anyCharge = true
		}
	}

	// A guest at the charger is served unconditionally. Charging the
	// unknown vehicle is the safe default and keeps pressure on it to
	// identify itself through its draw.
	if resolved.ActiveID == model.GuestID {
		anyCharge = true
		snaps = append(snaps, e.guestSnapshot(resolved, now))
	}

	if chg.Grade == Failed {
		e.log.Warnf("charger state unknown, skipping actuation")
	} else {
		e.actuate(ctx, chg.Value, resolved.ActiveID, anyCharge, now)
	}

	price, source := currentPrice(series, now)
	if e.deps.Accountant != nil {
		if err := e.deps.Accountant.Tick(ctx, session.Reading{
			ActiveID: resolved.ActiveID,
			Charging: chg.Value.Drawing(),
			PowerKW:  chg.Value.PowerKW,
			PriceKWh: price,
			Status:   statusByID[resolved.ActiveID],
			Now:      now,
		}); err != nil {
			e.log.Errorf("session accounting failed: %v", err)
			monitoring.CaptureException(err, map[string]string{"component": "session"})
		}
	}

	snap = model.Snapshot{
		Time:          now,
		ActiveVehicle: resolved.ActiveID,
		Charger: model.ChargerSnapshot{
			Mode:         chg.Value.Mode.String(),
			PowerKW:      chg.Value.PowerKW,
			EnergyKWh:    chg.Value.SessionEnergyKWh,
			ActivePhases: chg.Value.ActivePhases,
		},
		PriceSEK:    price,
		PriceSource: source,
		TempC:       currentTemp(weather.Value, now),
		Vehicles:    snaps,
	}

	e.mu.Lock()
	e.last = &snap
	e.lastSeries = series
	e.mu.Unlock()

	if e.deps.Bus != nil {
		e.deps.Bus.Publish(events.PollEvent{Snapshot: snap})
	}
	if err := e.deps.Sink.RecordPoll(metrics.PollRecord{
		Time:          now,
		ActiveVehicle: resolved.ActiveID,
		ChargerMode:   chg.Value.Mode.String(),
		PowerKW:       chg.Value.PowerKW,
		PriceKWh:      price,
		PriceSource:   source,
		TempC:         snap.TempC,
	}); err != nil {
		e.log.Warnf("record poll: %v", err)
	}

	chargerPowerKW.Set(chg.Value.PowerKW)
	spotPrice.Set(price)

	return snap
}

// Snapshot returns the result of the most recent completed poll.
func (e *Engine) Snapshot() (model.Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return model.Snapshot{}, false
	}
	return *e.last, true
}

// Series returns the price series produced by the most recent poll.
func (e *Engine) Series() []model.PriceSample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSeries
}

// Plan is one vehicle's upcoming charging intent, derived from the latest
// forecast. Hours holds the planned charge hours in chronological order.
type Plan struct {
	VehicleID string              `json:"vehicle_id"`
	TargetSoC int                 `json:"target_soc"`
	Mode      string              `json:"mode"`
	Hours     []time.Time         `json:"hours"`
	Series    []model.PriceSample `json:"series"`
}

// Plan recomputes the charge plan for one vehicle as if it were plugged in
// now. The result is for display only; actuation always goes through the
// poll cycle.
func (e *Engine) Plan(ctx context.Context, vehicleID string) (Plan, error) {
	info, ok := e.infoByID[vehicleID]
	if !ok {
		return Plan{}, fmt.Errorf("unknown vehicle %q", vehicleID)
	}

	e.mu.RLock()
	series := e.lastSeries
	reference := e.weeklyAvg
	last := e.last
	e.mu.RUnlock()

	now := e.now()
	prefs := e.loadSettings(ctx)
	vs := prefs.ForVehicle(vehicleID)
	tgt := e.deps.Target.Compute(series, vs.Band, reference, now)

	soc := 0
	if last != nil {
		for _, v := range last.Vehicles {
			if v.ID == vehicleID {
				soc = v.SoC
			}
		}
	}

	rate := e.chargeRate(ctx, vehicleID, info.ChargeRateKW)

	planned := e.deps.Scheduler.PlannedHours(scheduler.Request{
		VehicleID:    vehicleID,
		Series:       series,
		SoC:          soc,
		PluggedIn:    true,
		Band:         vs.Band,
		Target:       tgt.SoC,
		TargetMode:   tgt.Mode,
		CapacityKWh:  info.CapacityKWh,
		ChargeRateKW: rate,
		Departure:    e.deps.Scheduler.Departure(now, vs.Departure),
		TopUp:        vs.TopUp,
		Now:          now,
	})
	hours := make([]time.Time, 0, len(planned))
	for h := range planned {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	return Plan{
		VehicleID: vehicleID,
		TargetSoC: tgt.SoC,
		Mode:      tgt.Mode,
		Hours:     hours,
		Series:    series,
	}, nil
}

// evaluateVehicle plans one vehicle and folds the decision into a snapshot
// entry. A panic in planning is contained so one misbehaving vehicle cannot
// take down the whole poll.
func (e *Engine) evaluateVehicle(ctx context.Context, info vehicle.Info, st model.VehicleStatus, ps pollState) (vsnap model.VehicleSnapshot, dec model.Decision, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("evaluating %s panicked: %v", info.ID, r)
			e.log.Errorf("%v", err)
			monitoring.CaptureException(err, map[string]string{"vehicle": info.ID})
			ok = false
		}
	}()

	vs := ps.prefs.ForVehicle(info.ID)

	var ov *model.Override
	if e.deps.Overrides != nil {
		var err error
		ov, err = e.deps.Overrides.Active(ctx, info.ID)
		if err != nil {
			e.log.Warnf("override lookup for %s failed: %v", info.ID, err)
			ov = nil
		}
	}

	tgt := e.deps.Target.Compute(ps.series, vs.Band, ps.reference, ps.now)
	rate := e.chargeRate(ctx, info.ID, info.ChargeRateKW)

	dec = e.deps.Scheduler.Evaluate(scheduler.Request{
		VehicleID:    info.ID,
		Series:       ps.series,
		SoC:          st.SoC,
		PluggedIn:    st.PluggedIn,
		Band:         vs.Band,
		Target:       tgt.SoC,
		TargetMode:   tgt.Mode,
		CapacityKWh:  info.CapacityKWh,
		ChargeRateKW: rate,
		Departure:    e.deps.Scheduler.Departure(ps.now, vs.Departure),
		TopUp:        vs.TopUp,
		Override:     ov,
		Now:          ps.now,
	})

	dec, gated := resolver.Gate(ps.activeID, info.ID, dec)
	e.log.Infof("%s: %s (%s)", info.ID, dec.Action, dec.Reason)

	decisionsTotal.WithLabelValues(info.ID, dec.Action.String()).Inc()
	vehicleSoC.WithLabelValues(info.ID).Set(float64(st.SoC))
	e.recordDecision(metrics.DecisionRecord{
		VehicleID:    info.ID,
		Action:       dec.Action.String(),
		Reason:       dec.Reason,
		Mode:         dec.Mode,
		SoC:          st.SoC,
		TargetSoC:    tgt.SoC,
		UrgencyHours: dec.UrgencyHours,
		Gated:        gated,
		Time:         ps.now,
	})

	vsnap = model.VehicleSnapshot{
		ID:           info.ID,
		Name:         info.Name,
		SoC:          st.SoC,
		RangeKM:      st.RangeKM,
		PluggedIn:    st.PluggedIn,
		ClimateOn:    st.ClimateOn,
		OdometerKM:   st.OdometerKM,
		TargetSoC:    tgt.SoC,
		Action:       dec.Action.String(),
		Reason:       dec.Reason,
		Mode:         dec.Mode,
		UrgencyHours: dec.UrgencyHours,
		Gated:        gated,
	}
	return vsnap, dec, true
}

// actuate reconciles desired and observed charger state. Commands are sent
// only on a difference so an already-running charge is never restarted.
func (e *Engine) actuate(ctx context.Context, chg model.ChargerStatus, activeID string, want bool, now time.Time) {
	drawing := chg.Drawing()
	switch {
	case want && !drawing:
		e.command(ctx, true, activeID, now)
	case !want && drawing:
		e.command(ctx, false, activeID, now)
	}
}

func (e *Engine) command(ctx context.Context, start bool, vehicleID string, now time.Time) {
	name := "stop"
	fn := e.deps.Charger.StopCharging
	if start {
		name = "start"
		fn = e.deps.Charger.StartCharging
	}
	err := fn(ctx)
	chargerCommands.WithLabelValues(name).Inc()
	rec := metrics.ActuationRecord{Start: start, VehicleID: vehicleID, Time: now}
	if err != nil {
		rec.Error = err.Error()
		e.log.Errorf("charger %s failed: %v", name, err)
		monitoring.CaptureException(err, map[string]string{"command": name})
	} else {
		e.log.Infof("charger %s issued for %s", name, vehicleID)
	}
	e.recordActuation(rec)
}

// fetchStatuses reads every vehicle's telemetry through its grading cache.
// A connector panic is converted to a failed read.
func (e *Engine) fetchStatuses(ctx context.Context, now time.Time) []resolver.Candidate {
	candidates := make([]resolver.Candidate, 0, len(e.deps.Vehicles))
	for _, v := range e.deps.Vehicles {
		info := v.Info()
		c, found := e.statuses[info.ID]
		if !found {
			c = NewCache[model.VehicleStatus](e.cfg.TTL())
			e.statuses[info.ID] = c
		}
		res := c.Fetch(now, func() (st model.VehicleStatus, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("status read panicked: %v", r)
					monitoring.CaptureException(err, map[string]string{"vehicle": info.ID})
				}
			}()
			return v.Status(ctx)
		})
		e.noteGrade(info.ID, res.Grade, res.Err)
		candidates = append(candidates, resolver.Candidate{
			ID:     info.ID,
			Phases: info.Phases,
			Status: res.Value,
		})
	}
	return candidates
}

// refreshWeeklyAverage updates the stored weekly reference price, keeping
// the last known value when the feed cannot provide one.
func (e *Engine) refreshWeeklyAverage(ctx context.Context, now time.Time) float64 {
	e.mu.RLock()
	reference := e.weeklyAvg
	e.mu.RUnlock()
	if e.deps.Prices == nil {
		return reference
	}
	avg, err := e.deps.Prices.WeeklyAverage(ctx, now)
	if err != nil {
		e.log.Debugf("weekly average unavailable: %v", err)
		return reference
	}
	if avg > 0 {
		reference = avg
		e.mu.Lock()
		e.weeklyAvg = avg
		e.mu.Unlock()
	}
	return reference
}

// chargeRate returns the effective charge rate for planning, preferring
// the rate learned from session history over the rated one.
func (e *Engine) chargeRate(ctx context.Context, vehicleID string, ratedKW float64) float64 {
	if e.deps.Sessions == nil {
		return ratedKW
	}
	rate, err := session.LearnedRate(ctx, e.deps.Sessions, vehicleID, ratedKW)
	if err != nil {
		e.log.Warnf("learned rate for %s: %v", vehicleID, err)
		return ratedKW
	}
	return rate
}

func (e *Engine) loadSettings(ctx context.Context) settings.Settings {
	if e.deps.Settings == nil {
		return settings.Settings{}
	}
	prefs, err := e.deps.Settings.Load(ctx)
	if err != nil {
		e.log.Errorf("settings load failed, using defaults: %v", err)
		return settings.Settings{}
	}
	return prefs
}

func (e *Engine) guestSnapshot(resolved resolver.Result, now time.Time) model.VehicleSnapshot {
	dec := model.Decision{Action: model.ActionCharge, Reason: resolved.Reason}
	decisionsTotal.WithLabelValues(model.GuestID, dec.Action.String()).Inc()
	e.recordDecision(metrics.DecisionRecord{
		VehicleID: model.GuestID,
		Action:    dec.Action.String(),
		Reason:    dec.Reason,
		Time:      now,
	})
	return model.VehicleSnapshot{
		ID:        model.GuestID,
		Name:      "Guest",
		PluggedIn: true,
		Action:    dec.Action.String(),
		Reason:    dec.Reason,
	}
}

func (e *Engine) noteGrade(source string, g Grade, err error) {
	switch g {
	case Degraded:
		degradedReads.WithLabelValues(source).Inc()
		e.log.Warnf("%s read degraded to cached value: %v", source, err)
	case Failed:
		degradedReads.WithLabelValues(source).Inc()
		e.log.Errorf("%s read failed with no fallback: %v", source, err)
	}
}

func (e *Engine) recordDecision(rec metrics.DecisionRecord) {
	if r, ok := e.deps.Sink.(metrics.DecisionRecorder); ok {
		if err := r.RecordDecision(rec); err != nil {
			e.log.Warnf("record decision: %v", err)
		}
	}
}

func (e *Engine) recordActuation(rec metrics.ActuationRecord) {
	if r, ok := e.deps.Sink.(metrics.ActuationRecorder); ok {
		if err := r.RecordActuation(rec); err != nil {
			e.log.Warnf("record actuation: %v", err)
		}
	}
}

func (e *Engine) recordForecast(rec metrics.ForecastRecord) {
	if r, ok := e.deps.Sink.(metrics.ForecastRecorder); ok {
		if err := r.RecordForecast(rec); err != nil {
			e.log.Warnf("record forecast: %v", err)
		}
	}
}

func currentPrice(series []model.PriceSample, now time.Time) (float64, string) {
	if smp, ok := model.PriceAt(series, now); ok {
		return smp.Price, smp.Source.String()
	}
	return 0, ""
}

func currentTemp(weather []model.WeatherSample, now time.Time) float64 {
	hour := now.Truncate(time.Hour)
	for _, w := range weather {
		if w.Time.Truncate(time.Hour).Equal(hour) {
			return w.TempC
		}
	}
	return 0
}

func countSources(series []model.PriceSample) (official, synthetic int) {
	for _, smp := range series {
		if smp.Source == model.PriceOfficial {
			official++
		} else {
			synthetic++
		}
	}
	return official, synthetic
}
