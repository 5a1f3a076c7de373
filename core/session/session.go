// Package session tracks charging sessions: lifecycle, per-poll energy and
// cost accumulation, and the one-time guest-to-vehicle reassignment that
// happens once identity resolves.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/laddvakt/laddvakt/core/events"
	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/model"
)

// Lifecycle states.
const (
	StateIdle     = "idle"
	StateCharging = "charging"
)

// Lifecycle events.
const (
	EventStartCharge = "start_charge"
	EventStopCharge  = "stop_charge"
)

// MinAvgPowerDuration is the shortest session that gets an average power at
// close. Shorter sessions report zero.
const MinAvgPowerDuration = 5 * time.Minute

// Config tunes the accountant.
type Config struct {
	// TicksPerHour converts instantaneous power to per-poll energy.
	// 60 matches a one-minute poll interval.
	TicksPerHour float64 `json:"ticks_per_hour"`
	// GridFeePerKWh is the fixed grid cost per kWh, VAT included.
	GridFeePerKWh float64 `json:"grid_fee_per_kwh"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.TicksPerHour <= 0 {
		c.TicksPerHour = 60
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TicksPerHour <= 0 {
		return fmt.Errorf("ticks_per_hour must be positive")
	}
	if c.GridFeePerKWh < 0 {
		return fmt.Errorf("grid_fee_per_kwh must not be negative")
	}
	return nil
}

// Reading is one poll's worth of charging facts for the resolved identity.
type Reading struct {
	ActiveID string  // resolved identity, may be model.GuestID or model.NoneID
	Charging bool    // charger is delivering power
	PowerKW  float64 // instantaneous power at the charger
	PriceKWh float64 // current spot price incl VAT

	// Status is the resolved vehicle's self-report, zero-valued for guest
	// and none identities.
	Status model.VehicleStatus

	Now time.Time
}

// Accountant owns the single charging session of the shared charger. Tick
// is called once per poll and opens, updates or closes the session as the
// charger's draw and the resolved identity change. The accountant is not
// safe for concurrent use; the poll loop is its only caller.
type Accountant struct {
	log    logger.Logger
	store  Store
	cfg    Config
	fsm    *fsm.FSM
	open   *model.ChargingSession
	notify func(events.SessionEvent)
}

// New creates an Accountant in the idle state.
func New(store Store, cfg Config, log logger.Logger) *Accountant {
	cfg.SetDefaults()
	a := &Accountant{log: log, store: store, cfg: cfg}
	a.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventStartCharge, Src: []string{StateIdle}, Dst: StateCharging},
			{Name: EventStopCharge, Src: []string{StateCharging}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				a.log.Debugf("session state %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return a
}

// Notify registers a callback invoked on session open, update and close.
func (a *Accountant) Notify(fn func(events.SessionEvent)) {
	a.notify = fn
}

// State returns StateIdle or StateCharging.
func (a *Accountant) State() string {
	return a.fsm.Current()
}

// Current returns a copy of the open session, if any.
func (a *Accountant) Current() (model.ChargingSession, bool) {
	if a.open == nil {
		return model.ChargingSession{}, false
	}
	return *a.open, true
}

// Resume reloads a session left open by a previous run so accumulation
// continues across restarts.
func (a *Accountant) Resume(ctx context.Context) error {
	s, ok, err := a.store.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("load open session: %w", err)
	}
	if !ok {
		return nil
	}
	a.open = &s
	a.fsm.SetState(StateCharging)
	a.log.Infof("resumed open session %s for %s, %.2f kWh so far", s.ID, s.VehicleID, s.EnergyKWh)
	return nil
}

// Tick advances the accountant by one poll.
func (a *Accountant) Tick(ctx context.Context, r Reading) error {
	chargingNow := r.Charging && r.ActiveID != "" && r.ActiveID != model.NoneID
	switch {
	case chargingNow && a.open == nil:
		return a.openSession(ctx, r)
	case chargingNow:
		return a.updateSession(ctx, r)
	case !r.Charging && a.open != nil:
		return a.closeSession(ctx, r)
	}
	return nil
}

func (a *Accountant) openSession(ctx context.Context, r Reading) error {
	if err := a.fsm.Event(ctx, EventStartCharge); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	s := &model.ChargingSession{
		ID:            uuid.NewString(),
		VehicleID:     r.ActiveID,
		StartTime:     r.Now,
		StartSoC:      r.Status.SoC,
		StartOdometer: r.Status.OdometerKM,
		LastSoC:       r.Status.SoC,
		LastOdometer:  r.Status.OdometerKM,
	}
	if err := a.store.Insert(ctx, s); err != nil {
		a.fsm.SetState(StateIdle)
		return fmt.Errorf("insert session: %w", err)
	}
	a.open = s
	a.log.Infof("session %s started for %s at %d%% SoC", s.ID, s.VehicleID, s.StartSoC)
	a.emit(events.SessionOpened, *s)
	return nil
}

func (a *Accountant) updateSession(ctx context.Context, r Reading) error {
	s := a.open
	if s.VehicleID == model.GuestID && r.ActiveID != model.GuestID {
		a.log.Infof("session %s reassigned from guest to %s", s.ID, r.ActiveID)
		s.VehicleID = r.ActiveID
	}

	delta := r.PowerKW / a.cfg.TicksPerHour
	costGrid := delta * a.cfg.GridFeePerKWh
	costSpot := delta*r.PriceKWh - costGrid
	s.EnergyKWh += delta
	s.CostGrid += costGrid
	s.CostSpot += costSpot

	if r.Status.SoC > 0 {
		s.LastSoC = r.Status.SoC
	}
	if r.Status.OdometerKM > 0 {
		s.LastOdometer = r.Status.OdometerKM
	}

	if err := a.store.Update(ctx, *s); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	a.emit(events.SessionUpdated, *s)
	return nil
}

func (a *Accountant) closeSession(ctx context.Context, r Reading) error {
	s := a.open
	s.EndTime = r.Now
	s.EndSoC = firstPositiveInt(r.Status.SoC, s.LastSoC, s.StartSoC)
	s.EndOdometer = firstPositive(r.Status.OdometerKM, s.LastOdometer, s.StartOdometer)
	if elapsed := s.EndTime.Sub(s.StartTime); elapsed >= MinAvgPowerDuration {
		s.AvgPowerKW = s.EnergyKWh / elapsed.Hours()
	}

	if err := a.store.Update(ctx, *s); err != nil {
		return fmt.Errorf("close session %s: %w", s.ID, err)
	}
	a.open = nil
	if err := a.fsm.Event(ctx, EventStopCharge); err != nil {
		a.log.Warnf("session state: %v", err)
	}
	a.log.Infof("session %s closed: %.2f kWh, %.2f SEK", s.ID, s.EnergyKWh, s.TotalCost())
	a.emit(events.SessionClosed, *s)
	return nil
}

func (a *Accountant) emit(phase events.SessionPhase, s model.ChargingSession) {
	if a.notify != nil {
		a.notify(events.SessionEvent{Phase: phase, Session: s})
	}
}

func firstPositiveInt(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
