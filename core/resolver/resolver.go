package resolver

import (
	"fmt"

	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/model"
)

// singlePhaseLine is the phase index (zero-based, L2) that single-phase
// vehicles draw on.
const singlePhaseLine = 1

// Candidate couples a vehicle's identity and wiring with its latest
// self-reported status.
type Candidate struct {
	ID     string
	Phases int // 1 or 3
	Status model.VehicleStatus
}

// Result names which identity may actuate the charger and why. ActiveID is
// a vehicle id, model.GuestID, or model.NoneID.
type Result struct {
	ActiveID string
	Reason   string
}

// Resolver disambiguates the active vehicle from charger telemetry and
// vehicle self-reports.
type Resolver struct {
	log logger.Logger
}

// New creates a Resolver.
func New(log logger.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve determines the active identity for one poll. The returned
// candidates are copies of the input; when the charger reports disconnected
// their PluggedIn flags are forced false, overriding stale cloud reports.
func (r *Resolver) Resolve(chg model.ChargerStatus, candidates []Candidate) ([]Candidate, Result) {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	if chg.Mode == model.ModeDisconnected {
		for i := range out {
			if out[i].Status.PluggedIn {
				r.log.Warnf("charger reports disconnected, forcing %s unplugged", out[i].ID)
				out[i].Status.PluggedIn = false
			}
		}
		return out, Result{ActiveID: model.NoneID, Reason: "charger disconnected"}
	}

	if chg.Drawing() {
		if c, ok := r.hypothesis(chg, out); ok {
			if c.Status.Charging {
				r.log.Infof("phase signature (%d active) confirmed by %s", chg.ActivePhases, c.ID)
				return out, Result{ActiveID: c.ID, Reason: fmt.Sprintf("%d-phase signature confirmed by vehicle", chg.ActivePhases)}
			}
			r.log.Infof("phase signature suggests %s but it reports not charging, treating as guest", c.ID)
			return out, Result{ActiveID: model.GuestID, Reason: "phase signature contradicted by vehicle"}
		}
		if c, ok := exclusive(out, func(c Candidate) bool { return c.Status.Charging }); ok {
			return out, Result{ActiveID: c.ID, Reason: "only vehicle reporting charging"}
		}
		return out, Result{ActiveID: model.GuestID, Reason: "drawing power with ambiguous identity"}
	}

	if chg.Mode.Connected() {
		if c, ok := exclusive(out, func(c Candidate) bool { return c.Status.PluggedIn }); ok {
			return out, Result{ActiveID: c.ID, Reason: "only vehicle reporting plugged in"}
		}
		r.log.Infof("charger connected but identity ambiguous, treating as guest to force identification")
		return out, Result{ActiveID: model.GuestID, Reason: "connected with ambiguous identity"}
	}

	return out, Result{ActiveID: model.NoneID, Reason: "no vehicle detected"}
}

// hypothesis maps the charger's phase signature to exactly one candidate.
func (r *Resolver) hypothesis(chg model.ChargerStatus, candidates []Candidate) (Candidate, bool) {
	var match func(Candidate) bool
	switch {
	case chg.ActivePhases >= 2:
		match = func(c Candidate) bool { return c.Phases >= 2 }
	case chg.ActivePhases == 1 && chg.PhaseMap[singlePhaseLine]:
		match = func(c Candidate) bool { return c.Phases == 1 }
	default:
		return Candidate{}, false
	}
	return exclusive(candidates, match)
}

// exclusive returns the single candidate satisfying pred, or false when
// zero or several do.
func exclusive(candidates []Candidate, pred func(Candidate) bool) (Candidate, bool) {
	var found Candidate
	n := 0
	for _, c := range candidates {
		if pred(c) {
			found = c
			n++
		}
	}
	return found, n == 1
}

// Gate returns the decision that may reach the charger for the given
// vehicle. Any identity other than the resolved one has its decision
// rewritten to Idle so a vehicle that cannot be the connected one never
// starts or sustains a charge.
func Gate(activeID, vehicleID string, d model.Decision) (model.Decision, bool) {
	if vehicleID == activeID {
		return d, false
	}
	if d.Action == model.ActionIdle {
		return d, false
	}
	gated := d
	gated.Action = model.ActionIdle
	gated.Reason = fmt.Sprintf("gated: active vehicle is %s", activeID)
	return gated, true
}
