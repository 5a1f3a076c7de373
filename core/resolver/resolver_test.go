package resolver

import (
	"testing"

	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/infra/logger"
)

func newResolver() *Resolver {
	return New(logger.NopLogger{})
}

func candidates(multi, single model.VehicleStatus) []Candidate {
	return []Candidate{
		{ID: "eqv", Phases: 3, Status: multi},
		{ID: "leaf", Phases: 1, Status: single},
	}
}

func drawing(phases int, phaseMap [3]bool) model.ChargerStatus {
	return model.ChargerStatus{
		Mode:         model.ModeCharging,
		ModeCode:     3,
		PowerKW:      7.2,
		Charging:     true,
		ActivePhases: phases,
		PhaseMap:     phaseMap,
	}
}

func TestDisconnectedForcesUnplugged(t *testing.T) {
	r := newResolver()
	chg := model.ChargerStatus{Mode: model.ModeDisconnected, ModeCode: 1}
	cands := candidates(
		model.VehicleStatus{PluggedIn: true, SoC: 50},
		model.VehicleStatus{PluggedIn: true, SoC: 60},
	)

	out, res := r.Resolve(chg, cands)
	if res.ActiveID != model.NoneID {
		t.Fatalf("expected none, got %s", res.ActiveID)
	}
	for _, c := range out {
		if c.Status.PluggedIn {
			t.Fatalf("expected %s forced unplugged", c.ID)
		}
	}
	if cands[0].Status.PluggedIn != true {
		t.Fatal("input candidates must not be mutated")
	}
}

func TestConnectedWaitingKeepsPlugWithoutCurrent(t *testing.T) {
	r := newResolver()
	// No current flows while the charger waits, so the phase count is
	// zero. That must not be mistaken for a disconnect.
	chg := model.ChargerStatus{Mode: model.ModeConnectedWaiting, ModeCode: 2, ActivePhases: 0}
	out, res := r.Resolve(chg, candidates(
		model.VehicleStatus{PluggedIn: true},
		model.VehicleStatus{},
	))
	if res.ActiveID != "eqv" {
		t.Fatalf("expected eqv, got %s", res.ActiveID)
	}
	if !out[0].Status.PluggedIn {
		t.Fatal("plug state must survive a waiting charger")
	}
}

func TestThreePhaseSignatureConfirmed(t *testing.T) {
	r := newResolver()
	chg := drawing(3, [3]bool{true, true, true})
	_, res := r.Resolve(chg, candidates(
		model.VehicleStatus{PluggedIn: true, Charging: true},
		model.VehicleStatus{},
	))
	if res.ActiveID != "eqv" {
		t.Fatalf("expected eqv, got %s (%s)", res.ActiveID, res.Reason)
	}
}

func TestThreePhaseSignatureContradictedIsGuest(t *testing.T) {
	r := newResolver()
	chg := drawing(3, [3]bool{true, true, true})
	_, res := r.Resolve(chg, candidates(
		model.VehicleStatus{PluggedIn: true, Charging: false},
		model.VehicleStatus{Charging: true},
	))
	if res.ActiveID != model.GuestID {
		t.Fatalf("expected guest when signature vehicle denies charging, got %s", res.ActiveID)
	}
}

func TestSinglePhaseOnL2Confirmed(t *testing.T) {
	r := newResolver()
	chg := drawing(1, [3]bool{false, true, false})
	_, res := r.Resolve(chg, candidates(
		model.VehicleStatus{},
		model.VehicleStatus{PluggedIn: true, Charging: true},
	))
	if res.ActiveID != "leaf" {
		t.Fatalf("expected leaf, got %s (%s)", res.ActiveID, res.Reason)
	}
}

func TestSinglePhaseOffL2FallsBackToReports(t *testing.T) {
	r := newResolver()
	chg := drawing(1, [3]bool{true, false, false})
	_, res := r.Resolve(chg, candidates(
		model.VehicleStatus{Charging: true},
		model.VehicleStatus{},
	))
	if res.ActiveID != "eqv" {
		t.Fatalf("expected exclusive charging report to decide, got %s", res.ActiveID)
	}
}

func TestAmbiguousDrawIsGuest(t *testing.T) {
	r := newResolver()
	chg := drawing(1, [3]bool{true, false, false})
	_, res := r.Resolve(chg, candidates(
		model.VehicleStatus{Charging: true},
		model.VehicleStatus{Charging: true},
	))
	if res.ActiveID != model.GuestID {
		t.Fatalf("expected guest on conflicting charging reports, got %s", res.ActiveID)
	}
}

func TestConnectedExclusivePlugResolves(t *testing.T) {
	r := newResolver()
	chg := model.ChargerStatus{Mode: model.ModeConnectedWaiting, ModeCode: 2, ActivePhases: 1, PhaseMap: [3]bool{false, true, false}}
	_, res := r.Resolve(chg, candidates(
		model.VehicleStatus{},
		model.VehicleStatus{PluggedIn: true},
	))
	if res.ActiveID != "leaf" {
		t.Fatalf("expected leaf via exclusive plug report, got %s", res.ActiveID)
	}
}

func TestConnectedBothPluggedIsGuest(t *testing.T) {
	r := newResolver()
	chg := model.ChargerStatus{Mode: model.ModeChargeDone, ModeCode: 5, ActivePhases: 2, PhaseMap: [3]bool{true, true, false}}
	_, res := r.Resolve(chg, candidates(
		model.VehicleStatus{PluggedIn: true},
		model.VehicleStatus{PluggedIn: true},
	))
	if res.ActiveID != model.GuestID {
		t.Fatalf("expected guest on ambiguous plug reports, got %s", res.ActiveID)
	}
}

func TestUnknownModeResolvesNone(t *testing.T) {
	r := newResolver()
	chg := model.ChargerStatus{Mode: model.ModeUnknown, ActivePhases: 1, PhaseMap: [3]bool{true, false, false}}
	_, res := r.Resolve(chg, candidates(model.VehicleStatus{}, model.VehicleStatus{}))
	if res.ActiveID != model.NoneID {
		t.Fatalf("expected none, got %s", res.ActiveID)
	}
}

func TestGateIdlesOtherVehicles(t *testing.T) {
	charge := model.Decision{Action: model.ActionCharge, Reason: "among 4 cheapest hours in horizon", Mode: "Balanced"}

	kept, gated := Gate("eqv", "eqv", charge)
	if gated || kept.Action != model.ActionCharge {
		t.Fatalf("active vehicle's decision must pass through, got %+v gated=%v", kept, gated)
	}

	rewritten, gated := Gate("eqv", "leaf", charge)
	if !gated || rewritten.Action != model.ActionIdle {
		t.Fatalf("non-active charge must be idled, got %+v gated=%v", rewritten, gated)
	}
	if rewritten.Mode != "Balanced" {
		t.Fatalf("gating must preserve diagnostic mode, got %s", rewritten.Mode)
	}

	idle := model.Decision{Action: model.ActionIdle, Reason: "target 80% reached"}
	same, gated := Gate("eqv", "leaf", idle)
	if gated || same.Reason != idle.Reason {
		t.Fatalf("idle decisions pass untouched, got %+v gated=%v", same, gated)
	}
}
