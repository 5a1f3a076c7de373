package override

import (
	"context"
	"testing"
	"time"

	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/infra/logger"
)

func newManager() *Manager {
	return NewManager(NewMemoryStore(), logger.NopLogger{})
}

func TestForceAndActive(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	o, err := m.Force(ctx, "polestar", model.ForceCharge, 30*time.Minute)
	if err != nil {
		t.Fatalf("Force: %v", err)
	}
	if o.Action != model.ForceCharge {
		t.Fatalf("expected ForceCharge, got %v", o.Action)
	}

	got, err := m.Active(ctx, "polestar")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if got == nil || got.Action != model.ForceCharge {
		t.Fatalf("expected active ForceCharge, got %+v", got)
	}
}

func TestActiveFiltersExpired(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, logger.NopLogger{})
	ctx := context.Background()

	expired := model.Override{
		VehicleID: "polestar",
		Action:    model.ForceStop,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := store.Set(ctx, expired); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := m.Active(ctx, "polestar")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired override to read as absent, got %+v", got)
	}
	if _, ok, _ := store.Get(ctx, "polestar"); ok {
		t.Fatal("expected expired override to be dropped from the store")
	}
}

func TestForceDefaultDuration(t *testing.T) {
	m := newManager()

	o, err := m.Force(context.Background(), "leaf", model.ForceStop, 0)
	if err != nil {
		t.Fatalf("Force: %v", err)
	}
	left := time.Until(o.ExpiresAt)
	if left < 55*time.Minute || left > 65*time.Minute {
		t.Fatalf("expected roughly one hour of validity, got %v", left)
	}
}

func TestApplyAutoClears(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	if _, err := m.Force(ctx, "polestar", model.ForceCharge, time.Hour); err != nil {
		t.Fatalf("Force: %v", err)
	}
	o, err := m.Apply(ctx, "polestar", "auto", 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if o != nil {
		t.Fatalf("expected nil override after auto, got %+v", o)
	}
	got, err := m.Active(ctx, "polestar")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no active override after auto, got %+v", got)
	}
}

func TestApplyRejectsUnknownAction(t *testing.T) {
	m := newManager()
	if _, err := m.Apply(context.Background(), "polestar", "boost", 0); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestApplyReplacesPrevious(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	if _, err := m.Apply(ctx, "polestar", "charge", time.Hour); err != nil {
		t.Fatalf("Apply charge: %v", err)
	}
	if _, err := m.Apply(ctx, "polestar", "stop", time.Hour); err != nil {
		t.Fatalf("Apply stop: %v", err)
	}

	got, err := m.Active(ctx, "polestar")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if got == nil || got.Action != model.ForceStop {
		t.Fatalf("expected ForceStop to replace ForceCharge, got %+v", got)
	}
}

func TestAllSortsAndFilters(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, logger.NopLogger{})
	ctx := context.Background()

	now := time.Now()
	for _, o := range []model.Override{
		{VehicleID: "zoe", Action: model.ForceCharge, ExpiresAt: now.Add(time.Hour)},
		{VehicleID: "leaf", Action: model.ForceStop, ExpiresAt: now.Add(time.Hour)},
		{VehicleID: "gone", Action: model.ForceCharge, ExpiresAt: now.Add(-time.Hour)},
	} {
		if err := store.Set(ctx, o); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	all, err := m.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 unexpired overrides, got %d", len(all))
	}
	if all[0].VehicleID != "leaf" || all[1].VehicleID != "zoe" {
		t.Fatalf("expected sorted order leaf, zoe; got %s, %s", all[0].VehicleID, all[1].VehicleID)
	}
}
