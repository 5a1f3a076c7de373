package session

import (
	"context"
	"testing"
	"time"

	"github.com/laddvakt/laddvakt/core/model"
)

func storeWith(t *testing.T, sessions ...model.ChargingSession) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	for i := range sessions {
		if err := store.Insert(context.Background(), &sessions[i]); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return store
}

func closed(vehicleID string, start time.Time, d time.Duration, avgKW float64) model.ChargingSession {
	return model.ChargingSession{
		VehicleID:  vehicleID,
		StartTime:  start,
		EndTime:    start.Add(d),
		AvgPowerKW: avgKW,
	}
}

func TestLearnedRateAverages(t *testing.T) {
	store := storeWith(t,
		closed("eqv", base, time.Hour, 6.0),
		closed("eqv", base.Add(2*time.Hour), time.Hour, 8.0),
	)
	rate, err := LearnedRate(context.Background(), store, "eqv", 11)
	if err != nil {
		t.Fatalf("LearnedRate: %v", err)
	}
	if rate != 7.0 {
		t.Fatalf("rate = %v, want 7.0", rate)
	}
}

func TestLearnedRateClampsToRated(t *testing.T) {
	store := storeWith(t, closed("eqv", base, time.Hour, 14.0))
	rate, err := LearnedRate(context.Background(), store, "eqv", 11)
	if err != nil {
		t.Fatalf("LearnedRate: %v", err)
	}
	if rate != 11 {
		t.Fatalf("rate = %v, want clamp to rated 11", rate)
	}
}

func TestLearnedRateFloor(t *testing.T) {
	store := storeWith(t, closed("leaf", base, time.Hour, 0.4))
	rate, err := LearnedRate(context.Background(), store, "leaf", 3.6)
	if err != nil {
		t.Fatalf("LearnedRate: %v", err)
	}
	if rate != 1.0 {
		t.Fatalf("rate = %v, want floor 1.0", rate)
	}
}

func TestLearnedRateIgnoresShortSessions(t *testing.T) {
	store := storeWith(t,
		closed("eqv", base, 10*time.Minute, 2.0),
		closed("eqv", base.Add(time.Hour), time.Hour, 9.0),
	)
	rate, err := LearnedRate(context.Background(), store, "eqv", 11)
	if err != nil {
		t.Fatalf("LearnedRate: %v", err)
	}
	if rate != 9.0 {
		t.Fatalf("rate = %v, want 9.0 from the long session only", rate)
	}
}

func TestLearnedRateNoHistory(t *testing.T) {
	rate, err := LearnedRate(context.Background(), NewMemoryStore(), "eqv", 11)
	if err != nil {
		t.Fatalf("LearnedRate: %v", err)
	}
	if rate != 11 {
		t.Fatalf("rate = %v, want rated 11 with no history", rate)
	}
}
