// Package vehiclestatus keeps the rolling per-poll log of vehicle state,
// the data behind the history endpoint and post-hoc debugging.
package vehiclestatus

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/laddvakt/laddvakt/core/model"
)

// Entry is one vehicle's state at one poll.
type Entry struct {
	Time      time.Time `json:"time"`
	VehicleID string    `json:"vehicle_id"`
	SoC       int       `json:"soc"`
	PluggedIn bool      `json:"plugged_in"`
	Charging  bool      `json:"charging"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	TargetSoC int       `json:"target_soc"`
	PriceKWh  float64   `json:"price_kwh"`
	PowerKW   float64   `json:"power_kw"`
}

// Query filters log reads. Zero times are open-ended, a zero limit is
// unlimited.
type Query struct {
	VehicleID string
	Start     time.Time
	End       time.Time
	Limit     int
}

// Store persists poll entries.
type Store interface {
	Append(ctx context.Context, entries []Entry) error
	// Query returns matching entries, oldest first.
	Query(ctx context.Context, q Query) ([]Entry, error)
	// Prune drops entries older than the cutoff.
	Prune(ctx context.Context, before time.Time) error
}

// FromSnapshot flattens a poll snapshot into one log entry per vehicle.
// Power is attributed to the active vehicle only.
func FromSnapshot(snap model.Snapshot) []Entry {
	out := make([]Entry, 0, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		e := Entry{
			Time:      snap.Time,
			VehicleID: v.ID,
			SoC:       v.SoC,
			PluggedIn: v.PluggedIn,
			Action:    v.Action,
			Reason:    v.Reason,
			TargetSoC: v.TargetSoC,
			PriceKWh:  snap.PriceSEK,
		}
		if v.ID == snap.ActiveVehicle {
			e.Charging = snap.Charger.PowerKW > 0
			e.PowerKW = snap.Charger.PowerKW
		}
		out = append(out, e)
	}
	return out
}

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds entries to the log.
func (s *MemoryStore) Append(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entries...)
	s.mu.Unlock()
	return nil
}

// Query returns matching entries, oldest first.
func (s *MemoryStore) Query(_ context.Context, q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if q.VehicleID != "" && e.VehicleID != q.VehicleID {
			continue
		}
		if !q.Start.IsZero() && e.Time.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && e.Time.After(q.End) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

// Prune drops entries older than the cutoff.
func (s *MemoryStore) Prune(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !e.Time.Before(before) {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}
