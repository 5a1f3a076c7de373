package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/laddvakt/laddvakt/core/model"
)

// StoredForecast is one persisted synthesizer run.
type StoredForecast struct {
	Generated time.Time
	Series    []model.PriceSample
}

// HistoryStore persists generated forecasts so later official prices can
// grade them.
type HistoryStore interface {
	SaveForecast(ctx context.Context, generated time.Time, series []model.PriceSample) error
	// Forecasts returns stored runs generated at or after since.
	Forecasts(ctx context.Context, since time.Time) ([]StoredForecast, error)
	// Prune drops runs generated before the cutoff.
	Prune(ctx context.Context, before time.Time) error
}

// MemoryHistory is an in-memory HistoryStore for tests and ephemeral runs.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []StoredForecast
}

// NewMemoryHistory creates an empty MemoryHistory.
func NewMemoryHistory() *MemoryHistory { return &MemoryHistory{} }

// SaveForecast appends a run.
func (m *MemoryHistory) SaveForecast(_ context.Context, generated time.Time, series []model.PriceSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]model.PriceSample, len(series))
	copy(cp, series)
	m.entries = append(m.entries, StoredForecast{Generated: generated, Series: cp})
	return nil
}

// Forecasts returns runs generated at or after since.
func (m *MemoryHistory) Forecasts(_ context.Context, since time.Time) ([]StoredForecast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StoredForecast
	for _, e := range m.entries {
		if !e.Generated.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Prune drops runs generated before the cutoff.
func (m *MemoryHistory) Prune(_ context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if !e.Generated.Before(before) {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}
