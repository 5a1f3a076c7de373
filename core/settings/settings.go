// Package settings holds the user-tunable charging preferences and the
// store they persist through.
package settings

import (
	"context"
	"sync"

	"github.com/laddvakt/laddvakt/core/model"
)

// Defaults applied when a vehicle has no stored settings.
const (
	DefaultMinSoC = 50
	DefaultMaxSoC = 80
)

// VehicleSettings configures one vehicle's charging goals.
type VehicleSettings struct {
	VehicleID string           `json:"vehicle_id"`
	Band      model.TargetBand `json:"band"`
	// Departure is a "15:04" wall clock; empty uses the scheduler default.
	Departure string `json:"departure,omitempty"`
	TopUp     bool   `json:"top_up"`
}

// Settings is the complete user configuration.
type Settings struct {
	Vehicles map[string]VehicleSettings `json:"vehicles"`
}

// ForVehicle returns the vehicle's settings, defaulted where unset.
func (s Settings) ForVehicle(id string) VehicleSettings {
	v, ok := s.Vehicles[id]
	if !ok {
		v = VehicleSettings{}
	}
	v.VehicleID = id
	if !v.Band.Valid() {
		v.Band = model.TargetBand{MinSoC: DefaultMinSoC, MaxSoC: DefaultMaxSoC}
	}
	return v
}

// Put stores the vehicle's settings, allocating the map when needed.
func (s *Settings) Put(v VehicleSettings) {
	if s.Vehicles == nil {
		s.Vehicles = map[string]VehicleSettings{}
	}
	s.Vehicles[v.VehicleID] = v
}

// Store persists user settings.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu sync.RWMutex
	s  Settings
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored settings.
func (m *MemoryStore) Load(_ context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Settings{Vehicles: make(map[string]VehicleSettings, len(m.s.Vehicles))}
	for k, v := range m.s.Vehicles {
		out.Vehicles[k] = v
	}
	return out, nil
}

// Save replaces the stored settings.
func (m *MemoryStore) Save(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}
