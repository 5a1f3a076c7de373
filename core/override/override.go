package override

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/laddvakt/laddvakt/core/logger"
	"github.com/laddvakt/laddvakt/core/model"
)

// DefaultDuration applies when a caller requests an override without a
// duration.
const DefaultDuration = time.Hour

// ClearAction is the pseudo action that removes an override instead of
// setting one.
const ClearAction = "auto"

// Store persists manual overrides. Implementations keep at most one record
// per vehicle; a second Set replaces the first.
type Store interface {
	Set(ctx context.Context, o model.Override) error
	Get(ctx context.Context, vehicleID string) (model.Override, bool, error)
	Clear(ctx context.Context, vehicleID string) error
	List(ctx context.Context) ([]model.Override, error)
}

// Manager applies override semantics on top of a Store: expired records
// read as absent and are dropped lazily, the "auto" action clears.
type Manager struct {
	store Store
	log   logger.Logger
}

// NewManager creates a Manager.
func NewManager(store Store, log logger.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// Active returns the unexpired override for the vehicle, or nil. Expired
// records are removed on read.
func (m *Manager) Active(ctx context.Context, vehicleID string) (*model.Override, error) {
	o, ok, err := m.store.Get(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("read override for %s: %w", vehicleID, err)
	}
	if !ok {
		return nil, nil
	}
	if o.Expired(time.Now()) {
		if err := m.store.Clear(ctx, vehicleID); err != nil {
			m.log.Warnf("dropping expired override for %s: %v", vehicleID, err)
		}
		return nil, nil
	}
	return &o, nil
}

// Force sets an override for the vehicle. A non-positive duration falls
// back to DefaultDuration.
func (m *Manager) Force(ctx context.Context, vehicleID string, action model.OverrideAction, d time.Duration) (model.Override, error) {
	if d <= 0 {
		d = DefaultDuration
	}
	o := model.Override{
		VehicleID: vehicleID,
		Action:    action,
		ExpiresAt: time.Now().Add(d),
	}
	if err := m.store.Set(ctx, o); err != nil {
		return model.Override{}, fmt.Errorf("set override for %s: %w", vehicleID, err)
	}
	m.log.Infof("override set: %s %s until %s", vehicleID, action, o.ExpiresAt.Format(time.RFC3339))
	return o, nil
}

// Clear removes any override for the vehicle.
func (m *Manager) Clear(ctx context.Context, vehicleID string) error {
	if err := m.store.Clear(ctx, vehicleID); err != nil {
		return fmt.Errorf("clear override for %s: %w", vehicleID, err)
	}
	m.log.Infof("override cleared: %s", vehicleID)
	return nil
}

// Apply interprets a user-supplied action name: "auto" clears, anything
// else parses to ForceCharge or ForceStop and sets the override. The
// returned pointer is nil when the action cleared.
func (m *Manager) Apply(ctx context.Context, vehicleID, action string, d time.Duration) (*model.Override, error) {
	if action == ClearAction {
		if err := m.Clear(ctx, vehicleID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	parsed, err := model.ParseOverrideAction(action)
	if err != nil {
		return nil, err
	}
	o, err := m.Force(ctx, vehicleID, parsed, d)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// All returns the unexpired overrides, sorted by vehicle id.
func (m *Manager) All(ctx context.Context) ([]model.Override, error) {
	list, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	now := time.Now()
	out := list[:0]
	for _, o := range list {
		if !o.Expired(now) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.Override
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.Override{}}
}

// Set stores or replaces the vehicle's override.
func (s *MemoryStore) Set(_ context.Context, o model.Override) error {
	s.mu.Lock()
	s.data[o.VehicleID] = o
	s.mu.Unlock()
	return nil
}

// Get returns the stored override and whether one exists.
func (s *MemoryStore) Get(_ context.Context, vehicleID string) (model.Override, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.data[vehicleID]
	return o, ok, nil
}

// Clear removes the vehicle's override.
func (s *MemoryStore) Clear(_ context.Context, vehicleID string) error {
	s.mu.Lock()
	delete(s.data, vehicleID)
	s.mu.Unlock()
	return nil
}

// List returns all stored overrides.
func (s *MemoryStore) List(_ context.Context) ([]model.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Override, 0, len(s.data))
	for _, o := range s.data {
		out = append(out, o)
	}
	return out, nil
}
