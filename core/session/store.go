package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/laddvakt/laddvakt/core/model"
)

// Store persists charging sessions.
type Store interface {
	// Insert stores a new session, assigning an id when empty.
	Insert(ctx context.Context, s *model.ChargingSession) error
	// Update replaces the stored row matching s.ID.
	Update(ctx context.Context, s model.ChargingSession) error
	// OpenSession returns the session without an end time, if one exists.
	OpenSession(ctx context.Context) (model.ChargingSession, bool, error)
	// Recent returns the vehicle's closed sessions, newest first.
	Recent(ctx context.Context, vehicleID string, limit int) ([]model.ChargingSession, error)
	// List returns sessions started at or after since, oldest first.
	List(ctx context.Context, since time.Time) ([]model.ChargingSession, error)
}

// MemoryStore is an in-memory Store for tests and the simulator.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions []model.ChargingSession
	index    map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: map[string]int{}}
}

// Insert stores a new session.
func (s *MemoryStore) Insert(_ context.Context, sess *model.ChargingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if _, exists := s.index[sess.ID]; exists {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.index[sess.ID] = len(s.sessions)
	s.sessions = append(s.sessions, *sess)
	return nil
}

// Update replaces the stored row.
func (s *MemoryStore) Update(_ context.Context, sess model.ChargingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[sess.ID]
	if !ok {
		return fmt.Errorf("session %s not found", sess.ID)
	}
	s.sessions[i] = sess
	return nil
}

// OpenSession returns the open session, if any.
func (s *MemoryStore) OpenSession(_ context.Context) (model.ChargingSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.sessions) - 1; i >= 0; i-- {
		if s.sessions[i].Open() {
			return s.sessions[i], true, nil
		}
	}
	return model.ChargingSession{}, false, nil
}

// Recent returns the vehicle's closed sessions, newest first.
func (s *MemoryStore) Recent(_ context.Context, vehicleID string, limit int) ([]model.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChargingSession
	for _, sess := range s.sessions {
		if sess.VehicleID == vehicleID && !sess.Open() {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns sessions started at or after since, oldest first.
func (s *MemoryStore) List(_ context.Context, since time.Time) ([]model.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChargingSession
	for _, sess := range s.sessions {
		if !sess.StartTime.Before(since) {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}
