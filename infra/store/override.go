package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/laddvakt/laddvakt/core/model"
)

// OverrideStore persists manual overrides, one row per vehicle.
type OverrideStore struct {
	db *sql.DB
}

// Set stores or replaces the vehicle's override.
func (s *OverrideStore) Set(ctx context.Context, o model.Override) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO overrides (vehicle_id, action, expires_at) VALUES (?, ?, ?)
         ON CONFLICT(vehicle_id) DO UPDATE SET
             action = excluded.action,
             expires_at = excluded.expires_at`,
		o.VehicleID, int(o.Action), o.ExpiresAt.Unix())
	return err
}

// Get returns the stored override and whether one exists.
func (s *OverrideStore) Get(ctx context.Context, vehicleID string) (model.Override, bool, error) {
	var action int
	var expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT action, expires_at FROM overrides WHERE vehicle_id = ?`, vehicleID).
		Scan(&action, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Override{}, false, nil
	}
	if err != nil {
		return model.Override{}, false, err
	}
	return model.Override{
		VehicleID: vehicleID,
		Action:    model.OverrideAction(action),
		ExpiresAt: time.Unix(expires, 0).UTC(),
	}, true, nil
}

// Clear removes the vehicle's override.
func (s *OverrideStore) Clear(ctx context.Context, vehicleID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM overrides WHERE vehicle_id = ?`, vehicleID)
	return err
}

// List returns all stored overrides.
func (s *OverrideStore) List(ctx context.Context) ([]model.Override, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vehicle_id, action, expires_at FROM overrides`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Override
	for rows.Next() {
		var id string
		var action int
		var expires int64
		if err := rows.Scan(&id, &action, &expires); err != nil {
			return nil, err
		}
		out = append(out, model.Override{
			VehicleID: id,
			Action:    model.OverrideAction(action),
			ExpiresAt: time.Unix(expires, 0).UTC(),
		})
	}
	return out, rows.Err()
}
