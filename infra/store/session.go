package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/laddvakt/laddvakt/core/model"
)

// SessionStore persists charging sessions.
type SessionStore struct {
	db *sql.DB
}

const sessionColumns = `id, vehicle_id, start_time, end_time, energy_kwh,
    cost_spot, cost_grid, start_soc, end_soc, start_odometer, end_odometer,
    last_soc, last_odometer, avg_power_kw`

// Insert stores a new session, assigning an id when empty.
func (s *SessionStore) Insert(ctx context.Context, sess *model.ChargingSession) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.VehicleID, sess.StartTime.Unix(), unixOrZero(sess.EndTime),
		sess.EnergyKWh, sess.CostSpot, sess.CostGrid,
		sess.StartSoC, sess.EndSoC, sess.StartOdometer, sess.EndOdometer,
		sess.LastSoC, sess.LastOdometer, sess.AvgPowerKW)
	return err
}

// Update replaces the stored row matching the session id.
func (s *SessionStore) Update(ctx context.Context, sess model.ChargingSession) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET vehicle_id = ?, start_time = ?, end_time = ?,
             energy_kwh = ?, cost_spot = ?, cost_grid = ?,
             start_soc = ?, end_soc = ?, start_odometer = ?, end_odometer = ?,
             last_soc = ?, last_odometer = ?, avg_power_kw = ?
         WHERE id = ?`,
		sess.VehicleID, sess.StartTime.Unix(), unixOrZero(sess.EndTime),
		sess.EnergyKWh, sess.CostSpot, sess.CostGrid,
		sess.StartSoC, sess.EndSoC, sess.StartOdometer, sess.EndOdometer,
		sess.LastSoC, sess.LastOdometer, sess.AvgPowerKW, sess.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("session " + sess.ID + " not found")
	}
	return nil
}

// OpenSession returns the session without an end time, if one exists.
func (s *SessionStore) OpenSession(ctx context.Context) (model.ChargingSession, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
         WHERE end_time = 0 ORDER BY start_time DESC LIMIT 1`)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ChargingSession{}, false, nil
	}
	if err != nil {
		return model.ChargingSession{}, false, err
	}
	return sess, true, nil
}

// Recent returns the vehicle's closed sessions, newest first.
func (s *SessionStore) Recent(ctx context.Context, vehicleID string, limit int) ([]model.ChargingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
         WHERE vehicle_id = ? AND end_time <> 0 ORDER BY start_time DESC`
	args := []any{vehicleID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// List returns sessions started at or after since, oldest first.
func (s *SessionStore) List(ctx context.Context, since time.Time) ([]model.ChargingSession, error) {
	return s.query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
         WHERE start_time >= ? ORDER BY start_time`, since.Unix())
}

func (s *SessionStore) query(ctx context.Context, query string, args ...any) ([]model.ChargingSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.ChargingSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (model.ChargingSession, error) {
	var sess model.ChargingSession
	var start, end int64
	err := row.Scan(&sess.ID, &sess.VehicleID, &start, &end,
		&sess.EnergyKWh, &sess.CostSpot, &sess.CostGrid,
		&sess.StartSoC, &sess.EndSoC, &sess.StartOdometer, &sess.EndOdometer,
		&sess.LastSoC, &sess.LastOdometer, &sess.AvgPowerKW)
	if err != nil {
		return model.ChargingSession{}, err
	}
	sess.StartTime = time.Unix(start, 0).UTC()
	sess.EndTime = timeOrZero(end)
	return sess, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
