package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/laddvakt/laddvakt/core/vehiclestatus"
)

// StatusLogStore persists per-poll vehicle state entries.
type StatusLogStore struct {
	db *sql.DB
}

// Append writes one poll's entries in a single transaction.
func (s *StatusLogStore) Append(ctx context.Context, entries []vehiclestatus.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO status_log (ts, vehicle_id, record) VALUES (?, ?, ?)`,
			e.Time.Unix(), e.VehicleID, string(b)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Query returns matching entries, oldest first. A positive limit keeps the
// newest entries.
func (s *StatusLogStore) Query(ctx context.Context, q vehiclestatus.Query) ([]vehiclestatus.Entry, error) {
	query := `SELECT record FROM status_log WHERE 1=1`
	var args []any
	if q.VehicleID != "" {
		query += ` AND vehicle_id = ?`
		args = append(args, q.VehicleID)
	}
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.Unix())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.Unix())
	}
	query += ` ORDER BY ts DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []vehiclestatus.Entry
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var e vehiclestatus.Entry
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return nil, fmt.Errorf("unmarshal status entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse to oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Prune drops entries older than the cutoff.
func (s *StatusLogStore) Prune(ctx context.Context, before time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM status_log WHERE ts < ?`, before.Unix())
	return err
}
