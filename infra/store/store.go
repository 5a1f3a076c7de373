// Package store provides the SQLite persistence behind settings,
// overrides, sessions, forecast history, the status log and daily cost
// records. All repositories share one database file.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    doc TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS overrides (
    vehicle_id TEXT PRIMARY KEY,
    action INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    vehicle_id TEXT NOT NULL,
    start_time INTEGER NOT NULL,
    end_time INTEGER NOT NULL DEFAULT 0,
    energy_kwh REAL NOT NULL DEFAULT 0,
    cost_spot REAL NOT NULL DEFAULT 0,
    cost_grid REAL NOT NULL DEFAULT 0,
    start_soc INTEGER NOT NULL DEFAULT 0,
    end_soc INTEGER NOT NULL DEFAULT 0,
    start_odometer REAL NOT NULL DEFAULT 0,
    end_odometer REAL NOT NULL DEFAULT 0,
    last_soc INTEGER NOT NULL DEFAULT 0,
    last_odometer REAL NOT NULL DEFAULT 0,
    avg_power_kw REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_vehicle ON sessions(vehicle_id, start_time);
CREATE TABLE IF NOT EXISTS forecasts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    generated INTEGER NOT NULL,
    series TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS status_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER NOT NULL,
    vehicle_id TEXT NOT NULL,
    record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_status_log_ts ON status_log(ts);
CREATE TABLE IF NOT EXISTS daily_cost (
    vehicle_id TEXT,
    day INTEGER,
    energy_kwh REAL NOT NULL DEFAULT 0,
    cost_spot REAL NOT NULL DEFAULT 0,
    cost_grid REAL NOT NULL DEFAULT 0,
    sessions INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY(vehicle_id, day)
);
`

// DB wraps the shared SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// Settings returns the settings repository.
func (d *DB) Settings() *SettingsStore { return &SettingsStore{db: d.db} }

// Overrides returns the override repository.
func (d *DB) Overrides() *OverrideStore { return &OverrideStore{db: d.db} }

// Sessions returns the charging session repository.
func (d *DB) Sessions() *SessionStore { return &SessionStore{db: d.db} }

// Forecasts returns the forecast history repository.
func (d *DB) Forecasts() *ForecastStore { return &ForecastStore{db: d.db} }

// StatusLog returns the per-poll status log repository.
func (d *DB) StatusLog() *StatusLogStore { return &StatusLogStore{db: d.db} }

// Costs returns the daily cost repository.
func (d *DB) Costs() *CostStore { return &CostStore{db: d.db} }
