package store

import (
	"database/sql"
	"time"

	"github.com/laddvakt/laddvakt/core/metrics/cost"
)

// CostStore persists daily per-vehicle cost aggregates.
type CostStore struct {
	db *sql.DB
}

// Reset drops all aggregates, ahead of a rebuild from stored sessions.
func (s *CostStore) Reset() error {
	_, err := s.db.Exec(`DELETE FROM daily_cost`)
	return err
}

// Add merges the record into the vehicle's daily aggregate.
func (s *CostStore) Add(r cost.Record) error {
	d := cost.Day(r.Date)
	_, err := s.db.Exec(`INSERT INTO daily_cost (vehicle_id, day, energy_kwh, cost_spot, cost_grid, sessions)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(vehicle_id, day) DO UPDATE SET
            energy_kwh = energy_kwh + excluded.energy_kwh,
            cost_spot = cost_spot + excluded.cost_spot,
            cost_grid = cost_grid + excluded.cost_grid,
            sessions = sessions + excluded.sessions`,
		r.VehicleID, d.Unix(), r.EnergyKWh, r.CostSpot, r.CostGrid, r.Sessions)
	return err
}

// Query returns records in the range [start,end], oldest first.
func (s *CostStore) Query(vehicleID string, start, end time.Time) ([]cost.Record, error) {
	start = cost.Day(start)
	end = cost.Day(end)
	rows, err := s.db.Query(`SELECT vehicle_id, day, energy_kwh, cost_spot, cost_grid, sessions
        FROM daily_cost WHERE vehicle_id = ? AND day >= ? AND day <= ? ORDER BY day`,
		vehicleID, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []cost.Record
	for rows.Next() {
		var r cost.Record
		var ts int64
		if err := rows.Scan(&r.VehicleID, &ts, &r.EnergyKWh, &r.CostSpot, &r.CostGrid, &r.Sessions); err != nil {
			return nil, err
		}
		r.Date = time.Unix(ts, 0).UTC()
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
