package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/laddvakt/laddvakt/core/forecast"
	"github.com/laddvakt/laddvakt/core/model"
)

// ForecastStore persists synthesizer runs so later official prices can
// grade them.
type ForecastStore struct {
	db *sql.DB
}

// SaveForecast appends a run.
func (s *ForecastStore) SaveForecast(ctx context.Context, generated time.Time, series []model.PriceSample) error {
	b, err := json.Marshal(series)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO forecasts (generated, series) VALUES (?, ?)`,
		generated.Unix(), string(b))
	return err
}

// Forecasts returns stored runs generated at or after since, oldest first.
func (s *ForecastStore) Forecasts(ctx context.Context, since time.Time) ([]forecast.StoredForecast, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT generated, series FROM forecasts
         WHERE generated >= ? ORDER BY generated`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []forecast.StoredForecast
	for rows.Next() {
		var ts int64
		var doc string
		if err := rows.Scan(&ts, &doc); err != nil {
			return nil, err
		}
		var series []model.PriceSample
		if err := json.Unmarshal([]byte(doc), &series); err != nil {
			return nil, fmt.Errorf("unmarshal forecast series: %w", err)
		}
		out = append(out, forecast.StoredForecast{
			Generated: time.Unix(ts, 0).UTC(),
			Series:    series,
		})
	}
	return out, rows.Err()
}

// Prune drops runs generated before the cutoff.
func (s *ForecastStore) Prune(ctx context.Context, before time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM forecasts WHERE generated < ?`, before.Unix())
	return err
}
