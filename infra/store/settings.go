package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/laddvakt/laddvakt/core/settings"
)

// SettingsStore persists user settings as a single JSON document.
type SettingsStore struct {
	db *sql.DB
}

// Load returns the stored settings, or empty settings when none were saved
// yet.
func (s *SettingsStore) Load(ctx context.Context) (settings.Settings, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM settings WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Settings{}, nil
	}
	if err != nil {
		return settings.Settings{}, err
	}
	var out settings.Settings
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return settings.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return out, nil
}

// Save replaces the stored settings.
func (s *SettingsStore) Save(ctx context.Context, set settings.Settings) error {
	b, err := json.Marshal(set)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (id, doc) VALUES (1, ?)
         ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, string(b))
	return err
}
