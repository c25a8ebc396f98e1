package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
)

// SetSetting upserts one key-value setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("setting key must not be empty")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return storageErr("set setting", err)
	}
	return nil
}

// GetSetting returns the value for key, or fallback when the key is absent.
func (s *Store) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	ctx = ensureContext(ctx)
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", storageErr("get setting", err)
	}
	return value, nil
}

// GetSettingInt returns an integer setting, or fallback when absent or
// unparsable.
func (s *Store) GetSettingInt(ctx context.Context, key string, fallback int) (int, error) {
	raw, err := s.GetSetting(ctx, key, "")
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, nil
	}
	return parsed, nil
}
