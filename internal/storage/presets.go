package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/service"
)

// SavePreset stores a filter descriptor under a name, replacing any
// existing preset with the same name.
func (s *SQLiteStorage) SavePreset(ctx context.Context, name, params string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("preset name is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO filter_presets (name, params) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET params = excluded.params
	`, name, params)
	if err != nil {
		return fmt.Errorf("failed to save preset %q: %w", name, err)
	}
	return nil
}

// GetPreset loads one preset by name.
func (s *SQLiteStorage) GetPreset(ctx context.Context, name string) (*service.FilterPreset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var preset service.FilterPreset
	err := s.db.QueryRowContext(ctx, `
		SELECT name, params, created_at FROM filter_presets WHERE name = ?
	`, name).Scan(&preset.Name, &preset.Params, &preset.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("preset %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preset %q: %w", name, err)
	}

	return &preset, nil
}

// ListPresets returns all saved presets, newest first.
func (s *SQLiteStorage) ListPresets(ctx context.Context) ([]service.FilterPreset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, params, created_at FROM filter_presets ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var presets []service.FilterPreset
	for rows.Next() {
		var preset service.FilterPreset
		if err := rows.Scan(&preset.Name, &preset.Params, &preset.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		presets = append(presets, preset)
	}

	return presets, rows.Err()
}

// DeletePreset removes one preset by name.
func (s *SQLiteStorage) DeletePreset(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM filter_presets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("preset %q: %w", name, common.ErrNotFound)
	}
	return nil
}
