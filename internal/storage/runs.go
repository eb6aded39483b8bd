package storage

import (
	"context"
	"fmt"

	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// RecordRun appends one terminal training outcome to the run log.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *service.TrainingRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO training_runs (atm_id, models, status, progress, error, metrics, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ATMID, run.Models, string(run.Status), run.Progress, run.Error, run.Metrics, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to record training run: %w", err)
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		run.ID = id
	}
	return nil
}

// ListRuns returns recorded runs, newest first. atmID 0 means all ATMs;
// limit 0 means no limit.
func (s *SQLiteStorage) ListRuns(ctx context.Context, atmID, limit int) ([]service.TrainingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, atm_id, models, status, progress, COALESCE(error, ''), COALESCE(metrics, ''), started_at, finished_at
		FROM training_runs
	`
	args := make([]any, 0, 2)
	if atmID > 0 {
		query += ` WHERE atm_id = ?`
		args = append(args, atmID)
	}
	query += ` ORDER BY finished_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []service.TrainingRun
	for rows.Next() {
		var run service.TrainingRun
		var status string
		if err := rows.Scan(&run.ID, &run.ATMID, &run.Models, &status, &run.Progress,
			&run.Error, &run.Metrics, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		run.Status = model.TrainingStatus(status)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
