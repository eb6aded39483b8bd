package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "atmctl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestPresets_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	params := "filter_type=withdrawal&min_amount=100&max_amount=1000"
	require.NoError(t, s.SavePreset(ctx, "big-withdrawals", params))

	preset, err := s.GetPreset(ctx, "big-withdrawals")
	require.NoError(t, err)

	assert.Equal(t, "big-withdrawals", preset.Name)
	assert.Equal(t, params, preset.Params)
	assert.False(t, preset.CreatedAt.IsZero())
}

func TestPresets_SaveReplacesExisting(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SavePreset(ctx, "daily", "filter_type=deposit"))
	require.NoError(t, s.SavePreset(ctx, "daily", "filter_type=withdrawal"))

	preset, err := s.GetPreset(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, "filter_type=withdrawal", preset.Params)

	presets, err := s.ListPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, presets, 1)
}

func TestPresets_GetMissing(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetPreset(context.Background(), "nope")

	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPresets_Delete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SavePreset(ctx, "temp", "search=Airport"))
	require.NoError(t, s.DeletePreset(ctx, "temp"))

	_, err := s.GetPreset(ctx, "temp")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, s.DeletePreset(ctx, "temp"), common.ErrNotFound)
}

func TestPresets_EmptyNameRejected(t *testing.T) {
	s := newTestStorage(t)

	assert.Error(t, s.SavePreset(context.Background(), "", "a=b"))
}

func TestRuns_RecordAndList(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	started := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, status := range []model.TrainingStatus{model.TrainingCompleted, model.TrainingFailed} {
		run := &service.TrainingRun{
			ATMID:      1,
			Models:     "arima,lstm",
			Status:     status,
			Progress:   100 - i*60,
			StartedAt:  started.Add(time.Duration(i) * time.Hour),
			FinishedAt: started.Add(time.Duration(i)*time.Hour + 10*time.Minute),
		}
		if status == model.TrainingFailed {
			run.Error = "LSTM diverged"
		}
		require.NoError(t, s.RecordRun(ctx, run))
		assert.NotZero(t, run.ID)
	}

	require.NoError(t, s.RecordRun(ctx, &service.TrainingRun{
		ATMID:      2,
		Models:     "arima",
		Status:     model.TrainingCompleted,
		Progress:   100,
		Metrics:    `{"arima":{"MAE":900}}`,
		StartedAt:  started,
		FinishedAt: started.Add(5 * time.Minute),
	}))

	runs, err := s.ListRuns(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, model.TrainingFailed, runs[0].Status, "newest first")
	assert.Equal(t, "LSTM diverged", runs[0].Error)

	all, err := s.ListRuns(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListRuns(ctx, 0, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}
