// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/cashops/atmctl/internal/model"
)

// RetryOptions configures retry behavior for service calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// HistoryService is the transaction-history surface of the backend.
type HistoryService interface {
	// FetchHistory issues one history query and returns one page plus the
	// summary over the entire filtered set.
	FetchHistory(ctx context.Context, params url.Values) (*model.TransactionPage, error)
	// ExportCSV streams the full filtered set (unpaginated) to w.
	ExportCSV(ctx context.Context, params url.Values, w io.Writer) error
	// ImportCSV uploads a CSV file, optionally tagging rows with a section.
	// sectionID <= 0 means no section.
	ImportCSV(ctx context.Context, filename string, r io.Reader, sectionID int) (*model.ImportResult, error)
}

// SectionService manages named transaction groupings.
type SectionService interface {
	Sections(ctx context.Context) ([]model.Section, error)
	CreateSection(ctx context.Context, name, description string) (*model.Section, error)
	// DeleteSection fails server-side if the section still has transactions.
	DeleteSection(ctx context.Context, id int) error
}

// TrainingService is the model-training surface of the backend.
type TrainingService interface {
	StartTraining(ctx context.Context, atmID int, models []string) error
	// TrainingStatus returns common.ErrNoActiveJob when no job exists for
	// the ATM.
	TrainingStatus(ctx context.Context, atmID int) (*model.TrainingJob, error)
	GenerateData(ctx context.Context, atmID, days int, force bool) (*model.GenerateResult, error)
}

// FleetService exposes fleet inventory, analytics and the allocation
// optimizer.
type FleetService interface {
	ATMs(ctx context.Context) ([]model.ATM, error)
	Vaults(ctx context.Context) ([]model.Vault, error)
	Analytics(ctx context.Context) (*model.FleetAnalytics, error)
	Optimize(ctx context.Context, algorithm string) (*model.AllocationPlan, error)
	ExecuteAllocation(ctx context.Context, plan *model.AllocationPlan) error
}

// ForecastService exposes the demand forecasting endpoints.
type ForecastService interface {
	Forecast(ctx context.Context, atmID, daysAhead int, modelType string) (*model.Forecast, error)
	CompareForecasts(ctx context.Context, atmID, daysAhead int) (*model.ForecastComparison, error)
	ModelMetrics(ctx context.Context, atmID int) (map[string]model.ModelMetrics, error)
}

// FilterPreset is a saved filter descriptor under a user-chosen name.
// Params holds the url-encoded query parameters.
type FilterPreset struct {
	CreatedAt time.Time
	Name      string
	Params    string
}

// TrainingRun is one recorded training outcome in the local run log.
type TrainingRun struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Models     string
	Status     model.TrainingStatus
	Error      string
	Metrics    string
	ID         int64
	ATMID      int
	Progress   int
}

// Storage is the local persistence layer for presets and the run log.
type Storage interface {
	SavePreset(ctx context.Context, name, params string) error
	GetPreset(ctx context.Context, name string) (*FilterPreset, error)
	ListPresets(ctx context.Context) ([]FilterPreset, error)
	DeletePreset(ctx context.Context, name string) error

	RecordRun(ctx context.Context, run *TrainingRun) error
	ListRuns(ctx context.Context, atmID int, limit int) ([]TrainingRun, error)

	Migrate(ctx context.Context) error
	Close() error
}
