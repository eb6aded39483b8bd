package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// StartTraining asks the backend to train the given models for one ATM.
// Starting a job is not idempotent and is never retried.
func (c *Client) StartTraining(ctx context.Context, atmID int, models []string) error {
	if len(models) == 0 {
		models = model.DefaultTrainingModels
	}

	body := map[string][]string{"models": models}
	if err := c.post(ctx, fmt.Sprintf("/atms/%d/train-model", atmID), body, nil); err != nil {
		return fmt.Errorf("failed to start training for ATM %d: %w", atmID, err)
	}

	c.logger.Info("Started training", "atm_id", atmID, "models", models)
	return nil
}

// TrainingStatus fetches the current training job for one ATM. A 404 from
// the backend means there is nothing to poll and maps to ErrNoActiveJob,
// which is distinct from a failed job. Each call carries a cache-busting
// parameter so intermediaries never serve a stale status.
func (c *Client) TrainingStatus(ctx context.Context, atmID int) (*model.TrainingJob, error) {
	params := url.Values{}
	params.Set("_", strconv.FormatInt(time.Now().UnixNano(), 10))

	var job model.TrainingJob
	err := c.getOnce(ctx, fmt.Sprintf("/atms/%d/training-status", atmID), params, &job)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNoActiveJob
		}
		return nil, fmt.Errorf("failed to fetch training status for ATM %d: %w", atmID, err)
	}

	job.ATMID = atmID
	return &job, nil
}

// GenerateData asks the backend to regenerate synthetic transaction data
// for one ATM.
func (c *Client) GenerateData(ctx context.Context, atmID, days int, force bool) (*model.GenerateResult, error) {
	body := map[string]any{
		"days":  days,
		"force": force,
	}

	var result model.GenerateResult
	if err := c.post(ctx, fmt.Sprintf("/atms/%d/generate-synthetic-data", atmID), body, &result); err != nil {
		return nil, fmt.Errorf("failed to generate data for ATM %d: %w", atmID, err)
	}

	c.logger.Info("Generated synthetic data",
		"atm_id", atmID,
		"days", days,
		"transactions", result.TotalTransactions)

	return &result, nil
}

var _ service.TrainingService = (*Client)(nil)
