package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// Forecast fetches a demand forecast for one ATM from one model type
// (arima, lstm or ensemble).
func (c *Client) Forecast(ctx context.Context, atmID, daysAhead int, modelType string) (*model.Forecast, error) {
	if daysAhead < 1 || daysAhead > 90 {
		return nil, fmt.Errorf("days ahead must be between 1 and 90, got %d", daysAhead)
	}
	if modelType == "" {
		modelType = "ensemble"
	}

	params := url.Values{}
	params.Set("days_ahead", strconv.Itoa(daysAhead))
	params.Set("model_type", modelType)

	var forecast model.Forecast
	if err := c.get(ctx, fmt.Sprintf("/forecast/%d", atmID), params, &forecast); err != nil {
		return nil, fmt.Errorf("failed to fetch forecast for ATM %d: %w", atmID, err)
	}

	forecast.ATMID = atmID
	return &forecast, nil
}

// CompareForecasts fetches side-by-side predictions from every model the
// backend has trained for one ATM.
func (c *Client) CompareForecasts(ctx context.Context, atmID, daysAhead int) (*model.ForecastComparison, error) {
	if daysAhead < 1 || daysAhead > 90 {
		return nil, fmt.Errorf("days ahead must be between 1 and 90, got %d", daysAhead)
	}

	body := map[string]int{"days_ahead": daysAhead}

	var comparison model.ForecastComparison
	if err := c.post(ctx, fmt.Sprintf("/ml/forecast/compare/%d", atmID), body, &comparison); err != nil {
		return nil, fmt.Errorf("failed to compare forecasts for ATM %d: %w", atmID, err)
	}

	return &comparison, nil
}

// ModelMetrics fetches evaluation metrics for every trained model of one ATM.
func (c *Client) ModelMetrics(ctx context.Context, atmID int) (map[string]model.ModelMetrics, error) {
	var payload struct {
		Metrics map[string]model.ModelMetrics `json:"metrics"`
	}
	if err := c.get(ctx, fmt.Sprintf("/ml/models/metrics/%d", atmID), nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch model metrics for ATM %d: %w", atmID, err)
	}
	return payload.Metrics, nil
}

var _ service.ForecastService = (*Client)(nil)
