package model

// ForecastPoint is one predicted day of demand for an ATM.
type ForecastPoint struct {
	Date            string  `json:"date"`
	DayOfWeek       string  `json:"day_of_week"`
	PredictedDemand float64 `json:"predicted_demand"`
}

// Forecast is a multi-day demand prediction for one ATM from one model.
type Forecast struct {
	ModelType      string          `json:"model_type"`
	Points         []ForecastPoint `json:"forecast"`
	ATMID          int             `json:"atm_id"`
	TotalPredicted float64         `json:"total_predicted_demand"`
	AvgDaily       float64         `json:"avg_daily_demand"`
	MaxDemand      float64         `json:"max_demand"`
	MinDemand      float64         `json:"min_demand"`
}

// ModelForecast is one model's prediction within a comparison run.
type ModelForecast struct {
	Error       string    `json:"error,omitempty"`
	Predictions []float64 `json:"predictions"`
	Total       float64   `json:"total"`
	Average     float64   `json:"average"`
	Max         float64   `json:"max"`
	Min         float64   `json:"min"`
}

// ForecastComparison holds side-by-side predictions from all available
// models for one ATM.
type ForecastComparison struct {
	Models          map[string]ModelForecast `json:"models"`
	ForecastDates   []string                 `json:"forecast_dates"`
	AvailableModels []string                 `json:"available_models"`
	ATMID           int                      `json:"atm_id"`
	DaysAhead       int                      `json:"days_ahead"`
}
