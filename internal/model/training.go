package model

// TrainingStatus is the server-reported state of a model training job.
type TrainingStatus string

const (
	// TrainingPending means the job is queued but not yet running.
	TrainingPending TrainingStatus = "pending"
	// TrainingRunning means the job is actively training.
	TrainingRunning TrainingStatus = "running"
	// TrainingCompleted is terminal: results are available.
	TrainingCompleted TrainingStatus = "completed"
	// TrainingFailed is terminal: the job errored server-side.
	TrainingFailed TrainingStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s TrainingStatus) Terminal() bool {
	return s == TrainingCompleted || s == TrainingFailed
}

// DefaultTrainingModels is the model set requested when none is specified.
var DefaultTrainingModels = []string{"arima", "lstm"}

// ModelMetrics holds evaluation metrics for one trained forecasting model.
type ModelMetrics struct {
	MAE  float64 `json:"MAE"`
	RMSE float64 `json:"RMSE"`
	MAPE float64 `json:"MAPE"`
}

// TrainingJob is one server-owned asynchronous training run for one ATM.
// Progress is non-decreasing while the job is running.
type TrainingJob struct {
	Results  map[string]ModelMetrics `json:"results,omitempty"`
	Status   TrainingStatus          `json:"status"`
	Error    string                  `json:"error,omitempty"`
	Models   []string                `json:"models"`
	ATMID    int                     `json:"atm_id"`
	Progress int                     `json:"progress"`
}

// GenerateResult reports the outcome of a synthetic data regeneration.
type GenerateResult struct {
	Message           string  `json:"message"`
	ATMID             int     `json:"atm_id"`
	Days              int     `json:"days"`
	TotalTransactions int     `json:"total_transactions"`
	TotalVolume       float64 `json:"total_volume"`
}
