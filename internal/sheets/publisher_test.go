package sheets

import (
	"testing"
	"time"

	"github.com/cashops/atmctl/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "service account valid",
			mutate: func(c *Config) { c.ServiceAccountPath = "/tmp/sa.json" },
		},
		{
			name: "oauth valid",
			mutate: func(c *Config) {
				c.ClientID = "id"
				c.ClientSecret = "secret"
				c.RefreshToken = "token"
			},
		},
		{
			name:    "no auth",
			mutate:  func(c *Config) {},
			wantErr: "no authentication method",
		},
		{
			name: "both auth methods",
			mutate: func(c *Config) {
				c.ServiceAccountPath = "/tmp/sa.json"
				c.ClientID = "id"
				c.ClientSecret = "secret"
				c.RefreshToken = "token"
			},
			wantErr: "multiple authentication methods",
		},
		{
			name: "zero batch size",
			mutate: func(c *Config) {
				c.ServiceAccountPath = "/tmp/sa.json"
				c.BatchSize = 0
			},
			wantErr: "batch size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPrepareReportData(t *testing.T) {
	p := &Publisher{config: DefaultConfig()}

	older := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)

	transactions := []model.Transaction{
		{Timestamp: older, Type: model.TypeWithdrawal, ATMName: "Airport T1", VaultName: "Central", Amount: 200},
		{Timestamp: newer, Type: model.TypeDeposit, ATMName: "Mall", VaultName: "Central", Amount: 50},
	}
	summary := model.Summary{
		CountByType: map[model.TransactionType]int{
			model.TypeWithdrawal: 1,
			model.TypeDeposit:    1,
		},
		AmountByType: map[model.TransactionType]float64{
			model.TypeWithdrawal: 200,
			model.TypeDeposit:    50,
		},
		DateRangeLabel: "May 1 - May 2, 2025",
		TotalCount:     2,
		TotalAmount:    250,
		AverageAmount:  125,
	}

	values := p.prepareReportData(transactions, summary)

	require.NotEmpty(t, values)
	assert.Equal(t, []any{"ATM Transaction Report", "May 1 - May 2, 2025"}, values[0])

	// Type breakdown sorted by amount descending
	assert.Equal(t, []any{"withdrawal", 1, 200.0}, values[9])
	assert.Equal(t, []any{"deposit", 1, 50.0}, values[10])

	// Detail rows newest first
	last := values[len(values)-1]
	assert.Equal(t, "2025-05-01 09:00", last[0])
	secondToLast := values[len(values)-2]
	assert.Equal(t, "2025-05-02 09:00", secondToLast[0])
}

func TestLoadFromEnv_FillsOnlyUnsetFields(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
	t.Setenv("GOOGLE_SHEETS_TOKEN_FILE", "/tmp/env-token.json")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "")

	cfg := DefaultConfig()
	cfg.ClientID = "file-id"
	cfg.LoadFromEnv()

	assert.Equal(t, "file-id", cfg.ClientID, "populated fields win over the environment")
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, "/tmp/env-token.json", cfg.TokenFile)
	assert.Equal(t, "ATM Transaction Report", cfg.SpreadsheetName, "name defaults when nothing provides it")
}
