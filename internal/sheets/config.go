// Package sheets publishes transaction reports to Google Sheets.
package sheets

import (
	"fmt"
	"os"
	"time"

	"github.com/cashops/atmctl/internal/common"
)

// Config holds the configuration for the Google Sheets publisher.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string // Where to cache the OAuth2 token
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		TimeZone:         "America/New_York",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// LoadFromEnv fills any unset field from GOOGLE_SHEETS_* environment
// variables. Fields already populated (for example from a config file) are
// left alone, so the environment acts as a fallback layer.
func (c *Config) LoadFromEnv() {
	fromEnv := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}

	fromEnv(&c.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	fromEnv(&c.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	fromEnv(&c.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	fromEnv(&c.TokenFile, "GOOGLE_SHEETS_TOKEN_FILE")

	// Service account path is the alternative to OAuth2
	fromEnv(&c.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")

	fromEnv(&c.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	fromEnv(&c.SpreadsheetName, "GOOGLE_SHEETS_SPREADSHEET_NAME")

	if c.SpreadsheetName == "" {
		c.SpreadsheetName = "ATM Transaction Report"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("%w: no authentication method configured", common.ErrMissingConfig)
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", common.ErrInvalidConfig)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}

	return nil
}
