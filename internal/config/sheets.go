package config

import (
	"github.com/spf13/viper"

	"github.com/cashops/atmctl/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration. Precedence:
// 1. Viper configuration (from config file or ATMCTL_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
func LoadSheetsConfig() (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	if v := viper.GetString("sheets.service_account_path"); v != "" {
		config.ServiceAccountPath = v
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		config.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		config.ClientSecret = v
	}
	if v := viper.GetString("sheets.refresh_token"); v != "" {
		config.RefreshToken = v
	}
	if v := viper.GetString("sheets.token_file"); v != "" {
		config.TokenFile = v
	}
	if v := viper.GetString("sheets.spreadsheet_id"); v != "" {
		config.SpreadsheetID = v
	}
	if v := viper.GetString("sheets.spreadsheet_name"); v != "" {
		config.SpreadsheetName = v
	}

	// Anything viper did not supply falls back to GOOGLE_SHEETS_* vars.
	config.LoadFromEnv()

	if config.ServiceAccountPath != "" {
		config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)
	}
	if config.TokenFile != "" {
		config.TokenFile = ExpandPath(config.TokenFile)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
