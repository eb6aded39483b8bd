package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/cashops/atmctl/internal/api"
)

// LoadBackendConfig resolves the replenishment backend settings from Viper
// (config file or ATMCTL_ env vars).
func LoadBackendConfig() (api.Config, error) {
	cfg := api.Config{
		BaseURL: viper.GetString("backend.url"),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000/api"
	}

	if v := viper.GetDuration("backend.timeout"); v > 0 {
		cfg.Timeout = v
	} else {
		cfg.Timeout = 30 * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return api.Config{}, err
	}
	return cfg, nil
}

// DefaultATM returns the ATM targeted by training and forecast commands
// when no --atm flag is given. Zero means unset.
func DefaultATM() int {
	return viper.GetInt("backend.default_atm")
}
