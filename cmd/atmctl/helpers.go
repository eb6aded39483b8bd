package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cashops/atmctl/internal/api"
	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/config"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/monitor"
	"github.com/cashops/atmctl/internal/query"
	"github.com/cashops/atmctl/internal/service"
	"github.com/cashops/atmctl/internal/storage"
)

// newClient creates the backend API client from configuration.
func newClient() (*api.Client, error) {
	cfg, err := config.LoadBackendConfig()
	if err != nil {
		return nil, common.NewUserError("invalid backend configuration", err)
	}
	return api.NewClient(cfg)
}

// initStorage opens the local database with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/atmctl/atmctl.db"
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// resolveATM returns the target ATM id from the --atm flag, falling back
// to the configured default.
func resolveATM(cmd *cobra.Command) (int, error) {
	atmID, _ := cmd.Flags().GetInt("atm")
	if atmID <= 0 {
		atmID = config.DefaultATM()
	}
	if atmID <= 0 {
		return 0, common.NewUserError("no ATM specified: pass --atm or set backend.default_atm in config", nil)
	}
	return atmID, nil
}

// addFilterFlags registers the shared history filter flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "filter by transaction type (withdrawal, deposit, allocation, balance_check)")
	cmd.Flags().Int("atm", 0, "filter by ATM id")
	cmd.Flags().Int("vault", 0, "filter by vault id")
	cmd.Flags().Int("section", 0, "filter by section id")
	cmd.Flags().String("from", "", "start date (format: 2006-01-02)")
	cmd.Flags().String("to", "", "end date (format: 2006-01-02)")
	cmd.Flags().Float64("min-amount", -1, "minimum amount")
	cmd.Flags().Float64("max-amount", -1, "maximum amount")
	cmd.Flags().String("period", "", "time of day (morning, afternoon, evening, night)")
	cmd.Flags().String("search", "", "search ATM/vault names and notes")
	cmd.Flags().String("preset", "", "start from a saved filter preset")
}

// filterFromFlags builds a validated filter descriptor from the command's
// flags, optionally starting from a saved preset.
func filterFromFlags(ctx context.Context, cmd *cobra.Command) (query.Filter, error) {
	f := query.NewFilter()

	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		store, err := initStorage(ctx)
		if err != nil {
			return f, err
		}
		defer func() { _ = store.Close() }()

		preset, err := store.GetPreset(ctx, name)
		if err != nil {
			return f, err
		}
		f, err = query.ParseFilter(preset.Params)
		if err != nil {
			return f, fmt.Errorf("preset %q is corrupt: %w", name, err)
		}
	}

	if v, _ := cmd.Flags().GetString("type"); v != "" {
		t := model.TransactionType(v)
		f.Type = &t
	}
	if v, _ := cmd.Flags().GetInt("atm"); v > 0 {
		f.ATMID = &v
	}
	if v, _ := cmd.Flags().GetInt("vault"); v > 0 {
		f.VaultID = &v
	}
	if v, _ := cmd.Flags().GetInt("section"); v > 0 {
		f.SectionID = &v
	}
	if v, _ := cmd.Flags().GetString("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fmt.Errorf("invalid --from date: %w", err)
		}
		f.DateFrom = &t
	}
	if v, _ := cmd.Flags().GetString("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fmt.Errorf("invalid --to date: %w", err)
		}
		f.DateTo = &t
	}
	if v, _ := cmd.Flags().GetFloat64("min-amount"); v >= 0 {
		f.MinAmount = &v
	}
	if v, _ := cmd.Flags().GetFloat64("max-amount"); v >= 0 {
		f.MaxAmount = &v
	}
	if v, _ := cmd.Flags().GetString("period"); v != "" {
		p := model.TimePeriod(v)
		f.TimePeriod = &p
	}
	if v, _ := cmd.Flags().GetString("search"); v != "" {
		f.Search = v
	}

	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

// monitorConfig builds the training monitor settings, with the polling
// cadence and stall windows overridable from configuration.
func monitorConfig(onUpdate func(monitor.Snapshot)) monitor.Config {
	return monitor.Config{
		Interval:           viper.GetDuration("training.poll_interval"),
		StallAfter:         viper.GetDuration("training.stall_after"),
		ProgressStallAfter: viper.GetDuration("training.progress_stall_after"),
		OnUpdate:           onUpdate,
	}
}

// parseID parses a positional integer id argument.
func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, arg)
	}
	return id, nil
}
