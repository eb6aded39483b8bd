package main

import (
	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/monitor"
	"github.com/cashops/atmctl/internal/query"
	"github.com/cashops/atmctl/internal/tui"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive operations dashboard",
		Long: `A full-screen terminal dashboard with two panes: the filterable
transaction history table and a live training job watch. When the
terminal regains focus the training status is refreshed immediately.`,
		RunE: runDashboard,
	}

	cmd.Flags().Int("atm", 0, "ATM targeted by the training pane")

	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	atmID, err := resolveATM(cmd)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	engine := query.NewEngine(client)
	mon := monitor.New(client, store, monitorConfig(nil))

	return tui.Run(ctx, tui.Config{
		Engine:  engine,
		Monitor: mon,
		ATMID:   atmID,
	})
}
