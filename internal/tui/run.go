package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cashops/atmctl/internal/monitor"
)

// Run starts the dashboard and blocks until the user quits. The monitor's
// updates are forwarded into the program, and terminal focus events wake
// the monitor so a backgrounded watch catches up immediately.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Engine == nil {
		return fmt.Errorf("engine is required")
	}
	if cfg.Monitor == nil {
		return fmt.Errorf("monitor is required")
	}

	p := tea.NewProgram(
		newModel(cfg),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)

	cfg.Monitor.SetOnUpdate(func(s monitor.Snapshot) {
		p.Send(trainingUpdateMsg{snapshot: s})
	})

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}

	// The program has exited; any further monitor updates go nowhere.
	cfg.Monitor.Stop()
	return nil
}
