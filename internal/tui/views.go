package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cashops/atmctl/internal/cli"
	"github.com/cashops/atmctl/internal/monitor"
	"github.com/cashops/atmctl/internal/query"
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(cli.SubtleColor)

	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(cli.PrimaryColor).
			Underline(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(cli.SubtleColor).
			MarginTop(1)
)

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.view == ViewHistory {
		b.WriteString(m.renderHistory())
	} else {
		b.WriteString(m.renderTraining())
	}

	if m.lastErr != nil {
		b.WriteString("\n" + cli.FormatError(m.lastErr.Error()))
	}

	if m.showHelp {
		b.WriteString("\n" + m.help.FullHelpView(m.keymap.FullHelp()))
	} else {
		b.WriteString("\n" + m.help.ShortHelpView(m.keymap.ShortHelp()))
	}

	return b.String()
}

func (m Model) renderTabs() string {
	history, training := tabStyle, activeTabStyle
	if m.view == ViewHistory {
		history, training = activeTabStyle, tabStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		history.Render("Transaction History"),
		training.Render("Model Training"),
	)
}

func (m Model) renderHistory() string {
	var b strings.Builder

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
		return b.String()
	}

	if m.loading {
		b.WriteString(m.spinner.View() + " loading...")
	} else if page := m.engine.Current(); page != nil {
		summary := page.Summary
		b.WriteString(footerStyle.Render(fmt.Sprintf(
			"Page %d/%d  •  %d transactions, %s total  •  %s",
			page.CurrentPage, page.TotalPages,
			summary.TotalCount, cli.FormatMoney(summary.TotalAmount),
			describeFilter(m.engine.Filter()),
		)))
	}

	return b.String()
}

// describeFilter summarizes active constraints for the footer.
func describeFilter(f query.Filter) string {
	var parts []string
	if f.Type != nil {
		parts = append(parts, "type="+string(*f.Type))
	}
	switch currentAmountPreset(f) {
	case query.AmountUnder100:
		parts = append(parts, "amount<$100")
	case query.Amount100To1000:
		parts = append(parts, "$100-$1,000")
	case query.AmountOver1000:
		parts = append(parts, "amount>$1,000")
	case query.AmountAny:
	}
	if f.Search != "" {
		parts = append(parts, "search="+f.Search)
	}

	sortDesc := fmt.Sprintf("sort %s %s", f.SortBy, f.SortOrder)
	if len(parts) == 0 {
		return sortDesc
	}
	return strings.Join(parts, ", ") + "  •  " + sortDesc
}

func (m Model) renderTraining() string {
	var b strings.Builder

	b.WriteString(cli.BoldStyle.Render(fmt.Sprintf("ATM #%d", m.atmID)))
	b.WriteString("\n\n")

	switch m.snapshot.State {
	case monitor.Idle:
		b.WriteString(cli.SubtleStyle.Render("No active training job. Press Enter to start one."))

	case monitor.Polling:
		b.WriteString(m.spinner.View() + " training in progress\n\n")
		if job := m.snapshot.Job; job != nil {
			b.WriteString(m.progress.ViewAs(float64(job.Progress)/100) + "\n")
			b.WriteString(footerStyle.Render(fmt.Sprintf("models: %s", strings.Join(job.Models, ", "))))
		}

	case monitor.Completed:
		b.WriteString(cli.FormatSuccess("Training completed") + "\n\n")
		b.WriteString(m.renderResults())

	case monitor.Failed:
		msg := "Training failed"
		if job := m.snapshot.Job; job != nil && job.Error != "" {
			msg += ": " + job.Error
		}
		b.WriteString(cli.FormatError(msg))

	case monitor.Stalled:
		b.WriteString(cli.FormatWarning("Training appears stalled; progress stopped advancing"))
	}

	return b.String()
}

// renderResults shows per-model metrics from a completed job.
func (m Model) renderResults() string {
	job := m.snapshot.Job
	if job == nil || len(job.Results) == 0 {
		return cli.SubtleStyle.Render("No metrics reported.")
	}

	names := make([]string, 0, len(job.Results))
	for name := range job.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-10s %10s %10s %10s\n", "Model", "MAE", "RMSE", "MAPE"))
	for _, name := range names {
		metrics := job.Results[name]
		b.WriteString(fmt.Sprintf("%-10s %10.2f %10.2f %9.1f%%\n",
			name, metrics.MAE, metrics.RMSE, metrics.MAPE))
	}
	return b.String()
}
