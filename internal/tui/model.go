// Package tui implements the interactive operations dashboard: a
// filterable transaction history table and a live training job watch.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cashops/atmctl/internal/cli"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/monitor"
	"github.com/cashops/atmctl/internal/query"
)

// Config holds the dashboard's collaborators.
type Config struct {
	Engine  *query.Engine
	Monitor *monitor.Monitor
	ATMID   int
}

// Model holds the dashboard state.
type Model struct {
	engine   *query.Engine
	mon      *monitor.Monitor
	lastErr  error
	keymap   KeyMap
	help     help.Model
	table     table.Model
	spinner   spinner.Model
	progress  progress.Model
	search    textinput.Model
	snapshot  monitor.Snapshot
	atmID     int
	width     int
	height    int
	view      View
	loading   bool
	searching bool
	showHelp  bool
	quitting  bool
}

var tableColumns = []table.Column{
	{Title: "Timestamp", Width: 17},
	{Title: "Type", Width: 14},
	{Title: "ATM", Width: 20},
	{Title: "Vault", Width: 16},
	{Title: "Amount", Width: 12},
	{Title: "Notes", Width: 24},
}

// newModel creates the dashboard model.
func newModel(cfg Config) Model {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(cli.PrimaryColor)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#000000")).Background(cli.PrimaryColor)
	t.SetStyles(styles)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	search := textinput.New()
	search.Prompt = "search: "
	search.Placeholder = "ATM, vault or notes"
	search.CharLimit = 64
	search.PromptStyle = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	return Model{
		engine:   cfg.Engine,
		mon:      cfg.Monitor,
		atmID:    cfg.ATMID,
		keymap:   DefaultKeyMap(),
		help:     help.New(),
		table:    t,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
		search:   search,
		view:     ViewHistory,
		loading:  true,
	}
}

// Init starts the first history fetch and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.fetchCmd(),
		m.spinner.Tick,
	)
}

// fetchCmd runs one engine fetch. A superseded fetch yields no message
// at all so a stale response can never repaint the table.
func (m Model) fetchCmd() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		page, err := engine.Fetch(context.Background())
		if errors.Is(err, query.ErrSuperseded) {
			return nil
		}
		return pageLoadedMsg{page: page, err: err}
	}
}

// startTrainingCmd asks the server to start a job and begins watching it.
func (m Model) startTrainingCmd() tea.Cmd {
	mon, atmID := m.mon, m.atmID
	return func() tea.Msg {
		err := mon.Start(context.Background(), atmID, nil)
		return trainingStartedMsg{err: err}
	}
}

// stopWatchingCmd stops the monitor off the update loop. Stop blocks
// until the poll goroutine exits, and that goroutine may be mid-Send, so
// it must not run inside Update.
func (m Model) stopWatchingCmd() tea.Cmd {
	mon := m.mon
	return func() tea.Msg {
		mon.Stop()
		return trainingUpdateMsg{snapshot: mon.Snapshot()}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetHeight(max(4, msg.Height-10))
		return m, nil

	case tea.FocusMsg:
		// Returning to the terminal: poll immediately instead of
		// waiting out the remainder of the interval, and refresh
		// the table in case the dataset changed underneath us.
		m.mon.Wake()
		m.loading = true
		return m, m.fetchCmd()

	case pageLoadedMsg:
		m.loading = false
		m.lastErr = msg.err
		if msg.err == nil && msg.page != nil {
			m.table.SetRows(transactionRows(msg.page.Transactions))
		}
		return m, nil

	case trainingUpdateMsg:
		prev := m.snapshot.State
		m.snapshot = msg.snapshot
		if msg.snapshot.State == monitor.Completed && prev != monitor.Completed {
			// Training changed the dataset under the history view;
			// refresh it once on the transition into Completed.
			m.loading = true
			return m, m.fetchCmd()
		}
		return m, nil

	case trainingStartedMsg:
		m.lastErr = msg.err
		m.snapshot = m.mon.Snapshot()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		p, cmd := m.progress.Update(msg)
		if pm, ok := p.(progress.Model); ok {
			m.progress = pm
		}
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKey(msg)
	}

	k := m.keymap

	switch {
	case key.Matches(msg, k.ForceQuit), key.Matches(msg, k.Quit):
		m.quitting = true
		return m, tea.Sequence(m.stopWatchingCmd(), tea.Quit)

	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, k.ToggleView):
		if m.view == ViewHistory {
			m.view = ViewTraining
		} else {
			m.view = ViewHistory
		}
		return m, nil

	case key.Matches(msg, k.Refresh):
		m.loading = true
		return m, m.fetchCmd()
	}

	if m.view == ViewTraining {
		return m.handleTrainingKey(msg)
	}
	return m.handleHistoryKey(msg)
}

// handleSearchKey owns every key while the search prompt is open, so the
// global bindings cannot fire mid-edit.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.engine.SetSearch(m.search.Value())
		m.loading = true
		return m, m.fetchCmd()
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keymap

	switch {
	case key.Matches(msg, k.PrevPage):
		if !m.engine.CanPrev() {
			return m, nil
		}
		m.engine.Prev()
	case key.Matches(msg, k.NextPage):
		if !m.engine.CanNext() {
			return m, nil
		}
		m.engine.Next()
	case key.Matches(msg, k.First):
		m.engine.First()
	case key.Matches(msg, k.Last):
		m.engine.Last()
	case key.Matches(msg, k.CycleType):
		m.engine.SetType(nextType(m.engine.Filter().Type))
	case key.Matches(msg, k.CycleAmount):
		m.engine.ApplyAmountPreset(nextAmountPreset(m.engine.Filter()))
	case key.Matches(msg, k.CyclePerPage):
		_ = m.engine.SetPerPage(nextPerPage(m.engine.Filter().PerPage))
	case key.Matches(msg, k.SortColumn):
		m.engine.SortToggle(nextSortColumn(m.engine.Filter().SortBy))
	case key.Matches(msg, k.SortOrder):
		m.engine.SortToggle(m.engine.Filter().SortBy)
	case key.Matches(msg, k.Search):
		m.searching = true
		m.search.SetValue(m.engine.Filter().Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, k.ClearFilter):
		_ = m.engine.SetFilter(query.NewFilter())
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	m.loading = true
	return m, m.fetchCmd()
}

func (m Model) handleTrainingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keymap

	switch {
	case key.Matches(msg, k.StartTraining):
		if m.mon.State() == monitor.Polling {
			return m, nil
		}
		return m, m.startTrainingCmd()
	case key.Matches(msg, k.StopWatching):
		return m, m.stopWatchingCmd()
	}
	return m, nil
}

// nextType cycles the type filter: unset, then each type in order.
func nextType(current *model.TransactionType) *model.TransactionType {
	if current == nil {
		t := model.TransactionTypes[0]
		return &t
	}
	for i, t := range model.TransactionTypes {
		if t == *current {
			if i == len(model.TransactionTypes)-1 {
				return nil
			}
			next := model.TransactionTypes[i+1]
			return &next
		}
	}
	return nil
}

var amountPresetCycle = []query.AmountPreset{
	query.AmountAny,
	query.AmountUnder100,
	query.Amount100To1000,
	query.AmountOver1000,
}

// nextAmountPreset cycles presets based on the filter's current bounds.
func nextAmountPreset(f query.Filter) query.AmountPreset {
	current := currentAmountPreset(f)
	for i, p := range amountPresetCycle {
		if p == current {
			return amountPresetCycle[(i+1)%len(amountPresetCycle)]
		}
	}
	return query.AmountAny
}

func currentAmountPreset(f query.Filter) query.AmountPreset {
	switch {
	case f.MinAmount == nil && f.MaxAmount == nil:
		return query.AmountAny
	case f.MinAmount == nil && f.MaxAmount != nil && *f.MaxAmount == 100:
		return query.AmountUnder100
	case f.MinAmount != nil && *f.MinAmount == 100 && f.MaxAmount != nil && *f.MaxAmount == 1000:
		return query.Amount100To1000
	case f.MinAmount != nil && *f.MinAmount == 1000 && f.MaxAmount == nil:
		return query.AmountOver1000
	default:
		return query.AmountAny
	}
}

func nextPerPage(current int) int {
	for i, n := range query.PerPageChoices {
		if n == current {
			return query.PerPageChoices[(i+1)%len(query.PerPageChoices)]
		}
	}
	return query.PerPageChoices[0]
}

var sortColumnCycle = []query.SortColumn{
	query.SortTimestamp,
	query.SortATMName,
	query.SortType,
	query.SortAmount,
}

func nextSortColumn(current query.SortColumn) query.SortColumn {
	for i, c := range sortColumnCycle {
		if c == current {
			return sortColumnCycle[(i+1)%len(sortColumnCycle)]
		}
	}
	return query.SortTimestamp
}

func transactionRows(transactions []model.Transaction) []table.Row {
	rows := make([]table.Row, 0, len(transactions))
	for _, txn := range transactions {
		rows = append(rows, table.Row{
			txn.Timestamp.Format("2006-01-02 15:04"),
			string(txn.Type),
			txn.ATMName,
			txn.VaultName,
			cli.FormatMoney(txn.Amount),
			txn.Notes,
		})
	}
	return rows
}
