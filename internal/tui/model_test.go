package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/monitor"
	"github.com/cashops/atmctl/internal/query"
)

func TestNextType_CyclesThroughAllAndBackToUnset(t *testing.T) {
	var current *model.TransactionType

	var seen []model.TransactionType
	for i := 0; i < len(model.TransactionTypes); i++ {
		current = nextType(current)
		require.NotNil(t, current)
		seen = append(seen, *current)
	}

	assert.Equal(t, model.TransactionTypes, seen)
	assert.Nil(t, nextType(current), "full cycle returns to unset")
}

func TestNextAmountPreset_Cycles(t *testing.T) {
	f := query.NewFilter()
	assert.Equal(t, query.AmountUnder100, nextAmountPreset(f))

	hundred := 100.0
	f.MaxAmount = &hundred
	assert.Equal(t, query.Amount100To1000, nextAmountPreset(f))

	thousand := 1000.0
	f.MinAmount = &hundred
	f.MaxAmount = &thousand
	assert.Equal(t, query.AmountOver1000, nextAmountPreset(f))

	f.MinAmount = &thousand
	f.MaxAmount = nil
	assert.Equal(t, query.AmountAny, nextAmountPreset(f))
}

func TestNextPerPage_Cycles(t *testing.T) {
	assert.Equal(t, 100, nextPerPage(50))
	assert.Equal(t, 25, nextPerPage(100))
	assert.Equal(t, 50, nextPerPage(25))
}

func TestNextSortColumn_Cycles(t *testing.T) {
	assert.Equal(t, query.SortATMName, nextSortColumn(query.SortTimestamp))
	assert.Equal(t, query.SortTimestamp, nextSortColumn(query.SortAmount))
}

func TestDescribeFilter(t *testing.T) {
	f := query.NewFilter()
	assert.Equal(t, "sort timestamp desc", describeFilter(f))

	withdrawal := model.TypeWithdrawal
	f.Type = &withdrawal
	f.Search = "Airport"
	desc := describeFilter(f)
	assert.Contains(t, desc, "type=withdrawal")
	assert.Contains(t, desc, "search=Airport")
}

func TestUpdate_ToggleViewAndPageLoad(t *testing.T) {
	m := newModel(Config{Engine: query.NewEngine(nil), ATMID: 1})
	assert.Equal(t, ViewHistory, m.view)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	assert.Equal(t, ViewTraining, m.view)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	assert.Equal(t, ViewHistory, m.view)

	page := &model.TransactionPage{
		Transactions: []model.Transaction{
			{
				Timestamp: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
				Type:      model.TypeWithdrawal,
				ATMName:   "Airport T1",
				VaultName: "Central",
				Amount:    220,
			},
		},
		TotalPages:  1,
		CurrentPage: 1,
	}
	updated, _ = m.Update(pageLoadedMsg{page: page})
	m = updated.(Model)

	assert.False(t, m.loading)
	require.Len(t, m.table.Rows(), 1)
	assert.Equal(t, "Airport T1", m.table.Rows()[0][2])
	assert.Equal(t, "$220.00", m.table.Rows()[0][4])
}

func TestUpdate_FetchErrorKeepsRows(t *testing.T) {
	m := newModel(Config{Engine: query.NewEngine(nil), ATMID: 1})
	m.table.SetRows(transactionRows([]model.Transaction{
		{Timestamp: time.Now(), Type: model.TypeDeposit, ATMName: "Mall", Amount: 50},
	}))

	updated, _ := m.Update(pageLoadedMsg{err: assert.AnError})
	m = updated.(Model)

	assert.Error(t, m.lastErr)
	assert.Len(t, m.table.Rows(), 1, "failed fetch leaves the last page visible")
}

func TestUpdate_SearchPromptAppliesFilter(t *testing.T) {
	m := newModel(Config{Engine: query.NewEngine(nil), ATMID: 1})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m = updated.(Model)
	require.True(t, m.searching)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("airport")})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.False(t, m.searching)
	assert.Equal(t, "airport", m.engine.Filter().Search)
	assert.Equal(t, 1, m.engine.Filter().Page, "filter mutation returns to the first page")
}

func TestUpdate_SearchPromptEscCancels(t *testing.T) {
	m := newModel(Config{Engine: query.NewEngine(nil), ATMID: 1})
	m.engine.SetSearch("existing")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m = updated.(Model)
	require.True(t, m.searching)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	assert.False(t, m.searching)
	assert.Equal(t, "existing", m.engine.Filter().Search, "cancel leaves the filter untouched")
}

func TestUpdate_CompletionRefreshesHistoryOnce(t *testing.T) {
	m := newModel(Config{Engine: query.NewEngine(nil), ATMID: 1})

	updated, cmd := m.Update(trainingUpdateMsg{snapshot: monitor.Snapshot{State: monitor.Polling}})
	m = updated.(Model)
	assert.Nil(t, cmd, "progress updates do not refresh the table")

	updated, cmd = m.Update(trainingUpdateMsg{snapshot: monitor.Snapshot{State: monitor.Completed}})
	m = updated.(Model)
	assert.NotNil(t, cmd, "entering Completed refreshes the history view")
	assert.True(t, m.loading)

	updated, cmd = m.Update(trainingUpdateMsg{snapshot: monitor.Snapshot{State: monitor.Completed}})
	_ = updated.(Model)
	assert.Nil(t, cmd, "a repeated Completed snapshot does not refresh again")
}
