package query

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cashops/atmctl/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory serves pages from an in-memory transaction set, honoring the
// same parameter contract as the backend.
type fakeHistory struct {
	delay        map[int]time.Duration
	importResult *model.ImportResult
	importErr    error
	fetchErr     error
	transactions []model.Transaction
	mu           sync.Mutex
	calls        int
	imports      int
}

func (h *fakeHistory) FetchHistory(ctx context.Context, params url.Values) (*model.TransactionPage, error) {
	h.mu.Lock()
	h.calls++
	call := h.calls
	h.mu.Unlock()

	if d, ok := h.delay[call]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h.fetchErr != nil {
		return nil, h.fetchErr
	}

	matched := h.filtered(params)

	sortBy := params.Get("sort_by")
	order := params.Get("sort_order")
	if sortBy == "" {
		sortBy, order = "timestamp", "desc"
	}
	sort.SliceStable(matched, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "amount":
			less = matched[i].Amount < matched[j].Amount
		case "atm_name":
			less = matched[i].ATMName < matched[j].ATMName
		case "type":
			less = matched[i].Type < matched[j].Type
		default:
			less = matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		if order == "desc" {
			return !less
		}
		return less
	})

	page := 1
	if v := params.Get("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	perPage := 50
	if v := params.Get("per_page"); v != "" {
		perPage, _ = strconv.Atoi(v)
	}

	totalPages := (len(matched) + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}

	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}

	summary := model.Summary{
		CountByType:  make(map[model.TransactionType]int),
		AmountByType: make(map[model.TransactionType]float64),
		TotalCount:   len(matched),
	}
	for _, tx := range matched {
		summary.TotalAmount += tx.Amount
		summary.CountByType[tx.Type]++
		summary.AmountByType[tx.Type] += tx.Amount
	}
	if summary.TotalCount > 0 {
		summary.AverageAmount = summary.TotalAmount / float64(summary.TotalCount)
	}

	return &model.TransactionPage{
		Transactions: matched[start:end],
		Summary:      summary,
		TotalPages:   totalPages,
		CurrentPage:  page,
	}, nil
}

func (h *fakeHistory) filtered(params url.Values) []model.Transaction {
	var out []model.Transaction
	for _, tx := range h.transactions {
		if v := params.Get("filter_type"); v != "" && string(tx.Type) != v {
			continue
		}
		if v := params.Get("filter_atm_id"); v != "" && strconv.Itoa(tx.ATMID) != v {
			continue
		}
		if v := params.Get("search"); v != "" && !strings.Contains(tx.ATMName, v) {
			continue
		}
		if v := params.Get("min_amount"); v != "" {
			minAmount, _ := strconv.ParseFloat(v, 64)
			if tx.Amount < minAmount {
				continue
			}
		}
		if v := params.Get("max_amount"); v != "" {
			maxAmount, _ := strconv.ParseFloat(v, 64)
			if tx.Amount > maxAmount {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}

func (h *fakeHistory) ExportCSV(_ context.Context, _ url.Values, w io.Writer) error {
	_, err := io.WriteString(w, "atm_id,vault_id,amount,transaction_type,timestamp\n")
	return err
}

func (h *fakeHistory) ImportCSV(_ context.Context, _ string, _ io.Reader, _ int) (*model.ImportResult, error) {
	h.mu.Lock()
	h.imports++
	h.mu.Unlock()
	if h.importErr != nil {
		return nil, h.importErr
	}
	return h.importResult, nil
}

func withdrawals(n int) []model.Transaction {
	txs := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, model.Transaction{
			ID:        i + 1,
			ATMID:     1,
			VaultID:   1,
			ATMName:   "ATM Mall Plaza",
			Type:      model.TypeWithdrawal,
			Amount:    100 + float64(i*5),
			Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		})
	}
	return txs
}

func TestEngine_FilterChangeResetsPage(t *testing.T) {
	e := NewEngine(&fakeHistory{})
	e.SetPage(4)

	txType := model.TypeDeposit
	e.SetType(&txType)

	f := e.Filter()
	assert.Equal(t, 1, f.Page, "filter change must clamp page to 1")
	require.NotNil(t, f.Type)
	assert.Equal(t, model.TypeDeposit, *f.Type)
}

func TestEngine_PageChangeKeepsFilters(t *testing.T) {
	e := NewEngine(&fakeHistory{})
	txType := model.TypeWithdrawal
	e.SetType(&txType)

	e.SetPage(3)

	f := e.Filter()
	assert.Equal(t, 3, f.Page)
	require.NotNil(t, f.Type)
	assert.Equal(t, model.TypeWithdrawal, *f.Type, "page change must not reset filters")
}

func TestEngine_SortToggle(t *testing.T) {
	e := NewEngine(&fakeHistory{})

	e.SortToggle(SortAmount)
	f := e.Filter()
	assert.Equal(t, SortAmount, f.SortBy)
	assert.Equal(t, Descending, f.SortOrder, "new column starts descending")

	e.SortToggle(SortAmount)
	assert.Equal(t, Ascending, e.Filter().SortOrder)

	e.SortToggle(SortAmount)
	assert.Equal(t, Descending, e.Filter().SortOrder, "two toggles return to the original order")
}

func TestEngine_AmountPresetsNeverInvert(t *testing.T) {
	e := NewEngine(&fakeHistory{})

	presets := []AmountPreset{Amount100To1000, AmountUnder100, AmountOver1000, AmountAny}
	for _, p := range presets {
		e.ApplyAmountPreset(p)
		f := e.Filter()
		if f.MinAmount != nil && f.MaxAmount != nil {
			assert.LessOrEqual(t, *f.MinAmount, *f.MaxAmount, "preset %s", p)
		}
		assert.NoError(t, f.Validate(), "preset %s", p)
	}

	f := e.Filter()
	assert.Nil(t, f.MinAmount)
	assert.Nil(t, f.MaxAmount)
}

func TestEngine_FetchPageOfWithdrawals(t *testing.T) {
	// 120 matching withdrawals at 25 per page is 5 pages, sorted by amount
	// descending.
	h := &fakeHistory{transactions: withdrawals(120)}
	e := NewEngine(h)

	txType := model.TypeWithdrawal
	e.SetType(&txType)
	e.ApplyAmountPreset(Amount100To1000)
	e.SortToggle(SortAmount)
	require.NoError(t, e.SetPerPage(25))

	page, err := e.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, page.TotalPages)
	assert.Len(t, page.Transactions, 25)
	for i := 1; i < len(page.Transactions); i++ {
		assert.GreaterOrEqual(t, page.Transactions[i-1].Amount, page.Transactions[i].Amount)
	}
	assert.Equal(t, 120, page.Summary.TotalCount)

	typeTotal := 0
	for _, n := range page.Summary.CountByType {
		typeTotal += n
	}
	assert.Equal(t, page.Summary.TotalCount, typeTotal,
		"per-type counts must sum to the total count")
}

func TestEngine_FetchFailureKeepsPriorPage(t *testing.T) {
	h := &fakeHistory{transactions: withdrawals(10)}
	e := NewEngine(h)

	first, err := e.Fetch(context.Background())
	require.NoError(t, err)

	h.fetchErr = fmt.Errorf("backend error (500): boom")
	_, err = e.Fetch(context.Background())
	require.Error(t, err)

	assert.Same(t, first, e.Current(), "failed fetch must leave the displayed page untouched")
}

func TestEngine_NewerFetchSupersedesOlder(t *testing.T) {
	h := &fakeHistory{
		transactions: withdrawals(10),
		delay:        map[int]time.Duration{1: 200 * time.Millisecond},
	}
	e := NewEngine(h)

	type outcome struct {
		page *model.TransactionPage
		err  error
	}
	slow := make(chan outcome, 1)

	go func() {
		p, err := e.Fetch(context.Background())
		slow <- outcome{p, err}
	}()

	time.Sleep(50 * time.Millisecond)
	fast, err := e.Fetch(context.Background())
	require.NoError(t, err)

	got := <-slow
	assert.ErrorIs(t, got.err, ErrSuperseded)
	assert.Same(t, fast, e.Current(), "only the newest fetch may install its result")
}

func TestEngine_PaginationBounds(t *testing.T) {
	h := &fakeHistory{transactions: withdrawals(120)}
	e := NewEngine(h)
	require.NoError(t, e.SetPerPage(25))

	_, err := e.Fetch(context.Background())
	require.NoError(t, err)

	assert.False(t, e.CanPrev(), "first page has no previous")
	assert.True(t, e.CanNext())

	e.Last()
	assert.Equal(t, 5, e.Filter().Page)
	assert.False(t, e.CanNext(), "last page has no next")

	e.Next()
	assert.Equal(t, 5, e.Filter().Page, "next on the last page is inert")

	e.Prev()
	assert.Equal(t, 4, e.Filter().Page)

	e.First()
	assert.Equal(t, 1, e.Filter().Page)
	e.Prev()
	assert.Equal(t, 1, e.Filter().Page, "prev on the first page is inert")
}

func TestEngine_PerPageChangeResetsPage(t *testing.T) {
	e := NewEngine(&fakeHistory{})
	e.SetPage(3)

	require.NoError(t, e.SetPerPage(100))

	assert.Equal(t, 1, e.Filter().Page)
	assert.Error(t, e.SetPerPage(42))
}

func TestEngine_ImportRefreshesHistory(t *testing.T) {
	h := &fakeHistory{
		transactions: withdrawals(10),
		importResult: &model.ImportResult{
			ImportedCount: 9,
			TotalRows:     10,
			Errors:        []string{"row 4: invalid transaction_type"},
		},
	}
	e := NewEngine(h)

	result, err := e.ImportCSV(context.Background(), "batch.csv", strings.NewReader("data"), 0)
	require.NoError(t, err)

	assert.Equal(t, 9, result.ImportedCount)
	assert.Equal(t, 10, result.TotalRows)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 1, h.calls, "successful import must trigger one refresh fetch")
	assert.NotNil(t, e.Current())
}

func TestEngine_ImportFailureDoesNotRefresh(t *testing.T) {
	h := &fakeHistory{importErr: fmt.Errorf("backend error (500): boom")}
	e := NewEngine(h)

	_, err := e.ImportCSV(context.Background(), "batch.csv", strings.NewReader("data"), 0)

	require.Error(t, err)
	assert.Equal(t, 0, h.calls, "failed import must not refresh")
}
