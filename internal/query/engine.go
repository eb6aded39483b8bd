package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// ErrSuperseded is returned by Fetch when a newer fetch was started before
// this one resolved. The newer request owns the displayed page; callers
// should drop the result silently.
var ErrSuperseded = errors.New("query superseded by a newer request")

// AmountPreset is a quick amount-range shortcut. Each preset sets both
// bounds in one mutation so no intermediate descriptor with min > max can
// exist.
type AmountPreset string

const (
	// AmountAny clears both bounds.
	AmountAny AmountPreset = "any"
	// AmountUnder100 selects amounts below $100.
	AmountUnder100 AmountPreset = "under-100"
	// Amount100To1000 selects amounts between $100 and $1,000.
	Amount100To1000 AmountPreset = "100-1000"
	// AmountOver1000 selects amounts above $1,000.
	AmountOver1000 AmountPreset = "over-1000"
)

// Engine translates filter/sort/page state into history requests and keeps
// the displayed page consistent with the latest filter state. Overlapping
// fetches are resolved by superseding: starting a fetch cancels the
// previous in-flight request, and only the newest fetch may install its
// result.
type Engine struct {
	history        service.HistoryService
	logger         *slog.Logger
	current        *model.TransactionPage
	cancelInFlight context.CancelFunc
	filter         Filter
	generation     uint64
	mu             sync.Mutex
}

// NewEngine creates an engine with the default filter.
func NewEngine(history service.HistoryService) *Engine {
	return &Engine{
		history: history,
		filter:  NewFilter(),
		logger:  slog.Default().With("component", "query"),
	}
}

// Filter returns the current descriptor.
func (e *Engine) Filter() Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// Current returns the last successfully fetched page, or nil before the
// first fetch.
func (e *Engine) Current() *model.TransactionPage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// SetFilter replaces the whole descriptor, typically from a saved preset.
func (e *Engine) SetFilter(f Filter) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidFilter, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter = f
	return nil
}

// mutateFilter rebuilds the descriptor through fn and clamps the page back
// to 1: changing any filter predicate invalidates the previous result's
// page count.
func (e *Engine) mutateFilter(fn func(*Filter)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.filter
	fn(&f)
	f.Page = 1
	e.filter = f
}

// SetType filters by transaction type; nil clears the predicate.
func (e *Engine) SetType(t *model.TransactionType) {
	e.mutateFilter(func(f *Filter) { f.Type = t })
}

// SetATM filters by ATM id; nil clears the predicate.
func (e *Engine) SetATM(id *int) {
	e.mutateFilter(func(f *Filter) { f.ATMID = id })
}

// SetVault filters by vault id; nil clears the predicate.
func (e *Engine) SetVault(id *int) {
	e.mutateFilter(func(f *Filter) { f.VaultID = id })
}

// SetSection filters by section id; nil clears the predicate.
func (e *Engine) SetSection(id *int) {
	e.mutateFilter(func(f *Filter) { f.SectionID = id })
}

// SetDateRange sets both date bounds in one mutation.
func (e *Engine) SetDateRange(from, to *time.Time) {
	e.mutateFilter(func(f *Filter) {
		f.DateFrom = from
		f.DateTo = to
	})
}

// SetSearch sets the ATM-name search term; "" clears it.
func (e *Engine) SetSearch(term string) {
	e.mutateFilter(func(f *Filter) { f.Search = term })
}

// SetTimePeriod filters by time-of-day bucket; nil clears the predicate.
func (e *Engine) SetTimePeriod(p *model.TimePeriod) {
	e.mutateFilter(func(f *Filter) { f.TimePeriod = p })
}

// SetAmountRange sets both amount bounds in one mutation.
func (e *Engine) SetAmountRange(minAmount, maxAmount *float64) {
	e.mutateFilter(func(f *Filter) {
		f.MinAmount = minAmount
		f.MaxAmount = maxAmount
	})
}

// ApplyAmountPreset applies one of the quick amount-range shortcuts.
func (e *Engine) ApplyAmountPreset(preset AmountPreset) {
	hundred := 100.0
	thousand := 1000.0

	switch preset {
	case AmountUnder100:
		e.SetAmountRange(nil, &hundred)
	case Amount100To1000:
		e.SetAmountRange(&hundred, &thousand)
	case AmountOver1000:
		e.SetAmountRange(&thousand, nil)
	case AmountAny:
		e.SetAmountRange(nil, nil)
	}
}

// SortToggle sorts by column. Toggling the active column flips the order;
// switching to a new column starts descending.
func (e *Engine) SortToggle(column SortColumn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.filter.SortBy == column {
		e.filter.SortOrder = e.filter.SortOrder.Toggle()
		return
	}
	e.filter.SortBy = column
	e.filter.SortOrder = Descending
}

// SetPerPage changes the page size and resets to the first page.
func (e *Engine) SetPerPage(n int) error {
	if !validPerPage(n) {
		return fmt.Errorf("%w: per-page must be one of %v", common.ErrInvalidFilter, PerPageChoices)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter.PerPage = n
	e.filter.Page = 1
	return nil
}

// SetPage jumps to an absolute page. Pages below 1 clamp to 1.
func (e *Engine) SetPage(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n < 1 {
		n = 1
	}
	e.filter.Page = n
}

// CanPrev reports whether a previous page exists.
func (e *Engine) CanPrev() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter.Page > 1
}

// CanNext reports whether a next page exists, based on the last result.
func (e *Engine) CanNext() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && e.filter.Page < e.current.TotalPages
}

// First jumps to the first page.
func (e *Engine) First() { e.SetPage(1) }

// Prev moves one page back if possible.
func (e *Engine) Prev() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.filter.Page > 1 {
		e.filter.Page--
	}
}

// Next moves one page forward if the last result says one exists.
func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil && e.filter.Page < e.current.TotalPages {
		e.filter.Page++
	}
}

// Last jumps to the last known page.
func (e *Engine) Last() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.filter.Page = e.current.TotalPages
	}
}

// Fetch issues exactly one history request for the current descriptor.
// Starting a fetch supersedes any in-flight one: the older request is
// canceled and its result, if it arrives anyway, is discarded. On failure
// the previously displayed page is left untouched.
func (e *Engine) Fetch(ctx context.Context) (*model.TransactionPage, error) {
	e.mu.Lock()
	if e.cancelInFlight != nil {
		e.cancelInFlight()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	e.cancelInFlight = cancel
	e.generation++
	generation := e.generation
	filter := e.filter
	e.mu.Unlock()

	defer cancel()

	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidFilter, err)
	}

	page, err := e.history.FetchHistory(fetchCtx, filter.Params())

	e.mu.Lock()
	defer e.mu.Unlock()

	if generation != e.generation {
		return nil, ErrSuperseded
	}
	e.cancelInFlight = nil

	if err != nil {
		return nil, err
	}

	e.current = page
	e.logger.Debug("Installed history page",
		"page", page.CurrentPage,
		"pages", page.TotalPages,
		"rows", len(page.Transactions))

	return page, nil
}

// ExportCSV streams the full filtered set to w using the same filter
// parameters as a history query, without pagination.
func (e *Engine) ExportCSV(ctx context.Context, w io.Writer) error {
	filter := e.Filter()
	if err := filter.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidFilter, err)
	}
	return e.history.ExportCSV(ctx, filter.ExportParams(), w)
}

// ImportCSV uploads a CSV file and, on success, re-issues the current
// query so the displayed page reflects the imported rows. A refresh
// failure does not obscure a successful import.
func (e *Engine) ImportCSV(ctx context.Context, filename string, r io.Reader, sectionID int) (*model.ImportResult, error) {
	result, err := e.history.ImportCSV(ctx, filename, r, sectionID)
	if err != nil {
		return nil, err
	}

	if _, refreshErr := e.Fetch(ctx); refreshErr != nil && !errors.Is(refreshErr, ErrSuperseded) {
		e.logger.Warn("Failed to refresh history after import", "error", refreshErr)
	}

	return result, nil
}
