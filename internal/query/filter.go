// Package query implements the transaction-history query engine: an
// immutable filter descriptor plus the fetch/sort/paginate logic that keeps
// displayed data consistent with the latest filter state.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cashops/atmctl/internal/model"
)

// SortColumn is a sortable history column.
type SortColumn string

const (
	SortTimestamp SortColumn = "timestamp"
	SortATMName   SortColumn = "atm_name"
	SortType      SortColumn = "type"
	SortAmount    SortColumn = "amount"
)

// Valid reports whether c is a known sort column.
func (c SortColumn) Valid() bool {
	switch c {
	case SortTimestamp, SortATMName, SortType, SortAmount:
		return true
	}
	return false
}

// SortOrder is the sort direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Toggle returns the opposite order.
func (o SortOrder) Toggle() SortOrder {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// PerPageChoices are the page sizes the backend accepts.
var PerPageChoices = []int{25, 50, 100}

const (
	defaultPerPage = 50
	dateLayout     = "2006-01-02"
)

// Filter is the full set of query parameters for one history request. It
// is a value object: mutators on the engine construct a fresh Filter for
// every change, so a partially updated descriptor can never be sent.
type Filter struct {
	Type       *model.TransactionType
	ATMID      *int
	VaultID    *int
	SectionID  *int
	DateFrom   *time.Time
	DateTo     *time.Time
	MinAmount  *float64
	MaxAmount  *float64
	TimePeriod *model.TimePeriod
	Search     string
	SortBy     SortColumn
	SortOrder  SortOrder
	Page       int
	PerPage    int
}

// NewFilter returns the default descriptor: newest transactions first,
// first page, 50 per page, nothing constrained.
func NewFilter() Filter {
	return Filter{
		SortBy:    SortTimestamp,
		SortOrder: Descending,
		Page:      1,
		PerPage:   defaultPerPage,
	}
}

// Validate checks the descriptor's invariants client-side so an invalid
// query is never sent to the backend.
func (f Filter) Validate() error {
	if f.Type != nil && !f.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", *f.Type)
	}
	if f.TimePeriod != nil && !f.TimePeriod.Valid() {
		return fmt.Errorf("unknown time period %q", *f.TimePeriod)
	}
	if f.MinAmount != nil && *f.MinAmount < 0 {
		return fmt.Errorf("minimum amount must not be negative")
	}
	if f.MaxAmount != nil && *f.MaxAmount < 0 {
		return fmt.Errorf("maximum amount must not be negative")
	}
	if f.MinAmount != nil && f.MaxAmount != nil && *f.MinAmount > *f.MaxAmount {
		return fmt.Errorf("minimum amount %v exceeds maximum amount %v", *f.MinAmount, *f.MaxAmount)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return fmt.Errorf("date range start is after its end")
	}
	if !f.SortBy.Valid() {
		return fmt.Errorf("unknown sort column %q", f.SortBy)
	}
	if f.SortOrder != Ascending && f.SortOrder != Descending {
		return fmt.Errorf("unknown sort order %q", f.SortOrder)
	}
	if f.Page < 1 {
		return fmt.Errorf("page must be at least 1")
	}
	if !validPerPage(f.PerPage) {
		return fmt.Errorf("per-page must be one of %v", PerPageChoices)
	}
	return nil
}

func validPerPage(n int) bool {
	for _, c := range PerPageChoices {
		if n == c {
			return true
		}
	}
	return false
}

// Params encodes the descriptor as backend query parameters. Fields left
// unset are omitted entirely so they do not constrain the server-side
// query, and fields still at their default (first page, default page size,
// newest-first ordering) are omitted because the backend defaults match.
func (f Filter) Params() url.Values {
	params := f.filterParams()

	if f.SortBy != SortTimestamp || f.SortOrder != Descending {
		params.Set("sort_by", string(f.SortBy))
		params.Set("sort_order", string(f.SortOrder))
	}
	if f.Page != 1 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage != defaultPerPage {
		params.Set("per_page", strconv.Itoa(f.PerPage))
	}

	return params
}

// ExportParams encodes the filter for the CSV export endpoint, which
// streams the full filtered set and ignores pagination and ordering.
func (f Filter) ExportParams() url.Values {
	return f.filterParams()
}

func (f Filter) filterParams() url.Values {
	params := url.Values{}

	if f.Type != nil {
		params.Set("filter_type", string(*f.Type))
	}
	if f.ATMID != nil {
		params.Set("filter_atm_id", strconv.Itoa(*f.ATMID))
	}
	if f.VaultID != nil {
		params.Set("filter_vault_id", strconv.Itoa(*f.VaultID))
	}
	if f.SectionID != nil {
		params.Set("filter_section_id", strconv.Itoa(*f.SectionID))
	}
	if f.DateFrom != nil {
		params.Set("date_from", f.DateFrom.Format(dateLayout))
	}
	if f.DateTo != nil {
		params.Set("date_to", f.DateTo.Format(dateLayout))
	}
	if f.Search != "" {
		params.Set("search", f.Search)
	}
	if f.MinAmount != nil {
		params.Set("min_amount", strconv.FormatFloat(*f.MinAmount, 'f', -1, 64))
	}
	if f.MaxAmount != nil {
		params.Set("max_amount", strconv.FormatFloat(*f.MaxAmount, 'f', -1, 64))
	}
	if f.TimePeriod != nil {
		params.Set("time_period", string(*f.TimePeriod))
	}

	return params
}

// Encode serializes the descriptor to a query string, for storing as a
// named preset.
func (f Filter) Encode() string {
	return f.Params().Encode()
}

// ParseFilter reconstructs a descriptor from an encoded query string, as
// produced by Encode. Unknown parameters are ignored.
func ParseFilter(encoded string) (Filter, error) {
	params, err := url.ParseQuery(encoded)
	if err != nil {
		return Filter{}, fmt.Errorf("failed to parse filter: %w", err)
	}

	f := NewFilter()

	if v := params.Get("filter_type"); v != "" {
		t := model.TransactionType(v)
		f.Type = &t
	}
	if v := params.Get("filter_atm_id"); v != "" {
		id, convErr := strconv.Atoi(v)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid ATM id %q", v)
		}
		f.ATMID = &id
	}
	if v := params.Get("filter_vault_id"); v != "" {
		id, convErr := strconv.Atoi(v)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid vault id %q", v)
		}
		f.VaultID = &id
	}
	if v := params.Get("filter_section_id"); v != "" {
		id, convErr := strconv.Atoi(v)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid section id %q", v)
		}
		f.SectionID = &id
	}
	if v := params.Get("date_from"); v != "" {
		d, convErr := time.Parse(dateLayout, v)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid date %q", v)
		}
		f.DateFrom = &d
	}
	if v := params.Get("date_to"); v != "" {
		d, convErr := time.Parse(dateLayout, v)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid date %q", v)
		}
		f.DateTo = &d
	}
	f.Search = params.Get("search")
	if v := params.Get("min_amount"); v != "" {
		amount, convErr := strconv.ParseFloat(v, 64)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid minimum amount %q", v)
		}
		f.MinAmount = &amount
	}
	if v := params.Get("max_amount"); v != "" {
		amount, convErr := strconv.ParseFloat(v, 64)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid maximum amount %q", v)
		}
		f.MaxAmount = &amount
	}
	if v := params.Get("time_period"); v != "" {
		p := model.TimePeriod(v)
		f.TimePeriod = &p
	}
	if v := params.Get("sort_by"); v != "" {
		f.SortBy = SortColumn(v)
	}
	if v := params.Get("sort_order"); v != "" {
		f.SortOrder = SortOrder(v)
	}
	if v := params.Get("page"); v != "" {
		page, convErr := strconv.Atoi(v)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid page %q", v)
		}
		f.Page = page
	}
	if v := params.Get("per_page"); v != "" {
		perPage, convErr := strconv.Atoi(v)
		if convErr != nil {
			return Filter{}, fmt.Errorf("invalid per-page %q", v)
		}
		f.PerPage = perPage
	}

	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}
