package query

import (
	"testing"
	"time"

	"github.com/cashops/atmctl/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_ParamsEmptyWhenNothingSet(t *testing.T) {
	f := NewFilter()

	params := f.Params()

	assert.Empty(t, params, "default descriptor must produce no parameters")
}

func TestFilter_ParamsOmitUnsetFields(t *testing.T) {
	txType := model.TypeWithdrawal
	atmID := 3

	f := NewFilter()
	f.Type = &txType
	f.ATMID = &atmID
	f.Page = 2

	params := f.Params()

	assert.Equal(t, "withdrawal", params.Get("filter_type"))
	assert.Equal(t, "3", params.Get("filter_atm_id"))
	assert.Equal(t, "2", params.Get("page"))

	for _, absent := range []string{"filter_vault_id", "filter_section_id", "date_from", "date_to", "search", "min_amount", "max_amount", "time_period", "per_page"} {
		_, ok := params[absent]
		assert.False(t, ok, "unset field %s must be absent", absent)
	}
}

func TestFilter_ParamsIncludeNonDefaultSort(t *testing.T) {
	f := NewFilter()
	f.SortBy = SortAmount
	f.SortOrder = Ascending

	params := f.Params()

	assert.Equal(t, "amount", params.Get("sort_by"))
	assert.Equal(t, "asc", params.Get("sort_order"))
}

func TestFilter_ExportParamsDropPagination(t *testing.T) {
	minAmount := 100.0

	f := NewFilter()
	f.MinAmount = &minAmount
	f.Page = 3
	f.PerPage = 25
	f.SortBy = SortAmount

	params := f.ExportParams()

	assert.Equal(t, "100", params.Get("min_amount"))
	for _, absent := range []string{"page", "per_page", "sort_by", "sort_order"} {
		_, ok := params[absent]
		assert.False(t, ok, "export must not carry %s", absent)
	}
}

func TestFilter_Validate(t *testing.T) {
	badType := model.TransactionType("transfer")
	negative := -1.0
	lo, hi := 50.0, 100.0
	from := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		mutate  func(*Filter)
		name    string
		wantErr bool
	}{
		{name: "default is valid", mutate: func(*Filter) {}},
		{name: "unknown type", mutate: func(f *Filter) { f.Type = &badType }, wantErr: true},
		{name: "negative min amount", mutate: func(f *Filter) { f.MinAmount = &negative }, wantErr: true},
		{name: "min above max", mutate: func(f *Filter) { f.MinAmount = &hi; f.MaxAmount = &lo }, wantErr: true},
		{name: "inverted date range", mutate: func(f *Filter) { f.DateFrom = &from; f.DateTo = &to }, wantErr: true},
		{name: "zero page", mutate: func(f *Filter) { f.Page = 0 }, wantErr: true},
		{name: "odd per-page", mutate: func(f *Filter) { f.PerPage = 33 }, wantErr: true},
		{name: "valid range", mutate: func(f *Filter) { f.MinAmount = &lo; f.MaxAmount = &hi }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilter_EncodeParseRoundTrip(t *testing.T) {
	txType := model.TypeAllocation
	period := model.PeriodEvening
	vaultID := 7
	minAmount, maxAmount := 250.5, 9000.0
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	f := NewFilter()
	f.Type = &txType
	f.VaultID = &vaultID
	f.DateFrom = &from
	f.Search = "Mall Plaza"
	f.MinAmount = &minAmount
	f.MaxAmount = &maxAmount
	f.TimePeriod = &period
	f.SortBy = SortATMName
	f.SortOrder = Ascending
	f.Page = 4
	f.PerPage = 25

	parsed, err := ParseFilter(f.Encode())
	require.NoError(t, err)

	assert.Equal(t, f, parsed)
}

func TestParseFilter_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"bad atm id", "filter_atm_id=abc"},
		{"bad date", "date_from=03-01-2025"},
		{"bad amount", "min_amount=lots"},
		{"inverted amounts", "min_amount=500&max_amount=100"},
		{"bad per page", "per_page=12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.encoded)
			assert.Error(t, err)
		})
	}
}
