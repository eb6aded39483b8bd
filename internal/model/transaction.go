// Package model defines the domain types shared across the application.
package model

import "time"

// TransactionType classifies a cash movement recorded by the backend.
type TransactionType string

const (
	// TypeWithdrawal is cash dispensed by an ATM to a customer.
	TypeWithdrawal TransactionType = "withdrawal"
	// TypeDeposit is cash accepted by an ATM from a customer.
	TypeDeposit TransactionType = "deposit"
	// TypeAllocation is a replenishment transfer from a vault to an ATM.
	TypeAllocation TransactionType = "allocation"
	// TypeBalanceCheck is a balance inquiry with no cash movement.
	TypeBalanceCheck TransactionType = "balance_check"
)

// TransactionTypes lists every valid transaction type.
var TransactionTypes = []TransactionType{
	TypeWithdrawal,
	TypeDeposit,
	TypeAllocation,
	TypeBalanceCheck,
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeWithdrawal, TypeDeposit, TypeAllocation, TypeBalanceCheck:
		return true
	}
	return false
}

// TimePeriod is a coarse time-of-day bucket used for filtering.
type TimePeriod string

const (
	// PeriodMorning covers 06:00-12:00.
	PeriodMorning TimePeriod = "morning"
	// PeriodAfternoon covers 12:00-18:00.
	PeriodAfternoon TimePeriod = "afternoon"
	// PeriodEvening covers 18:00-24:00.
	PeriodEvening TimePeriod = "evening"
	// PeriodNight covers 00:00-06:00.
	PeriodNight TimePeriod = "night"
)

// Valid reports whether p is one of the known time periods.
func (p TimePeriod) Valid() bool {
	switch p {
	case PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight:
		return true
	}
	return false
}

// Transaction is a single cash movement as reported by the backend.
type Transaction struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      TransactionType `json:"transaction_type"`
	ATMName   string          `json:"atm_name"`
	VaultName string          `json:"vault_name"`
	Notes     string          `json:"notes,omitempty"`
	ID        int             `json:"id"`
	ATMID     int             `json:"atm_id"`
	VaultID   int             `json:"vault_id"`
	SectionID int             `json:"section_id,omitempty"`
	Amount    float64         `json:"amount"`
}

// Summary aggregates the entire filtered transaction set, not just the
// page returned alongside it.
type Summary struct {
	CountByType    map[TransactionType]int     `json:"count_by_type"`
	AmountByType   map[TransactionType]float64 `json:"amount_by_type"`
	DateRangeLabel string                      `json:"date_range_label"`
	TotalCount     int                         `json:"total_count"`
	TotalAmount    float64                     `json:"total_amount"`
	AverageAmount  float64                     `json:"average_amount"`
}

// TransactionPage is the result of one history query.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Summary      Summary       `json:"summary"`
	TotalPages   int           `json:"pages"`
	CurrentPage  int           `json:"current_page"`
}

// ImportResult reports the outcome of a CSV import. Partial success is a
// normal outcome: some rows import while others are reported in Errors.
type ImportResult struct {
	Message       string   `json:"message"`
	Errors        []string `json:"errors"`
	ImportedCount int      `json:"imported_count"`
	TotalRows     int      `json:"total_rows"`
}
