package model

import "time"

// Section is a user-defined named grouping of transactions, typically used
// to keep imported datasets apart (for example training vs test data).
type Section struct {
	CreatedAt        time.Time `json:"created_at"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	ID               int       `json:"id"`
	TransactionCount int       `json:"transaction_count"`
}
