package model

// AllocationLine is one vault-to-ATM transfer proposed by the optimizer.
type AllocationLine struct {
	VaultName      string  `json:"vault_name"`
	ATMName        string  `json:"atm_name"`
	VaultID        int     `json:"vault_id"`
	ATMID          int     `json:"atm_id"`
	Amount         float64 `json:"amount"`
	ShortageBefore float64 `json:"shortage_before"`
}

// AllocationPlan is the optimizer's proposed set of replenishment
// transfers. TotalShortage is demand left unmet after all transfers.
type AllocationPlan struct {
	Algorithm     string           `json:"algorithm"`
	Allocations   []AllocationLine `json:"allocations"`
	TotalShortage float64          `json:"total_shortage"`
}

// TotalAmount returns the sum of all proposed transfers.
func (p AllocationPlan) TotalAmount() float64 {
	var total float64
	for _, a := range p.Allocations {
		total += a.Amount
	}
	return total
}
