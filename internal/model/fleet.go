package model

import "time"

// ATM is one cash machine in the fleet.
type ATM struct {
	CreatedAt      time.Time `json:"created_at"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	ID             int       `json:"id"`
	Capacity       float64   `json:"capacity"`
	CurrentBalance float64   `json:"current_balance"`
	DailyAvgDemand float64   `json:"daily_avg_demand"`
}

// Utilization returns the ATM's fill level as a percentage of capacity.
func (a ATM) Utilization() float64 {
	if a.Capacity <= 0 {
		return 0
	}
	return a.CurrentBalance / a.Capacity * 100
}

// Vault is a cash vault that replenishes ATMs.
type Vault struct {
	CreatedAt      time.Time `json:"created_at"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	ID             int       `json:"id"`
	Capacity       float64   `json:"capacity"`
	CurrentBalance float64   `json:"current_balance"`
}

// ATMUtilization is one row of the fleet analytics utilization report.
type ATMUtilization struct {
	Name           string  `json:"name"`
	Utilization    float64 `json:"utilization"`
	CurrentBalance float64 `json:"current_balance"`
	Capacity       float64 `json:"capacity"`
	DailyDemand    float64 `json:"daily_demand"`
}

// FleetSummary holds the aggregate balance totals across the fleet.
type FleetSummary struct {
	TotalVaults       int     `json:"total_vaults"`
	TotalATMs         int     `json:"total_atms"`
	TotalVaultBalance float64 `json:"total_vault_balance"`
	TotalATMBalance   float64 `json:"total_atm_balance"`
}

// FleetAnalytics is the dashboard analytics payload.
type FleetAnalytics struct {
	Summary            FleetSummary     `json:"summary"`
	RecentTransactions []Transaction    `json:"recent_transactions"`
	ATMUtilization     []ATMUtilization `json:"atm_utilization"`
}
