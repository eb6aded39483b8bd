package api

import (
	"context"
	"fmt"

	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// ATMs lists every ATM in the fleet.
func (c *Client) ATMs(ctx context.Context) ([]model.ATM, error) {
	var atms []model.ATM
	if err := c.get(ctx, "/atms", nil, &atms); err != nil {
		return nil, fmt.Errorf("failed to fetch ATMs: %w", err)
	}
	return atms, nil
}

// Vaults lists every vault.
func (c *Client) Vaults(ctx context.Context) ([]model.Vault, error) {
	var vaults []model.Vault
	if err := c.get(ctx, "/vaults", nil, &vaults); err != nil {
		return nil, fmt.Errorf("failed to fetch vaults: %w", err)
	}
	return vaults, nil
}

// Analytics fetches the fleet dashboard summary.
func (c *Client) Analytics(ctx context.Context) (*model.FleetAnalytics, error) {
	var analytics model.FleetAnalytics
	if err := c.get(ctx, "/analytics/dashboard", nil, &analytics); err != nil {
		return nil, fmt.Errorf("failed to fetch fleet analytics: %w", err)
	}
	return &analytics, nil
}

// Optimize requests an allocation plan from the backend optimizer.
// Algorithm is "greedy" or "linear_programming".
func (c *Client) Optimize(ctx context.Context, algorithm string) (*model.AllocationPlan, error) {
	if algorithm == "" {
		algorithm = "greedy"
	}

	var plan model.AllocationPlan
	body := map[string]string{"algorithm": algorithm}
	if err := c.post(ctx, "/optimize", body, &plan); err != nil {
		return nil, fmt.Errorf("failed to optimize allocation: %w", err)
	}

	c.logger.Info("Computed allocation plan",
		"algorithm", plan.Algorithm,
		"transfers", len(plan.Allocations),
		"unmet_shortage", plan.TotalShortage)

	return &plan, nil
}

// ExecuteAllocation applies a previously computed plan. The backend
// rejects the whole plan if any vault lacks sufficient funds.
func (c *Client) ExecuteAllocation(ctx context.Context, plan *model.AllocationPlan) error {
	if plan == nil || len(plan.Allocations) == 0 {
		return fmt.Errorf("allocation plan is empty")
	}

	body := map[string]any{"allocations": plan.Allocations}
	if err := c.post(ctx, "/execute-allocation", body, nil); err != nil {
		return fmt.Errorf("failed to execute allocation: %w", err)
	}

	c.logger.Info("Executed allocation", "transfers", len(plan.Allocations))
	return nil
}

var _ service.FleetService = (*Client)(nil)
