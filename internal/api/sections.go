package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// Sections lists all transaction sections with their transaction counts.
func (c *Client) Sections(ctx context.Context) ([]model.Section, error) {
	var sections []model.Section
	if err := c.get(ctx, "/transaction-sections", nil, &sections); err != nil {
		return nil, fmt.Errorf("failed to fetch sections: %w", err)
	}
	return sections, nil
}

// CreateSection creates a named section. The name must be non-empty;
// that is enforced here so an invalid request never reaches the backend.
func (c *Client) CreateSection(ctx context.Context, name, description string) (*model.Section, error) {
	if name == "" {
		return nil, fmt.Errorf("section name is required")
	}

	var section model.Section
	body := map[string]string{
		"name":        name,
		"description": description,
	}
	if err := c.post(ctx, "/transaction-sections", body, &section); err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}

	c.logger.Info("Created section", "name", section.Name, "id", section.ID)
	return &section, nil
}

// DeleteSection deletes a section. The backend rejects deletion of a
// section that still has transactions; that rejection is surfaced as-is.
func (c *Client) DeleteSection(ctx context.Context, id int) error {
	if err := c.del(ctx, "/transaction-sections/"+strconv.Itoa(id)); err != nil {
		return fmt.Errorf("failed to delete section %d: %w", id, err)
	}
	return nil
}

var _ service.SectionService = (*Client)(nil)
