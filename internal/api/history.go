package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// FetchHistory issues one transaction-history query. The params are
// produced by a query.Filter; absent parameters leave the corresponding
// server-side predicate unconstrained.
func (c *Client) FetchHistory(ctx context.Context, params url.Values) (*model.TransactionPage, error) {
	c.logger.Debug("Fetching transaction history", "params", params.Encode())

	var page model.TransactionPage
	if err := c.get(ctx, "/transactions/history", params, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch transaction history: %w", err)
	}

	if page.TotalPages < 1 {
		page.TotalPages = 1
	}

	return &page, nil
}

// ExportCSV streams the full filtered transaction set to w. The server
// does not paginate exports; the same filter parameters as a history
// query select the rows.
func (c *Client) ExportCSV(ctx context.Context, params url.Values, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/transactions/export-csv", params), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrAPIConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to stream export: %w", err)
	}

	c.logger.Info("Exported transactions", "bytes", n)
	return nil
}

// ImportCSV uploads a CSV file as a multipart form. Rows that fail
// validation server-side are reported individually in the result; a
// partial import is not an error.
func (c *Client) ImportCSV(ctx context.Context, filename string, r io.Reader, sectionID int) (*model.ImportResult, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if sectionID > 0 {
			if err := form.WriteField("section_id", strconv.Itoa(sectionID)); err != nil {
				_ = pw.CloseWithError(err)
				return
			}
		}
		_ = pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/transactions/import-csv", nil), pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAPIConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result model.ImportResult
	if err := decodeJSON(resp.Body, &result); err != nil {
		return nil, err
	}

	c.logger.Info("Imported transactions",
		"imported", result.ImportedCount,
		"total", result.TotalRows,
		"errors", len(result.Errors))

	return &result, nil
}

var _ service.HistoryService = (*Client)(nil)
