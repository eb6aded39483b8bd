// Package api provides a client for the cash replenishment backend's REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/service"
)

const defaultTimeout = 30 * time.Second

// Config holds backend API configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: backend base URL is required", common.ErrMissingConfig)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("%w: invalid backend base URL: %s", common.ErrInvalidConfig, c.BaseURL)
	}
	return nil
}

// Client talks to the replenishment backend. It implements the
// HistoryService, SectionService, TrainingService, FleetService and
// ForecastService interfaces.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	retryOpts  *service.RetryOptions
	baseURL    string
}

// NewClient creates a new backend client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: slog.Default().With("component", "api"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// apiError is the backend's JSON error envelope.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// endpoint builds a full URL for path with optional query parameters.
func (c *Client) endpoint(path string, params url.Values) string {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// statusError maps a non-2xx response to an error, decoding the backend's
// error envelope when present.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload apiError
	if err := json.Unmarshal(body, &payload); err == nil && (payload.Error != "" || payload.Message != "") {
		msg := payload.Error
		if payload.Message != "" {
			msg = fmt.Sprintf("%s: %s", payload.Error, payload.Message)
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", common.ErrNotFound, msg)
		}
		return fmt.Errorf("backend error (%d): %s", resp.StatusCode, msg)
	}

	if resp.StatusCode == http.StatusNotFound {
		return common.ErrNotFound
	}
	return fmt.Errorf("backend error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// get issues one GET and decodes the JSON response into out. Network
// failures and 5xx responses are retried; everything else is not.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, params), nil)
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %v", common.ErrAPIConnection, err),
				Retryable: true,
			}
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests {
			return &common.RetryableError{Err: common.ErrRateLimit, Retryable: true}
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return &common.RetryableError{Err: statusError(resp), Retryable: true}
		}
		if resp.StatusCode != http.StatusOK {
			return &common.RetryableError{Err: statusError(resp), Retryable: false}
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &common.RetryableError{
				Err:       fmt.Errorf("failed to decode response: %w", err),
				Retryable: false,
			}
		}
		return nil
	}, *c.retryOpts)
}

// getOnce issues one GET with no retry. Used where each attempt must be
// observable, such as training status polls.
func (c *Client) getOnce(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, params), nil)
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

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// post issues one POST with a JSON body and decodes the response into out.
// POSTs have side effects server-side and are never retried.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrAPIConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// del issues one DELETE.
func (c *Client) del(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint(path, nil), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrAPIConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return statusError(resp)
	}
}

func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsNotFound reports whether err represents a 404 from the backend.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
