package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// Publisher writes a filtered transaction set and its summary to a Google
// Sheets spreadsheet.
type Publisher struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewPublisher creates a new Google Sheets publisher.
func NewPublisher(ctx context.Context, config Config, logger *slog.Logger) (*Publisher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Publisher{
		config:  config,
		service: svc,
		logger:  logger,
	}, nil
}

// Publish replaces the spreadsheet contents with the given transactions
// and their summary. The summary covers the whole filtered set, so publish
// the full export rather than a single page.
func (p *Publisher) Publish(ctx context.Context, transactions []model.Transaction, summary model.Summary) error {
	p.logger.Info("starting report publication",
		"transactions", len(transactions),
		"date_range", summary.DateRangeLabel)

	spreadsheetID, err := p.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := p.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := p.prepareReportData(transactions, summary)

	retryOpts := service.RetryOptions{
		MaxAttempts:  p.config.RetryAttempts,
		InitialDelay: p.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return p.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if p.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return p.applyFormatting(ctx, spreadsheetID, len(values))
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic, the data is already in place
			p.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	p.logger.Info("report publication completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthCfg := OAuth2Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenFile:    config.TokenFile,
		}

		token, err := GetOrRefreshToken(ctx, oauthCfg, config.RefreshToken)
		if err != nil {
			return nil, err
		}

		tokenSource = oauth2.ReuseTokenSource(token, oauthCfg.oauthConfig().TokenSource(ctx, token))
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (p *Publisher) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if p.config.SpreadsheetID != "" {
		_, err := p.service.Spreadsheets.Get(p.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", p.config.SpreadsheetID, err)
		}
		return p.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    p.config.SpreadsheetName,
			TimeZone: p.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Transactions",
				},
			},
		},
	}

	created, err := p.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	p.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (p *Publisher) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := p.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReportData lays out the report: title, summary, per-type
// breakdown, then the transaction detail rows newest first.
func (p *Publisher) prepareReportData(transactions []model.Transaction, summary model.Summary) [][]any {
	estimatedRows := 12 + len(summary.CountByType) + len(transactions)
	values := make([][]any, 0, estimatedRows)

	values = append(values,
		[]any{"ATM Transaction Report", summary.DateRangeLabel},
		[]any{},
		[]any{"Summary"},
		[]any{"Total Amount", summary.TotalAmount},
		[]any{"Total Transactions", summary.TotalCount},
		[]any{"Average Amount", summary.AverageAmount},
		[]any{},
		[]any{"Breakdown by Type"},
		[]any{"Type", "Count", "Amount"},
	)

	// Sort types by amount (descending)
	types := make([]model.TransactionType, 0, len(summary.CountByType))
	for t := range summary.CountByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return summary.AmountByType[types[i]] > summary.AmountByType[types[j]]
	})

	for _, t := range types {
		values = append(values, []any{
			string(t),
			summary.CountByType[t],
			summary.AmountByType[t],
		})
	}

	values = append(values,
		[]any{},
		[]any{"Transaction Details"},
		[]any{
			"Timestamp",
			"Type",
			"ATM",
			"Vault",
			"Amount",
			"Notes",
		})

	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Timestamp.After(transactions[j].Timestamp)
	})

	for _, txn := range transactions {
		values = append(values, []any{
			txn.Timestamp.Format("2006-01-02 15:04"),
			string(txn.Type),
			txn.ATMName,
			txn.VaultName,
			txn.Amount,
			txn.Notes,
		})
	}

	return values
}

// writeData writes the report rows in batches to stay under API limits.
func (p *Publisher) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += p.config.BatchSize {
		end := i + p.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		valueRange := &sheets.ValueRange{
			Values: values[i:end],
		}

		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := p.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		p.logger.Debug("wrote batch", "start_row", i+1, "rows", end-i)
	}

	return nil
}

// applyFormatting applies header, currency and layout formatting.
func (p *Publisher) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	requests := []*sheets.Request{
		// Title row
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold:     true,
							FontSize: 16,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		// Section headers
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    2,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 0,
					EndColumnIndex:   1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		// Amount column as currency
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 4,
					EndColumnIndex:   5,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "CURRENCY",
							Pattern: "$#,##0.00",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		// Auto-resize columns
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    0,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   6,
				},
			},
		},
		// Freeze the title row
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: 0,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := p.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}
