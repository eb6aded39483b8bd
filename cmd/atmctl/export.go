package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/api"
	"github.com/cashops/atmctl/internal/cli"
	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/config"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/query"
	"github.com/cashops/atmctl/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export filtered transactions as CSV",
		Long: `Export the full filtered transaction set. Exports are never
paginated: the same filters as 'atmctl history' select the rows, and every
matching row is written.

With --sheets the export is published to Google Sheets instead of a file.`,
		RunE: runExport,
	}

	addFilterFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Bool("sheets", false, "publish to Google Sheets instead of writing CSV")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	f, err := filterFromFlags(ctx, cmd)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	if useSheets, _ := cmd.Flags().GetBool("sheets"); useSheets {
		return publishToSheets(ctx, client, f)
	}

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		file, createErr := os.Create(path) // #nosec G304
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() { _ = file.Close() }()
		out = file
	}

	if err := client.ExportCSV(ctx, f.ExportParams(), out); err != nil {
		return err
	}

	if out != os.Stdout {
		fmt.Println(cli.FormatSuccess("Export written to " + out.Name()))
	}
	return nil
}

// publishToSheets fetches the full filtered set page by page and publishes
// it with its summary to a spreadsheet.
func publishToSheets(ctx context.Context, client *api.Client, f query.Filter) error {
	sheetsCfg, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("sheets not configured: %w", err)
	}

	publisher, err := sheets.NewPublisher(ctx, *sheetsCfg, slog.Default().With("component", "sheets"))
	if err != nil {
		return err
	}

	transactions, summary, err := fetchAllPages(ctx, client, f)
	if err != nil {
		return err
	}

	if err := publisher.Publish(ctx, transactions, summary); err != nil {
		common.LogError(err, "Sheets publish failed", common.Fields{
			"transactions": len(transactions),
		})
		return err
	}

	common.LogInfo("Published transaction report", common.Fields{
		"transactions": len(transactions),
		"total_amount": summary.TotalAmount,
	})
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Published %d transactions to Google Sheets", len(transactions))))
	return nil
}

// fetchAllPages walks every page of the filtered set at the largest page
// size. The summary covers the whole set and is identical on each page,
// so the first one is kept.
func fetchAllPages(ctx context.Context, client *api.Client, f query.Filter) ([]model.Transaction, model.Summary, error) {
	f.Page = 1
	f.PerPage = query.PerPageChoices[len(query.PerPageChoices)-1]

	var all []model.Transaction
	var summary model.Summary

	for {
		page, err := client.FetchHistory(ctx, f.Params())
		if err != nil {
			return nil, model.Summary{}, err
		}
		if f.Page == 1 {
			summary = page.Summary
		}

		all = append(all, page.Transactions...)

		if f.Page >= page.TotalPages {
			return all, summary, nil
		}
		f.Page++
	}
}
