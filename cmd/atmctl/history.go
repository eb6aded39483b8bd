package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/query"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse transaction history",
		Long: `Query the backend's transaction history with filters, sorting and
pagination. The summary shown below the table covers the entire filtered
set, not just the displayed page.`,
		RunE: runHistory,
	}

	addFilterFlags(cmd)
	cmd.Flags().String("sort", string(query.SortTimestamp), "sort column (timestamp, atm_name, type, amount)")
	cmd.Flags().String("order", string(query.Descending), "sort order (asc, desc)")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("per-page", 50, "rows per page (25, 50 or 100)")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	f, err := filterFromFlags(ctx, cmd)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("sort"); v != "" {
		f.SortBy = query.SortColumn(v)
	}
	if v, _ := cmd.Flags().GetString("order"); v != "" {
		f.SortOrder = query.SortOrder(v)
	}
	f.Page, _ = cmd.Flags().GetInt("page")
	f.PerPage, _ = cmd.Flags().GetInt("per-page")
	if err := f.Validate(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	page, err := client.FetchHistory(ctx, f.Params())
	if err != nil {
		return err
	}

	printTransactionPage(page)
	return nil
}

func printTransactionPage(page *model.TransactionPage) {
	if len(page.Transactions) == 0 {
		fmt.Println(cli.FormatInfo("No transactions match the current filter."))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tTYPE\tATM\tVAULT\tAMOUNT\tNOTES")
	for _, txn := range page.Transactions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			txn.Timestamp.Format("2006-01-02 15:04"),
			cli.StyleTransactionType(txn.Type),
			txn.ATMName,
			txn.VaultName,
			cli.FormatMoney(txn.Amount),
			txn.Notes,
		)
	}
	_ = w.Flush()

	summary := page.Summary
	fmt.Println()
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
		"Page %d of %d  •  %d transactions  •  total %s  •  average %s",
		page.CurrentPage, page.TotalPages,
		summary.TotalCount,
		cli.FormatMoney(summary.TotalAmount),
		cli.FormatMoney(summary.AverageAmount),
	)))

	for t, count := range summary.CountByType {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
			"  %s: %d (%s)", t, count, cli.FormatMoney(summary.AmountByType[t]),
		)))
	}
}
