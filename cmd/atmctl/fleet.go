package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
)

func fleetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fleet",
		Short: "Show fleet status and analytics",
		RunE:  runFleetSummary,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "atms",
		Short: "List ATMs with balances and utilization",
		RunE:  runFleetATMs,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "vaults",
		Short: "List vaults with balances",
		RunE:  runFleetVaults,
	})

	return cmd
}

func runFleetSummary(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	analytics, err := client.Analytics(cmd.Context())
	if err != nil {
		return err
	}

	s := analytics.Summary
	overview := fmt.Sprintf("ATMs: %d (%s total)\nVaults: %d (%s total)",
		s.TotalATMs, cli.FormatMoney(s.TotalATMBalance),
		s.TotalVaults, cli.FormatMoney(s.TotalVaultBalance))
	fmt.Println(cli.RenderBox("Fleet Overview", overview))
	fmt.Println()

	if len(analytics.ATMUtilization) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ATM\tBALANCE\tCAPACITY\tUTILIZATION\tDAILY DEMAND")
		for _, u := range analytics.ATMUtilization {
			util := cli.FormatPercent(u.Utilization / 100)
			if u.Utilization < 20 {
				util = cli.ErrorStyle.Render(util)
			} else if u.Utilization < 40 {
				util = cli.WarningStyle.Render(util)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				u.Name,
				cli.FormatMoney(u.CurrentBalance),
				cli.FormatMoney(u.Capacity),
				util,
				cli.FormatMoney(u.DailyDemand),
			)
		}
		_ = w.Flush()
	}
	return nil
}

func runFleetATMs(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	atms, err := client.ATMs(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATION\tBALANCE\tCAPACITY\tUTILIZATION")
	for _, a := range atms {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Name, a.Location,
			cli.FormatMoney(a.CurrentBalance),
			cli.FormatMoney(a.Capacity),
			cli.FormatPercent(a.Utilization()/100),
		)
	}
	return w.Flush()
}

func runFleetVaults(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	vaults, err := client.Vaults(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATION\tBALANCE\tCAPACITY")
	for _, v := range vaults {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			v.ID, v.Name, v.Location,
			cli.FormatMoney(v.CurrentBalance),
			cli.FormatMoney(v.Capacity),
		)
	}
	return w.Flush()
}
