package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
)

func optimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Compute and optionally execute an allocation plan",
		Long: `Ask the backend optimizer for a set of vault-to-ATM replenishment
transfers. The plan is only displayed unless --execute is given; execution
moves real balances and asks for confirmation first.`,
		RunE: runOptimize,
	}

	cmd.Flags().String("algorithm", "greedy", "optimizer algorithm (greedy, linear_programming)")
	cmd.Flags().Bool("execute", false, "execute the computed plan")
	cmd.Flags().BoolP("yes", "y", false, "skip confirmation with --execute")

	return cmd
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, err := newClient()
	if err != nil {
		return err
	}

	algorithm, _ := cmd.Flags().GetString("algorithm")
	plan, err := client.Optimize(ctx, algorithm)
	if err != nil {
		return err
	}

	if len(plan.Allocations) == 0 {
		fmt.Println(cli.FormatInfo("Optimizer proposed no transfers; all ATMs are sufficiently stocked."))
		return nil
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Allocation plan (%s)", plan.Algorithm)))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VAULT\tATM\tAMOUNT\tSHORTAGE BEFORE")
	for _, line := range plan.Allocations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			line.VaultName, line.ATMName,
			cli.FormatMoney(line.Amount),
			cli.FormatMoney(line.ShortageBefore),
		)
	}
	_ = w.Flush()

	fmt.Println()
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
		"%d transfers, %s total, %s demand left unmet",
		len(plan.Allocations),
		cli.FormatMoney(plan.TotalAmount()),
		cli.FormatMoney(plan.TotalShortage),
	)))

	execute, _ := cmd.Flags().GetBool("execute")
	if !execute {
		return nil
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		prompter := cli.NewPrompter(nil, nil)
		ok, promptErr := prompter.Confirm(ctx,
			fmt.Sprintf("Execute %d transfers totalling %s?",
				len(plan.Allocations), cli.FormatMoney(plan.TotalAmount())), false)
		if promptErr != nil {
			return promptErr
		}
		if !ok {
			fmt.Println(cli.FormatInfo("Aborted."))
			return nil
		}
	}

	if err := client.ExecuteAllocation(ctx, plan); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Allocation executed"))
	return nil
}
