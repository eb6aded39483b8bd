package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
	"github.com/cashops/atmctl/internal/monitor"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate synthetic transaction data for an ATM",
		Long: `Ask the backend to regenerate synthetic transaction history for one
ATM. With --train a training job is chained after generation; if
generation fails, training is not started.`,
		RunE: runGenerate,
	}

	cmd.Flags().Int("atm", 0, "target ATM")
	cmd.Flags().Int("days", 90, "days of history to generate")
	cmd.Flags().Bool("force", false, "replace existing data")
	cmd.Flags().Bool("train", false, "start training after generation succeeds")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	atmID, err := resolveATM(cmd)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	days, _ := cmd.Flags().GetInt("days")
	force, _ := cmd.Flags().GetBool("force")
	chainTraining, _ := cmd.Flags().GetBool("train")

	if !chainTraining {
		result, genErr := client.GenerateData(ctx, atmID, days, force)
		if genErr != nil {
			return genErr
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf(
			"Generated %d transactions (%s) over %d days for ATM %d",
			result.TotalTransactions, cli.FormatMoney(result.TotalVolume), result.Days, result.ATMID)))
		return nil
	}

	mon := monitor.New(client, nil, monitorConfig(nil))
	defer mon.Stop()

	result, err := mon.RegenerateAndStart(ctx, atmID, days, force)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Generated %d transactions for ATM %d; training started",
		result.TotalTransactions, atmID)))
	fmt.Println(cli.FormatInfo("Watch progress with: atmctl train --watch --atm " + fmt.Sprint(atmID)))
	return nil
}
