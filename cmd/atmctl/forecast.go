package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Predict cash demand for an ATM",
		Long: `Fetch a demand forecast from the backend's trained models.

By default the ensemble model is used. --compare shows every available
model side by side, and --metrics shows each model's evaluation metrics.`,
		RunE: runForecast,
	}

	cmd.Flags().Int("atm", 0, "target ATM")
	cmd.Flags().Int("days", 7, "days ahead to predict (1-90)")
	cmd.Flags().String("model", "ensemble", "model type (arima, lstm, ensemble)")
	cmd.Flags().Bool("compare", false, "compare all trained models")
	cmd.Flags().Bool("metrics", false, "show model evaluation metrics")

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
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

	if showMetrics, _ := cmd.Flags().GetBool("metrics"); showMetrics {
		metrics, metricsErr := client.ModelMetrics(ctx, atmID)
		if metricsErr != nil {
			return metricsErr
		}
		if len(metrics) == 0 {
			fmt.Println(cli.FormatInfo("No trained models for this ATM."))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tMAE\tRMSE\tMAPE")
		names := sortedKeys(metrics)
		for _, name := range names {
			m := metrics[name]
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.1f%%\n", name, m.MAE, m.RMSE, m.MAPE)
		}
		return w.Flush()
	}

	if compare, _ := cmd.Flags().GetBool("compare"); compare {
		comparison, compareErr := client.CompareForecasts(ctx, atmID, days)
		if compareErr != nil {
			return compareErr
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tTOTAL\tAVG/DAY\tMIN\tMAX")
		for _, name := range sortedKeys(comparison.Models) {
			mf := comparison.Models[name]
			if mf.Error != "" {
				fmt.Fprintf(w, "%s\t%s\n", name, cli.ErrorStyle.Render(mf.Error))
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name,
				cli.FormatMoney(mf.Total),
				cli.FormatMoney(mf.Average),
				cli.FormatMoney(mf.Min),
				cli.FormatMoney(mf.Max),
			)
		}
		return w.Flush()
	}

	modelType, _ := cmd.Flags().GetString("model")
	forecast, err := client.Forecast(ctx, atmID, days, modelType)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Demand forecast: ATM %d (%s)", forecast.ATMID, forecast.ModelType)))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tDAY\tPREDICTED")
	for _, point := range forecast.Points {
		fmt.Fprintf(w, "%s\t%s\t%s\n", point.Date, point.DayOfWeek, cli.FormatMoney(point.PredictedDemand))
	}
	_ = w.Flush()

	fmt.Println()
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
		"total %s  •  avg/day %s  •  peak %s",
		cli.FormatMoney(forecast.TotalPredicted),
		cli.FormatMoney(forecast.AvgDaily),
		cli.FormatMoney(forecast.MaxDemand),
	)))
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
