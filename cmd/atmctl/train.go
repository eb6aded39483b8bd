package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/monitor"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train demand forecasting models for an ATM",
		Long: `Start a server-side training job and watch it until it completes.

Training runs on the backend; interrupting atmctl does not stop the job.
Reattach to a running job with --watch. Completed and failed runs are
recorded in the local run log (see --log).`,
		RunE: runTrain,
	}

	cmd.Flags().Int("atm", 0, "ATM to train models for")
	cmd.Flags().StringSlice("models", nil, "models to train (default: arima,lstm)")
	cmd.Flags().Bool("watch", false, "attach to an already-running job instead of starting one")
	cmd.Flags().Bool("no-wait", false, "start the job and return immediately")
	cmd.Flags().Bool("log", false, "show the local training run log and exit")
	cmd.Flags().Int("limit", 10, "max run log entries with --log")

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if showLog, _ := cmd.Flags().GetBool("log"); showLog {
		return runTrainLog(cmd)
	}

	atmID, err := resolveATM(cmd)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	models, _ := cmd.Flags().GetStringSlice("models")

	if noWait, _ := cmd.Flags().GetBool("no-wait"); noWait {
		if err := client.StartTraining(ctx, atmID, models); err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Training started for ATM %d", atmID)))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// The run log keeps terminal outcomes even when the watch is
	// interrupted partway.
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("training"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	updates := make(chan monitor.Snapshot, 16)
	mon := monitor.New(client, store, monitorConfig(func(s monitor.Snapshot) { updates <- s }))

	interrupt := cli.NewInterruptHandler(os.Stdout)
	watchCtx := interrupt.HandleInterrupts(ctx, true)

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		err = mon.Attach(watchCtx, atmID)
	} else {
		err = mon.Start(watchCtx, atmID, models)
	}
	if err != nil {
		return err
	}
	defer mon.Stop()

	for {
		select {
		case <-watchCtx.Done():
			return nil
		case snapshot := <-updates:
			if snapshot.Job != nil {
				_ = bar.Set(snapshot.Job.Progress)
			}
			if done, reportErr := reportTerminal(snapshot, bar); done {
				return reportErr
			}
		}
	}
}

// reportTerminal prints the outcome once the monitor leaves Polling.
func reportTerminal(snapshot monitor.Snapshot, bar *progressbar.ProgressBar) (bool, error) {
	switch snapshot.State {
	case monitor.Polling:
		return false, nil

	case monitor.Completed:
		_ = bar.Finish()
		fmt.Println(cli.FormatSuccess("Training completed"))
		printResults(snapshot.Job)
		return true, nil

	case monitor.Failed:
		_ = bar.Clear()
		msg := "training failed"
		if snapshot.Job != nil && snapshot.Job.Error != "" {
			msg = snapshot.Job.Error
		}
		return true, fmt.Errorf("%s", msg)

	case monitor.Stalled:
		_ = bar.Clear()
		return true, fmt.Errorf("training stalled: no progress within the liveness window")

	case monitor.Idle:
		_ = bar.Clear()
		fmt.Println(cli.FormatInfo("No active training job for this ATM."))
		return true, nil

	default:
		return false, nil
	}
}

func printResults(job *model.TrainingJob) {
	if job == nil || len(job.Results) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tMAE\tRMSE\tMAPE")
	for name, metrics := range job.Results {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.1f%%\n", name, metrics.MAE, metrics.RMSE, metrics.MAPE)
	}
	_ = w.Flush()
}

func runTrainLog(cmd *cobra.Command) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	atmID, _ := cmd.Flags().GetInt("atm")
	limit, _ := cmd.Flags().GetInt("limit")

	runs, err := store.ListRuns(ctx, atmID, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println(cli.FormatInfo("No recorded training runs."))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tATM\tMODELS\tSTATUS\tERROR")
	for _, run := range runs {
		errText := run.Error
		if len(errText) > 40 {
			errText = errText[:40] + "…"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			run.FinishedAt.Format("2006-01-02 15:04"),
			run.ATMID,
			run.Models,
			cli.StyleTrainingStatus(run.Status),
			strings.TrimSpace(errText),
		)
	}
	return w.Flush()
}
