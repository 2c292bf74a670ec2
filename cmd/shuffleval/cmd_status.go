package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/store"
)

func newStatusCommand() *cobra.Command {
	var statusResultsDir string

	cmd := &cobra.Command{
		Use:   "status [experiment-id]",
		Short: "Show experiment progress",
		Long: `Show the progress of experiments in the results directory.

With no argument, lists every experiment that has persisted state. With an
experiment identifier, shows its detailed state including the retry queue
and abandoned trials.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return printExperimentStatus(statusResultsDir, args[0])
			}
			return printAllStatuses(statusResultsDir)
		},
	}

	cmd.Flags().StringVar(&statusResultsDir, "results-dir", "results", "Directory for experiment output")
	return cmd
}

func printAllStatuses(resultsDir string) error {
	statuses, err := store.ListStatuses(resultsDir)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Printf("No experiments found in %s\n", resultsDir)
		return nil
	}
	fmt.Print(statusTable(statuses))
	return nil
}

func printExperimentStatus(resultsDir, experimentID string) error {
	st, err := store.Open(resultsDir, experimentID)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	status, err := st.LoadStatus()
	if err != nil {
		return err
	}
	if status == nil {
		return models.NewConfigError("no state found for experiment %q in %s", experimentID, resultsDir)
	}

	fmt.Printf("Experiment: %s\n", status.ExperimentID)
	fmt.Printf("State:      %s\n", status.State)
	fmt.Printf("Subtask:    %s\n", status.Subtask)
	fmt.Printf("Model:      %s\n", status.Model)
	fmt.Printf("Language:   %s\n", status.Language)
	fmt.Printf("Formats:    %s -> %s\n", status.InputFormat, status.OutputFormat)
	fmt.Printf("Progress:   %d/%d completed, %d abandoned, %d pending\n",
		status.Completed, status.TotalExpected, status.Abandoned, status.Pending())
	fmt.Printf("Updated:    %s\n", status.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	if len(status.RetryQueue) > 0 {
		fmt.Printf("\nRetry queue (%d):\n", len(status.RetryQueue))
		for _, id := range status.RetryQueue {
			fmt.Printf("  %s\n", id)
		}
	}

	if len(status.AbandonedTrials) > 0 {
		ids := make([]string, 0, len(status.AbandonedTrials))
		for id := range status.AbandonedTrials {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Printf("\nAbandoned trials (%d):\n", len(ids))
		for _, id := range ids {
			fmt.Printf("  %s: %s\n", id, status.AbandonedTrials[id])
		}
	}

	if status.State.Terminal() {
		if report, err := st.ReadFinal(); err == nil {
			fmt.Printf("\nFinal: %d records, accuracy %.1f%%\n", report.Total, report.Accuracy*100)
		}
	}
	return nil
}
