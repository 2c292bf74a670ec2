package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shuffleval/shuffleval/internal/config"
)

func newRetryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry [experiment.yaml]",
		Short: "Re-run only the queued retries of existing experiments",
		Long: `Re-run the persisted retry queue of experiments that already have saved
state, without touching completed trials.

Takes the same selectors as 'run' (an experiment YAML file or flags); each
selected experiment must have been started before.`,
		Args: cobra.MaximumNArgs(1),
		RunE: retryCommandE,
	}

	// Retry shares the run command's selector flags.
	cmd.Flags().AddFlagSet(newRunCommand().Flags())
	return cmd
}

func retryCommandE(cmd *cobra.Command, args []string) error {
	matrix, err := collectMatrix(args)
	if err != nil {
		return err
	}
	specs, err := matrix.Expand()
	if err != nil {
		return err
	}

	cfg := config.NewRunConfig(
		config.WithResultsDir(resultsDir),
		config.WithDataDir(dataDir),
		config.WithVerbose(verbose),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	abandoned := 0
	for _, spec := range specs {
		summary, err := runExperiment(ctx, spec, cfg, true)
		if err != nil {
			return err
		}
		fmt.Printf("%s: retried %d, abandoned %d, state %s\n",
			summary.ExperimentID, summary.Retried, summary.Abandoned, summary.State)
		abandoned += summary.Abandoned
	}

	if abandoned > 0 {
		return &AbandonedTrialsError{
			Message: fmt.Sprintf("%d trial(s) still abandoned after retry", abandoned),
		}
	}
	return nil
}
