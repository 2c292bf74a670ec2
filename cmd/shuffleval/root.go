package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shuffleval",
		Short: "shuffleval - measure answer-order sensitivity of language models",
		Long: `shuffleval runs multiple-choice questions against language model APIs
with the answer options presented in systematically permuted orders.

Each experiment fixes a subtask, model, language and prompt format, then
asks every question once per option ordering. Results are appended to a
per-experiment JSONL log and runs are resumable after interruption.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newRetryCommand())
	cmd.AddCommand(newResetCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newNewCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
