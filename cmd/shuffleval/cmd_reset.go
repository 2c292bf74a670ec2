package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/store"
)

func newResetCommand() *cobra.Command {
	var (
		resetResultsDir string
		force           bool
	)

	cmd := &cobra.Command{
		Use:   "reset <experiment-id>...",
		Short: "Delete the persisted state of experiments",
		Long: `Delete the record log, status file and final artifact of the named
experiments, so the next run starts from scratch.

Use 'shuffleval status' to list experiment identifiers.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return models.NewConfigError("reset is destructive; pass --force to confirm")
			}
			for _, experimentID := range args {
				st, err := store.Open(resetResultsDir, experimentID)
				if err != nil {
					return err
				}
				if err := st.Reset(); err != nil {
					return err
				}
				fmt.Printf("Reset %s\n", experimentID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resetResultsDir, "results-dir", "results", "Directory for experiment output")
	cmd.Flags().BoolVar(&force, "force", false, "Actually delete the state")
	return cmd
}
