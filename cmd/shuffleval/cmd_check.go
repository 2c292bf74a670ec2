package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/validation"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <experiment.yaml>",
		Short: "Validate an experiment file without running it",
		Long: `Validate an experiment YAML file against the embedded schema and report
every violation, then expand it to show the experiments it would run.`,
		Args: cobra.ExactArgs(1),
		RunE: checkCommandE,
	}
	return cmd
}

func checkCommandE(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	violations, err := validation.ValidateExperimentFile(path)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		fmt.Fprintf(out, "✗ %s\n", path)
		for _, v := range violations {
			fmt.Fprintf(out, "  %s\n", v)
		}
		return models.NewConfigError("%d schema violation(s)", len(violations))
	}

	matrix, err := models.LoadExperimentMatrix(path)
	if err != nil {
		return err
	}
	specs, err := matrix.Expand()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ %s\n\n", path)
	fmt.Fprintf(out, "Expands to %d experiment(s):\n", len(specs))
	for _, spec := range specs {
		fmt.Fprintf(out, "  %s\n", spec.ID())
	}
	return nil
}
