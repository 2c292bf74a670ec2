package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shuffleval/shuffleval/internal/wizard"
)

func newNewCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new <experiment.yaml>",
		Short: "Create an experiment file",
		Long: `Create an experiment YAML file.

When running in a terminal (TTY), launches an interactive wizard to collect
the experiment definition. In non-interactive environments (CI, pipes), a
default single-subtask experiment is written for editing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommandE(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newCommandE(cmd *cobra.Command, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	// Check TTY from the command's input stream, not os.Stdin directly.
	inReader := cmd.InOrStdin()
	isTTY := false
	if f, ok := inReader.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	matrix := wizard.DefaultMatrix("")
	if isTTY {
		collected, err := wizard.RunExperimentWizard(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("wizard failed: %w", err)
		}
		matrix = collected
	}

	doc, err := wizard.GenerateExperimentYAML(matrix)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)                                     //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "Run it with: shuffleval run %s --dry-run\n", path)     //nolint:errcheck
	return nil
}
