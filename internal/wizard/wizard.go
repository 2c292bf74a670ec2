// Package wizard collects an experiment definition interactively.
package wizard

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"

	"github.com/shuffleval/shuffleval/internal/models"
)

// RunExperimentWizard runs an interactive huh form and returns the
// collected experiment matrix. The matrix is expanded once before returning
// to catch invalid combinations before anything is written.
func RunExperimentWizard(in io.Reader, out io.Writer) (*models.ExperimentMatrix, error) {
	var (
		name        string
		subtasksRaw string
		model       = "gemini-2.0-flash-lite"
		languages   []string
		formats     []string
		permMode    = "circular"
		questions   = "100"
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Experiment name").
				Placeholder("pilot").
				Value(&name),
			huh.NewInput().
				Title("Subtasks").
				Description("Comma-separated subtask names").
				Placeholder("abstract_algebra, anatomy").
				Value(&subtasksRaw).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("at least one subtask is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Model").
				Description("gemini-*, mistral-*, or mock").
				Value(&model).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("model is required")
					}
					return nil
				}),
			huh.NewMultiSelect[string]().
				Title("Languages").
				Options(
					huh.NewOption("English", models.LanguageEN).Selected(true),
					huh.NewOption("French", models.LanguageFR),
				).
				Value(&languages),
			huh.NewMultiSelect[string]().
				Title("Format pairs").
				Options(
					huh.NewOption("base/base", "base/base").Selected(true),
					huh.NewOption("base/json", "base/json"),
					huh.NewOption("base/xml", "base/xml"),
					huh.NewOption("json/base", "json/base"),
					huh.NewOption("xml/base", "xml/base"),
				).
				Value(&formats),
			huh.NewSelect[string]().
				Title("Permutation mode").
				Options(
					huh.NewOption("circular (4 rotations)", "circular"),
					huh.NewOption("factorial (all 24 orderings)", "factorial"),
				).
				Value(&permMode),
			huh.NewInput().
				Title("Questions per experiment").
				Value(&questions).
				Validate(func(s string) error {
					var n int
					if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n); err != nil || n < 1 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	if err := form.Run(); err != nil {
		return nil, err
	}

	matrix := &models.ExperimentMatrix{
		Name:      strings.TrimSpace(name),
		Model:     strings.TrimSpace(model),
		Languages: languages,
		Formats:   formats,
	}
	for _, s := range strings.Split(subtasksRaw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			matrix.Subtasks = append(matrix.Subtasks, s)
		}
	}
	matrix.Permutation.Mode = permMode
	fmt.Sscanf(strings.TrimSpace(questions), "%d", &matrix.Questions.Count) //nolint:errcheck

	if _, err := matrix.Expand(); err != nil {
		return nil, err
	}
	return matrix, nil
}

// DefaultMatrix returns the matrix used when no terminal is attached.
func DefaultMatrix(name string) *models.ExperimentMatrix {
	matrix := &models.ExperimentMatrix{
		Name:      name,
		Subtasks:  []string{"abstract_algebra"},
		Model:     "gemini-2.0-flash-lite",
		Languages: []string{models.LanguageEN},
		Formats:   []string{"base/base"},
	}
	matrix.Permutation.Mode = "circular"
	matrix.Questions.Count = 100
	return matrix
}

// GenerateExperimentYAML renders the matrix as an experiment YAML document.
func GenerateExperimentYAML(matrix *models.ExperimentMatrix) (string, error) {
	data, err := yaml.Marshal(matrix)
	if err != nil {
		return "", fmt.Errorf("marshaling experiment: %w", err)
	}
	return string(data), nil
}
