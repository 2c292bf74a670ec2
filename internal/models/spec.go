package models

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FormatBase, FormatJSON and FormatXML are the three prompt/response
// encodings.
const (
	FormatBase = "base"
	FormatJSON = "json"
	FormatXML  = "xml"
)

// SupportedFormatPairs lists the five in-contract (input, output) encoding
// combinations. Symmetric structured pairs (json/json, json/xml, xml/json,
// xml/xml) are rejected rather than guessed at.
var SupportedFormatPairs = [][2]string{
	{FormatBase, FormatBase},
	{FormatBase, FormatJSON},
	{FormatBase, FormatXML},
	{FormatJSON, FormatBase},
	{FormatXML, FormatBase},
}

// FormatPairSupported reports whether the (input, output) combination is one
// of the five supported pairs.
func FormatPairSupported(input, output string) bool {
	for _, p := range SupportedFormatPairs {
		if p[0] == input && p[1] == output {
			return true
		}
	}
	return false
}

// Languages supported by the prompt templates.
const (
	LanguageEN = "en"
	LanguageFR = "fr"
)

// ValidateLanguage checks that tag is a well-formed BCP 47 tag whose base
// language is one of the supported ones.
func ValidateLanguage(tag string) error {
	t, err := language.Parse(tag)
	if err != nil {
		return NewConfigError("invalid language %q: %v", tag, err)
	}
	base, _ := t.Base()
	if base.String() != LanguageEN && base.String() != LanguageFR {
		return NewConfigError("unsupported language %q (supported: en, fr)", tag)
	}
	return nil
}

// ExperimentSpec fully determines one experiment: a single
// (subtask, model, language, format pair, permutation set, question range)
// tuple. The trial sequence it produces is deterministic.
type ExperimentSpec struct {
	Subtask          string
	Model            string
	Language         string
	InputFormat      string
	OutputFormat     string
	PermutationMode  string
	PermutationCount int
	NumQuestions     int
	StartQuestion    int

	CallDelay     time.Duration
	RetryCooldown time.Duration
	Timeout       time.Duration

	ProviderOptions map[string]any
}

// ID returns the experiment identifier, which keys all persisted state for
// the run. Non-default question ranges are encoded so they get their own
// state.
func (s *ExperimentSpec) ID() string {
	id := fmt.Sprintf("%s_%s_%s_i%s_o%s_%s",
		s.Subtask, s.Model, s.Language, s.InputFormat, s.OutputFormat, s.PermutationMode)
	if s.NumQuestions != 100 || s.StartQuestion != 0 {
		id += fmt.Sprintf("_q%d-%d", s.StartQuestion, s.StartQuestion+s.NumQuestions-1)
	}
	return id
}

// Validate checks the spec. All failures are ConfigErrors: they abort the
// run before any provider call.
func (s *ExperimentSpec) Validate() error {
	if s.Subtask == "" {
		return NewConfigError("subtask is required")
	}
	if s.Model == "" {
		return NewConfigError("model is required")
	}
	if err := ValidateLanguage(s.Language); err != nil {
		return err
	}
	if !FormatPairSupported(s.InputFormat, s.OutputFormat) {
		return NewConfigError("unsupported format pair %s/%s", s.InputFormat, s.OutputFormat)
	}
	if s.PermutationMode != "circular" && s.PermutationMode != "factorial" {
		return NewConfigError("unknown permutation mode %q (want circular or factorial)", s.PermutationMode)
	}
	if s.NumQuestions < 1 {
		return NewConfigError("question count must be at least 1, got %d", s.NumQuestions)
	}
	if s.StartQuestion < 0 {
		return NewConfigError("start question must be >= 0, got %d", s.StartQuestion)
	}
	return nil
}

// ExperimentMatrix is the declarative run request: selectors that expand
// into one or more independent experiments. It is what `run` collects from
// flags or loads from an experiment YAML file.
type ExperimentMatrix struct {
	Name      string   `yaml:"name,omitempty"`
	Subtasks  []string `yaml:"subtasks"`
	Model     string   `yaml:"model"`
	Languages []string `yaml:"languages"`

	// Formats holds "input/output" pairs, or the single element "all" for
	// the five supported pairs.
	Formats []string `yaml:"formats"`

	Permutation struct {
		Mode  string `yaml:"mode"`
		Count int    `yaml:"count,omitempty"`
	} `yaml:"permutation"`

	Questions struct {
		Count int `yaml:"count"`
		Start int `yaml:"start,omitempty"`
	} `yaml:"questions"`

	// Pacing fields are pointers so an explicit zero (no delay) is
	// distinguishable from an absent key.
	Pacing struct {
		CallDelaySeconds     *int `yaml:"call_delay_seconds,omitempty"`
		RetryCooldownSeconds *int `yaml:"retry_cooldown_seconds,omitempty"`
	} `yaml:"pacing,omitempty"`

	TimeoutSeconds  *int           `yaml:"timeout_seconds,omitempty"`
	ProviderOptions map[string]any `yaml:"provider_options,omitempty"`
}

// Defaults match the original experiment setup: 5s between calls, 30s
// cool-down before the retry pass, 60s per-call timeout.
const (
	DefaultCallDelaySeconds     = 5
	DefaultRetryCooldownSeconds = 30
	DefaultTimeoutSeconds       = 60
)

// LoadExperimentMatrix reads and parses an experiment YAML file.
func LoadExperimentMatrix(path string) (*ExperimentMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment file: %w", err)
	}
	m, err := LoadExperimentMatrixBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing experiment file %s: %w", path, err)
	}
	return m, nil
}

// LoadExperimentMatrixBytes parses raw experiment YAML.
func LoadExperimentMatrixBytes(data []byte) (*ExperimentMatrix, error) {
	var m ExperimentMatrix
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Expand turns the matrix into the cross product of concrete experiment
// specs: subtasks x languages x format pairs. Every spec is validated; the
// first invalid combination fails the whole expansion.
func (m *ExperimentMatrix) Expand() ([]*ExperimentSpec, error) {
	if len(m.Subtasks) == 0 {
		return nil, NewConfigError("at least one subtask is required")
	}

	languages := m.Languages
	if len(languages) == 0 {
		languages = []string{LanguageEN}
	}

	pairs, err := expandFormats(m.Formats)
	if err != nil {
		return nil, err
	}

	callDelay := DefaultCallDelaySeconds
	if m.Pacing.CallDelaySeconds != nil {
		callDelay = *m.Pacing.CallDelaySeconds
	}
	cooldown := DefaultRetryCooldownSeconds
	if m.Pacing.RetryCooldownSeconds != nil {
		cooldown = *m.Pacing.RetryCooldownSeconds
	}
	timeout := DefaultTimeoutSeconds
	if m.TimeoutSeconds != nil {
		timeout = *m.TimeoutSeconds
	}

	mode := m.Permutation.Mode
	if mode == "" {
		mode = "circular"
	}
	permCount := m.Permutation.Count
	if mode == "factorial" && permCount == 0 {
		permCount = 24
	}
	numQuestions := m.Questions.Count
	if numQuestions == 0 {
		numQuestions = 100
	}

	var specs []*ExperimentSpec
	for _, subtask := range m.Subtasks {
		subtask = strings.TrimSpace(subtask)
		for _, lang := range languages {
			for _, pair := range pairs {
				spec := &ExperimentSpec{
					Subtask:          subtask,
					Model:            m.Model,
					Language:         lang,
					InputFormat:      pair[0],
					OutputFormat:     pair[1],
					PermutationMode:  mode,
					PermutationCount: permCount,
					NumQuestions:     numQuestions,
					StartQuestion:    m.Questions.Start,
					CallDelay:        time.Duration(callDelay) * time.Second,
					RetryCooldown:    time.Duration(cooldown) * time.Second,
					Timeout:          time.Duration(timeout) * time.Second,
					ProviderOptions:  m.ProviderOptions,
				}
				if err := spec.Validate(); err != nil {
					return nil, err
				}
				specs = append(specs, spec)
			}
		}
	}
	return specs, nil
}

// expandFormats resolves the format selector list into explicit pairs.
func expandFormats(formats []string) ([][2]string, error) {
	if len(formats) == 0 {
		return [][2]string{{FormatBase, FormatBase}}, nil
	}
	var pairs [][2]string
	for _, f := range formats {
		f = strings.TrimSpace(f)
		if f == "all" {
			pairs = append(pairs, SupportedFormatPairs...)
			continue
		}
		in, out, err := ParseFormatPair(f)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]string{in, out})
	}
	return pairs, nil
}

// ParseFormatPair parses an "input/output" selector. A bare format name
// means the same encoding on both sides.
func ParseFormatPair(s string) (input, output string, err error) {
	if s == "" {
		return "", "", NewConfigError("empty format selector")
	}
	if in, out, found := strings.Cut(s, "/"); found {
		input, output = in, out
	} else {
		input, output = s, s
	}
	if !FormatPairSupported(input, output) {
		return "", "", NewConfigError("unsupported format pair %s/%s", input, output)
	}
	return input, output, nil
}
