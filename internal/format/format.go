// Package format encodes (question, permutation) pairs into prompts and
// decodes raw model replies into answer letters. Each supported
// input/output encoding pair is its own Adapter variant; the engine never
// branches on format strings itself.
package format

import (
	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/permute"
)

// Unparseable is the sentinel parsed-answer value for replies that contain
// no unambiguous single-letter answer. It is a content outcome, not an
// error: such trials complete (incorrect) and are never retried.
const Unparseable = "unparseable"

// Adapter renders prompts for one input encoding and parses replies for one
// output encoding.
type Adapter interface {
	// Input returns the input (prompt) encoding name.
	Input() string

	// Output returns the instructed response encoding name.
	Output() string

	// Encode renders the full prompt for a question with its options in
	// permuted order.
	Encode(q models.Question, p permute.Permutation, lang string) (string, error)

	// Decode extracts the answer letter (A-D) from a raw reply, or returns
	// Unparseable. Decode never fails.
	Decode(raw string, lang string) string
}

// For returns the adapter for an (input, output) pair, or a ConfigError for
// any combination outside the five supported ones.
func For(input, output string) (Adapter, error) {
	if !models.FormatPairSupported(input, output) {
		return nil, models.NewConfigError("unsupported format pair %s/%s", input, output)
	}
	switch input {
	case models.FormatJSON:
		return jsonInput{}, nil
	case models.FormatXML:
		return xmlInput{}, nil
	default:
		return baseInput{output: output}, nil
	}
}

// All returns the adapters for the five supported pairs, in canonical order.
func All() []Adapter {
	adapters := make([]Adapter, 0, len(models.SupportedFormatPairs))
	for _, pair := range models.SupportedFormatPairs {
		a, err := For(pair[0], pair[1])
		if err != nil {
			// Unreachable: the table only holds supported pairs.
			panic(err)
		}
		adapters = append(adapters, a)
	}
	return adapters
}
