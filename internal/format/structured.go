package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/permute"
)

// jsonInput renders the prompt as a JSON document and instructs a plain-text
// reply.
type jsonInput struct{}

func (jsonInput) Input() string  { return models.FormatJSON }
func (jsonInput) Output() string { return models.FormatBase }

func (jsonInput) Encode(q models.Question, p permute.Permutation, lang string) (string, error) {
	t, err := textFor(lang)
	if err != nil {
		return "", err
	}
	choices := p.Apply(q.Choices)

	// Keys are emitted in a fixed order so identical trials produce
	// byte-identical prompts.
	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"instruction\": %s,\n", jsonString(t.Intro))
	fmt.Fprintf(&b, "  \"output_format\": %s,\n", jsonString(t.Instruction))
	fmt.Fprintf(&b, "  \"question\": %s,\n", jsonString(q.Text))
	fmt.Fprintf(&b, "  %s: {\n", jsonString(t.ChoiceLabel))
	for i, choice := range choices {
		sep := ","
		if i == len(choices)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    \"%c\": %s%s\n", 'A'+i, jsonString(choice), sep)
	}
	b.WriteString("  }\n}")
	return b.String(), nil
}

func (jsonInput) Decode(raw string, lang string) string {
	if letter, ok := decodeBase(raw, lang); ok {
		return letter
	}
	if letter, ok := decodeFallback(raw); ok {
		return letter
	}
	return Unparseable
}

// jsonString marshals a string without HTML escaping, so prompts keep
// characters like < and & readable.
func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// Strings always marshal.
		panic(err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// xmlInput renders the prompt as an XML document and instructs a plain-text
// reply.
type xmlInput struct{}

func (xmlInput) Input() string  { return models.FormatXML }
func (xmlInput) Output() string { return models.FormatBase }

func (xmlInput) Encode(q models.Question, p permute.Permutation, lang string) (string, error) {
	t, err := textFor(lang)
	if err != nil {
		return "", err
	}
	choices := p.Apply(q.Choices)

	var b strings.Builder
	b.WriteString("<task>\n")
	fmt.Fprintf(&b, "  <instruction>%s</instruction>\n", t.Intro)
	fmt.Fprintf(&b, "  <output_format>%s</output_format>\n", t.Instruction)
	fmt.Fprintf(&b, "  <question>%s</question>\n", q.Text)
	fmt.Fprintf(&b, "  <%s>\n", t.ChoiceLabel)
	for i, choice := range choices {
		fmt.Fprintf(&b, "    <%c>%s</%c>\n", 'A'+i, choice, 'A'+i)
	}
	fmt.Fprintf(&b, "  </%s>\n", t.ChoiceLabel)
	b.WriteString("</task>")
	return b.String(), nil
}

func (xmlInput) Decode(raw string, lang string) string {
	if letter, ok := decodeBase(raw, lang); ok {
		return letter
	}
	if letter, ok := decodeFallback(raw); ok {
		return letter
	}
	return Unparseable
}
