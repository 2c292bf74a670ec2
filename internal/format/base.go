package format

import (
	"fmt"
	"strings"

	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/permute"
)

// baseInput renders plain-text prompts. The instructed output encoding is
// one of base, json or xml.
type baseInput struct {
	output string
}

func (baseInput) Input() string    { return models.FormatBase }
func (a baseInput) Output() string { return a.output }

func (a baseInput) Encode(q models.Question, p permute.Permutation, lang string) (string, error) {
	t, err := textFor(lang)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(t.Intro)
	b.WriteString("\n")
	if a.output == models.FormatBase {
		b.WriteString(t.Instruction)
	} else {
		b.WriteString(t.InstructionThink)
	}
	b.WriteString("\n\n")
	b.WriteString(q.Text)
	b.WriteString("\n\n")
	for i, choice := range p.Apply(q.Choices) {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, choice)
	}

	switch a.output {
	case models.FormatJSON:
		b.WriteString("\n")
		b.WriteString(t.AnswerPrefix)
		b.WriteString("\n```json\n{\n")
		b.WriteString("  \"reasoning\": \"Your step-by-step reasoning here\",\n")
		b.WriteString("  \"answer\": \"A | B | C | D\"\n")
		b.WriteString("}\n```")
	case models.FormatXML:
		b.WriteString("\n")
		b.WriteString(t.AnswerPrefix)
		b.WriteString("\n```xml\n<response>\n")
		b.WriteString("  <reasoning>Your step-by-step reasoning here</reasoning>\n")
		b.WriteString("  <answer>A | B | C | D</answer>\n")
		b.WriteString("</response>\n```")
	}

	return strings.TrimSpace(b.String()), nil
}

func (a baseInput) Decode(raw string, lang string) string {
	switch a.output {
	case models.FormatJSON:
		if letter, ok := decodeJSON(raw); ok {
			return letter
		}
	case models.FormatXML:
		if letter, ok := decodeXML(raw); ok {
			return letter
		}
	default:
		if letter, ok := decodeBase(raw, lang); ok {
			return letter
		}
	}
	if letter, ok := decodeFallback(raw); ok {
		return letter
	}
	return Unparseable
}
