package format

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shuffleval/shuffleval/internal/models"
)

var basePatterns = map[string][]*regexp.Regexp{
	models.LanguageEN: {
		regexp.MustCompile(`(?im)Answer\s*:\s*([A-D])`),
		regexp.MustCompile(`(?im)^\s*([A-D])\s*$`),
	},
	models.LanguageFR: {
		regexp.MustCompile(`(?im)Réponse\s*:\s*([A-D])`),
		regexp.MustCompile(`(?im)^\s*([A-D])\s*$`),
	},
}

// decodeBase matches the instructed "Answer: X" line for the prompt
// language, falling back to a bare letter on its own line.
func decodeBase(raw, lang string) (string, bool) {
	patterns, ok := basePatterns[lang]
	if !ok {
		patterns = basePatterns[models.LanguageEN]
	}
	for _, p := range patterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			return strings.ToUpper(m[1]), true
		}
	}
	return "", false
}

var (
	jsonBlockRE  = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	jsonAnswerRE = regexp.MustCompile(`(?i)"answer"\s*:\s*"([A-D])"`)
)

// decodeJSON extracts the "answer" field from a JSON reply. It tries a
// fenced code block first, then the outermost brace span, then a plain
// field match for replies that are not valid JSON at all.
func decodeJSON(raw string) (string, bool) {
	if m := jsonBlockRE.FindStringSubmatch(raw); m != nil {
		if letter, ok := answerField(m[1]); ok {
			return letter, true
		}
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start != -1 && end > start {
		if letter, ok := answerField(raw[start : end+1]); ok {
			return letter, true
		}
	}
	if m := jsonAnswerRE.FindStringSubmatch(raw); m != nil {
		return strings.ToUpper(m[1]), true
	}
	return "", false
}

func answerField(jsonText string) (string, bool) {
	var payload struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return "", false
	}
	letter := strings.ToUpper(strings.TrimSpace(payload.Answer))
	if len(letter) == 1 && letter[0] >= 'A' && letter[0] <= 'D' {
		return letter, true
	}
	return "", false
}

var (
	xmlBlockRE   = regexp.MustCompile("(?is)```xml\\s*(.*?)\\s*```")
	xmlAnswerRES = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<answer>\s*([A-D])\s*</answer>`),
		regexp.MustCompile(`(?is)<answer>.*?([A-D]).*?</answer>`),
	}
)

// decodeXML extracts the <answer> element from an XML reply, tolerating a
// fenced code block and extra text inside the element.
func decodeXML(raw string) (string, bool) {
	body := raw
	if m := xmlBlockRE.FindStringSubmatch(raw); m != nil {
		body = m[1]
	}
	for _, p := range xmlAnswerRES {
		if m := p.FindStringSubmatch(body); m != nil {
			return strings.ToUpper(m[1]), true
		}
	}
	return "", false
}

// fallbackPatterns are tried in order when the format-specific decode finds
// nothing. They cover the ways models phrase an answer without following
// the instructed format.
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)the answer is\s*:?\s*([A-D])`),
	regexp.MustCompile(`(?im)correct answer is\s*:?\s*([A-D])`),
	regexp.MustCompile(`(?im)my answer is\s*:?\s*([A-D])`),
	regexp.MustCompile(`(?im)final answer\s*:?\s*([A-D])`),
	regexp.MustCompile(`(?im)\(([A-D])\)`),
	regexp.MustCompile(`(?im)\b([A-D])\)`),
	regexp.MustCompile(`(?im)\b([A-D])\.`),
	regexp.MustCompile(`(?im)choose\s*:?\s*([A-D])`),
	regexp.MustCompile(`(?im)select\s*:?\s*([A-D])`),
	regexp.MustCompile(`(?im)pick\s*:?\s*([A-D])`),
	regexp.MustCompile(`(?im)["']([A-D])["']`),
	regexp.MustCompile(`(?im)([A-D])\s*$`),
}

func decodeFallback(raw string) (string, bool) {
	for _, p := range fallbackPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			return strings.ToUpper(m[1]), true
		}
	}
	return "", false
}
