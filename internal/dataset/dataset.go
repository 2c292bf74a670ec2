// Package dataset loads multiple-choice question banks from disk. A bank is
// one JSON file per subtask and language, named <subtask>_<lang>.json and
// holding an array of question records.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shuffleval/shuffleval/internal/models"
)

// questionRecord is the on-disk shape of a single question.
type questionRecord struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	AnswerLabel string   `json:"answer_label"`
}

// Load reads the full question bank for one subtask and language from dir.
func Load(dir, subtask, lang string) ([]models.Question, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", subtask, lang))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewConfigError("no question bank for subtask %q language %q (expected %s)", subtask, lang, path)
		}
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}

	var records []questionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: %s holds no questions", path)
	}

	questions := make([]models.Question, 0, len(records))
	for i, rec := range records {
		q, err := toQuestion(rec, subtask, i)
		if err != nil {
			return nil, fmt.Errorf("dataset: %s question %d: %w", path, i, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// LoadRange reads count questions starting at start (0-based). It fails if
// the bank holds fewer questions than the range asks for, so a short bank
// surfaces before any API call is made.
func LoadRange(dir, subtask, lang string, start, count int) ([]models.Question, error) {
	if start < 0 {
		return nil, models.NewConfigError("start question must be >= 0, got %d", start)
	}
	if count <= 0 {
		return nil, models.NewConfigError("question count must be > 0, got %d", count)
	}

	all, err := Load(dir, subtask, lang)
	if err != nil {
		return nil, err
	}
	if start+count > len(all) {
		return nil, models.NewConfigError("subtask %q has %d questions, range [%d, %d) is out of bounds",
			subtask, len(all), start, start+count)
	}
	return all[start : start+count], nil
}

// Subtasks lists the subtask names available in dir for a language, sorted.
func Subtasks(dir, lang string) ([]string, error) {
	suffix := fmt.Sprintf("_%s.json", lang)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), suffix))
	}
	sort.Strings(names)
	return names, nil
}

func toQuestion(rec questionRecord, subtask string, ordinal int) (models.Question, error) {
	if strings.TrimSpace(rec.Question) == "" {
		return models.Question{}, fmt.Errorf("empty question text")
	}
	if len(rec.Choices) != 4 {
		return models.Question{}, fmt.Errorf("expected 4 choices, got %d", len(rec.Choices))
	}

	label := strings.ToUpper(strings.TrimSpace(rec.AnswerLabel))
	if len(label) != 1 || label[0] < 'A' || label[0] > 'D' {
		return models.Question{}, fmt.Errorf("answer label %q is not one of A-D", rec.AnswerLabel)
	}

	id := rec.ID
	if id == "" {
		id = fmt.Sprintf("%s_%d", subtask, ordinal)
	}

	q := models.Question{
		ID:      id,
		Subtask: subtask,
		Ordinal: ordinal,
		Text:    rec.Question,
		Answer:  int(label[0] - 'A'),
	}
	copy(q.Choices[:], rec.Choices)
	return q, nil
}
