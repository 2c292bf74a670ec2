package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffleval/shuffleval/internal/models"
)

func writeBank(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const geographyEN = `[
  {"id": "geo_0", "question": "What is the capital of France?",
   "choices": ["London", "Berlin", "Paris", "Madrid"], "answer_label": "C"},
  {"question": "What is the capital of Spain?",
   "choices": ["Madrid", "Lisbon", "Rome", "Paris"], "answer_label": "a"},
  {"id": "geo_2", "question": "What is the capital of Italy?",
   "choices": ["Venice", "Milan", "Naples", "Rome"], "answer_label": "D"}
]`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeBank(t, dir, "geography_en.json", geographyEN)

	questions, err := Load(dir, "geography", "en")
	require.NoError(t, err)
	require.Len(t, questions, 3)

	assert.Equal(t, "geo_0", questions[0].ID)
	assert.Equal(t, "geography", questions[0].Subtask)
	assert.Equal(t, 0, questions[0].Ordinal)
	assert.Equal(t, 2, questions[0].Answer)
	assert.Equal(t, [4]string{"London", "Berlin", "Paris", "Madrid"}, questions[0].Choices)

	// Missing id is synthesized, lowercase label is accepted.
	assert.Equal(t, "geography_1", questions[1].ID)
	assert.Equal(t, 0, questions[1].Answer)
}

func TestLoadMissingBank(t *testing.T) {
	_, err := Load(t.TempDir(), "geography", "fr")
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))
}

func TestLoadRejectsBadRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"three choices", `[{"question": "q", "choices": ["a", "b", "c"], "answer_label": "A"}]`},
		{"bad label", `[{"question": "q", "choices": ["a", "b", "c", "d"], "answer_label": "E"}]`},
		{"empty text", `[{"question": " ", "choices": ["a", "b", "c", "d"], "answer_label": "A"}]`},
		{"empty bank", `[]`},
		{"not json", `{]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeBank(t, dir, "geography_en.json", tt.content)
			_, err := Load(dir, "geography", "en")
			require.Error(t, err)
		})
	}
}

func TestLoadRange(t *testing.T) {
	dir := t.TempDir()
	writeBank(t, dir, "geography_en.json", geographyEN)

	questions, err := LoadRange(dir, "geography", "en", 1, 2)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].Ordinal)
	assert.Equal(t, "geo_2", questions[1].ID)

	_, err = LoadRange(dir, "geography", "en", 2, 5)
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))

	_, err = LoadRange(dir, "geography", "en", -1, 2)
	require.Error(t, err)

	_, err = LoadRange(dir, "geography", "en", 0, 0)
	require.Error(t, err)
}

func TestSubtasks(t *testing.T) {
	dir := t.TempDir()
	writeBank(t, dir, "geography_en.json", geographyEN)
	writeBank(t, dir, "anatomy_en.json", geographyEN)
	writeBank(t, dir, "anatomy_fr.json", geographyEN)
	writeBank(t, dir, "notes.txt", "not a bank")

	names, err := Subtasks(dir, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"anatomy", "geography"}, names)

	names, err = Subtasks(dir, "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"anatomy"}, names)
}
