package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffleval/shuffleval/internal/models"
)

func testSpec() *models.ExperimentSpec {
	return &models.ExperimentSpec{
		Subtask:          "geography",
		Model:            "mock",
		Language:         "en",
		InputFormat:      "base",
		OutputFormat:     "base",
		PermutationMode:  "circular",
		PermutationCount: 4,
		NumQuestions:     100,
		StartQuestion:    0,
	}
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := Open(root, testSpec().ID())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s, root
}

func TestAppendIsDurableAcrossReopen(t *testing.T) {
	root := t.TempDir()
	id := testSpec().ID()

	s, err := Open(root, id)
	require.NoError(t, err)
	require.NoError(t, s.Append(models.TrialResult{TrialID: "t1", ParsedAnswer: "A"}))
	require.NoError(t, s.Close())

	s, err = Open(root, id)
	require.NoError(t, err)
	require.NoError(t, s.Append(models.TrialResult{TrialID: "t2", ParsedAnswer: "B"}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(root, id+".jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"t1"`)
	assert.Contains(t, string(data), `"t2"`)
}

func TestStatusRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)

	// No file yet.
	status, err := s.LoadStatus()
	require.NoError(t, err)
	assert.Nil(t, status)

	status = models.NewExperimentStatus(testSpec(), 400)
	status.MarkCompleted("t1")
	status.EnqueueRetry("t2")
	require.NoError(t, s.WriteStatus(status))

	loaded, err := s.LoadStatus()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, status.ExperimentID, loaded.ExperimentID)
	assert.Equal(t, 400, loaded.TotalExpected)
	assert.True(t, loaded.Processed("t1"))
	assert.Equal(t, []string{"t2"}, loaded.RetryQueue)
}

func TestWriteStatusLeavesNoTempFiles(t *testing.T) {
	s, root := openTestStore(t)

	status := models.NewExperimentStatus(testSpec(), 4)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.WriteStatus(status))
	}

	matches, err := filepath.Glob(filepath.Join(root, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFinalizeKeepsLatestRecordPerTrial(t *testing.T) {
	s, _ := openTestStore(t)

	// First attempt failed, retry succeeded.
	require.NoError(t, s.Append(models.TrialResult{TrialID: "t1", Attempt: 1, Error: "gemini: HTTP 429"}))
	require.NoError(t, s.Append(models.TrialResult{TrialID: "t2", Attempt: 1, ParsedAnswer: "C", Correct: true}))
	require.NoError(t, s.Append(models.TrialResult{TrialID: "t1", Attempt: 2, ParsedAnswer: "B", Correct: false}))

	report, err := s.Finalize()
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 0, report.Abandoned)
	assert.Equal(t, 1, report.Correct)
	assert.InDelta(t, 0.5, report.Accuracy, 1e-9)
	require.Len(t, report.Records, 2)
	assert.Contains(t, string(report.Records[0]), `"attempt":2`)

	// The artifact reads back identically.
	loaded, err := s.ReadFinal()
	require.NoError(t, err)
	assert.Equal(t, report.Total, loaded.Total)
	assert.Equal(t, report.Correct, loaded.Correct)
}

func TestFinalizeCountsAbandoned(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Append(models.TrialResult{TrialID: "t1", ParsedAnswer: "A", Correct: true}))
	require.NoError(t, s.Append(models.AbandonedRecord{TrialID: "t2", Attempts: 2, FinalError: "HTTP 500", Abandoned: true}))

	report, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.Abandoned)
	assert.InDelta(t, 1.0, report.Accuracy, 1e-9)
}

func TestFinalizeToleratesTornLastLine(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Append(models.TrialResult{TrialID: "t1", ParsedAnswer: "A", Correct: true}))

	// Simulate a crash mid-append.
	f, err := os.OpenFile(s.RecordPath(), os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"trial_id": "t2", "parsed_ans`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
}

func TestReset(t *testing.T) {
	s, root := openTestStore(t)
	require.NoError(t, s.Append(models.TrialResult{TrialID: "t1"}))
	require.NoError(t, s.WriteStatus(models.NewExperimentStatus(testSpec(), 4)))
	_, err := s.Finalize()
	require.NoError(t, err)

	require.NoError(t, s.Reset())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListStatuses(t *testing.T) {
	root := t.TempDir()

	for _, subtask := range []string{"geography", "anatomy"} {
		spec := testSpec()
		spec.Subtask = subtask
		s, err := Open(root, spec.ID())
		require.NoError(t, err)
		require.NoError(t, s.WriteStatus(models.NewExperimentStatus(spec, 400)))
		require.NoError(t, s.Close())
	}

	statuses, err := ListStatuses(root)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "anatomy", statuses[0].Subtask)
	assert.Equal(t, "geography", statuses[1].Subtask)

	// Empty root is fine.
	statuses, err = ListStatuses(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
