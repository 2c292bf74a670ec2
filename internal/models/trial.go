package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// TrialState tracks a trial through its lifecycle within a run.
type TrialState string

const (
	TrialPending     TrialState = "pending"
	TrialInFlight    TrialState = "in_flight"
	TrialCompleted   TrialState = "completed"
	TrialRetryQueued TrialState = "retry_queued"
	TrialAbandoned   TrialState = "abandoned"
)

// Trial is the unit of execution: one question under one option ordering,
// for one (language, format pair, model) setting.
type Trial struct {
	Question Question

	// Permutation maps new position -> original option index.
	Permutation []int

	// PermutationLabel is the arrangement of the original letters under the
	// permutation, e.g. "DABC" for [3,0,1,2].
	PermutationLabel string

	Language     string
	InputFormat  string
	OutputFormat string
	Model        string

	// QuestionIdx and PermIdx are the enumeration coordinates; together they
	// form the human-readable task label.
	QuestionIdx int
	PermIdx     int
}

// Task returns the short q/p label used in logs and progress output.
func (t *Trial) Task() string {
	return fmt.Sprintf("q%d_p%d", t.QuestionIdx, t.PermIdx)
}

// ID returns the stable content-derived trial identifier. It hashes the
// trial's defining tuple, so re-enumeration across resumed runs always
// produces the same identifier for the same trial.
func (t *Trial) ID() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%d|%v",
		t.Question.Subtask, t.Model, t.Language,
		t.InputFormat, t.OutputFormat,
		t.QuestionIdx, t.Permutation)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// TrialResult is the canonical per-call record for a trial that completed.
// It is self-contained: one line of the experiment's JSONL log.
type TrialResult struct {
	TrialID          string          `json:"trial_id"`
	Task             string          `json:"task"`
	QuestionID       string          `json:"question_id"`
	Subtask          string          `json:"subtask"`
	Model            string          `json:"model"`
	Language         string          `json:"language"`
	InputFormat      string          `json:"input_format"`
	OutputFormat     string          `json:"output_format"`
	Permutation      []int           `json:"permutation"`
	PermutationLabel string          `json:"permutation_label"`
	Prompt           string          `json:"prompt"`
	RawResponse      string          `json:"raw_response"`
	Envelope         json.RawMessage `json:"response_envelope,omitempty"`

	// ParsedAnswer is A-D, or the "unparseable" sentinel when the reply
	// contained no recognizable answer.
	ParsedAnswer string `json:"parsed_answer"`

	// ExpectedAnswer is the ground-truth letter remapped into the permuted
	// arrangement.
	ExpectedAnswer string `json:"expected_answer"`

	Correct   bool      `json:"is_correct"`
	LatencyMS int64     `json:"latency_ms"`
	Attempt   int       `json:"attempt"`
	Timestamp time.Time `json:"timestamp"`

	// Error carries the transport error message on failed attempts. Records
	// with a non-empty Error are superseded in the consolidated artifact by
	// the trial's terminal record.
	Error string `json:"error,omitempty"`
}

// AbandonedRecord is the terminal record for a trial that failed transport
// on its initial attempt and its single retry.
type AbandonedRecord struct {
	TrialID     string    `json:"trial_id"`
	Task        string    `json:"task"`
	Subtask     string    `json:"subtask"`
	Model       string    `json:"model"`
	Attempts    int       `json:"attempts"`
	FinalError  string    `json:"final_error"`
	Abandoned   bool      `json:"abandoned"`
	AbandonedAt time.Time `json:"abandoned_at"`
}
