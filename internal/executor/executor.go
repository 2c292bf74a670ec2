// Package executor runs a single trial end to end: encode the prompt, call
// the model, decode the reply and grade it.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/shuffleval/shuffleval/internal/format"
	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/permute"
	"github.com/shuffleval/shuffleval/internal/providers"
)

// Executor grades trials against one model client.
type Executor struct {
	client providers.ModelClient
	now    func() time.Time
}

func New(client providers.ModelClient) *Executor {
	return &Executor{client: client, now: time.Now}
}

// Execute runs one attempt of a trial. On a transport failure it returns
// both a result carrying the error (so the attempt can be recorded) and the
// error itself (so the caller can queue a retry). An unparseable reply is
// not an error: the trial completes as incorrect with the sentinel parsed
// answer.
func (e *Executor) Execute(ctx context.Context, trial *models.Trial, attempt int) (*models.TrialResult, error) {
	adapter, err := format.For(trial.InputFormat, trial.OutputFormat)
	if err != nil {
		return nil, err
	}
	perm, err := permute.FromIndices(trial.Permutation)
	if err != nil {
		return nil, fmt.Errorf("executor: trial %s: %w", trial.ID(), err)
	}

	prompt, err := adapter.Encode(trial.Question, perm, trial.Language)
	if err != nil {
		return nil, err
	}

	result := &models.TrialResult{
		TrialID:          trial.ID(),
		Task:             trial.Task(),
		QuestionID:       trial.Question.ID,
		Subtask:          trial.Question.Subtask,
		Model:            trial.Model,
		Language:         trial.Language,
		InputFormat:      trial.InputFormat,
		OutputFormat:     trial.OutputFormat,
		Permutation:      trial.Permutation,
		PermutationLabel: trial.PermutationLabel,
		Prompt:           prompt,
		ExpectedAnswer:   perm.RemapLabel(trial.Question.Answer),
		Attempt:          attempt,
		Timestamp:        e.now().UTC(),
	}

	start := e.now()
	resp, err := e.client.Complete(ctx, prompt)
	result.LatencyMS = e.now().Sub(start).Milliseconds()

	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.RawResponse = resp.Text
	result.Envelope = resp.Envelope
	result.ParsedAnswer = adapter.Decode(resp.Text, trial.Language)
	result.Correct = result.ParsedAnswer == result.ExpectedAnswer
	return result, nil
}
