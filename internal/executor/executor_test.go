package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shuffleval/shuffleval/internal/format"
	"github.com/shuffleval/shuffleval/internal/models"
	"github.com/shuffleval/shuffleval/internal/providers"
)

func sampleTrial() *models.Trial {
	return &models.Trial{
		Question: models.Question{
			ID:      "geo_0",
			Subtask: "geography",
			Text:    "What is the capital of France?",
			Choices: [4]string{"London", "Berlin", "Paris", "Madrid"},
			Answer:  2,
		},
		Permutation:      []int{3, 0, 1, 2}, // DABC
		PermutationLabel: "DABC",
		Language:         "en",
		InputFormat:      "base",
		OutputFormat:     "base",
		Model:            "gemini-2.0-flash-lite",
		QuestionIdx:      0,
		PermIdx:          1,
	}
}

func TestExecuteCorrectAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := providers.NewMockModelClient(ctrl)

	// Paris sits at original index 2; under DABC it is shown as D.
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(&providers.Response{
		Text:     "Thinking about capitals.\nAnswer: D",
		Envelope: []byte(`{"candidates": []}`),
	}, nil)

	trial := sampleTrial()
	result, err := New(client).Execute(context.Background(), trial, 1)
	require.NoError(t, err)

	assert.Equal(t, trial.ID(), result.TrialID)
	assert.Equal(t, "q0_p1", result.Task)
	assert.Equal(t, "D", result.ExpectedAnswer)
	assert.Equal(t, "D", result.ParsedAnswer)
	assert.True(t, result.Correct)
	assert.Equal(t, 1, result.Attempt)
	assert.Contains(t, result.Prompt, "A) Madrid")
	assert.NotEmpty(t, result.Envelope)
	assert.Empty(t, result.Error)
}

func TestExecuteWrongAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := providers.NewMockModelClient(ctrl)
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(&providers.Response{Text: "Answer: A"}, nil)

	result, err := New(client).Execute(context.Background(), sampleTrial(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A", result.ParsedAnswer)
	assert.False(t, result.Correct)
}

// A reply with no recognizable answer completes the trial. It is graded
// incorrect and must not surface as an error.
func TestExecuteUnparseableReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := providers.NewMockModelClient(ctrl)
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(&providers.Response{
		Text: "That question cannot be resolved from the given options.",
	}, nil)

	result, err := New(client).Execute(context.Background(), sampleTrial(), 1)
	require.NoError(t, err)
	assert.Equal(t, format.Unparseable, result.ParsedAnswer)
	assert.False(t, result.Correct)
	assert.Empty(t, result.Error)
}

func TestExecuteTransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := providers.NewMockModelClient(ctrl)

	terr := &providers.TransportError{Provider: "gemini", StatusCode: 429, Message: "rate limited"}
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(nil, terr)

	result, err := New(client).Execute(context.Background(), sampleTrial(), 1)
	require.Error(t, err)

	var got *providers.TransportError
	require.ErrorAs(t, err, &got)

	// The failed attempt still yields a record for the log.
	require.NotNil(t, result)
	assert.Contains(t, result.Error, "429")
	assert.Empty(t, result.RawResponse)
}

func TestExecuteBadConfig(t *testing.T) {
	trial := sampleTrial()
	trial.InputFormat = "json"
	trial.OutputFormat = "xml"

	ctrl := gomock.NewController(t)
	client := providers.NewMockModelClient(ctrl)

	_, err := New(client).Execute(context.Background(), trial, 1)
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))
}
