package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffleval/shuffleval/internal/models"
)

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{
		"base_url":        "http://localhost:9999",
		"timeout_seconds": 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", opts.BaseURL)
	assert.Equal(t, 5*time.Second, opts.timeout(time.Minute))

	opts, err = DecodeOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, opts.timeout(time.Minute))

	_, err = DecodeOptions(map[string]any{"base_urll": "typo"})
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))
}

func TestForModel(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("MISTRAL_API_KEY", "mistral-key")

	client, err := ForModel("gemini-2.0-flash-lite", Options{}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.Name())

	client, err = ForModel("mistral-small-latest", Options{}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "mistral", client.Name())

	client, err = ForModel("mock", Options{}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "mock", client.Name())
}

func TestForModelMissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("MISTRAL_API_KEY", "")

	_, err := ForModel("gemini-2.0-flash-lite", Options{}, time.Minute)
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))

	_, err = ForModel("mistral-small-latest", Options{}, time.Minute)
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))
}

func TestGeminiComplete(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"modelVersion": "gemini-2.0-flash-lite-001",
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]string{{"text": "Answer: "}, {"text": "C"}},
				},
			}},
		})
	}))
	defer srv.Close()

	client := NewGeminiClient("gemini-2.0-flash-lite", "test-key", Options{BaseURL: srv.URL}, time.Minute)
	resp, err := client.Complete(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-2.0-flash-lite:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "What is the capital of France?", gotBody.Contents[0].Parts[0].Text)

	assert.Equal(t, "Answer: C", resp.Text)
	assert.Equal(t, "gemini-2.0-flash-lite-001", resp.Model)
	assert.NotEmpty(t, resp.Envelope)
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			"rate limited",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error": {"code": 429}}`, http.StatusTooManyRequests)
			},
			http.StatusTooManyRequests,
		},
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			http.StatusInternalServerError,
		},
		{
			"no candidates",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"candidates": []}`))
			},
			0,
		},
		{
			"malformed body",
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewGeminiClient("gemini-2.0-flash-lite", "k", Options{BaseURL: srv.URL}, time.Minute)
			_, err := client.Complete(context.Background(), "prompt")
			require.Error(t, err)

			var terr *TransportError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, "gemini", terr.Provider)
			assert.Equal(t, tt.wantStatus, terr.StatusCode)
		})
	}
}

func TestGeminiNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	client := NewGeminiClient("gemini-2.0-flash-lite", "k", Options{BaseURL: srv.URL}, time.Second)
	_, err := client.Complete(context.Background(), "prompt")

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.NotNil(t, terr.Err)
}

func TestMistralComplete(t *testing.T) {
	var gotAuth string
	var gotBody mistralRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "mistral-small-latest",
			"choices": []map[string]any{{
				"message": map[string]string{"role": "assistant", "content": "Réponse : B"},
			}},
		})
	}))
	defer srv.Close()

	client := NewMistralClient("mistral-small-latest", "test-key", Options{BaseURL: srv.URL}, time.Minute)
	resp, err := client.Complete(context.Background(), "Quelle est la capitale de la France ?")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "mistral-small-latest", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)

	assert.Equal(t, "Réponse : B", resp.Text)
	assert.Equal(t, "mistral-small-latest", resp.Model)
}

func TestMistralHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewMistralClient("mistral-small-latest", "bad-key", Options{BaseURL: srv.URL}, time.Minute)
	_, err := client.Complete(context.Background(), "prompt")

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "mistral", terr.Provider)
	assert.Equal(t, http.StatusUnauthorized, terr.StatusCode)
	assert.Contains(t, terr.Error(), "401")
}

func TestCompleteRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewMistralClient("mistral-small-latest", "k", Options{BaseURL: srv.URL}, time.Minute)
	_, err := client.Complete(ctx, "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMockClient(t *testing.T) {
	client := NewMockClient("mock", Options{})
	resp, err := client.Complete(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "Answer: A", resp.Text)

	client = NewMockClient("mock", Options{MockReply: "Answer: D"})
	resp, err = client.Complete(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "Answer: D", resp.Text)
}
