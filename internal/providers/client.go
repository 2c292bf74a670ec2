// Package providers holds the model API clients. Each provider speaks its
// own HTTP dialect; the rest of the engine only sees the ModelClient
// interface.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/shuffleval/shuffleval/internal/models"
)

//go:generate go tool mockgen -source=client.go -destination=mock_modelclient.go -package=providers

// Response is a completed model call.
type Response struct {
	// Text is the assistant text extracted from the provider payload.
	Text string

	// Envelope is the raw provider response body, kept for the trial record.
	Envelope json.RawMessage

	// Model is the provider-reported model name, when present.
	Model string
}

// ModelClient issues one completion call per trial.
type ModelClient interface {
	// Name identifies the provider (gemini, mistral, mock).
	Name() string

	// Complete sends a prompt and returns the model reply. Failures are
	// returned as *TransportError and are eligible for one retry.
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// TransportError is any failure to obtain a usable reply from a provider:
// network errors, non-2xx statuses, and payloads with no text. All of them
// are treated the same way upstream, retried exactly once.
type TransportError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Options are the provider knobs carried in an experiment's free-form
// provider_options map.
type Options struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MockReply      string `mapstructure:"mock_reply"`
}

// DecodeOptions converts a provider_options map into Options.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &opts,
		ErrorUnused: true,
	})
	if err != nil {
		return Options{}, fmt.Errorf("providers: build options decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Options{}, models.NewConfigError("invalid provider_options: %v", err)
	}
	return opts, nil
}

func (o Options) timeout(def time.Duration) time.Duration {
	if o.TimeoutSeconds > 0 {
		return time.Duration(o.TimeoutSeconds) * time.Second
	}
	return def
}

// ForModel picks the provider for a model name. Names containing "gemini"
// go to Google, "mock" is the offline test provider, everything else goes
// to Mistral. API keys come from GOOGLE_API_KEY / MISTRAL_API_KEY.
func ForModel(model string, opts Options, timeout time.Duration) (ModelClient, error) {
	switch {
	case strings.Contains(model, "mock"):
		return NewMockClient(model, opts), nil
	case strings.Contains(model, "gemini"):
		key := os.Getenv("GOOGLE_API_KEY")
		if key == "" {
			return nil, models.NewConfigError("GOOGLE_API_KEY is not set (required for model %q)", model)
		}
		return NewGeminiClient(model, key, opts, timeout), nil
	default:
		key := os.Getenv("MISTRAL_API_KEY")
		if key == "" {
			return nil, models.NewConfigError("MISTRAL_API_KEY is not set (required for model %q)", model)
		}
		return NewMistralClient(model, key, opts, timeout), nil
	}
}
