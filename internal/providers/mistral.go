package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultMistralBaseURL = "https://api.mistral.ai"

// MistralClient calls the Mistral chat completions API.
type MistralClient struct {
	model   string
	apiKey  string
	baseURL string
	hc      *http.Client
}

func NewMistralClient(model, apiKey string, opts Options, timeout time.Duration) *MistralClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	return &MistralClient{
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
		hc:      &http.Client{Timeout: opts.timeout(timeout)},
	}
}

func (c *MistralClient) Name() string { return "mistral" }

type mistralRequest struct {
	Model    string           `json:"model"`
	Messages []mistralMessage `json:"messages"`
}

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message mistralMessage `json:"message"`
	} `json:"choices"`
}

func (c *MistralClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	payload := mistralRequest{
		Model:    c.model,
		Messages: []mistralMessage{{Role: "user", Content: prompt}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mistral: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mistral: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: "mistral", Message: "request failed", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: "mistral", Message: "read response body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Provider:   "mistral",
			StatusCode: resp.StatusCode,
			Message:    truncate(string(raw), 512),
		}
	}

	var parsed mistralResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &TransportError{Provider: "mistral", Message: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &TransportError{Provider: "mistral", Message: "response has no choices"}
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	return &Response{Text: parsed.Choices[0].Message.Content, Envelope: raw, Model: model}, nil
}
