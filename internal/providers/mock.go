package providers

import (
	"context"
	"encoding/json"
)

// MockClient is the offline provider used for dry runs and local testing.
// It answers every prompt with a fixed reply and never fails.
type MockClient struct {
	model string
	reply string
}

func NewMockClient(model string, opts Options) *MockClient {
	reply := opts.MockReply
	if reply == "" {
		reply = "Answer: A"
	}
	return &MockClient{model: model, reply: reply}
}

func (c *MockClient) Name() string { return "mock" }

func (c *MockClient) Complete(_ context.Context, _ string) (*Response, error) {
	envelope, _ := json.Marshal(map[string]string{"mock": c.reply})
	return &Response{Text: c.reply, Envelope: envelope, Model: c.model}, nil
}
