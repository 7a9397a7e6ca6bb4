package annotate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// TextClient sends a single prompt to a text-generation model.
type TextClient interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// GeminiClient is a TextClient backed by the Gemini API. The underlying
// client is created on first use.
type GeminiClient struct {
	apiKey string
	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a Gemini-backed client for the given API key.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{apiKey: apiKey}
}

func (c *GeminiClient) get(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}
	c.client = client
	return client, nil
}

// GenerateText implements TextClient.
func (c *GeminiClient) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	client, err := c.get(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response")
	}
	return resp.Text(), nil
}
