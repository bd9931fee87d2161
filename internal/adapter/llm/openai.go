package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// OpenAIGenerator produces answers through an OpenAI-compatible chat
// completion endpoint. Each call blocks until the provider responds or
// the configured timeout expires.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIGenerator creates a generator. The API key is read from the
// named environment variable; baseURL may point at any
// OpenAI-compatible server (empty means api.openai.com).
func NewOpenAIGenerator(apiKeyEnv, model, baseURL string, timeout time.Duration) (*OpenAIGenerator, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}, nil
}

// Generate sends the prompt as a single user message and returns the
// model's reply text.
func (g *OpenAIGenerator) Generate(prompt string, opts port.GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) ModelName() string {
	return g.model
}

// MockGenerator echoes a canned reply, for tests and offline runs.
type MockGenerator struct {
	Reply string
	// Prompts records every prompt passed in, in call order.
	Prompts []string
}

func NewMockGenerator(reply string) *MockGenerator {
	return &MockGenerator{Reply: reply}
}

func (g *MockGenerator) Generate(prompt string, opts port.GenerateOptions) (string, error) {
	g.Prompts = append(g.Prompts, prompt)
	if strings.TrimSpace(g.Reply) == "" {
		return "", domain.ErrEmptyResponse
	}
	return g.Reply, nil
}

func (g *MockGenerator) ModelName() string {
	return "mock"
}
