package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend talks to an OpenAI-compatible chat completions endpoint.
type OpenAIBackend struct {
	core
	client openai.Client
}

// NewOpenAI creates a hosted backend. Empty model and baseURL use defaults.
// Retries are left to the backend's policy, so the client never retries on its own.
func NewOpenAI(apiKey, model, baseURL string, opts ...Option) *OpenAIBackend {
	if model == "" {
		model = DefaultGPTModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	b := &OpenAIBackend{core: newCore(BackendGPT, model, opts)}
	b.client = openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"),
		option.WithHTTPClient(b.http),
		option.WithMaxRetries(0),
	)
	return b
}

func (b *OpenAIBackend) Complete(ctx context.Context, prompt, systemPrompt string) string {
	return b.complete(ctx, prompt, systemPrompt, func(ctx context.Context) (string, error) {
		return b.chat(ctx, prompt, systemPrompt)
	})
}

func (b *OpenAIBackend) chat(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
