package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OllamaBackend uses a local Ollama server's chat endpoint.
type OllamaBackend struct {
	core
	baseURL string
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewOllama creates a local backend. Empty model and baseURL use defaults.
func NewOllama(model, baseURL string, opts ...Option) *OllamaBackend {
	if model == "" {
		model = DefaultOllamaModel
	}
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaBackend{
		core:    newCore(BackendOllama, model, opts),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (b *OllamaBackend) Complete(ctx context.Context, prompt, systemPrompt string) string {
	return b.complete(ctx, prompt, systemPrompt, func(ctx context.Context) (string, error) {
		return b.chat(ctx, prompt, systemPrompt)
	})
}

func (b *OllamaBackend) chat(ctx context.Context, prompt, systemPrompt string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:    b.model,
		Messages: buildMessages(prompt, systemPrompt),
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("ollama error: %s", decoded.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	if !decoded.Done && decoded.Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return decoded.Message.Content, nil
}
