// Package llm provides the language model used for correction, merge
// decisions, translation refinement and arbitration.
//
// A LanguageModel never returns an error: every backend retries transient
// failures with exponential backoff and answers "" once its attempts are
// exhausted. Callers treat "" as "no opinion" and keep their input.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/peresub/internal/logging"
	"github.com/valpere/peresub/internal/metrics"
	"github.com/valpere/peresub/internal/postprocess"
	"github.com/valpere/peresub/internal/retry"
)

// LanguageModel completes a prompt under a system prompt.
type LanguageModel interface {
	Complete(ctx context.Context, prompt, systemPrompt string) string
}

// Func adapts an ordinary function to LanguageModel.
type Func func(ctx context.Context, prompt, systemPrompt string) string

func (f Func) Complete(ctx context.Context, prompt, systemPrompt string) string {
	return f(ctx, prompt, systemPrompt)
}

// Backend names accepted by New.
const (
	BackendGPT    = "gpt"
	BackendOllama = "ollama"
)

const (
	DefaultGPTModel    = "gpt-4o"
	DefaultOllamaModel = "huihui_ai/qwen2.5-1m-abliterated:7b"
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultOllamaURL   = "http://localhost:11434"

	defaultMaxAttempts = 5
	defaultBaseDelay   = time.Second
	defaultTimeout     = 120 * time.Second
)

var (
	// ErrEmptyResponse is returned by a single attempt when the backend sent
	// no completion at all.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMissingAPIKey is returned by New for hosted backends without a key.
	ErrMissingAPIKey = errors.New("API key required for hosted language model")
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Model   string
	APIKey  string
	BaseURL string
}

// New builds the backend named by cfg.Backend.
func New(cfg Config, opts ...Option) (LanguageModel, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendGPT, "openai", "":
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, opts...), nil
	case BackendOllama:
		return NewOllama(cfg.Model, cfg.BaseURL, opts...), nil
	default:
		return nil, fmt.Errorf("unknown language model backend: %q", cfg.Backend)
	}
}

// Option configures a backend.
type Option func(*core)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *core) {
		if c != nil {
			o.http = c
		}
	}
}

// WithRetryPolicy overrides the default 5 attempts doubling from 1s.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *core) { o.policy = p }
}

// WithLogger sets the logger for call timing and retries.
func WithLogger(l *slog.Logger) Option {
	return func(o *core) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records call outcomes.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *core) { o.metrics = m }
}

// WithPromptLogging logs every prompt and answer at info level.
func WithPromptLogging(enabled bool) Option {
	return func(o *core) { o.logPrompts = enabled }
}

// core holds what both backends share: transport, retry and logging.
type core struct {
	backend    string
	model      string
	http       *http.Client
	policy     retry.Policy
	logger     *slog.Logger
	metrics    *metrics.Recorder
	logPrompts bool
}

func newCore(backend, model string, opts []Option) core {
	c := core{
		backend: backend,
		model:   model,
		http:    &http.Client{Timeout: defaultTimeout},
		policy:  retry.Exponential(defaultMaxAttempts, defaultBaseDelay),
		logger:  logging.OrDefault(nil),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// complete runs call under the retry policy, cleans the answer and records
// the outcome. It returns "" when every attempt fails.
func (c *core) complete(ctx context.Context, prompt, systemPrompt string, call func(ctx context.Context) (string, error)) string {
	policy := c.policy
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.logger.Warn("language model call failed, retrying",
			"backend", c.backend,
			"model", c.model,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"wait", wait,
			"error", err)
		c.metrics.Retry("llm")
		if userHook != nil {
			userHook(attempt, err, wait)
		}
	}

	start := time.Now()
	failed := false
	policy.OnGiveUp = func(err error) {
		failed = true
		c.logger.Error("language model unavailable, returning empty answer",
			"backend", c.backend,
			"model", c.model,
			"duration", time.Since(start),
			"error", err)
		c.metrics.LLMCall(c.backend, "failed")
	}
	raw := retry.WithFallback(ctx, policy, "", call)
	elapsed := time.Since(start)
	if failed {
		return ""
	}

	answer := postprocess.Clean(raw)
	c.metrics.LLMCall(c.backend, "ok")
	if c.logPrompts {
		c.logger.Info("language model exchange",
			"backend", c.backend,
			"model", c.model,
			"duration", elapsed,
			"system", systemPrompt,
			"prompt", prompt,
			"response", answer)
	} else {
		c.logger.Debug("language model call",
			"backend", c.backend,
			"model", c.model,
			"duration", elapsed,
			"prompt_chars", len(prompt),
			"response_chars", len(answer))
	}
	return answer
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildMessages(prompt, systemPrompt string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt})
}
