package translator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/encoding/unicode"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

type TranslateRequest struct {
	Text       string            `json:"text"`
	SourceLang string            `json:"source_lang"` // "" or "auto" lets the service detect it
	TargetLang string            `json:"target_lang"`
	Glossary   map[string]string `json:"glossary,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Raw            []byte            `json:"-"` // undecoded body from services that answer in bytes
	Confidence     float64           `json:"confidence"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// Text returns the translation, decoding Raw (UTF-8, optional BOM) when the
// service left TranslatedText empty.
func (r *ServiceResult) Text() (string, error) {
	if r.TranslatedText != "" || len(r.Raw) == 0 {
		return r.TranslatedText, nil
	}
	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(r.Raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s result: %w", r.ServiceName, err)
	}
	return string(decoded), nil
}

// Mode tells the translation stage how a service may be called.
type Mode int

const (
	// Sequential services are called one segment at a time.
	Sequential Mode = iota
	// Concurrent services tolerate a bounded number of parallel requests.
	Concurrent
)

func (m Mode) String() string {
	if m == Concurrent {
		return "concurrent"
	}
	return "sequential"
}

type TranslationService interface {
	Name() string
	Mode() Mode
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

func isAuto(lang string) bool {
	return lang == "" || lang == "auto"
}
