package translator

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	langcodes "github.com/valpere/peresub/internal/language"
)

// GoogleService uses the Cloud Translation API. One client is created on first
// use and shared by concurrent calls.
type GoogleService struct {
	mu     sync.Mutex
	client *translate.Client
}

func NewGoogleService() *GoogleService {
	return &GoogleService{}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Mode() Mode {
	return Concurrent
}

func (s *GoogleService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	targetTag, err := googleTag(req.TargetLang)
	if err != nil {
		result.Error = fmt.Sprintf("invalid target language: %v", err)
		return result, fmt.Errorf("invalid target language: %w", err)
	}

	var opts *translate.Options
	if !isAuto(req.SourceLang) {
		sourceTag, err := googleTag(req.SourceLang)
		if err != nil {
			result.Error = fmt.Sprintf("invalid source language: %v", err)
			return result, fmt.Errorf("invalid source language: %w", err)
		}
		opts = &translate.Options{Source: sourceTag, Format: translate.Text}
	}

	client, err := s.clientFor(ctx, cfg)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create client: %v", err)
		return result, fmt.Errorf("failed to create client: %w", err)
	}

	translations, err := client.Translate(ctx, []string{req.Text}, targetTag, opts)
	if err != nil {
		result.Error = fmt.Sprintf("translation failed: %v", err)
		return result, fmt.Errorf("translation failed: %w", err)
	}
	if len(translations) == 0 {
		result.Error = "no translation returned"
		return result, fmt.Errorf("no translation returned")
	}

	// The API escapes HTML entities unless the format is text, which is only
	// set alongside an explicit source.
	result.TranslatedText = html.UnescapeString(translations[0].Text)
	result.Confidence = 1.0
	if detected := translations[0].Source; detected != language.Und {
		result.Metadata = map[string]string{"detected_source": detected.String()}
	}
	return result, nil
}

func (s *GoogleService) clientFor(ctx context.Context, cfg ServiceConfig) (*translate.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client, err := translate.NewClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

// Close releases the shared client, if one was created.
func (s *GoogleService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *GoogleService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}

// googleTag parses code after mapping it through the translator table.
func googleTag(code string) (language.Tag, error) {
	return language.Parse(langcodes.ForTranslator(code))
}
