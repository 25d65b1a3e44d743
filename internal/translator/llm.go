package translator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	langcodes "github.com/valpere/peresub/internal/language"
	"github.com/valpere/peresub/internal/llm"
	"github.com/valpere/peresub/internal/placeholder"
)

// LLMService translates with the configured language model, for setups with
// no translation API at hand. Local models serve one request at a time.
type LLMService struct {
	model llm.LanguageModel
}

func NewLLMService(model llm.LanguageModel) *LLMService {
	return &LLMService{model: model}
}

func (s *LLMService) Name() string {
	return "llm"
}

func (s *LLMService) Mode() Mode {
	return Sequential
}

func (s *LLMService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	sourceLang := "the detected language"
	if !isAuto(req.SourceLang) {
		sourceLang = langcodes.DisplayName(req.SourceLang)
	}
	systemPrompt := buildTranslationSystemPrompt(sourceLang, langcodes.DisplayName(req.TargetLang), req.Glossary)
	if placeholder.Has(req.Text) {
		systemPrompt += "\n" + placeholder.InstructionHint()
	}

	translated := s.model.Complete(ctx, req.Text, systemPrompt)
	if translated == "" {
		result.Error = "empty response from language model"
		return result, fmt.Errorf("empty response from language model")
	}

	result.TranslatedText = translated
	result.Confidence = 0.7
	return result, nil
}

func (s *LLMService) IsAvailable(ctx context.Context) error {
	if s.model == nil {
		return fmt.Errorf("language model not configured")
	}
	return nil
}

func (s *LLMService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}

// buildTranslationSystemPrompt constructs the system prompt, optionally
// injecting glossary terms in a stable order.
func buildTranslationSystemPrompt(sourceLang, targetLang string, glossary map[string]string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a professional subtitle translator. Translate the following subtitle line from %s to %s.\n", sourceLang, targetLang)
	sb.WriteString("Only respond with the translation, nothing else. No explanations, no quotes, just the translation.")

	if len(glossary) > 0 {
		terms := make([]string, 0, len(glossary))
		for src := range glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)

		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		for _, src := range terms {
			fmt.Fprintf(&sb, "  %s → %s\n", src, glossary[src])
		}
	}

	return sb.String()
}
