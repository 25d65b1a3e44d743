package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	langcodes "github.com/valpere/peresub/internal/language"
)

const niuTransURL = "http://api.niutrans.com/NiuTransServer/translation"

// NiuTransService calls the NiuTrans text translation API. The free tier
// rejects parallel requests, so it runs in sequential mode.
type NiuTransService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewNiuTransService(apiKey string) *NiuTransService {
	return &NiuTransService{
		apiKey:  apiKey,
		baseURL: niuTransURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *NiuTransService) Name() string {
	return "niutrans"
}

func (s *NiuTransService) Mode() Mode {
	return Sequential
}

type niuTransResponse struct {
	From      string `json:"from"`
	To        string `json:"to"`
	TgtText   string `json:"tgt_text"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

func (s *NiuTransService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		result.Error = "NiuTrans API key required"
		return result, fmt.Errorf("NiuTrans API key required")
	}

	sourceLang := "auto"
	if !isAuto(req.SourceLang) {
		sourceLang = langcodes.ForAPI(req.SourceLang)
	}

	params := url.Values{}
	params.Set("from", sourceLang)
	params.Set("to", langcodes.ForAPI(req.TargetLang))
	params.Set("apikey", apiKey)
	params.Set("src_text", req.Text)

	baseURL := s.baseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read response: %v", err)
		return result, err
	}
	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("API returned status %d", resp.StatusCode)
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var decoded niuTransResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}
	if decoded.ErrorCode != "" {
		result.Error = fmt.Sprintf("API error %s: %s", decoded.ErrorCode, decoded.ErrorMsg)
		return result, fmt.Errorf("API error %s: %s", decoded.ErrorCode, decoded.ErrorMsg)
	}
	if decoded.TgtText == "" {
		result.Error = "response has no tgt_text"
		return result, fmt.Errorf("response has no tgt_text")
	}

	result.TranslatedText = decoded.TgtText
	result.Confidence = 0.8
	result.Metadata = map[string]string{"from": decoded.From, "to": decoded.To}
	return result, nil
}

func (s *NiuTransService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("NiuTrans API key not configured")
	}
	return nil
}

func (s *NiuTransService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{
		"zh", "en", "ja", "ko", "fr", "de", "es", "ru", "pt", "it",
		"ar", "th", "vi", "id", "ms", "tr", "nl", "pl", "uk", "he",
	}, nil
}
