package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	langcodes "github.com/valpere/peresub/internal/language"
	"github.com/valpere/peresub/internal/segment"
)

const (
	DefaultWhisperURL   = "https://api.openai.com/v1"
	DefaultWhisperModel = "whisper-1"
)

// Whisper calls an OpenAI-compatible audio transcription endpoint and asks
// for verbose JSON so segment timings are returned.
type Whisper struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewWhisper(apiKey, model, baseURL string) *Whisper {
	if model == "" {
		model = DefaultWhisperModel
	}
	if baseURL == "" {
		baseURL = DefaultWhisperURL
	}
	return &Whisper{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Minute},
	}
}

type verboseResponse struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (w *Whisper) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	if w.apiKey == "" {
		return nil, fmt.Errorf("transcription API key not configured")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"model", w.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if language != "" && language != "auto" {
		fields = append(fields, [2]string{"language", langcodes.ForAPI(language)})
	}
	for _, field := range fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return nil, err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode transcription: %w", err)
	}

	result := &Result{
		// The API names the language ("english"); normalise to a code.
		Language: langcodes.ForAPI(decoded.Language),
		Segments: make([]segment.Segment, len(decoded.Segments)),
	}
	for i, s := range decoded.Segments {
		result.Segments[i] = segment.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)}
	}
	return result, nil
}
