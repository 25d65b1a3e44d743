// Package transcribe turns audio into time-stamped segments.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	langcodes "github.com/valpere/peresub/internal/language"
	"github.com/valpere/peresub/internal/segment"
)

// Result is an ordered transcript and the language it was recognised in.
type Result struct {
	Language string            `json:"language"`
	Segments []segment.Segment `json:"segments"`
}

// Transcriber recognises speech in an audio file. language may be empty to
// let the engine detect it.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (*Result, error)
}

// JSONFile replays a transcript saved earlier, ignoring the audio. The file
// holds either a Result object or a bare array of segments.
type JSONFile struct {
	Path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

func (j *JSONFile) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		var segs []segment.Segment
		if arrErr := json.Unmarshal(data, &segs); arrErr != nil {
			return nil, fmt.Errorf("failed to decode transcript: %w", err)
		}
		result.Segments = segs
	}
	if err := segment.Validate(result.Segments); err != nil {
		return nil, fmt.Errorf("invalid transcript: %w", err)
	}

	if language != "" {
		result.Language = language
	}
	result.Language = langcodes.ForAPI(result.Language)
	return &result, nil
}
