// Package segment holds the time-stamped transcript unit shared by every
// pipeline stage.
package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Segment is one timed piece of transcript. An empty Text marks silence or a
// suppressed duplicate and is never sent to an external service.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// IsEmpty reports whether the segment carries no text after trimming.
func (s Segment) IsEmpty() bool {
	return strings.TrimSpace(s.Text) == ""
}

// Duration returns End - Start in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Line renders the segment as a subtitle line, prefixed with the speaker
// when one is attributed.
func (s Segment) Line() string {
	if s.Speaker != "" {
		return s.Speaker + ": " + s.Text
	}
	return s.Text
}

// Clone returns an independent copy of segs.
func Clone(segs []Segment) []Segment {
	if segs == nil {
		return nil
	}
	out := make([]Segment, len(segs))
	copy(out, segs)
	return out
}

// Texts returns the text of every segment, index-aligned with segs.
func Texts(segs []Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

// BlankRepeats clears the text of any segment whose trimmed text equals the
// most recent non-empty text. Speech recognisers tend to emit the same phrase
// several times over silence; the blanked segments keep their timing so the
// sequence length is unchanged.
func BlankRepeats(segs []Segment) []Segment {
	out := Clone(segs)
	last := ""
	for i := range out {
		current := strings.TrimSpace(out[i].Text)
		if current == "" {
			continue
		}
		if current == last {
			out[i].Text = ""
			continue
		}
		last = current
	}
	return out
}

// Validate checks timing invariants: non-negative times and Start <= End.
func Validate(segs []Segment) error {
	for i, s := range segs {
		if s.Start < 0 || s.End < 0 {
			return fmt.Errorf("segment %d: negative timestamp (%.3f, %.3f)", i, s.Start, s.End)
		}
		if s.Start > s.End {
			return fmt.Errorf("segment %d: start %.3f after end %.3f", i, s.Start, s.End)
		}
	}
	return nil
}

// Load reads a JSON array of segments from path.
func Load(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segments file: %w", err)
	}
	var segs []Segment
	if err := json.Unmarshal(data, &segs); err != nil {
		return nil, fmt.Errorf("failed to decode segments file: %w", err)
	}
	if err := Validate(segs); err != nil {
		return nil, err
	}
	return segs, nil
}

// Save writes segs to path as indented JSON, creating parent directories.
func Save(path string, segs []Segment) error {
	if segs == nil {
		segs = []Segment{}
	}
	data, err := json.MarshalIndent(segs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode segments: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write segments file: %w", err)
	}
	return nil
}
