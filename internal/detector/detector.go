// Package detector identifies the language of transcript text when the
// speech recogniser did not report one.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/peresub/internal/segment"
)

// maxSampleRunes caps the text handed to the detector for a whole transcript.
const maxSampleRunes = 2000

// Detector wraps a lingua detector. Building one is expensive; reuse it.
type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lowercase ISO 639-1 code of text.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// DetectSegments detects the language of the non-empty segment texts taken
// together, sampling from the start of the transcript.
func (d *Detector) DetectSegments(segs []segment.Segment) (string, bool) {
	var sb strings.Builder
	runes := 0
	for _, seg := range segs {
		if seg.IsEmpty() {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		sb.WriteString(text)
		sb.WriteString(" ")
		runes += len([]rune(text)) + 1
		if runes >= maxSampleRunes {
			break
		}
	}
	return d.DetectISO(sb.String())
}
