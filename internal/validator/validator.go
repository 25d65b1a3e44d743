// Package validator checks that final subtitle text is in the target
// language. Its findings are reported, never enforced.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/peresub/internal/detector"
	langcodes "github.com/valpere/peresub/internal/language"
	"github.com/valpere/peresub/internal/segment"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator checks that a translation result is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector.
func New() *Validator {
	return &Validator{det: detector.New()}
}

// NewWithDetector shares an already built detector.
func NewWithDetector(det *detector.Detector) *Validator {
	return &Validator{det: det}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. When the detected language differs
// from targetLang the returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	// Region variants such as zh-tw still count as zh.
	want := langcodes.ForAPI(targetLang)
	if base, _, found := strings.Cut(want, "-"); found {
		want = base
	}
	if !strings.EqualFold(detected, want) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}

// Mismatch is a segment whose text was detected in another language.
type Mismatch struct {
	Index  int
	Text   string
	Reason string
}

// Report summarises a validation pass over final segments.
type Report struct {
	Checked    int
	Mismatches []Mismatch
}

// CheckSegments validates every non-empty segment against targetLang.
func (v *Validator) CheckSegments(segs []segment.Segment, targetLang string) Report {
	var report Report
	for i, seg := range segs {
		if seg.IsEmpty() {
			continue
		}
		report.Checked++
		if ok, err := v.IsValid(seg.Text, targetLang); !ok {
			report.Mismatches = append(report.Mismatches, Mismatch{Index: i, Text: seg.Text, Reason: err.Error()})
		}
	}
	return report
}
