// Package optimize refines basic translations one segment at a time.
//
// The loop is strictly sequential and writes each chosen translation back
// into the basic buffer, so the left context of segment i holds optimized
// text while its right context still holds basic text.
package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valpere/peresub/internal/arbiter"
	"github.com/valpere/peresub/internal/logging"
	"github.com/valpere/peresub/internal/metrics"
	"github.com/valpere/peresub/internal/progress"
	"github.com/valpere/peresub/internal/refiner"
	"github.com/valpere/peresub/internal/segment"
)

const DefaultContextRange = 10

const (
	previousLabel = "Previous context: "
	nextLabel     = "Next context: "
)

type Options struct {
	UseLLM bool
	// ContextRange bounds the window on each side; 0 means DefaultContextRange.
	ContextRange int
	TargetLang   string
	Glossary     map[string]string
	Logger       *slog.Logger
	Progress     progress.Bar
	Metrics      *metrics.Recorder
}

// Optimize returns the final segments: the timing and speaker of segs with
// the chosen translation as text. basic is overwritten in place. ref and arb
// are only consulted when opts.UseLLM is set.
func Optimize(ctx context.Context, segs []segment.Segment, basic []string, ref refiner.Refiner, arb arbiter.Arbiter, opts Options) ([]segment.Segment, error) {
	if len(segs) != len(basic) {
		return nil, fmt.Errorf("segment count %d does not match translation count %d", len(segs), len(basic))
	}
	if opts.UseLLM && (ref == nil || arb == nil) {
		return nil, fmt.Errorf("refiner and arbiter are required when LLM optimization is enabled")
	}

	logger := logging.OrDefault(opts.Logger)
	bar := progress.OrNop(opts.Progress)
	n := opts.ContextRange
	if n <= 0 {
		n = DefaultContextRange
	}

	out := make([]segment.Segment, len(segs))
	replaced := 0
	for i, seg := range segs {
		chosen := basic[i]
		if opts.UseLLM && !seg.IsEmpty() {
			contextText := ContextText(basic, i, n)
			candidate := ref.Refine(ctx, refiner.Request{
				Original:   seg.Text,
				Basic:      basic[i],
				Context:    contextText,
				TargetLang: opts.TargetLang,
				Glossary:   opts.Glossary,
			})
			if candidate != basic[i] {
				chosen = arb.SelectBest(ctx, arbiter.Candidates{
					Context:    contextText,
					Original:   seg.Text,
					Basic:      basic[i],
					Candidate:  candidate,
					TargetLang: opts.TargetLang,
				})
			}
			if chosen != basic[i] {
				replaced++
			}
			basic[i] = chosen
		}

		out[i] = segment.Segment{Start: seg.Start, End: seg.End, Text: chosen, Speaker: seg.Speaker}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	logger.Info("optimization complete", "segments", len(out), "llm", opts.UseLLM, "replaced", replaced)
	return out, nil
}

// ContextText renders the translations around index i: up to n entries
// before it and n after it, one per line.
func ContextText(translations []string, i, n int) string {
	var parts []string
	if i > 0 {
		parts = append(parts, previousLabel+strings.Join(translations[max(0, i-n):i], "\n"))
	}
	if i < len(translations)-1 {
		parts = append(parts, nextLabel+strings.Join(translations[i+1:min(len(translations), i+n+1)], "\n"))
	}
	return strings.Join(parts, "\n")
}
