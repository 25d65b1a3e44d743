// Package correction fixes speech recognition errors segment by segment,
// asking the language model with the surrounding transcript as context.
package correction

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/valpere/peresub/internal/llm"
	"github.com/valpere/peresub/internal/logging"
	"github.com/valpere/peresub/internal/metrics"
	"github.com/valpere/peresub/internal/progress"
	"github.com/valpere/peresub/internal/segment"
)

// DefaultContextRange is the number of segments on each side offered as context.
const DefaultContextRange = 10

const systemPrompt = "You are a transcription correction expert."

type Options struct {
	// ContextRange bounds the window on each side; 0 means DefaultContextRange.
	ContextRange int
	Logger       *slog.Logger
	Progress     progress.Bar
	Metrics      *metrics.Recorder
}

// Correct returns a copy of segs with each non-empty text replaced by the
// model's correction. Empty segments are untouched and never used as context.
// When the model has no answer the original text is kept.
func Correct(ctx context.Context, segs []segment.Segment, model llm.LanguageModel, opts Options) []segment.Segment {
	logger := logging.OrDefault(opts.Logger)
	bar := progress.OrNop(opts.Progress)
	n := opts.ContextRange
	if n <= 0 {
		n = DefaultContextRange
	}

	out := segment.Clone(segs)
	changed := 0
	for i := range out {
		_ = bar.Add(1)
		if segs[i].IsEmpty() {
			continue
		}

		prompt := buildPrompt(contextFor(segs, i, n), segs[i].Text)
		corrected := strings.TrimSpace(model.Complete(ctx, prompt, systemPrompt))
		if corrected == "" {
			opts.Metrics.Fallback("correction")
			logger.Debug("correction kept original text", "index", i)
			continue
		}
		if corrected != segs[i].Text {
			changed++
		}
		out[i].Text = corrected
	}
	_ = bar.Finish()

	logger.Info("correction complete", "segments", len(out), "changed", changed)
	return out
}

// contextFor builds the "Previous context"/"Next context" block from the
// non-empty texts among the n segments on either side of i.
func contextFor(segs []segment.Segment, i, n int) string {
	var prev, next []string
	for j := max(0, i-n); j < i; j++ {
		if !segs[j].IsEmpty() {
			prev = append(prev, segs[j].Text)
		}
	}
	for j := i + 1; j <= min(len(segs)-1, i+n); j++ {
		if !segs[j].IsEmpty() {
			next = append(next, segs[j].Text)
		}
	}

	var sb strings.Builder
	if len(prev) > 0 {
		sb.WriteString("Previous context: " + strings.Join(prev, " ") + "\n")
	}
	if len(next) > 0 {
		sb.WriteString("Next context: " + strings.Join(next, " ") + "\n")
	}
	return sb.String()
}

func buildPrompt(contextText, text string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert in correcting transcription errors across multiple languages. \n")
	sb.WriteString("Your task is to correct transcription errors in the given segment, using the provided context from surrounding segments. \n")
	sb.WriteString("Errors may include misheard words, homophones, or other common transcription mistakes. \n")
	sb.WriteString("Only correct errors that you are 100% certain about, and do not modify content that is not erroneous. \n")
	sb.WriteString("Maintain the original language and do not change the language.\n\n")
	sb.WriteString("Here are some examples to guide you:\n\n")
	for i, ex := range examples {
		sb.WriteString("Example " + strconv.Itoa(i+1) + ":\n")
		sb.WriteString("Previous context: " + ex.previous + "\n")
		sb.WriteString("Current segment: " + ex.segment + "\n")
		sb.WriteString("Corrected text: " + ex.corrected + "\n\n")
	}
	sb.WriteString("Now, correct the following segment using the provided context:\n\n")
	sb.WriteString(contextText + "\n\n")
	sb.WriteString("Current segment to correct: " + text + "\n\n")
	sb.WriteString("Output only the corrected text of the current segment. Do not include any additional explanations, comments, or content.\n")
	return sb.String()
}

var examples = []struct {
	previous, segment, corrected string
}{
	{"I've already run a kilometer.", "I feel thirty.", "I feel thirsty."},
	{"昨日、おばあさんに会いました。", "彼女は私の obasan です。", "彼女は私の おばさん です。"},
	{"我昨天买了一匹马。", "我妈很喜欢它。", "我妈很喜欢它。"},
	{"我在学习日本語。", "我的 sensei はとても厳しいです。", "我的 先生 はとても厳しいです。"},
	{"We visited the Eiffel Tower in Paris.", "It was an amazing experience in Parry.", "It was an amazing experience in Paris."},
}
