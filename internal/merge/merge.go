// Package merge fuses adjacent transcript segments that only make sense
// together, such as a question split across two recogniser segments.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valpere/peresub/internal/llm"
	"github.com/valpere/peresub/internal/logging"
	"github.com/valpere/peresub/internal/progress"
	"github.com/valpere/peresub/internal/segment"
)

// MaxMergedDuration is the longest span, in seconds, a merged segment may cover.
const MaxMergedDuration = 4.0

const systemPrompt = "You are a subtitle optimization expert."

type Options struct {
	Logger   *slog.Logger
	Progress progress.Bar
}

// Merge walks the segments with a cursor. A pair is offered to the model only
// when both texts are non-empty and the pair spans at most MaxMergedDuration.
// After a merge the cursor stays put so the merged segment can absorb its next
// neighbour too. The result is a new slice; segs is not modified.
func Merge(ctx context.Context, segs []segment.Segment, model llm.LanguageModel, opts Options) []segment.Segment {
	logger := logging.OrDefault(opts.Logger)
	bar := progress.OrNop(opts.Progress)

	out := segment.Clone(segs)
	merges := 0
	i := 0
	for i < len(out)-1 {
		a, b := out[i], out[i+1]
		_ = bar.Add(1)

		if !Eligible(a, b) {
			i++
			continue
		}

		if !ParseVerdict(model.Complete(ctx, buildPrompt(a, b), systemPrompt)) {
			i++
			continue
		}

		out[i] = Join(a, b)
		out = append(out[:i+1], out[i+2:]...)
		merges++
		logger.Debug("merged segments", "index", i, "start", a.Start, "end", b.End)
	}
	_ = bar.Finish()

	logger.Info("merge complete", "input", len(segs), "output", len(out), "merges", merges)
	return out
}

// Eligible reports whether a and b may be considered for merging at all.
func Eligible(a, b segment.Segment) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return b.End-a.Start <= MaxMergedDuration
}

// Join fuses b into a: a's start and speaker, b's end, texts joined by a space.
func Join(a, b segment.Segment) segment.Segment {
	return segment.Segment{
		Start:   a.Start,
		End:     b.End,
		Text:    strings.TrimSpace(a.Text) + " " + strings.TrimSpace(b.Text),
		Speaker: a.Speaker,
	}
}

// ParseVerdict interprets the model's answer to the merge question. An empty
// answer means no merge. Any answer containing "not" (any case) or "不" is a
// refusal; everything else is read as agreement, so a bare "No" merges.
func ParseVerdict(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	if strings.Contains(strings.ToLower(answer), "not") || strings.Contains(answer, "不") {
		return false
	}
	return true
}

func buildPrompt(a, b segment.Segment) string {
	var sb strings.Builder
	sb.WriteString("You are an expert in optimizing video subtitles. Your task is to determine whether two transcription segments should be merged into one subtitle. ")
	sb.WriteString("Merge them only if: (1) each segment alone does not express a complete meaning and could be ambiguous or unclear, and (2) merging them forms a complete and coherent sentence. ")
	sb.WriteString("If each segment can stand alone with a clear meaning (even if not a full sentence), do not merge them. ")
	sb.WriteString("Consider the context and semantics carefully.\n\n")
	sb.WriteString("Here are some examples to guide you:\n")
	for i, ex := range examples {
		fmt.Fprintf(&sb, "Example %d:\n[Segment 1] Text: '%s'\n[Segment 2] Text: '%s'\nResult: '%s' (Reason: %s)\n\n",
			i+1, ex.first, ex.second, ex.result, ex.reason)
	}
	sb.WriteString("Now, determine whether the following two segments should be merged:\n")
	fmt.Fprintf(&sb, "[Segment 1] Start time: %g seconds, End time: %g seconds, Text: '%s'\n", a.Start, a.End, a.Text)
	fmt.Fprintf(&sb, "[Segment 2] Start time: %g seconds, End time: %g seconds, Text: '%s'\n", b.Start, b.End, b.Text)
	sb.WriteString("Respond with only 'Merge' or 'Do not merge'.")
	return sb.String()
}

var examples = []struct {
	first, second, result, reason string
}{
	{"你们在干", "什么", "Merge", "'你们在干' and '什么' are incomplete alone; together they form '你们在干什么', a complete question."},
	{"小明昨天吃了人", "参，非常补", "Merge", "'小明昨天吃了人' is ambiguous and alarming alone; '参，非常补' is incomplete; together they form '小明昨天吃了人参，非常补', a clear sentence."},
	{"我刚才跑步去了", "所以有点累", "Do not merge", "'我刚才跑步去了' and '所以有点累' each express a clear meaning independently."},
	{"他在看", "电视", "Merge", "'他在看' is incomplete and unclear; '电视' alone lacks context; together they form '他在看电视', a complete sentence."},
	{"今天天气很好", "适合出去玩", "Do not merge", "Both '今天天气很好' and '适合出去玩' are clear and meaningful independently."},
}
