// Package postprocess removes common artifacts from language model answers.
//
// Every LanguageModel backend runs its raw answer through Clean before the
// text reaches a pipeline stage, so corrections, merge verdicts, candidate
// translations and arbitration choices all arrive as bare text.
package postprocess

import (
	"regexp"
	"strings"

	"github.com/valpere/peresub/internal/markdown"
)

// Clean removes model artifacts in four phases and returns the trimmed result:
//  1. Thinking / reasoning block removal
//  2. Answer label removal ("Corrected text:", "Accurate Translation:", ...)
//  3. Markdown emphasis removal
//  4. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeAnswerLabels(text)
	text = removeMarkdown(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <think>…</think> style blocks. RE2 has no
// backreferences, so each tag pair is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: answer labels ---

// labelPatterns match the labels our few-shot prompts use for answers, which
// models tend to repeat. Each is anchored and requires a colon.
var labelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:corrected text|current segment)\s*:`),
	regexp.MustCompile(`(?i)^(?:accurate |optimi[sz]ed |final )?translation\s*:`),
	regexp.MustCompile(`(?i)^(?:result|answer)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:corrected |optimi[sz]ed |translated )?(?:translation|text)\s*:`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:corrected |optimi[sz]ed |translated )?(?:translation|text)\s*:`),
}

func removeAnswerLabels(text string) string {
	for _, re := range labelPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 3: markdown ---

// markdownHintRe detects emphasis or inline code. Plain subtitle text rarely
// contains these, so other text is left untouched.
var markdownHintRe = regexp.MustCompile("\\*\\*[^*]+\\*\\*|__[^_]+__|`[^`]+`")

func removeMarkdown(text string) string {
	if !markdownHintRe.MatchString(text) {
		return text
	}
	return markdown.ToPlainText([]byte(text))
}

// --- Phase 4: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them. Supported pairs:
//
//	"…"  '…'  «…»  “…”  ‘…’  「…」
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') ||
		(first == '「' && last == '」') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
