// Package arbiter decides between a basic translation and a refined
// candidate by asking the language model for a single digit.
package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	langcodes "github.com/valpere/peresub/internal/language"
	"github.com/valpere/peresub/internal/llm"
	"github.com/valpere/peresub/internal/logging"
)

const systemPrompt = "You are a transcription evaluation expert."

// Choice identifies the winning translation.
type Choice int

const (
	KeepBasic Choice = iota
	UseCandidate
)

// Candidates are the two translations of Original under comparison.
type Candidates struct {
	Context    string
	Original   string
	Basic      string
	Candidate  string
	TargetLang string
}

type Arbiter interface {
	SelectBest(ctx context.Context, c Candidates) string
}

type LLMArbiter struct {
	model  llm.LanguageModel
	logger *slog.Logger
}

func NewLLMArbiter(model llm.LanguageModel, logger *slog.Logger) *LLMArbiter {
	return &LLMArbiter{model: model, logger: logging.OrDefault(logger)}
}

// SelectBest returns c.Candidate only when the model answers 1. Anything
// else, including no answer, keeps c.Basic.
func (a *LLMArbiter) SelectBest(ctx context.Context, c Candidates) string {
	answer := a.model.Complete(ctx, buildArbiterPrompt(c), systemPrompt)
	choice, err := ParseChoice(answer)
	if err != nil {
		a.logger.Warn("arbiter answer not a digit, keeping basic translation", "answer", answer)
	}
	if choice == UseCandidate {
		return c.Candidate
	}
	return c.Basic
}

// ParseChoice reads the model's "0" or "1". Unparseable answers return
// KeepBasic with an error; other integers return KeepBasic without one.
func ParseChoice(answer string) (Choice, error) {
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return KeepBasic, fmt.Errorf("invalid arbiter answer %q: %w", answer, err)
	}
	if n == 1 {
		return UseCandidate, nil
	}
	return KeepBasic, nil
}

func buildArbiterPrompt(c Candidates) string {
	var sb strings.Builder
	sb.WriteString("You are a translation expert. Infer the current scene from the context,\n")
	fmt.Fprintf(&sb, "compare the following two translations of the original into the target language (%s), and choose the version that better fits the original and the context:\n", langcodes.DisplayName(c.TargetLang))
	sb.WriteString("[Context]:\n" + c.Context + "\n\n")
	sb.WriteString("[Original]:\n" + c.Original + "\n\n")
	sb.WriteString("[Translation 0]:\n" + c.Basic + "\n\n")
	sb.WriteString("[Translation 1]:\n" + c.Candidate + "\n\n")
	sb.WriteString("If translation 0 is better, return the digit 0; if translation 1 is better, return the digit 1.\n")
	sb.WriteString("Return only a single digit.\n")
	return sb.String()
}
