package arbiter

import (
	"context"
	"strings"
	"testing"

	"github.com/valpere/peresub/internal/llm"
	"github.com/valpere/peresub/internal/logging"
)

func TestParseChoice(t *testing.T) {
	tests := []struct {
		answer  string
		want    Choice
		wantErr bool
	}{
		{"0", KeepBasic, false},
		{"1", UseCandidate, false},
		{" 1\n", UseCandidate, false},
		{"2", KeepBasic, false},
		{"maybe", KeepBasic, true},
		{"", KeepBasic, true},
		{"1.", KeepBasic, true},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, err := ParseChoice(tt.answer)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseChoice(%q) error = %v, wantErr %v", tt.answer, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChoice(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestLLMArbiter_SelectBest(t *testing.T) {
	candidates := Candidates{
		Context:    "Previous context: 你好",
		Original:   "Good night",
		Basic:      "晚安",
		Candidate:  "祝你晚安",
		TargetLang: "zh",
	}

	tests := []struct {
		answer string
		want   string
	}{
		{"1", "祝你晚安"},
		{"0", "晚安"},
		// Only an explicit 1 picks the candidate; other integers keep the basic text.
		{"2", "晚安"},
		{"-1", "晚安"},
		{"maybe", "晚安"},
		{"", "晚安"},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			var gotSystem string
			model := llm.Func(func(ctx context.Context, prompt, systemPrompt string) string {
				gotSystem = systemPrompt
				return tt.answer
			})

			got := NewLLMArbiter(model, logging.Discard()).SelectBest(context.Background(), candidates)
			if got != tt.want {
				t.Errorf("SelectBest with answer %q = %q, want %q", tt.answer, got, tt.want)
			}
			if gotSystem != systemPrompt {
				t.Errorf("unexpected system prompt %q", gotSystem)
			}
		})
	}
}

func TestBuildArbiterPrompt(t *testing.T) {
	prompt := buildArbiterPrompt(Candidates{
		Context:    "ctx",
		Original:   "orig",
		Basic:      "basic",
		Candidate:  "cand",
		TargetLang: "fr",
	})

	for _, want := range []string{"(French)", "[Translation 0]:\nbasic", "[Translation 1]:\ncand", "[Original]:\norig", "[Context]:\nctx"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
