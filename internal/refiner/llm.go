package refiner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	langcodes "github.com/valpere/peresub/internal/language"
	"github.com/valpere/peresub/internal/llm"
)

const systemPrompt = "You are a transcription optimization expert."

// LLMRefiner asks the language model for a faithful translation of the
// original, with the basic translation and context offered as reference.
type LLMRefiner struct {
	model llm.LanguageModel
}

func NewLLMRefiner(model llm.LanguageModel) *LLMRefiner {
	return &LLMRefiner{model: model}
}

func (r *LLMRefiner) Refine(ctx context.Context, req Request) string {
	refined := strings.TrimSpace(r.model.Complete(ctx, buildRefinementPrompt(req), systemPrompt))
	if refined == "" {
		return req.Basic
	}
	return refined
}

func buildRefinementPrompt(req Request) string {
	target := fmt.Sprintf("%q", langcodes.DisplayName(req.TargetLang)+" language")

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert translator. Your task is to provide an accurate and natural %s translation of the given original text. ", target)
	sb.WriteString("Use the provided context to help understand the meaning of the original text, especially if there are ambiguities. ")
	sb.WriteString("Do not add any information that is not present in the original text. Ensure that the translation is faithful to the original meaning. ")
	sb.WriteString("Maintain consistency in proper nouns and technical terms. The basic translation is provided for reference but should not limit your translation.\n\n")

	sb.WriteString("Here are some examples to guide you:\n")
	for i, ex := range examples {
		fmt.Fprintf(&sb, "Example %d:\n", i+1)
		fmt.Fprintf(&sb, "Original: %s\n", ex.original)
		fmt.Fprintf(&sb, "Context: Previous context: %s Next context: %s\n", ex.previous, ex.next)
		fmt.Fprintf(&sb, "Accurate Translation: %s\n", ex.translation)
		fmt.Fprintf(&sb, "(Reason: %s)\n\n", ex.reason)
	}

	if len(req.Glossary) > 0 {
		terms := make([]string, 0, len(req.Glossary))
		for src := range req.Glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)

		sb.WriteString("TERMINOLOGY (use these exact translations):\n")
		for _, src := range terms {
			fmt.Fprintf(&sb, "  %s → %s\n", src, req.Glossary[src])
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Now, provide an accurate %s translation for the following original text:\n", target)
	sb.WriteString("【Original】: " + req.Original + "\n")
	sb.WriteString("【Context】: " + req.Context + "\n")
	sb.WriteString("【Basic Translation (for reference)】: " + req.Basic + "\n")
	fmt.Fprintf(&sb, "Output only the accurate %s translation of the Original. Do not include any additional explanations or content.", target)
	return sb.String()
}

var examples = []struct {
	original, previous, next, translation, reason string
}{
	{
		"The bank is closed today.",
		"We walked by the river yesterday.", "So we’ll have to withdraw money tomorrow.",
		"银行今天关门了。",
		"'bank' refers to a financial institution, not a river bank, as clarified by the context.",
	},
	{
		"She left the room in a hurry.",
		"The meeting is about to start.", "Because she forgot her files.",
		"她匆忙离开了房间。",
		"The context confirms that she left quickly due to the meeting and forgotten files.",
	},
	{
		"I need to charge my phone.",
		"The battery is almost dead.", "Otherwise, I can’t contact you.",
		"我得给手机充个电。",
		"The context emphasizes the urgency, so a natural, colloquial translation is appropriate.",
	},
	{
		"He’s working on a project.",
		"He’s been busy lately.", "This project is very important.",
		"他正在做一个项目。",
		"The context confirms the basic translation is accurate.",
	},
	{
		"We watched Avatar last night.",
		"My friend recommended a movie.", "The effects were amazing.",
		"我们昨晚看了《阿凡达》。",
		"'Avatar' is a proper noun for a movie, so it should be translated accordingly.",
	},
}
