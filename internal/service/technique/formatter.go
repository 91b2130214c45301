package technique

import (
	"fmt"
	"strings"

	model "github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
)

const (
	chainOfThoughtPrefix = "Let me think through this systematically, step by step:\n\n"
	fewShotPrefix        = "Based on similar situations I've encountered:\n\n"
	socraticPrefix       = "Let me help you explore this through guided questions:\n\n"
	analogicalPrefix     = "Let me explain this using analogies to make it clearer:\n\n"
	stepByStepPrefix     = "I'll break this down into clear, actionable steps:\n\n"
)

var reasoningScaffold = []string{
	"First, I'll analyze the core components and requirements",
	"Next, I'll consider different approaches and their implications",
	"Then, I'll evaluate the best path forward",
	"Finally, I'll provide a comprehensive solution with actionable steps",
}

var guidingQuestions = []string{
	"What specific outcome are you hoping to achieve?",
	"What approaches have you already considered or tried?",
	"What constraints or limitations are you working within?",
	"What would success look like to you?",
}

// Format wraps a drafted response in the textual structure of technique t.
// It holds no state; identical inputs always give identical output.
func Format(draft string, t model.Technique) (string, error) {
	switch t {
	case model.None:
		return draft, nil
	case model.ChainOfThought:
		var b strings.Builder
		b.WriteString(chainOfThoughtPrefix)
		b.WriteString("My reasoning process:\n")
		writeNumbered(&b, reasoningScaffold)
		b.WriteString("\n")
		b.WriteString(draft)
		return b.String(), nil
	case model.FewShot:
		return fewShotPrefix + draft, nil
	case model.Socratic:
		var b strings.Builder
		b.WriteString(socraticPrefix)
		writeNumbered(&b, guidingQuestions)
		b.WriteString("\nWith those questions in mind, here is where I would start:\n\n")
		b.WriteString(draft)
		return b.String(), nil
	case model.Analogical:
		return analogicalPrefix + "Think of it like tuning an instrument: adjust one string at a time and listen before moving on.\n\n" + draft, nil
	case model.StepByStep:
		return stepByStepPrefix + numberParagraphs(draft), nil
	default:
		return "", fmt.Errorf("%w: %q", model.ErrInvalidTechnique, string(t))
	}
}

func writeNumbered(b *strings.Builder, lines []string) {
	for i, line := range lines {
		fmt.Fprintf(b, "%d. %s\n", i+1, line)
	}
}

// numberParagraphs re-emits each blank-line separated block of draft as a step.
func numberParagraphs(draft string) string {
	var steps []string
	for _, block := range strings.Split(draft, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		steps = append(steps, block)
	}
	if len(steps) == 0 {
		return draft
	}

	var b strings.Builder
	for i, step := range steps {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**Step %d:** %s", i+1, step)
	}
	return b.String()
}
