package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
)

// DefaultHistoryLimit caps how many past messages are replayed into a prompt.
const DefaultHistoryLimit = 10

// Renderer turns a personality, a transcript and the next user query into the
// chat messages a model would receive.
type Renderer struct {
	historyLimit int
}

// NewRenderer builds a renderer. A non-positive limit uses DefaultHistoryLimit.
func NewRenderer(historyLimit int) *Renderer {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Renderer{historyLimit: historyLimit}
}

// Render formats the personality's system prompt, the tail of history and
// query framed by technique t.
func (r *Renderer) Render(ctx context.Context, p persona.Personality, history []chat.Message, query string, t technique.Technique) ([]*schema.Message, error) {
	frame, err := queryFrame(t)
	if err != nil {
		return nil, err
	}

	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(p.PromptTemplate),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage(frame),
	)

	msgs, err := tpl.Format(ctx, map[string]any{
		"name":        p.Name,
		"specialties": strings.Join(p.Specialties, ", "),
		"domain":      domainOf(p.Kind),
		"history":     r.historyMessages(history),
		"query":       query,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt for %s: %w", p.ID, err)
	}
	return msgs, nil
}

func (r *Renderer) historyMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	start := 0
	if len(messages) > r.historyLimit {
		start = len(messages) - r.historyLimit
	}

	out := make([]*schema.Message, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		switch msg.Role {
		case chat.RoleUser:
			out = append(out, schema.UserMessage(msg.Text))
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return out
}

func domainOf(kind persona.Kind) string {
	switch kind {
	case persona.TechnicalExpert:
		return "technical problem"
	case persona.CreativePartner:
		return "creative challenge"
	case persona.BusinessAdvisor:
		return "business question"
	default:
		return "question"
	}
}

// queryFrame returns the user message template for t. Templates may only
// reference {query} and {domain}.
func queryFrame(t technique.Technique) (string, error) {
	switch t {
	case technique.None:
		return "{query}", nil
	case technique.ChainOfThought:
		return `Let me approach this {domain} systematically and think through it step by step.

Question: {query}

My reasoning process:
1. First, I'll analyze the core components and requirements
2. Next, I'll consider different approaches and their implications
3. Then, I'll evaluate the best path forward
4. Finally, I'll provide a comprehensive solution with actionable steps`, nil
	case technique.FewShot:
		return "Based on similar situations I've encountered:\n\nYour question: {query}\n\nMy response:", nil
	case technique.Socratic:
		return `Let me help you explore this question through guided inquiry: {query}

1. What specific outcome are you hoping to achieve?
2. What approaches have you already considered or tried?
3. What constraints or limitations are you working within?
4. What would success look like to you?`, nil
	case technique.Analogical:
		return "Let me explain this concept using analogies to make it clearer: {query}\n\nNow, applying the analogy back to your situation:", nil
	case technique.StepByStep:
		return `I'll break down your question into manageable steps: {query}

**Step 1: Analysis**
**Step 2: Planning**
**Step 3: Implementation**
**Step 4: Validation**`, nil
	default:
		return "", fmt.Errorf("%w: %q", technique.ErrInvalidTechnique, string(t))
	}
}
