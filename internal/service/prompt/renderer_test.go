package prompt

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
)

func seedPersonality(t *testing.T, id string) persona.Personality {
	t.Helper()
	reg := persona.NewRegistry(persona.Seed())
	p, err := reg.Get(id)
	require.NoError(t, err)
	return p
}

func TestRenderSubstitutesPersonality(t *testing.T) {
	p := seedPersonality(t, "technical_expert")

	msgs, err := NewRenderer(0).Render(context.Background(), p, nil, "Why is my {app} slow?", technique.None)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, p.Name)
	assert.Contains(t, msgs[0].Content, "memory")
	assert.NotContains(t, msgs[0].Content, "{name}")

	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "Why is my {app} slow?", msgs[1].Content)
}

func TestRenderKeepsHistoryTail(t *testing.T) {
	p := seedPersonality(t, "creative_partner")

	var history []chat.Message
	for i := 0; i < 6; i++ {
		history = append(history,
			chat.Message{Role: chat.RoleUser, Text: fmt.Sprintf("q%d", i)},
			chat.Message{Role: chat.RoleAssistant, Text: fmt.Sprintf("a%d", i)},
		)
	}

	msgs, err := NewRenderer(4).Render(context.Background(), p, history, "next", technique.None)
	require.NoError(t, err)
	require.Len(t, msgs, 6)

	assert.Equal(t, "q4", msgs[1].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "a5", msgs[4].Content)
	assert.Equal(t, schema.Assistant, msgs[4].Role)
}

func TestRenderFramesQueryByTechnique(t *testing.T) {
	p := seedPersonality(t, "business_advisor")

	msgs, err := NewRenderer(0).Render(context.Background(), p, nil, "pricing strategy", technique.ChainOfThought)
	require.NoError(t, err)

	last := msgs[len(msgs)-1].Content
	assert.Contains(t, last, "business question")
	assert.Contains(t, last, "Question: pricing strategy")
	assert.Contains(t, last, "1. First")
}

func TestRenderRejectsUnknownTechnique(t *testing.T) {
	p := seedPersonality(t, "business_advisor")

	_, err := NewRenderer(0).Render(context.Background(), p, nil, "hi", technique.Technique("role_playing"))
	assert.ErrorIs(t, err, technique.ErrInvalidTechnique)
}
