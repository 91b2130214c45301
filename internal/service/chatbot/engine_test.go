package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
	chatsvc "github.com/zhouzirui/prompt-tavern/backend/internal/service/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/synth"
)

func newTestEngine(t *testing.T, opts ...chatsvc.Option) *Engine {
	t.Helper()
	registry := persona.NewRegistry(persona.Seed())
	return New(registry, chatsvc.NewStore(opts...), WithLogger(zaptest.NewLogger(t)))
}

func TestEngineEveryPersonalityCanChat(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	for _, p := range engine.ListPersonalities() {
		t.Run(p.ID, func(t *testing.T) {
			session, err := engine.CreateSession(ctx, p.ID)
			require.NoError(t, err)

			reply, err := engine.SendMessage(ctx, session.ID, "hello there", "")
			require.NoError(t, err)
			assert.NotEmpty(t, reply.Response)
			assert.Equal(t, p.ID, reply.PersonalityID)
			assert.Equal(t, technique.None, reply.Technique)
		})
	}
}

func TestEngineCreateSessionUnknownPersonality(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.CreateSession(context.Background(), "learning_tutor")
	assert.ErrorIs(t, err, persona.ErrNotFound)
	assert.EqualValues(t, 1, engine.Metrics().Errors)
	assert.Zero(t, engine.Metrics().TotalSessions)
}

func TestEngineReactScenario(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	session, err := engine.CreateSession(ctx, "technical_expert")
	require.NoError(t, err)

	reply, err := engine.SendMessage(ctx, session.ID, "My React app is slow on mobile devices", "chain_of_thought")
	require.NoError(t, err)

	assert.NotEmpty(t, reply.Response)
	assert.Contains(t, reply.Response, "step by step")
	assert.Contains(t, reply.Response, "1. First")
	assert.GreaterOrEqual(t, reply.Latency, time.Duration(0))
	assert.Equal(t, 2, reply.HistoryLength)
	assert.Equal(t, technique.ChainOfThought, reply.Technique)
}

func TestEngineHistoryOrder(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	session, err := engine.CreateSession(ctx, "creative_partner")
	require.NoError(t, err)

	const turns = 7
	var want []string
	for i := 0; i < turns; i++ {
		text := fmt.Sprintf("chapter %d of my story", i)
		want = append(want, text)
		reply, err := engine.SendMessage(ctx, session.ID, text, "")
		require.NoError(t, err)
		assert.Equal(t, 2*(i+1), reply.HistoryLength)
	}

	history, err := engine.History(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2*turns)

	var got []string
	for i := 0; i < len(history); i += 2 {
		require.Equal(t, chat.RoleUser, history[i].Role)
		require.Equal(t, chat.RoleAssistant, history[i+1].Role)
		got = append(got, history[i].Text)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("user turns out of order (-want +got):\n%s", diff)
	}
}

func TestEngineEmptyMessageLeavesHistoryUnchanged(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	session, err := engine.CreateSession(ctx, "technical_expert")
	require.NoError(t, err)

	for _, text := range []string{"", "   \n\t"} {
		_, err = engine.SendMessage(ctx, session.ID, text, "")
		assert.ErrorIs(t, err, synth.ErrEmptyMessage)
	}

	history, err := engine.History(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, history, 0)
	assert.EqualValues(t, 2, engine.Metrics().Errors)
	assert.Zero(t, engine.Metrics().TotalMessages)
}

func TestEngineSendMessageErrors(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	session, err := engine.CreateSession(ctx, "business_advisor")
	require.NoError(t, err)

	_, err = engine.SendMessage(ctx, session.ID, "hi", "role_playing")
	assert.ErrorIs(t, err, technique.ErrInvalidTechnique)

	_, err = engine.SendMessage(ctx, "missing", "hi", "")
	assert.ErrorIs(t, err, chatsvc.ErrSessionNotFound)

	// technique is validated before the session is looked up
	_, err = engine.SendMessage(ctx, "missing", "hi", "bogus")
	assert.ErrorIs(t, err, technique.ErrInvalidTechnique)

	history, err := engine.History(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestEngineExpiredSession(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	engine := newTestEngine(t, chatsvc.WithTimeout(time.Hour), chatsvc.WithClock(clock))
	ctx := context.Background()

	session, err := engine.CreateSession(ctx, "technical_expert")
	require.NoError(t, err)
	_, err = engine.SendMessage(ctx, session.ID, "debug this api", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, engine.Metrics().ActiveSessions)

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	assert.Zero(t, engine.Metrics().ActiveSessions)
	assert.EqualValues(t, 1, engine.Metrics().TotalSessions)

	_, err = engine.SendMessage(ctx, session.ID, "still there?", "")
	assert.ErrorIs(t, err, chatsvc.ErrSessionExpired)

	history, err := engine.History(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestEngineCapacity(t *testing.T) {
	engine := newTestEngine(t, chatsvc.WithMaxSessions(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := engine.CreateSession(ctx, "creative_partner")
		require.NoError(t, err)
	}
	_, err := engine.CreateSession(ctx, "creative_partner")
	assert.ErrorIs(t, err, chatsvc.ErrCapacityExceeded)
	assert.Len(t, engine.ListSessions(ctx), 3)
}

func TestEngineComparePricingStrategy(t *testing.T) {
	engine := newTestEngine(t)

	results, err := engine.Compare(context.Background(), "pricing strategy", "none")
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := make(map[string]string)
	for id, c := range results {
		assert.Equal(t, id, c.PersonalityID)
		assert.NotEmpty(t, c.Response)
		if other, dup := seen[c.Response]; dup {
			t.Fatalf("%s and %s returned the same response", id, other)
		}
		seen[c.Response] = id
	}

	snap := engine.Metrics()
	assert.EqualValues(t, 1, snap.Comparisons)
	assert.Zero(t, snap.TotalSessions)
	assert.Zero(t, snap.TotalMessages)
	assert.Empty(t, engine.ListSessions(context.Background()))
}

func TestEngineCompareValidation(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Compare(context.Background(), "", "")
	assert.ErrorIs(t, err, synth.ErrEmptyMessage)
	_, err = engine.Compare(context.Background(), "hello", "nope")
	assert.ErrorIs(t, err, technique.ErrInvalidTechnique)
}

func TestEngineMetrics(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	a, err := engine.CreateSession(ctx, "technical_expert")
	require.NoError(t, err)
	b, err := engine.CreateSession(ctx, "business_advisor")
	require.NoError(t, err)

	_, err = engine.SendMessage(ctx, a.ID, "memory leak", "socratic")
	require.NoError(t, err)
	_, err = engine.SendMessage(ctx, a.ID, "frontend", "")
	require.NoError(t, err)
	_, err = engine.SendMessage(ctx, b.ID, "growth", "few_shot")
	require.NoError(t, err)

	snap := engine.Metrics()
	assert.EqualValues(t, 2, snap.TotalSessions)
	assert.EqualValues(t, 2, snap.ActiveSessions)
	assert.EqualValues(t, 6, snap.TotalMessages)
	assert.EqualValues(t, 3, snap.TotalResponses)
	assert.EqualValues(t, 2, snap.PerPersonalityUsage["technical_expert"])
	assert.EqualValues(t, 1, snap.PerPersonalityUsage["business_advisor"])
	assert.EqualValues(t, 0, snap.PerPersonalityUsage["creative_partner"])
	assert.EqualValues(t, 1, snap.PerTechniqueUsage["socratic"])
	assert.EqualValues(t, 1, snap.PerTechniqueUsage["none"])
	assert.GreaterOrEqual(t, snap.AvgResponseTime, time.Duration(0))

	require.NoError(t, engine.DeleteSession(ctx, a.ID))
	assert.EqualValues(t, 1, engine.Metrics().ActiveSessions)
	assert.EqualValues(t, 2, engine.Metrics().TotalSessions)
}

func TestEngineConcurrentSessions(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	const sessions, turns = 8, 20
	ids := make([]string, sessions)
	for i := range ids {
		s, err := engine.CreateSession(ctx, engine.ListPersonalities()[i%3].ID)
		require.NoError(t, err)
		ids[i] = s.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				if _, err := engine.SendMessage(ctx, id, fmt.Sprintf("message %d", i), "step_by_step"); err != nil {
					t.Errorf("send: %v", err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		history, err := engine.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 2*turns)
		for i := 0; i < turns; i++ {
			assert.Equal(t, fmt.Sprintf("message %d", i), history[2*i].Text)
		}
	}
	assert.EqualValues(t, sessions*turns*2, engine.Metrics().TotalMessages)
}

func TestEngineAnalyze(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	session, err := engine.CreateSession(ctx, "creative_partner")
	require.NoError(t, err)
	for _, tech := range []string{"socratic", "socratic", "standard"} {
		_, err = engine.SendMessage(ctx, session.ID, "plot twist ideas", tech)
		require.NoError(t, err)
	}

	a, err := engine.Analyze(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, a.TotalMessages)
	assert.Equal(t, 3, a.UserMessages)
	assert.Equal(t, 3, a.AssistantMessages)
	assert.Equal(t, map[string]int{"socratic": 2, "none": 1}, a.TechniqueFrequency)
	assert.GreaterOrEqual(t, a.AvgProcessingMs, 0.0)

	_, err = engine.Analyze(ctx, "missing")
	assert.ErrorIs(t, err, chatsvc.ErrSessionNotFound)
}

func TestEnginePrompt(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	session, err := engine.CreateSession(ctx, "technical_expert")
	require.NoError(t, err)
	_, err = engine.SendMessage(ctx, session.ID, "api design question", "")
	require.NoError(t, err)

	msgs, err := engine.Prompt(ctx, session.ID, "what next?", "")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "api design question", msgs[1].Content)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "what next?", msgs[3].Content)
}

func TestEngineClearSessions(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := engine.CreateSession(ctx, "business_advisor")
		require.NoError(t, err)
	}
	assert.Equal(t, 4, engine.ClearSessions(ctx))
	assert.Empty(t, engine.ListSessions(ctx))
}

func TestEngineMessagesUseStoreClock(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := newTestEngine(t, chatsvc.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	session, err := engine.CreateSession(ctx, "creative_partner")
	require.NoError(t, err)
	_, err = engine.SendMessage(ctx, session.ID, "help me plot a story", "socratic")
	require.NoError(t, err)

	history, err := engine.History(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, msg := range history {
		assert.Equal(t, now, msg.Timestamp, msg.Role)
	}

	assistant := history[1]
	assert.Equal(t, millis(assistant.Latency), assistant.LatencyMs)

	raw, err := json.Marshal(assistant)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"latency"`)
}
