package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
	chatsvc "github.com/zhouzirui/prompt-tavern/backend/internal/service/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/metrics"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/prompt"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/synth"
)

// Reply is the result of one send_message call.
type Reply struct {
	SessionID     string              `json:"sessionId"`
	PersonalityID string              `json:"personalityId"`
	Response      string              `json:"response"`
	Technique     technique.Technique `json:"technique"`
	Latency       time.Duration       `json:"-"`
	LatencyMs     float64             `json:"latencyMs"`
	HistoryLength int                 `json:"historyLength"`
	Timestamp     time.Time           `json:"timestamp"`
}

// Comparison is one personality's answer in a compare call.
type Comparison struct {
	PersonalityID string        `json:"personalityId"`
	Name          string        `json:"name"`
	Response      string        `json:"response"`
	Latency       time.Duration `json:"-"`
	LatencyMs     float64       `json:"latencyMs"`
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRenderer replaces the prompt renderer.
func WithRenderer(r *prompt.Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.prompts = r
		}
	}
}

// WithSynthesizer replaces the response synthesizer.
func WithSynthesizer(s *synth.Synthesizer) Option {
	return func(e *Engine) {
		if s != nil {
			e.synth = s
		}
	}
}

// Engine ties the personality catalog, synthesizer, session store and
// metrics together behind the operations exposed to transports.
type Engine struct {
	personas persona.Store
	sessions *chatsvc.Store
	synth    *synth.Synthesizer
	metrics  *metrics.Aggregator
	prompts  *prompt.Renderer
	logger   *zap.Logger
}

// New builds an Engine over personas and sessions.
func New(personas persona.Store, sessions *chatsvc.Store, opts ...Option) *Engine {
	e := &Engine{
		personas: personas,
		sessions: sessions,
		synth:    synth.New(),
		prompts:  prompt.NewRenderer(prompt.DefaultHistoryLimit),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	ids := make([]string, 0)
	for _, p := range personas.List() {
		ids = append(ids, p.ID)
	}
	techniques := make([]string, 0)
	for _, info := range technique.All() {
		techniques = append(techniques, string(info.ID))
	}
	e.metrics = metrics.New(
		metrics.WithActiveSource(sessions.Active),
		metrics.WithPersonalities(ids...),
		metrics.WithTechniques(techniques...),
	)
	return e
}

// Sessions exposes the underlying store, mainly for its janitor loop.
func (e *Engine) Sessions() *chatsvc.Store { return e.sessions }

// ListPersonalities returns the catalog in stable order.
func (e *Engine) ListPersonalities() []persona.Personality {
	return e.personas.List()
}

// Techniques returns the technique catalog.
func (e *Engine) Techniques() []technique.Info {
	return technique.All()
}

// CreateSession opens a session bound to personalityID.
func (e *Engine) CreateSession(ctx context.Context, personalityID string) (chat.Session, error) {
	if _, err := e.personas.Get(personalityID); err != nil {
		e.fail("create session", err, zap.String("personality", personalityID))
		return chat.Session{}, err
	}

	session, err := e.sessions.Create(ctx, personalityID)
	if err != nil {
		e.fail("create session", err, zap.String("personality", personalityID))
		return chat.Session{}, err
	}

	e.metrics.Record(metrics.Event{
		PersonalityID: personalityID,
		SessionID:     session.ID,
		IsNewSession:  true,
	})
	e.logger.Info("session created",
		zap.String("session", session.ID),
		zap.String("personality", personalityID),
	)
	return session, nil
}

// SendMessage synthesizes a reply to text in the session's personality and
// appends the exchange. A failed call leaves history untouched.
func (e *Engine) SendMessage(ctx context.Context, sessionID, text, rawTechnique string) (Reply, error) {
	reply, err := e.sendMessage(ctx, sessionID, text, rawTechnique)
	if err != nil {
		e.fail("send message", err, zap.String("session", sessionID))
		return Reply{}, err
	}
	return reply, nil
}

func (e *Engine) sendMessage(ctx context.Context, sessionID, text, rawTechnique string) (Reply, error) {
	t, err := technique.Parse(rawTechnique)
	if err != nil {
		return Reply{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Reply{}, synth.ErrEmptyMessage
	}

	session, err := e.sessions.Meta(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if session.State == chat.StateExpired {
		return Reply{}, fmt.Errorf("%w: %s", chatsvc.ErrSessionExpired, sessionID)
	}

	p, err := e.personas.Get(session.PersonalityID)
	if err != nil {
		return Reply{}, err
	}

	response, latency, err := e.synth.Synthesize(text, p, t)
	if err != nil {
		return Reply{}, err
	}

	used := t
	n, err := e.sessions.Append(ctx, sessionID,
		chat.Message{Role: chat.RoleUser, Text: text, Technique: &used},
		chat.Message{Role: chat.RoleAssistant, Text: response, Technique: &used, Latency: latency, LatencyMs: millis(latency)},
	)
	if err != nil {
		return Reply{}, err
	}

	e.metrics.Record(metrics.Event{
		PersonalityID: p.ID,
		SessionID:     sessionID,
		Technique:     string(t),
		Latency:       latency,
	})
	e.logger.Debug("message handled",
		zap.String("session", sessionID),
		zap.String("personality", p.ID),
		zap.String("technique", string(t)),
		zap.Duration("latency", latency),
		zap.Int("history", n),
	)

	return Reply{
		SessionID:     sessionID,
		PersonalityID: p.ID,
		Response:      response,
		Technique:     t,
		Latency:       latency,
		LatencyMs:     millis(latency),
		HistoryLength: n,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// History returns the messages of a session in insertion order.
func (e *Engine) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return e.sessions.History(ctx, sessionID)
}

// Session returns a snapshot of one session.
func (e *Engine) Session(ctx context.Context, sessionID string) (chat.Session, error) {
	return e.sessions.Get(ctx, sessionID)
}

// ListSessions returns summaries of all held sessions.
func (e *Engine) ListSessions(ctx context.Context) []chat.Summary {
	return e.sessions.List(ctx)
}

// DeleteSession evicts one session.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	e.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// ClearSessions evicts every session and reports how many were removed.
func (e *Engine) ClearSessions(ctx context.Context) int {
	n := e.sessions.Clear(ctx)
	e.logger.Info("sessions cleared", zap.Int("count", n))
	return n
}

// Metrics returns the current usage snapshot.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.metrics.Snapshot()
}

// Compare synthesizes one response per personality without touching any
// session. Results are keyed by personality id.
func (e *Engine) Compare(ctx context.Context, text, rawTechnique string) (map[string]Comparison, error) {
	t, err := technique.Parse(rawTechnique)
	if err != nil {
		e.fail("compare", err)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		e.fail("compare", synth.ErrEmptyMessage)
		return nil, synth.ErrEmptyMessage
	}

	catalog := e.personas.List()
	results := make([]Comparison, len(catalog))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range catalog {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			response, latency, err := e.synth.Synthesize(text, p, t)
			if err != nil {
				return fmt.Errorf("compare %s: %w", p.ID, err)
			}
			results[i] = Comparison{
				PersonalityID: p.ID,
				Name:          p.Name,
				Response:      response,
				Latency:       latency,
				LatencyMs:     millis(latency),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.fail("compare", err)
		return nil, err
	}

	out := make(map[string]Comparison, len(results))
	for _, c := range results {
		out[c.PersonalityID] = c
	}
	e.metrics.RecordComparison()
	return out, nil
}

// Prompt renders the chat messages a model would receive for the session's
// next turn.
func (e *Engine) Prompt(ctx context.Context, sessionID, query, rawTechnique string) ([]*schema.Message, error) {
	t, err := technique.Parse(rawTechnique)
	if err != nil {
		return nil, err
	}

	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p, err := e.personas.Get(session.PersonalityID)
	if err != nil {
		return nil, err
	}
	return e.prompts.Render(ctx, p, session.History, query, t)
}

func (e *Engine) fail(op string, err error, fields ...zap.Field) {
	e.metrics.RecordError()
	fields = append(fields, zap.Error(err))
	e.logger.Warn(op+" failed", fields...)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
