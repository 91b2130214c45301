package synth

import (
	"errors"
	"strings"
	"time"

	"github.com/zhouzirui/prompt-tavern/backend/internal/analysis/topic"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
	formatter "github.com/zhouzirui/prompt-tavern/backend/internal/service/technique"
)

// ErrEmptyMessage is returned when the user message is blank.
var ErrEmptyMessage = errors.New("message is empty")

// Draft is the canned response selected for a message before formatting.
type Draft struct {
	Text  string
	Topic string
	Score int
}

// Synthesizer produces responses from canned personality data. It is safe
// for concurrent use.
type Synthesizer struct {
	now func() time.Time
}

// New returns a Synthesizer measuring latency with the wall clock.
func New() *Synthesizer {
	return &Synthesizer{now: time.Now}
}

// Synthesize drafts a response for message in the voice of p and wraps it
// with technique t. The latency covers the whole call and is never negative.
func (s *Synthesizer) Synthesize(message string, p persona.Personality, t technique.Technique) (string, time.Duration, error) {
	start := s.now()

	if strings.TrimSpace(message) == "" {
		return "", 0, ErrEmptyMessage
	}

	draft := s.Draft(message, p)
	response, err := formatter.Format(draft.Text, t)
	if err != nil {
		return "", 0, err
	}

	latency := s.now().Sub(start)
	if latency < 0 {
		latency = 0
	}
	return response, latency, nil
}

// Draft selects the personality reply whose topic keywords best match
// message, falling back to the personality's generic acknowledgement.
func (s *Synthesizer) Draft(message string, p persona.Personality) Draft {
	set := responsesFor(p.Kind)

	match := topic.Best(message, set.buckets)
	if match.Matched() {
		if reply, ok := set.replies[match.Topic]; ok {
			return Draft{Text: reply, Topic: match.Topic, Score: match.Score}
		}
	}
	return Draft{Text: set.fallback}
}
