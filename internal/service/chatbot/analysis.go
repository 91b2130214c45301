package chatbot

import (
	"context"
	"time"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
)

// Analysis summarises one session's conversation.
type Analysis struct {
	SessionID          string         `json:"sessionId"`
	PersonalityID      string         `json:"personalityId"`
	State              chat.State     `json:"state"`
	CreatedAt          time.Time      `json:"createdAt"`
	TotalMessages      int            `json:"totalMessages"`
	UserMessages       int            `json:"userMessages"`
	AssistantMessages  int            `json:"assistantMessages"`
	TotalProcessingMs  float64        `json:"totalProcessingMs"`
	AvgProcessingMs    float64        `json:"avgProcessingMs"`
	TechniqueFrequency map[string]int `json:"techniqueFrequency"`
	GeneratedAt        time.Time      `json:"generatedAt"`
}

// Analyze reports message counts, technique usage and processing time for
// a session.
func (e *Engine) Analyze(ctx context.Context, sessionID string) (Analysis, error) {
	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return Analysis{}, err
	}
	return analyze(session), nil
}

func analyze(session chat.Session) Analysis {
	a := Analysis{
		SessionID:          session.ID,
		PersonalityID:      session.PersonalityID,
		State:              session.State,
		CreatedAt:          session.CreatedAt,
		TotalMessages:      len(session.History),
		TechniqueFrequency: make(map[string]int),
		GeneratedAt:        time.Now().UTC(),
	}

	var total time.Duration
	for _, msg := range session.History {
		switch msg.Role {
		case chat.RoleUser:
			a.UserMessages++
			used := technique.None
			if msg.Technique != nil {
				used = *msg.Technique
			}
			a.TechniqueFrequency[string(used)]++
		case chat.RoleAssistant:
			a.AssistantMessages++
			total += msg.Latency
		}
	}

	a.TotalProcessingMs = millis(total)
	if a.AssistantMessages > 0 {
		a.AvgProcessingMs = a.TotalProcessingMs / float64(a.AssistantMessages)
	}
	return a
}
