package chat

import (
	"time"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable turn in a session history.
type Message struct {
	Role      Role                 `json:"role"`
	Text      string               `json:"text"`
	Technique *technique.Technique `json:"technique,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	// Latency is the synthesis time for assistant turns.
	Latency   time.Duration `json:"-"`
	LatencyMs float64       `json:"latencyMs,omitempty"`
}
