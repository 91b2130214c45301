package chat

import "time"

// State is the lifecycle state visible to readers of a session.
type State string

const (
	StateActive  State = "active"
	StateExpired State = "expired"
)

// Session is a read snapshot of a conversation bound to one personality.
type Session struct {
	ID            string    `json:"id"`
	PersonalityID string    `json:"personalityId"`
	History       []Message `json:"history,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	LastActive    time.Time `json:"lastActive"`
	State         State     `json:"state"`
}

// Summary is the lightweight listing form of a session.
type Summary struct {
	ID            string    `json:"id"`
	PersonalityID string    `json:"personalityId"`
	MessageCount  int       `json:"messageCount"`
	CreatedAt     time.Time `json:"createdAt"`
	LastActive    time.Time `json:"lastActive"`
	State         State     `json:"state"`
}
