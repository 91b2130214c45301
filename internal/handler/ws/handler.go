package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/prompt-tavern/backend/internal/handler/apierr"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chatbot"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler carries chat over a WebSocket bound to one session.
type Handler struct {
	engine   *chatbot.Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a WebSocket chat handler.
func New(engine *chatbot.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts GET /ws/{sessionID} on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage is the payload of a "message" frame.
type TextMessage struct {
	Text      string `json:"text"`
	Technique string `json:"technique,omitempty"`
}

// ConfigMessage is the payload of a "config" frame.
type ConfigMessage struct {
	Technique string `json:"technique"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection serialises writes; gorilla allows one concurrent writer.
type connection struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
	technique technique.Technique
}

func (c *connection) write(msg outgoingMessage) error {
	msg.Timestamp = time.Now().Unix()
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.engine.Session(r.Context(), sessionID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	c := &connection{conn: raw, sessionID: sessionID, technique: technique.None}
	h.logger.Debug("websocket connected", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, c)

	_ = c.write(outgoingMessage{
		Type:      "connected",
		SessionID: sessionID,
		Data: map[string]any{
			"personalityId": session.PersonalityID,
			"technique":     c.technique,
		},
	})

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(c, apierr.CodeBadRequest, "session mismatch")
			continue
		}
		h.handleMessage(ctx, c, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "message":
		var payload TextMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.sendError(c, apierr.CodeBadRequest, "invalid message payload")
			return
		}
		raw := payload.Technique
		if raw == "" {
			raw = string(c.technique)
		}
		reply, err := h.engine.SendMessage(ctx, c.sessionID, payload.Text, raw)
		if err != nil {
			_, code := apierr.Classify(err)
			h.sendError(c, code, err.Error())
			return
		}
		_ = c.write(outgoingMessage{Type: "reply", SessionID: c.sessionID, Data: reply})

	case "config":
		var cfg ConfigMessage
		if err := json.Unmarshal(msg.Data, &cfg); err != nil {
			h.sendError(c, apierr.CodeBadRequest, "invalid config payload")
			return
		}
		t, err := technique.Parse(cfg.Technique)
		if err != nil {
			h.sendError(c, apierr.CodeInvalidTechnique, err.Error())
			return
		}
		c.technique = t
		_ = c.write(outgoingMessage{Type: "config", SessionID: c.sessionID, Data: map[string]any{"technique": t}})

	case "history":
		history, err := h.engine.History(ctx, c.sessionID)
		if err != nil {
			_, code := apierr.Classify(err)
			h.sendError(c, code, err.Error())
			return
		}
		_ = c.write(outgoingMessage{Type: "history", SessionID: c.sessionID, Data: history})

	default:
		h.sendError(c, apierr.CodeBadRequest, "unknown message type: "+msg.Type)
	}
}

func (h *Handler) sendError(c *connection, code, message string) {
	err := c.write(outgoingMessage{
		Type:      "error",
		SessionID: c.sessionID,
		Data:      map[string]string{"code": code, "message": message},
	})
	if err != nil {
		h.logger.Debug("websocket write error failed", zap.Error(err))
	}
}

func (h *Handler) pingLoop(ctx context.Context, c *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
