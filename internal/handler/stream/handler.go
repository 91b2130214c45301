package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/prompt-tavern/backend/internal/handler/apierr"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chatbot"
	"github.com/zhouzirui/prompt-tavern/backend/pkg/utils"
)

// Handler streams synthesized replies as Server-Sent Events.
type Handler struct {
	engine *chatbot.Engine
	logger *zap.Logger
}

// New creates a stream handler.
func New(engine *chatbot.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, logger: logger}
}

// StreamResponse is the payload of every SSE event.
type StreamResponse struct {
	Event     string  `json:"event"`
	Content   string  `json:"content,omitempty"`
	SessionID string  `json:"sessionId,omitempty"`
	Technique string  `json:"technique,omitempty"`
	LatencyMs float64 `json:"latencyMs,omitempty"`
	History   int     `json:"historyLength,omitempty"`
	Finished  bool    `json:"finished,omitempty"`
}

// RegisterRoutes mounts GET /stream/{sessionID} on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	q := r.URL.Query()

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	reply, err := h.engine.SendMessage(r.Context(), sessionID, q.Get("message"), q.Get("technique"))
	if err != nil {
		apierr.Write(w, err)
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := h.streamReply(r.Context(), w, flusher, reply); err != nil {
		h.logger.Warn("stream aborted", zap.String("session", sessionID), zap.Error(err))
		_ = utils.SendSSEEvent(w, flusher, "error", StreamResponse{Event: "error", SessionID: sessionID, Content: err.Error()})
		return
	}
	h.logger.Debug("stream completed", zap.String("session", sessionID), zap.String("personality", reply.PersonalityID))
}

// streamReply replays the reply as delta chunks, then the full message and
// an end marker.
func (h *Handler) streamReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, reply chatbot.Reply) error {
	send := func(ev StreamResponse) error {
		ev.SessionID = reply.SessionID
		return utils.SendSSEEvent(w, flusher, ev.Event, ev)
	}

	if err := send(StreamResponse{Event: "start", Technique: string(reply.Technique)}); err != nil {
		return err
	}

	stream := schema.StreamReaderFromArray(chunkMessages(reply.Response))
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		chunks = append(chunks, chunk)
		if err := send(StreamResponse{Event: "delta", Content: chunk.Content}); err != nil {
			return err
		}
	}

	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		return fmt.Errorf("concat chunks: %w", err)
	}

	if err := send(StreamResponse{
		Event:     "message",
		Content:   full.Content,
		Technique: string(reply.Technique),
		LatencyMs: reply.LatencyMs,
		History:   reply.HistoryLength,
	}); err != nil {
		return err
	}
	return send(StreamResponse{Event: "end", Finished: true})
}

// chunkMessages splits text into line sized assistant chunks whose
// concatenation is text.
func chunkMessages(text string) []*schema.Message {
	parts := strings.SplitAfter(text, "\n")
	out := make([]*schema.Message, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, schema.AssistantMessage(p, nil))
	}
	return out
}
