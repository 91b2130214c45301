package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chatbot"
	"github.com/zhouzirui/prompt-tavern/backend/pkg/utils"
)

// Handler serves the aggregate usage snapshot.
type Handler struct {
	engine *chatbot.Engine
}

// New creates a metrics handler.
func New(engine *chatbot.Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts GET /metrics on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/metrics", h.handleMetrics)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.engine.Metrics())
}
