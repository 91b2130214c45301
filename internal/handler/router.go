package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/prompt-tavern/backend/internal/handler/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/handler/metrics"
	"github.com/zhouzirui/prompt-tavern/backend/internal/handler/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/handler/stream"
	"github.com/zhouzirui/prompt-tavern/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/prompt-tavern/backend/internal/middleware"
	personaModel "github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chatbot"
	"github.com/zhouzirui/prompt-tavern/backend/pkg/utils"
)

// Version is reported by the info endpoint.
var Version = "dev"

// RouterConfig carries the transport settings of NewRouter.
type RouterConfig struct {
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to the chat engine.
func NewRouter(personas personaModel.Store, engine *chatbot.Engine, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	started := time.Now()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(origins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"service": "prompt-tavern",
			"version": Version,
			"endpoints": []string{
				"/api/personalities", "/api/techniques", "/api/sessions",
				"/api/compare", "/api/metrics", "/api/stream/{id}", "/api/ws/{id}", "/health",
			},
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":         "healthy",
			"activeSessions": engine.Sessions().Active(),
			"maxSessions":    engine.Sessions().MaxSessions(),
			"uptimeSeconds":  time.Since(started).Seconds(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(personas).RegisterRoutes(api)
		chat.New(engine).RegisterRoutes(api)
		metrics.New(engine).RegisterRoutes(api)
		stream.New(engine, logger.Named("stream")).RegisterRoutes(api)
		ws.New(engine, logger.Named("ws")).RegisterRoutes(api)
	})

	return r
}
