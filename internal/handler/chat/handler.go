package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/prompt-tavern/backend/internal/handler/apierr"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chatbot"
	"github.com/zhouzirui/prompt-tavern/backend/pkg/utils"
)

// Handler exposes session and messaging operations over HTTP.
type Handler struct {
	engine *chatbot.Engine
}

// New creates a chat handler.
func New(engine *chatbot.Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts the session routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Get("/", h.handleListSessions)
		r.Delete("/", h.handleClearSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleDeleteSession)
			r.Get("/history", h.handleHistory)
			r.Get("/analysis", h.handleAnalysis)
			r.Get("/prompt", h.handlePrompt)
			r.Post("/messages", h.handleSendMessage)
		})
	})
	r.Post("/compare", h.handleCompare)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonalityID string `json:"personalityId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		apierr.BadRequest(w, "invalid request body")
		return
	}
	if payload.PersonalityID == "" {
		apierr.BadRequest(w, "personalityId is required")
		return
	}

	session, err := h.engine.CreateSession(r.Context(), payload.PersonalityID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"sessionId":     session.ID,
		"personalityId": session.PersonalityID,
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.engine.ListSessions(r.Context()))
}

func (h *Handler) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	n := h.engine.ClearSessions(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"id":            session.ID,
		"personalityId": session.PersonalityID,
		"messageCount":  len(session.History),
		"createdAt":     session.CreatedAt,
		"lastActive":    session.LastActive,
		"state":         session.State,
	})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		apierr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.engine.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, history)
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.engine.Analyze(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, analysis)
}

func (h *Handler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := h.engine.Prompt(r.Context(), chi.URLParam(r, "sessionID"), q.Get("message"), q.Get("technique"))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, msgs)
}

type messageRequest struct {
	Message   string `json:"message"`
	Technique string `json:"technique"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload messageRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		apierr.BadRequest(w, "invalid request body")
		return
	}

	reply, err := h.engine.SendMessage(r.Context(), chi.URLParam(r, "sessionID"), payload.Message, payload.Technique)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	var payload messageRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		apierr.BadRequest(w, "invalid request body")
		return
	}

	results, err := h.engine.Compare(r.Context(), payload.Message, payload.Technique)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, results)
}
