package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/technique"
	"github.com/zhouzirui/prompt-tavern/backend/pkg/utils"
)

// Handler serves the personality and technique catalogs.
type Handler struct {
	personas persona.Store
}

// New creates a catalog handler.
func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

// RegisterRoutes mounts the catalog routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personalities", h.handleListPersonalities)
	r.Get("/techniques", h.handleListTechniques)
}

type personalityView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Specialties []string `json:"specialties"`
}

func (h *Handler) handleListPersonalities(w http.ResponseWriter, r *http.Request) {
	items := h.personas.List()
	out := make([]personalityView, 0, len(items))
	for _, p := range items {
		out = append(out, personalityView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Specialties: p.Specialties,
		})
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListTechniques(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, technique.All())
}
