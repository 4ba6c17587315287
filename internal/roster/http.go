package roster

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/gokatarajesh/photo-hunt/pkg/http/errors"
)

// Handler serves the roster.
type Handler struct {
	roster Roster
}

func NewHandler(r Roster) *Handler {
	return &Handler{roster: r}
}

// Mount registers /api/credentials and its static alias /credentials.json.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/api/credentials", h.Get)
	r.Get("/credentials.json", h.Get)
}

func (h *Handler) Get(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	httperrors.RespondJSON(w, http.StatusOK, h.roster)
}
