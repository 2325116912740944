package ledger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anungis437/nzila-os-sub012/internal/platform/httpx"
)

// Handler exposes chain verification for operator review.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes attaches ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orgs/{orgID}/audit/verify", h.verify)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	rng := VerifyRange{}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "from must be RFC3339")
			return
		}
		rng.From = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "to must be RFC3339")
			return
		}
		rng.To = t
	}
	result, err := h.service.Verify(r.Context(), chi.URLParam(r, "orgID"), rng)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
