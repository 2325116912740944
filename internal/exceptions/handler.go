package exceptions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anungis437/nzila-os-sub012/internal/platform/httpx"
)

// Handler exposes exception grants over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes attaches exception routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/exceptions", h.grant)
	r.Post("/exceptions/{id}/revoke", h.revoke)
	r.Post("/exceptions/{id}/usage", h.recordUsage)
	r.Post("/exceptions/check", h.check)
	r.Post("/exceptions/consume", h.consume)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	exc, err := h.service.Grant(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, exc)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ActorID string `json:"actor_id"`
		Reason  string `json:"reason"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil || strings.TrimSpace(body.ActorID) == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "actor_id required")
		return
	}
	if err := h.service.Revoke(r.Context(), chi.URLParam(r, "id"), body.ActorID, body.Reason); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RecordUsage(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Check)
}

func (h *Handler) consume(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Consume)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, req CheckRequest) (bool, error)) {
	var req CheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	granted, err := fn(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"granted": granted})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
