package assignments

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anungis437/nzila-os-sub012/internal/platform/httpx"
)

// Handler exposes the assignment lifecycle over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes attaches assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/assignments", h.assign)
	r.Post("/assignments/{id}/approve", h.approve)
	r.Patch("/assignments/{id}", h.update)
	r.Post("/assignments/{id}/suspend", h.suspend)
	r.Post("/assignments/{id}/revoke", h.revoke)
	r.Get("/orgs/{orgID}/assignments/expiring", h.expiring)
	r.Get("/orgs/{orgID}/elections", h.elections)
}

type actorRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	a, err := h.service.Assign(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var body actorRequest
	if err := httpx.DecodeJSON(r, &body); err != nil || strings.TrimSpace(body.ActorID) == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "actor_id required")
		return
	}
	a, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"), body.ActorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

type updateRequest struct {
	ActorID string      `json:"actor_id"`
	Patch   UpdatePatch `json:"patch"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if err := httpx.DecodeJSON(r, &body); err != nil || strings.TrimSpace(body.ActorID) == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "actor_id required")
		return
	}
	a, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), body.ActorID, body.Patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	var body actorRequest
	if err := httpx.DecodeJSON(r, &body); err != nil || strings.TrimSpace(body.ActorID) == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "actor_id required")
		return
	}
	a, err := h.service.Suspend(r.Context(), chi.URLParam(r, "id"), body.ActorID, body.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var body actorRequest
	if err := httpx.DecodeJSON(r, &body); err != nil || strings.TrimSpace(body.ActorID) == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "actor_id required")
		return
	}
	a, err := h.service.Revoke(r.Context(), chi.URLParam(r, "id"), body.ActorID, body.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) expiring(w http.ResponseWriter, r *http.Request) {
	days, ok := parseDays(w, r, "days", 30)
	if !ok {
		return
	}
	result, err := h.service.GetExpiring(r.Context(), chi.URLParam(r, "orgID"), days)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) elections(w http.ResponseWriter, r *http.Request) {
	days, ok := parseDays(w, r, "horizon", 60)
	if !ok {
		return
	}
	result, err := h.service.GetUpcomingElections(r.Context(), chi.URLParam(r, "orgID"), days)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseDays(w http.ResponseWriter, r *http.Request, param string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return fallback, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", param+" must be a non-negative integer")
		return 0, false
	}
	return days, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrInactiveRole),
		errors.Is(err, ErrInvalidScope), errors.Is(err, ErrInvalidTerm),
		errors.Is(err, ErrEmptyPatch):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
