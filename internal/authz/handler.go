package authz

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/anungis437/nzila-os-sub012/internal/assignments"
	"github.com/anungis437/nzila-os-sub012/internal/platform/httpx"
)

// Handler exposes synchronous authorization reads.
type Handler struct {
	resolver *Resolver
}

// NewHandler constructs a Handler.
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// MountRoutes attaches resolver routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orgs/{orgID}/members/{memberID}/has-role/{roleCode}", h.hasRole)
	r.Get("/orgs/{orgID}/members/{memberID}/has-role-level/{minLevel}", h.hasRoleLevel)
	r.Get("/orgs/{orgID}/members/{memberID}/permissions", h.effectivePermissions)
}

func (h *Handler) hasRole(w http.ResponseWriter, r *http.Request) {
	granted, err := h.resolver.HasRole(r.Context(),
		chi.URLParam(r, "memberID"), chi.URLParam(r, "orgID"),
		chi.URLParam(r, "roleCode"), scopeFromQuery(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"granted": granted})
}

func (h *Handler) hasRoleLevel(w http.ResponseWriter, r *http.Request) {
	minLevel, err := strconv.Atoi(chi.URLParam(r, "minLevel"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "minLevel must be an integer")
		return
	}
	granted, err := h.resolver.HasRoleLevel(r.Context(),
		chi.URLParam(r, "memberID"), chi.URLParam(r, "orgID"), minLevel, scopeFromQuery(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"granted": granted})
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.resolver.EffectivePermissions(r.Context(),
		chi.URLParam(r, "memberID"), chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func scopeFromQuery(r *http.Request) *ScopeFilter {
	scopeType := r.URL.Query().Get("scope_type")
	if scopeType == "" {
		return nil
	}
	return &ScopeFilter{
		Type:  assignments.ScopeType(scopeType),
		Value: r.URL.Query().Get("scope_value"),
	}
}
