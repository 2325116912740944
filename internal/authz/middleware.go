package authz

import (
	"log/slog"
	"net/http"

	"github.com/anungis437/nzila-os-sub012/internal/ledger"
)

// Identity headers set by the upstream identity collaborator. Member and org
// identifiers are opaque here.
const (
	HeaderMemberID = "X-Member-ID"
	HeaderOrgID    = "X-Org-ID"
)

// Middleware wires authorization checks into HTTP handlers.
type Middleware struct {
	Resolver *Resolver
	Recorder ledger.Recorder
	Metrics  DecisionMetrics
	Logger   *slog.Logger
}

// RequirePermission ensures the caller's effective permissions include perm.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			memberID := r.Header.Get(HeaderMemberID)
			orgID := r.Header.Get(HeaderOrgID)
			if memberID == "" || orgID == "" {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			perms, err := m.Resolver.EffectivePermissions(r.Context(), memberID, orgID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require permission", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			granted := false
			for _, p := range perms {
				if p == perm {
					granted = true
					break
				}
			}
			m.recordGate(r, memberID, orgID, perm, granted)
			if granted {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) recordGate(r *http.Request, memberID, orgID, perm string, granted bool) {
	if m.Metrics != nil {
		m.Metrics.AuthzDecision(granted)
	}
	if m.Recorder == nil {
		return
	}
	entry := ledger.Entry{
		ActorID:            memberID,
		Action:             "authz.gate",
		ResourceType:       "http_route",
		ResourceID:         r.URL.Path,
		OrgID:              orgID,
		Granted:            granted,
		RequiredPermission: perm,
		GrantMethod:        ledger.GrantMethodRole,
	}
	if !granted {
		entry.GrantMethod = ledger.GrantMethodNone
		entry.DenialReason = "permission not held"
	}
	m.Recorder.Record(r.Context(), entry)
}

// RequireRoleLevel ensures the caller holds a role at or above minLevel.
func (m Middleware) RequireRoleLevel(minLevel int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			memberID := r.Header.Get(HeaderMemberID)
			orgID := r.Header.Get(HeaderOrgID)
			if memberID == "" || orgID == "" {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			ok, err := m.Resolver.HasRoleLevel(r.Context(), memberID, orgID, minLevel, nil)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require role level", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
