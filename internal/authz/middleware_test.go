package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anungis437/nzila-os-sub012/internal/assignments"
	"github.com/anungis437/nzila-os-sub012/internal/ledger"
)

type capturingRecorder struct {
	entries []ledger.Entry
}

func (r *capturingRecorder) Record(ctx context.Context, entry ledger.Entry) {
	r.entries = append(r.entries, entry)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequirePermission(t *testing.T) {
	resolver, store := newResolverFixture()
	store.assignments = []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "chair"),
	}
	rec := &capturingRecorder{}
	counter := &countingDecisions{}
	mw := Middleware{Resolver: resolver, Recorder: rec, Metrics: counter}
	handler := mw.RequirePermission("governance:roles:manage")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil)
	req.Header.Set(HeaderMemberID, "member-1")
	req.Header.Set(HeaderOrgID, "org-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	gate := rec.entries[len(rec.entries)-1]
	require.Equal(t, "authz.gate", gate.Action)
	require.True(t, gate.Granted)
	require.Equal(t, "/api/v1/roles", gate.ResourceID)
	require.Equal(t, 1, counter.granted)
}

func TestRequirePermissionDenied(t *testing.T) {
	resolver, store := newResolverFixture()
	store.assignments = []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "secretary"),
	}
	rec := &capturingRecorder{}
	counter := &countingDecisions{}
	mw := Middleware{Resolver: resolver, Recorder: rec, Metrics: counter}
	handler := mw.RequirePermission("governance:roles:manage")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil)
	req.Header.Set(HeaderMemberID, "member-1")
	req.Header.Set(HeaderOrgID, "org-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	gate := rec.entries[len(rec.entries)-1]
	require.False(t, gate.Granted)
	require.Equal(t, ledger.GrantMethodNone, gate.GrantMethod)
	require.Equal(t, "permission not held", gate.DenialReason)
	require.Equal(t, 1, counter.denied)
}

func TestRequirePermissionMissingIdentity(t *testing.T) {
	resolver, _ := newResolverFixture()
	mw := Middleware{Resolver: resolver}
	handler := mw.RequirePermission("governance:roles:manage")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleLevel(t *testing.T) {
	resolver, store := newResolverFixture()
	store.assignments = []assignments.MemberRoleAssignment{
		activeAssignment("member-1", "org-1", "treasurer"),
	}
	mw := Middleware{Resolver: resolver}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set(HeaderMemberID, "member-1")
	req.Header.Set(HeaderOrgID, "org-1")

	w := httptest.NewRecorder()
	mw.RequireRoleLevel(70)(okHandler()).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mw.RequireRoleLevel(90)(okHandler()).ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
