package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestHandlerVerify(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := svc.Append(context.Background(), Entry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			OrgID:     "org-1",
			Action:    "authz.gate",
		})
		require.NoError(t, err)
	}

	router := chi.NewRouter()
	NewHandler(svc).MountRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/org-1/audit/verify", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result VerifyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.True(t, result.Valid)
	require.Equal(t, 3, result.TotalRecords)
}

func TestHandlerVerifyBadRange(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(NewService(newMemoryLedgerRepo())).MountRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/org-1/audit/verify?from=yesterday", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
