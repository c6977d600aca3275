package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/workdesk/internal/rbac"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

type grants []string

func (g grants) EffectivePermissions(context.Context, shared.Tenant, int64) ([]string, error) {
	return g, nil
}

func newTestRouter(t *testing.T, perms grants) (http.Handler, *memoryStore) {
	t.Helper()
	store := seededStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(store), rbac.Middleware{Service: perms, Logger: logger})
	h.now = func() time.Time { return time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit", h.MountRoutes)
	return r, store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{Tenant: tenantOf(t, 1), UserID: 7}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerTimeline(t *testing.T) {
	router, store := newTestRouter(t, grants{shared.PermAuditView})

	rec := get(t, router, "/audit?per_page=2&entity_id=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Entries, 2)
	assert.True(t, res.Paging.HasNext)
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), store.lastFilter.From)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), store.lastFilter.To)
	assert.Equal(t, "1", store.lastFilter.EntityID)
}

func TestHandlerRejectsBadFilters(t *testing.T) {
	router, _ := newTestRouter(t, grants{shared.PermAuditView})

	for _, path := range []string{
		"/audit?from=10-05-2024",
		"/audit?from=2024-05-10&to=2024-05-01",
		"/audit?from=2024-01-01&to=2024-05-01",
		"/audit?actor_id=abc",
	} {
		rec := get(t, router, path)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, path)
	}
}

func TestHandlerRequiresPermission(t *testing.T) {
	router, _ := newTestRouter(t, grants{shared.PermDocumentsView})

	rec := get(t, router, "/audit")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerExportCSV(t *testing.T) {
	router, _ := newTestRouter(t, grants{shared.PermAuditView})

	rec := get(t, router, "/audit/export.csv?action=document.post")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 6)
	assert.Equal(t, "at,actor_id,action,entity,entity_id,ref", lines[0])
}
