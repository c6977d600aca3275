package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/workdesk/internal/rbac"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

type grantAll struct{}

func (grantAll) EffectivePermissions(context.Context, shared.Tenant, int64) ([]string, error) {
	return shared.DocumentScopes(), nil
}

func newTestRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, f.svc, rbac.Middleware{Service: grantAll{}, Logger: logger})
	r := chi.NewRouter()
	r.Route("/documents", h.MountRoutes)
	return r, f
}

func do(t *testing.T, h http.Handler, method, path string, tenantID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenantID > 0 {
		tenant := tenantOf(t, tenantID)
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{Tenant: tenant, UserID: 3}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createBody() map[string]any {
	return map[string]any{
		"kind":       "sales_invoice",
		"party_id":   1,
		"party_name": "Acme",
		"currency":   "USD",
		"due_date":   "2024-05-31",
		"lines": []map[string]any{{
			"description":         "Consulting",
			"quantity":            "3",
			"unit_price":          "100.00",
			"discount_percentage": 10,
			"tax_percentage":      5,
		}},
	}
}

func TestHandlerCreateAndGet(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/documents", 7, createBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "SI-2024-05-001", created.Number)
	assert.Equal(t, "283.50", created.Total)
	assert.Equal(t, "draft", created.DisplayStatus)
	require.Len(t, created.Lines, 1)
	assert.Equal(t, "13.50", created.Lines[0].TaxAmount)

	path := "/documents/" + strconv.FormatInt(created.ID, 10)
	rec = do(t, router, http.MethodGet, path, 7, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, path, 8, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRequiresIdentity(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/documents", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	body := createBody()
	body["lines"] = []map[string]any{}
	rec := do(t, router, http.MethodPost, "/documents", 7, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body = createBody()
	body["lines"] = []map[string]any{{"description": "x", "quantity": "-1", "unit_price": "1"}}
	rec = do(t, router, http.MethodPost, "/documents", 7, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body = createBody()
	body["total_amount"] = "1.00"
	rec = do(t, router, http.MethodPost, "/documents", 7, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "unknown fields are rejected")
}

func TestHandlerDuplicateNumberConflict(t *testing.T) {
	router, _ := newTestRouter(t)
	body := createBody()
	body["document_number"] = "INV-1"
	rec := do(t, router, http.MethodPost, "/documents", 7, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/documents", 7, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerPostAndPay(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodPost, "/documents", 7, createBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	base := "/documents/" + strconv.FormatInt(created.ID, 10)

	rec = do(t, router, http.MethodPost, base+"/post", 7, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, base+"/post", 7, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, base+"/payments", 7, map[string]any{"amount": "283.50", "method": "bank"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Equal(t, "0.00", paid.Balance)

	rec = do(t, router, http.MethodGet, base+"/payments", 7, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/documents?kind=sales_invoice&status=paid", 7, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Pagination.Total)
}

func TestHandlerForbiddenWithoutPermission(t *testing.T) {
	f := newFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, f.svc, rbac.Middleware{Service: viewOnly{}})
	r := chi.NewRouter()
	r.Route("/documents", h.MountRoutes)

	rec := do(t, r, http.MethodPost, "/documents", 7, createBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, r, http.MethodGet, "/documents", 7, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type viewOnly struct{}

func (viewOnly) EffectivePermissions(context.Context, shared.Tenant, int64) ([]string, error) {
	return []string{shared.PermDocumentsView}, nil
}
