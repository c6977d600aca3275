package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/rbac"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

const (
	dateLayout       = "2006-01-02"
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
	exportRateLimit  = 10
)

// Handler exposes the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes registers audit routes. Exports are rate limited per tenant.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAll(shared.PermAuditView))
	r.Get("/", h.timeline)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(exportRateLimit, time.Minute, httprate.WithKeyFuncs(exportKey)))
		r.Get("/export.csv", h.export)
	})
}

func exportKey(r *http.Request) (string, error) {
	if id, ok := shared.IdentityFromContext(r.Context()); ok {
		return "tenant:" + id.Tenant.String(), nil
	}
	return httprate.KeyByIP(r)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), id.Tenant, filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err), slog.String("tenant", id.Tenant.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.Export(r.Context(), id.Tenant, filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err), slog.String("tenant", id.Tenant.String()))
		httpx.RespondError(w, err)
		return
	}
	body, err := WriteCSV(entries)
	if err != nil {
		h.logger.Error("encode audit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("write audit csv", slog.Any("error", err))
	}
}

// parseFilters reads the query. "to" is inclusive, so the upper bound is the
// start of the following day.
func (h *Handler) parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	today := h.now().UTC().Truncate(24 * time.Hour)

	to := today
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return Filters{}, fmt.Errorf("%w: to must be YYYY-MM-DD", httpx.ErrValidation)
		}
		to = parsed
	}
	from := to.Add(-defaultDateRange)
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return Filters{}, fmt.Errorf("%w: from must be YYYY-MM-DD", httpx.ErrValidation)
		}
		from = parsed
	}
	if from.After(to) {
		return Filters{}, fmt.Errorf("%w: from is after to", httpx.ErrValidation)
	}
	if to.Sub(from) > maxDateRange {
		return Filters{}, fmt.Errorf("%w: range exceeds 90 days", httpx.ErrValidation)
	}

	f := Filters{
		From:     from,
		To:       to.AddDate(0, 0, 1),
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entity_id")),
		Action:   strings.TrimSpace(q.Get("action")),
	}
	if v := strings.TrimSpace(q.Get("actor_id")); v != "" {
		actor, err := strconv.ParseInt(v, 10, 64)
		if err != nil || actor <= 0 {
			return Filters{}, fmt.Errorf("%w: actor_id must be a positive integer", httpx.ErrValidation)
		}
		f.ActorID = actor
	}
	f.Page, f.PageSize, _ = shared.PageFromQuery(q)
	return f, nil
}
