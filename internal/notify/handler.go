package notify

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/rbac"
	"github.com/odyssey-erp/workdesk/internal/shared"
	"github.com/odyssey-erp/workdesk/internal/templating"
	"github.com/odyssey-erp/workdesk/report"
)

// PDFRenderer converts an HTML document to PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler exposes email templates and sending.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	pdf       PDFRenderer
	validator *validator.Validate
}

// NewHandler builds Handler instance. pdf may be nil, which disables PDF
// offer letters.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, pdf PDFRenderer) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, pdf: pdf, validator: validator.New()}
}

// MountRoutes registers notify routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermNotifyTemplatesView, shared.PermNotifyTemplatesEdit))
		r.Get("/templates", h.listTemplates)
		r.Post("/templates/{name}/preview", h.preview)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermNotifyTemplatesEdit))
		r.Put("/templates/{name}", h.saveTemplate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermNotifySend))
		r.Post("/send", h.send)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRecruitmentManage))
		r.Post("/offer-letters", h.offerLetter)
	})
}

type contentRequest struct {
	Locale  string `json:"locale" validate:"required,max=35"`
	Subject string `json:"subject" validate:"max=500"`
	Body    string `json:"body" validate:"required"`
}

type templateRequest struct {
	Description string           `json:"description" validate:"max=500"`
	Contents    []contentRequest `json:"contents" validate:"dive"`
}

type renderRequest struct {
	Locale string            `json:"locale" validate:"max=35"`
	Values map[string]string `json:"values"`
}

type sendRequest struct {
	Template string            `json:"template" validate:"required"`
	Locale   string            `json:"locale" validate:"max=35"`
	To       string            `json:"to" validate:"required,email"`
	Values   map[string]string `json:"values"`
}

type contentResponse struct {
	Locale  string `json:"locale"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type templateResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Contents    []contentResponse `json:"contents,omitempty"`
}

func toTemplateResponse(t Template) templateResponse {
	resp := templateResponse{ID: t.ID, Name: t.Name, Description: t.Description}
	for _, c := range t.Contents {
		resp.Contents = append(resp.Contents, contentResponse(c))
	}
	return resp
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	templates, err := h.service.Templates(r.Context(), id.Tenant)
	if err != nil {
		h.logger.Error("list email templates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	data := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		data = append(data, toTemplateResponse(t))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": data})
}

func (h *Handler) saveTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req templateRequest
	if !h.decode(w, r, &req) {
		return
	}
	tmpl := Template{Name: chi.URLParam(r, "name"), Description: req.Description}
	for _, c := range req.Contents {
		tmpl.Contents = append(tmpl.Contents, Content(c))
	}
	saved, err := h.service.SaveTemplate(r.Context(), id.Tenant, tmpl)
	if err != nil {
		h.logger.Error("save email template", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTemplateResponse(saved))
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, chi.URLParam(r, "name"))
}

func (h *Handler) offerLetter(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") != "pdf" {
		h.render(w, r, TemplateOfferLetter)
		return
	}
	if h.pdf == nil {
		httpx.Problem(w, http.StatusNotImplemented, "PDF rendering disabled", "")
		return
	}
	rendered, ok := h.renderValues(w, r, TemplateOfferLetter)
	if !ok {
		return
	}
	doc, err := report.Page(rendered.Subject, rendered.Body)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), doc)
	if err != nil {
		h.logger.Error("render offer letter pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "PDF rendering failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=offer-letter.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string) {
	rendered, ok := h.renderValues(w, r, name)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, contentResponse(rendered))
}

func (h *Handler) renderValues(w http.ResponseWriter, r *http.Request, name string) (Rendered, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return Rendered{}, false
	}
	var req renderRequest
	if !h.decode(w, r, &req) {
		return Rendered{}, false
	}
	rendered, err := h.service.Render(r.Context(), id.Tenant, name, req.Locale, templating.Values(req.Values))
	if err != nil {
		httpx.RespondError(w, err)
		return Rendered{}, false
	}
	return rendered, true
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req sendRequest
	if !h.decode(w, r, &req) {
		return
	}
	result := h.service.Send(r.Context(), id.Tenant, Request{
		Template: req.Template,
		Locale:   req.Locale,
		To:       req.To,
		Values:   templating.Values(req.Values),
	})
	status := http.StatusAccepted
	if !result.IsSuccess {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}
