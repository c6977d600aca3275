package documents

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/rbac"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Handler exposes document endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermDocumentsView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/payments", h.payments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDocumentsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDocumentsEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDocumentsPost))
		r.Post("/{id}/post", h.transition(ActionPost))
		r.Post("/{id}/approve", h.transition(ActionApprove))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProposalsManage))
		r.Post("/{id}/send", h.transition(ActionSend))
		r.Post("/{id}/accept", h.transition(ActionAccept))
		r.Post("/{id}/reject", h.transition(ActionReject))
		r.Post("/{id}/convert", h.convert)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDocumentsCancel))
		r.Post("/{id}/cancel", h.transition(ActionCancel))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDocumentsPay))
		r.Post("/{id}/payments", h.pay)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	filter, err := filterFromQuery(q.Get)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, perPage, offset := shared.PageFromQuery(q)
	filter.Limit, filter.Offset = perPage, offset

	docs, total, err := h.service.List(r.Context(), id.Tenant, filter)
	if err != nil {
		h.fail(w, "list documents", err)
		return
	}
	resp := listResponse{Data: make([]documentResponse, 0, len(docs)), Pagination: shared.NewPagination(page, perPage, total)}
	for _, doc := range docs {
		doc.Lines = nil
		resp.Data = append(resp.Data, toResponse(doc))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func filterFromQuery(get func(string) string) (ListFilter, error) {
	var filter ListFilter
	if raw := get("kind"); raw != "" {
		kind, err := ParseKind(raw)
		if err != nil {
			return ListFilter{}, err
		}
		filter.Kind = kind
	}
	filter.Status = Status(get("status"))
	if raw := get("party_id"); raw != "" {
		partyID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ListFilter{}, httpx.ErrValidation
		}
		filter.PartyID = partyID
	}
	var err error
	if filter.From, err = parseDate(get("from")); err != nil {
		return ListFilter{}, err
	}
	if filter.To, err = parseDate(get("to")); err != nil {
		return ListFilter{}, err
	}
	filter.Overdue, _ = strconv.ParseBool(get("overdue"))
	return filter, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := h.target(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), id.Tenant, docID)
	if err != nil {
		h.fail(w, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(doc))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req documentRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.Kind == "" {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "kind is required")
		return
	}
	input, err := req.createInput(id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Create(r.Context(), id.Tenant, input)
	if err != nil {
		h.fail(w, "create document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(doc))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req documentRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.updateInput(id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Update(r.Context(), id.Tenant, docID, input)
	if err != nil {
		h.fail(w, "update document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(doc))
}

func (h *Handler) transition(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, docID, ok := h.target(w, r)
		if !ok {
			return
		}
		doc, err := h.service.Transition(r.Context(), id.Tenant, docID, action, id.UserID)
		if err != nil {
			h.fail(w, "document "+string(action), err)
			return
		}
		httpx.JSON(w, http.StatusOK, toResponse(doc))
	}
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	paidAt, err := parseDate(req.PaidAt)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Pay(r.Context(), id.Tenant, docID, PayInput{
		Amount:         req.Amount,
		PaidAt:         paidAt,
		Method:         req.Method,
		Reference:      req.Reference,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		CreatedBy:      id.UserID,
	})
	if err != nil {
		h.fail(w, "pay document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(doc))
}

func (h *Handler) payments(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := h.target(w, r)
	if !ok {
		return
	}
	payments, err := h.service.Payments(r.Context(), id.Tenant, docID)
	if err != nil {
		h.fail(w, "list payments", err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	id, docID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req convertRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.ConvertProposal(r.Context(), id.Tenant, docID, id.UserID, due)
	if err != nil {
		h.fail(w, "convert proposal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(doc))
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return shared.Identity{}, 0, false
	}
	docID, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Identity{}, 0, false
	}
	return id, docID, true
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return h.validator.Struct(target)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !isClientError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	for _, sentinel := range []error{httpx.ErrNotFound, httpx.ErrValidation, httpx.ErrConflict, httpx.ErrDuplicate} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
