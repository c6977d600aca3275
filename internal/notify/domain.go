// Package notify renders tenant email templates and queues them for delivery.
package notify

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/templating"
)

var (
	ErrTemplateNotFound  = fmt.Errorf("email template %w", httpx.ErrNotFound)
	ErrContentNotFound   = fmt.Errorf("localized email content %w", httpx.ErrNotFound)
	ErrSMTPNotConfigured = fmt.Errorf("%w: smtp is not configured", httpx.ErrConflict)
	ErrInvalidTemplate   = fmt.Errorf("%w: invalid email template", httpx.ErrValidation)
)

// Well-known template names.
const (
	TemplateInvoiceOverdue = "invoice_overdue"
	TemplateOfferLetter    = "offer_letter"
)

// DefaultLocale is used when no localized content matches.
const DefaultLocale = "en"

// Template is a named email template owned by a tenant.
type Template struct {
	ID          int64
	Name        string
	Description string
	Contents    []Content
	UpdatedAt   time.Time
}

// Content is the localized subject and body of a template.
type Content struct {
	Locale  string
	Subject string
	Body    string
}

// Request asks for a template to be rendered and mailed.
type Request struct {
	Template string
	Locale   string
	To       string
	Values   templating.Values
}

// Result reports the outcome of Send.
type Result struct {
	IsSuccess bool   `json:"is_success"`
	Error     string `json:"error,omitempty"`
}

// Rendered is a template filled with values.
type Rendered struct {
	Locale  string
	Subject string
	Body    string
}

// Mail is handed to the delivery queue.
type Mail struct {
	TenantID int64
	To       string
	Subject  string
	Body     string
	Template string
}
