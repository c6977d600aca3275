// Package documents manages accounting documents: invoices, returns and
// sales proposals, their line items, numbering and status lifecycle.
package documents

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
)

var (
	ErrDocumentNotFound  = fmt.Errorf("document %w", httpx.ErrNotFound)
	ErrInvalidKind       = fmt.Errorf("%w: unknown document kind", httpx.ErrValidation)
	ErrInvalidLine       = fmt.Errorf("%w: invalid line item", httpx.ErrValidation)
	ErrInvalidDates      = fmt.Errorf("%w: due date before issue date", httpx.ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: transition not allowed", httpx.ErrConflict)
	ErrNotEditable       = fmt.Errorf("%w: only draft documents can be edited", httpx.ErrConflict)
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive", httpx.ErrValidation)
	ErrOverpayment       = fmt.Errorf("%w: payment exceeds balance", httpx.ErrValidation)
	ErrDuplicateNumber   = fmt.Errorf("document number %w", httpx.ErrDuplicate)
	ErrNumberExhausted   = fmt.Errorf("%w: could not allocate a document number", httpx.ErrConflict)
	ErrDuplicatePayment  = fmt.Errorf("payment %w", httpx.ErrDuplicate)
	ErrAlreadyConverted  = fmt.Errorf("%w: proposal already converted", httpx.ErrConflict)
	ErrConcurrentUpdate  = fmt.Errorf("%w: concurrent update, retry", httpx.ErrConflict)
)

// Kind enumerates document types.
type Kind string

const (
	KindSalesInvoice    Kind = "sales_invoice"
	KindPurchaseInvoice Kind = "purchase_invoice"
	KindSalesReturn     Kind = "sales_return"
	KindPurchaseReturn  Kind = "purchase_return"
	KindSalesProposal   Kind = "sales_proposal"
)

var kindPrefixes = map[Kind]string{
	KindSalesInvoice:    "SI",
	KindPurchaseInvoice: "PI",
	KindSalesReturn:     "SR",
	KindPurchaseReturn:  "PR",
	KindSalesProposal:   "SP",
}

// Kinds lists every document kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindSalesInvoice, KindPurchaseInvoice, KindSalesReturn, KindPurchaseReturn, KindSalesProposal}
}

// ParseKind validates a kind name.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if _, ok := kindPrefixes[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
	return k, nil
}

// Prefix returns the number prefix of the kind.
func (k Kind) Prefix() string { return kindPrefixes[k] }

// IsProposal reports whether k follows the proposal lifecycle.
func (k Kind) IsProposal() bool { return k == KindSalesProposal }

// IsReturn reports whether k is a sales or purchase return.
func (k Kind) IsReturn() bool { return k == KindSalesReturn || k == KindPurchaseReturn }

// Payable reports whether payments can be recorded against k.
func (k Kind) Payable() bool { return !k.IsProposal() }

// Status enumerates stored document statuses.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPosted    Status = "posted"
	StatusApproved  Status = "approved"
	StatusPartial   Status = "partial"
	StatusPaid      Status = "paid"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// DisplayOverdue is the derived status of a past-due open document.
const DisplayOverdue = "overdue"

// Document is the header of an accounting document with its lines.
type Document struct {
	ID            int64
	Kind          Kind
	Number        string
	PartyID       int64
	PartyName     string
	Currency      string
	IssueDate     time.Time
	DueDate       time.Time
	Status        Status
	DisplayStatus string
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
	Paid          decimal.Decimal
	Balance       decimal.Decimal
	Notes         string
	SourceID      *int64
	CreatedBy     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Lines         []Line
}

// Line is a stored line item. Derived amounts are always recalculated.
type Line struct {
	ID             int64
	LineNo         int
	ProductID      *int64
	Description    string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	DiscountPct    decimal.Decimal
	TaxPct         decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// Payment records money received or paid against a document.
type Payment struct {
	ID         int64
	DocumentID int64
	Amount     decimal.Decimal
	PaidAt     time.Time
	Method     string
	Reference  string
	CreatedBy  int64
	CreatedAt  time.Time
}

// LineInput carries the caller-controlled fields of a line.
type LineInput struct {
	ProductID   *int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
}

// CreateInput describes a new document. Number is optional.
type CreateInput struct {
	Kind      Kind
	Number    string
	PartyID   int64
	PartyName string
	Currency  string
	IssueDate time.Time
	DueDate   time.Time
	Notes     string
	SourceID  *int64
	CreatedBy int64
	Lines     []LineInput
}

// UpdateInput replaces the editable fields of a draft.
type UpdateInput struct {
	PartyID   int64
	PartyName string
	Currency  string
	IssueDate time.Time
	DueDate   time.Time
	Notes     string
	UpdatedBy int64
	Lines     []LineInput
}

// PayInput records a payment. IdempotencyKey is optional.
type PayInput struct {
	Amount         decimal.Decimal
	PaidAt         time.Time
	Method         string
	Reference      string
	IdempotencyKey string
	CreatedBy      int64
}

// ListFilter narrows document listings. Statuses matches any of the listed
// statuses when non-empty.
type ListFilter struct {
	Kind     Kind
	Status   Status
	Statuses []Status
	PartyID  int64
	From     time.Time
	To       time.Time
	Overdue  bool
	Limit    int
	Offset   int
}
