package documents

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

const dateLayout = "2006-01-02"

type lineRequest struct {
	ProductID   *int64          `json:"product_id" validate:"omitempty,gt=0"`
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_percentage"`
	TaxPct      decimal.Decimal `json:"tax_percentage"`
}

type documentRequest struct {
	Kind      string        `json:"kind" validate:"omitempty,oneof=sales_invoice purchase_invoice sales_return purchase_return sales_proposal"`
	Number    string        `json:"document_number" validate:"omitempty,max=64"`
	PartyID   int64         `json:"party_id" validate:"gt=0"`
	PartyName string        `json:"party_name" validate:"required,max=255"`
	Currency  string        `json:"currency" validate:"required,len=3"`
	IssueDate string        `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate   string        `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     string        `json:"notes" validate:"max=2000"`
	Lines     []lineRequest `json:"lines" validate:"min=1,dive"`
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    string          `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
	Method    string          `json:"method" validate:"required,max=50"`
	Reference string          `json:"reference" validate:"max=255"`
}

type convertRequest struct {
	DueDate string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (req documentRequest) lines() []LineInput {
	out := make([]LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		out = append(out, LineInput{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			TaxPct:      l.TaxPct,
		})
	}
	return out
}

func (req documentRequest) createInput(id shared.Identity) (CreateInput, error) {
	issue, err := parseDate(req.IssueDate)
	if err != nil {
		return CreateInput{}, err
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return CreateInput{}, err
	}
	return CreateInput{
		Kind:      Kind(req.Kind),
		Number:    req.Number,
		PartyID:   req.PartyID,
		PartyName: req.PartyName,
		Currency:  req.Currency,
		IssueDate: issue,
		DueDate:   due,
		Notes:     req.Notes,
		CreatedBy: id.UserID,
		Lines:     req.lines(),
	}, nil
}

func (req documentRequest) updateInput(id shared.Identity) (UpdateInput, error) {
	issue, err := parseDate(req.IssueDate)
	if err != nil {
		return UpdateInput{}, err
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return UpdateInput{}, err
	}
	return UpdateInput{
		PartyID:   req.PartyID,
		PartyName: req.PartyName,
		Currency:  req.Currency,
		IssueDate: issue,
		DueDate:   due,
		Notes:     req.Notes,
		UpdatedBy: id.UserID,
		Lines:     req.lines(),
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", httpx.ErrValidation, raw)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

type lineResponse struct {
	ID             int64  `json:"id"`
	LineNo         int    `json:"line_no"`
	ProductID      *int64 `json:"product_id,omitempty"`
	Description    string `json:"description"`
	Quantity       string `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	DiscountPct    string `json:"discount_percentage"`
	TaxPct         string `json:"tax_percentage"`
	Subtotal       string `json:"subtotal"`
	DiscountAmount string `json:"discount_amount"`
	TaxAmount      string `json:"tax_amount"`
	Total          string `json:"total_amount"`
}

type documentResponse struct {
	ID            int64          `json:"id"`
	Kind          Kind           `json:"kind"`
	Number        string         `json:"document_number"`
	PartyID       int64          `json:"party_id"`
	PartyName     string         `json:"party_name"`
	Currency      string         `json:"currency"`
	IssueDate     string         `json:"issue_date"`
	DueDate       string         `json:"due_date,omitempty"`
	Status        Status         `json:"status"`
	DisplayStatus string         `json:"display_status"`
	Subtotal      string         `json:"subtotal"`
	DiscountTotal string         `json:"discount_total"`
	TaxTotal      string         `json:"tax_total"`
	Total         string         `json:"total"`
	Paid          string         `json:"paid"`
	Balance       string         `json:"balance"`
	Notes         string         `json:"notes,omitempty"`
	SourceID      *int64         `json:"source_id,omitempty"`
	CreatedBy     int64          `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Lines         []lineResponse `json:"lines,omitempty"`
}

type paymentResponse struct {
	ID        int64     `json:"id"`
	Amount    string    `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	CreatedBy int64     `json:"created_by"`
}

type listResponse struct {
	Data       []documentResponse `json:"data"`
	Pagination shared.Pagination  `json:"pagination"`
}

func money(d decimal.Decimal) string { return d.StringFixed(moneyPlaces) }

func toResponse(doc Document) documentResponse {
	resp := documentResponse{
		ID:            doc.ID,
		Kind:          doc.Kind,
		Number:        doc.Number,
		PartyID:       doc.PartyID,
		PartyName:     doc.PartyName,
		Currency:      doc.Currency,
		IssueDate:     formatDate(doc.IssueDate),
		DueDate:       formatDate(doc.DueDate),
		Status:        doc.Status,
		DisplayStatus: doc.DisplayStatus,
		Subtotal:      money(doc.Subtotal),
		DiscountTotal: money(doc.DiscountTotal),
		TaxTotal:      money(doc.TaxTotal),
		Total:         money(doc.Total),
		Paid:          money(doc.Paid),
		Balance:       money(doc.Balance),
		Notes:         doc.Notes,
		SourceID:      doc.SourceID,
		CreatedBy:     doc.CreatedBy,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
	for _, l := range doc.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:             l.ID,
			LineNo:         l.LineNo,
			ProductID:      l.ProductID,
			Description:    l.Description,
			Quantity:       l.Quantity.String(),
			UnitPrice:      money(l.UnitPrice),
			DiscountPct:    l.DiscountPct.String(),
			TaxPct:         l.TaxPct.String(),
			Subtotal:       money(l.Subtotal),
			DiscountAmount: money(l.DiscountAmount),
			TaxAmount:      money(l.TaxAmount),
			Total:          money(l.Total),
		})
	}
	return resp
}

func toPaymentResponse(p Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		Amount:    money(p.Amount),
		PaidAt:    p.PaidAt,
		Method:    p.Method,
		Reference: p.Reference,
		CreatedBy: p.CreatedBy,
	}
}
