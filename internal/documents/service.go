package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/workdesk/internal/numbering"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

const (
	defaultNumberAttempts = 5
	idempotencyModule     = "documents.pay"
)

// IdempotencyGuard claims request keys once per tenant.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, tenant shared.Tenant, key, module string) error
	Delete(ctx context.Context, tenant shared.Tenant, key, module string) error
}

// Options tunes the Service.
type Options struct {
	MaxNumberAttempts int
	Now               func() time.Time
}

// Service orchestrates document workflows.
type Service struct {
	repo        Repository
	audit       shared.AuditRecorder
	idempotency IdempotencyGuard
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
}

// NewService constructs a Service. audit and idempotency may be nil.
func NewService(repo Repository, audit shared.AuditRecorder, idempotency IdempotencyGuard, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxNumberAttempts <= 0 {
		opts.MaxNumberAttempts = defaultNumberAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idempotency,
		logger:      logger,
		maxAttempts: opts.MaxNumberAttempts,
		now:         opts.Now,
	}
}

// Create stores a new draft. Without a caller-supplied number the next number
// of the tenant, kind and current month is assigned in the same transaction.
func (s *Service) Create(ctx context.Context, tenant shared.Tenant, input CreateInput) (Document, error) {
	if _, err := ParseKind(string(input.Kind)); err != nil {
		return Document{}, err
	}
	lines, err := RecalculateLines(input.Lines)
	if err != nil {
		return Document{}, err
	}
	now := s.now()
	doc := Document{
		Kind:      input.Kind,
		Number:    strings.TrimSpace(input.Number),
		PartyID:   input.PartyID,
		PartyName: input.PartyName,
		Currency:  input.Currency,
		IssueDate: input.IssueDate,
		DueDate:   input.DueDate,
		Status:    StatusDraft,
		Notes:     input.Notes,
		SourceID:  input.SourceID,
		CreatedBy: input.CreatedBy,
		Lines:     lines,
	}
	if doc.IssueDate.IsZero() {
		doc.IssueDate = dateOf(now)
	}
	if doc.DueDate.Before(doc.IssueDate) && !doc.DueDate.IsZero() {
		return Document{}, ErrInvalidDates
	}
	applyTotals(&doc)

	manual := doc.Number != ""
	prefix := input.Kind.Prefix()
	var id int64
	for attempt := 1; ; attempt++ {
		err = s.repo.WithTx(ctx, tenant, func(ctx context.Context, tx TxRepository) error {
			if !manual {
				number, err := numbering.NewGenerator(tx.Sequencer()).Next(ctx, tenant, prefix, now)
				if err != nil {
					return err
				}
				doc.Number = number
			}
			var err error
			id, err = tx.Insert(ctx, doc)
			if err != nil {
				return err
			}
			return tx.ReplaceLines(ctx, id, doc.Lines)
		})
		if err == nil {
			break
		}
		collision := !manual && errors.Is(err, ErrDuplicateNumber)
		if !collision && !errors.Is(err, ErrConcurrentUpdate) {
			return Document{}, err
		}
		if attempt >= s.maxAttempts {
			return Document{}, fmt.Errorf("%w after %d attempts: %v", ErrNumberExhausted, attempt, err)
		}
		if !collision {
			s.logger.Warn("document create lost a concurrent update, retrying",
				slog.Int64("tenant_id", tenant.ID()),
				slog.Int("attempt", attempt))
			if err := backoff(ctx, attempt); err != nil {
				return Document{}, err
			}
			continue
		}
		s.logger.Warn("document number collision, reseeding",
			slog.Int64("tenant_id", tenant.ID()),
			slog.String("number", doc.Number),
			slog.Int("attempt", attempt))
		if err := s.reseed(ctx, tenant, input.Kind, now); err != nil {
			return Document{}, err
		}
	}

	s.record(ctx, tenant, input.CreatedBy, "document.create", id, map[string]any{
		"kind":   string(doc.Kind),
		"number": doc.Number,
		"total":  doc.Total.StringFixed(moneyPlaces),
	})
	return s.Get(ctx, tenant, id)
}

func (s *Service) reseed(ctx context.Context, tenant shared.Tenant, kind Kind, now time.Time) error {
	return s.repo.WithTx(ctx, tenant, func(ctx context.Context, tx TxRepository) error {
		numbers, err := tx.NumbersWithPrefix(ctx, kind, numbering.Pattern(kind.Prefix(), now))
		if err != nil {
			return err
		}
		return numbering.NewGenerator(tx.Sequencer()).Reseed(ctx, tenant, kind.Prefix(), now, numbers)
	})
}

// Update replaces header fields and lines of a draft.
func (s *Service) Update(ctx context.Context, tenant shared.Tenant, id int64, input UpdateInput) (Document, error) {
	lines, err := RecalculateLines(input.Lines)
	if err != nil {
		return Document{}, err
	}
	err = s.repo.WithTx(ctx, tenant, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status != StatusDraft {
			return ErrNotEditable
		}
		doc.PartyID = input.PartyID
		doc.PartyName = input.PartyName
		doc.Currency = input.Currency
		if !input.IssueDate.IsZero() {
			doc.IssueDate = input.IssueDate
		}
		doc.DueDate = input.DueDate
		doc.Notes = input.Notes
		doc.Lines = lines
		applyTotals(&doc)
		if err := tx.UpdateHeader(ctx, doc); err != nil {
			return err
		}
		return tx.ReplaceLines(ctx, id, lines)
	})
	if err != nil {
		return Document{}, err
	}
	s.record(ctx, tenant, input.UpdatedBy, "document.update", id, nil)
	return s.Get(ctx, tenant, id)
}

// Get loads a document with its lines and display status.
func (s *Service) Get(ctx context.Context, tenant shared.Tenant, id int64) (Document, error) {
	doc, err := s.repo.Get(ctx, tenant, id)
	if err != nil {
		return Document{}, err
	}
	s.decorate(&doc, s.now())
	return doc, nil
}

// List returns a page of documents and the total number of matches.
func (s *Service) List(ctx context.Context, tenant shared.Tenant, filter ListFilter) ([]Document, int, error) {
	now := s.now()
	docs, total, err := s.repo.List(ctx, tenant, filter, now)
	if err != nil {
		return nil, 0, err
	}
	for i := range docs {
		s.decorate(&docs[i], now)
	}
	return docs, total, nil
}

// Payments lists payments recorded against a document.
func (s *Service) Payments(ctx context.Context, tenant shared.Tenant, id int64) ([]Payment, error) {
	if _, err := s.repo.Get(ctx, tenant, id); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, tenant, id)
}

// Transition applies a lifecycle action.
func (s *Service) Transition(ctx context.Context, tenant shared.Tenant, id int64, action Action, actorID int64) (Document, error) {
	var from, to Status
	err := s.repo.WithTx(ctx, tenant, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := NextStatus(doc.Kind, doc.Status, action)
		if err != nil {
			return fmt.Errorf("%s %s document: %w", action, doc.Status, err)
		}
		if action == ActionCancel && doc.Paid.IsPositive() {
			return fmt.Errorf("cancel document with payments: %w", ErrInvalidTransition)
		}
		from, to = doc.Status, next
		return tx.UpdateStatus(ctx, id, next)
	})
	if err != nil {
		return Document{}, err
	}
	s.record(ctx, tenant, actorID, "document."+string(action), id, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
	return s.Get(ctx, tenant, id)
}

// Post moves a draft invoice to posted.
func (s *Service) Post(ctx context.Context, tenant shared.Tenant, id, actorID int64) (Document, error) {
	return s.Transition(ctx, tenant, id, ActionPost, actorID)
}

// Approve moves a draft return to approved.
func (s *Service) Approve(ctx context.Context, tenant shared.Tenant, id, actorID int64) (Document, error) {
	return s.Transition(ctx, tenant, id, ActionApprove, actorID)
}

// Cancel cancels an unpaid document.
func (s *Service) Cancel(ctx context.Context, tenant shared.Tenant, id, actorID int64) (Document, error) {
	return s.Transition(ctx, tenant, id, ActionCancel, actorID)
}

// Pay records a payment and moves the document to partial or paid.
func (s *Service) Pay(ctx context.Context, tenant shared.Tenant, id int64, input PayInput) (Document, error) {
	if !input.Amount.IsPositive() {
		return Document{}, ErrInvalidAmount
	}
	if input.IdempotencyKey != "" && s.idempotency != nil {
		key := strconv.FormatInt(id, 10) + ":" + input.IdempotencyKey
		if err := s.idempotency.CheckAndInsert(ctx, tenant, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Document{}, ErrDuplicatePayment
			}
			return Document{}, err
		}
		doc, err := s.pay(ctx, tenant, id, input)
		if err != nil {
			if delErr := s.idempotency.Delete(ctx, tenant, key, idempotencyModule); delErr != nil {
				s.logger.Error("release idempotency key", slog.Any("error", delErr))
			}
		}
		return doc, err
	}
	return s.pay(ctx, tenant, id, input)
}

func (s *Service) pay(ctx context.Context, tenant shared.Tenant, id int64, input PayInput) (Document, error) {
	amount := input.Amount.Truncate(moneyPlaces)
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	var status Status
	err := s.repo.WithTx(ctx, tenant, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !doc.Kind.Payable() || !payableStatus(doc.Kind, doc.Status) {
			return fmt.Errorf("pay %s %s: %w", doc.Kind, doc.Status, ErrInvalidTransition)
		}
		if amount.GreaterThan(doc.Balance) {
			return fmt.Errorf("%w: balance %s", ErrOverpayment, doc.Balance.StringFixed(moneyPlaces))
		}
		if _, err := tx.InsertPayment(ctx, Payment{
			DocumentID: id,
			Amount:     amount,
			PaidAt:     paidAt,
			Method:     input.Method,
			Reference:  input.Reference,
			CreatedBy:  input.CreatedBy,
		}); err != nil {
			return err
		}
		doc.Paid = doc.Paid.Add(amount)
		doc.Balance = doc.Total.Sub(doc.Paid)
		doc.Status = PaymentStatus(doc)
		status = doc.Status
		return tx.UpdatePaid(ctx, id, doc.Paid, doc.Balance, doc.Status)
	})
	if err != nil {
		return Document{}, err
	}
	s.record(ctx, tenant, input.CreatedBy, "document.pay", id, map[string]any{
		"amount": amount.StringFixed(moneyPlaces),
		"status": string(status),
	})
	return s.Get(ctx, tenant, id)
}

// Send marks a draft proposal as sent.
func (s *Service) Send(ctx context.Context, tenant shared.Tenant, id, actorID int64) (Document, error) {
	return s.Transition(ctx, tenant, id, ActionSend, actorID)
}

// Accept marks a sent proposal as accepted.
func (s *Service) Accept(ctx context.Context, tenant shared.Tenant, id, actorID int64) (Document, error) {
	return s.Transition(ctx, tenant, id, ActionAccept, actorID)
}

// Reject marks a sent proposal as rejected.
func (s *Service) Reject(ctx context.Context, tenant shared.Tenant, id, actorID int64) (Document, error) {
	return s.Transition(ctx, tenant, id, ActionReject, actorID)
}

// ConvertProposal creates a draft sales invoice from an accepted proposal.
func (s *Service) ConvertProposal(ctx context.Context, tenant shared.Tenant, id, actorID int64, dueDate time.Time) (Document, error) {
	proposal, err := s.repo.Get(ctx, tenant, id)
	if err != nil {
		return Document{}, err
	}
	if !proposal.Kind.IsProposal() || proposal.Status != StatusAccepted {
		return Document{}, fmt.Errorf("convert %s %s: %w", proposal.Kind, proposal.Status, ErrInvalidTransition)
	}
	if _, err := s.repo.FindBySource(ctx, tenant, KindSalesInvoice, id); err == nil {
		return Document{}, ErrAlreadyConverted
	} else if !errors.Is(err, ErrDocumentNotFound) {
		return Document{}, err
	}
	sourceID := proposal.ID
	return s.Create(ctx, tenant, CreateInput{
		Kind:      KindSalesInvoice,
		PartyID:   proposal.PartyID,
		PartyName: proposal.PartyName,
		Currency:  proposal.Currency,
		DueDate:   dueDate,
		Notes:     proposal.Notes,
		SourceID:  &sourceID,
		CreatedBy: actorID,
		Lines:     AsInputs(proposal.Lines),
	})
}

// Overdue lists open documents of kind whose due date has passed. When
// statuses are given only documents in one of them are returned.
func (s *Service) Overdue(ctx context.Context, tenant shared.Tenant, kind Kind, limit int, statuses ...Status) ([]Document, error) {
	docs, _, err := s.List(ctx, tenant, ListFilter{Kind: kind, Overdue: true, Statuses: statuses, Limit: limit})
	return docs, err
}

func (s *Service) decorate(doc *Document, now time.Time) {
	doc.DisplayStatus = DisplayStatus(doc.Kind, doc.DueDate, doc.Status, now)
}

func (s *Service) record(ctx context.Context, tenant shared.Tenant, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Tenant:   tenant,
		ActorID:  actorID,
		Action:   action,
		Entity:   "document",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func applyTotals(doc *Document) {
	t := SumLines(doc.Lines)
	doc.Subtotal = t.Subtotal
	doc.DiscountTotal = t.Discount
	doc.TaxTotal = t.Tax
	doc.Total = t.Total
	if doc.Paid.IsZero() {
		doc.Paid = decimal.Zero
	}
	doc.Balance = doc.Total.Sub(doc.Paid)
}

// backoff waits a few jittered milliseconds, growing with attempt.
func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt)*5*time.Millisecond + rand.N(5*time.Millisecond)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
