package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/workdesk/internal/numbering"
	"github.com/odyssey-erp/workdesk/internal/platform/db"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

const (
	numberConstraint = "documents_tenant_kind_number_key"
	sourceConstraint = "documents_tenant_kind_source_key"
)

// txOptions runs document units at read committed. The counter upsert then
// waits on the row lock and increments the committed seq instead of failing
// with a serialization error; document rows are locked with FOR UPDATE.
var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Repository exposes tenant-scoped document persistence.
type Repository interface {
	WithTx(ctx context.Context, tenant shared.Tenant, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, tenant shared.Tenant, id int64) (Document, error)
	List(ctx context.Context, tenant shared.Tenant, filter ListFilter, now time.Time) ([]Document, int, error)
	ListPayments(ctx context.Context, tenant shared.Tenant, documentID int64) ([]Payment, error)
	FindBySource(ctx context.Context, tenant shared.Tenant, kind Kind, sourceID int64) (Document, error)
}

// TxRepository is bound to one tenant and one transaction.
type TxRepository interface {
	Sequencer() numbering.Sequencer
	NumbersWithPrefix(ctx context.Context, kind Kind, prefix string) ([]string, error)
	Insert(ctx context.Context, doc Document) (int64, error)
	ReplaceLines(ctx context.Context, documentID int64, lines []Line) error
	GetForUpdate(ctx context.Context, id int64) (Document, error)
	UpdateHeader(ctx context.Context, doc Document) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpdatePaid(ctx context.Context, id int64, paid, balance decimal.Decimal, status Status) error
}

var (
	_ Repository   = (*pgRepository)(nil)
	_ TxRepository = (*pgTxRepository)(nil)
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, tenant shared.Tenant, fn func(context.Context, TxRepository) error) error {
	if tenant.IsZero() {
		return shared.ErrInvalidTenant
	}
	err := db.WithTxOptions(ctx, r.pool, txOptions, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{db: tx, tenant: tenant})
	})
	if db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	return err
}

const documentColumns = `id, kind, document_number, party_id, party_name, currency, issue_date, due_date,
	status, subtotal, discount_total, tax_total, total, paid, balance, notes, source_id,
	created_by, created_at, updated_at`

const lineColumns = `id, line_no, product_id, description, quantity, unit_price, discount_pct, tax_pct,
	subtotal, discount_amount, tax_amount, total`

func (r *pgRepository) Get(ctx context.Context, tenant shared.Tenant, id int64) (Document, error) {
	return getDocument(ctx, r.pool, tenant, id, false)
}

func (r *pgRepository) FindBySource(ctx context.Context, tenant shared.Tenant, kind Kind, sourceID int64) (Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE tenant_id = $1 AND kind = $2 AND source_id = $3
		ORDER BY id LIMIT 1`, tenant.ID(), string(kind), sourceID)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	}
	return doc, err
}

func (r *pgRepository) List(ctx context.Context, tenant shared.Tenant, filter ListFilter, now time.Time) ([]Document, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenant.ID()}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		add("status = ANY($%d)", statuses)
	}
	if filter.PartyID != 0 {
		add("party_id = $%d", filter.PartyID)
	}
	if !filter.From.IsZero() {
		add("issue_date >= $%d", toDate(filter.From))
	}
	if !filter.To.IsZero() {
		add("issue_date <= $%d", toDate(filter.To))
	}
	if filter.Overdue {
		add("due_date < $%d", now)
		add("status <> ALL($%d)", []string{
			string(StatusPaid), string(StatusAccepted), string(StatusRejected), string(StatusCancelled),
		})
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE %s ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		documentColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

func (r *pgRepository) ListPayments(ctx context.Context, tenant shared.Tenant, documentID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, document_id, amount, paid_at, method, reference, created_by, created_at
		FROM document_payments WHERE tenant_id = $1 AND document_id = $2 ORDER BY paid_at, id`,
		tenant.ID(), documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var (
			p      Payment
			amount pgtype.Numeric
		)
		if err := rows.Scan(&p.ID, &p.DocumentID, &amount, &p.PaidAt, &p.Method, &p.Reference, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Amount = fromNumeric(amount)
		out = append(out, p)
	}
	return out, rows.Err()
}

type pgTxRepository struct {
	db     db.Querier
	tenant shared.Tenant
}

func (t *pgTxRepository) Sequencer() numbering.Sequencer {
	return numbering.NewPGSequencer(t.db)
}

func (t *pgTxRepository) NumbersWithPrefix(ctx context.Context, kind Kind, prefix string) ([]string, error) {
	rows, err := t.db.Query(ctx, `SELECT document_number FROM documents
		WHERE tenant_id = $1 AND kind = $2 AND document_number LIKE $3`,
		t.tenant.ID(), string(kind), prefix+"%")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (t *pgTxRepository) Insert(ctx context.Context, doc Document) (int64, error) {
	var id int64
	err := t.db.QueryRow(ctx, `INSERT INTO documents (tenant_id, kind, document_number, party_id, party_name,
			currency, issue_date, due_date, status, subtotal, discount_total, tax_total, total, paid, balance,
			notes, source_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		t.tenant.ID(), string(doc.Kind), doc.Number, doc.PartyID, doc.PartyName,
		doc.Currency, toDate(doc.IssueDate), toDate(doc.DueDate), string(doc.Status),
		toNumeric(doc.Subtotal), toNumeric(doc.DiscountTotal), toNumeric(doc.TaxTotal), toNumeric(doc.Total),
		toNumeric(doc.Paid), toNumeric(doc.Balance), doc.Notes, doc.SourceID, doc.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, numberConstraint) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateNumber, doc.Number)
		}
		if db.IsUniqueViolation(err, sourceConstraint) {
			return 0, ErrAlreadyConverted
		}
		return 0, fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

func (t *pgTxRepository) ReplaceLines(ctx context.Context, documentID int64, lines []Line) error {
	if _, err := t.db.Exec(ctx, `DELETE FROM document_lines WHERE tenant_id = $1 AND document_id = $2`,
		t.tenant.ID(), documentID); err != nil {
		return fmt.Errorf("clear lines: %w", err)
	}
	for _, l := range lines {
		_, err := t.db.Exec(ctx, `INSERT INTO document_lines (tenant_id, document_id, line_no, product_id, description,
				quantity, unit_price, discount_pct, tax_pct, subtotal, discount_amount, tax_amount, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			t.tenant.ID(), documentID, l.LineNo, l.ProductID, l.Description,
			toNumeric(l.Quantity), toNumeric(l.UnitPrice), toNumeric(l.DiscountPct), toNumeric(l.TaxPct),
			toNumeric(l.Subtotal), toNumeric(l.DiscountAmount), toNumeric(l.TaxAmount), toNumeric(l.Total))
		if err != nil {
			return fmt.Errorf("insert line %d: %w", l.LineNo, err)
		}
	}
	return nil
}

func (t *pgTxRepository) GetForUpdate(ctx context.Context, id int64) (Document, error) {
	return getDocument(ctx, t.db, t.tenant, id, true)
}

func (t *pgTxRepository) UpdateHeader(ctx context.Context, doc Document) error {
	tag, err := t.db.Exec(ctx, `UPDATE documents SET party_id = $3, party_name = $4, currency = $5,
			issue_date = $6, due_date = $7, subtotal = $8, discount_total = $9, tax_total = $10, total = $11,
			balance = $12, notes = $13, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		t.tenant.ID(), doc.ID, doc.PartyID, doc.PartyName, doc.Currency,
		toDate(doc.IssueDate), toDate(doc.DueDate), toNumeric(doc.Subtotal), toNumeric(doc.DiscountTotal),
		toNumeric(doc.TaxTotal), toNumeric(doc.Total), toNumeric(doc.Balance), doc.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (t *pgTxRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.db.Exec(ctx, `UPDATE documents SET status = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		t.tenant.ID(), id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (t *pgTxRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.db.QueryRow(ctx, `INSERT INTO document_payments (tenant_id, document_id, amount, paid_at, method, reference, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		t.tenant.ID(), p.DocumentID, toNumeric(p.Amount), p.PaidAt, p.Method, p.Reference, p.CreatedBy).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (t *pgTxRepository) UpdatePaid(ctx context.Context, id int64, paid, balance decimal.Decimal, status Status) error {
	_, err := t.db.Exec(ctx, `UPDATE documents SET paid = $3, balance = $4, status = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		t.tenant.ID(), id, toNumeric(paid), toNumeric(balance), string(status))
	return err
}

func getDocument(ctx context.Context, q db.Querier, tenant shared.Tenant, id int64, lock bool) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1 AND id = $2`
	if lock {
		query += ` FOR UPDATE`
	}
	doc, err := scanDocument(q.QueryRow(ctx, query, tenant.ID(), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.Lines, err = loadLines(ctx, q, tenant, id)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func loadLines(ctx context.Context, q db.Querier, tenant shared.Tenant, documentID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM document_lines
		WHERE tenant_id = $1 AND document_id = $2 ORDER BY line_no`, tenant.ID(), documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var (
			l                              Line
			qty, price, discPct, taxPct    pgtype.Numeric
			subtotal, discount, tax, total pgtype.Numeric
		)
		if err := rows.Scan(&l.ID, &l.LineNo, &l.ProductID, &l.Description, &qty, &price, &discPct, &taxPct,
			&subtotal, &discount, &tax, &total); err != nil {
			return nil, err
		}
		l.Quantity = fromNumeric(qty)
		l.UnitPrice = fromNumeric(price)
		l.DiscountPct = fromNumeric(discPct)
		l.TaxPct = fromNumeric(taxPct)
		l.Subtotal = fromNumeric(subtotal)
		l.DiscountAmount = fromNumeric(discount)
		l.TaxAmount = fromNumeric(tax)
		l.Total = fromNumeric(total)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		doc                            Document
		kind, status                   string
		issue, due                     pgtype.Date
		subtotal, discount, tax, total pgtype.Numeric
		paid, balance                  pgtype.Numeric
	)
	err := row.Scan(&doc.ID, &kind, &doc.Number, &doc.PartyID, &doc.PartyName, &doc.Currency, &issue, &due,
		&status, &subtotal, &discount, &tax, &total, &paid, &balance, &doc.Notes, &doc.SourceID,
		&doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	doc.Kind = Kind(kind)
	doc.Status = Status(status)
	doc.IssueDate = fromDate(issue)
	doc.DueDate = fromDate(due)
	doc.Subtotal = fromNumeric(subtotal)
	doc.DiscountTotal = fromNumeric(discount)
	doc.TaxTotal = fromNumeric(tax)
	doc.Total = fromNumeric(total)
	doc.Paid = fromNumeric(paid)
	doc.Balance = fromNumeric(balance)
	return doc, nil
}
