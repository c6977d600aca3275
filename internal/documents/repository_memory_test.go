package documents

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/workdesk/internal/numbering"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

type memoryDoc struct {
	tenant int64
	doc    Document
}

type memoryRepo struct {
	mu        sync.Mutex
	docs      map[int64]memoryDoc
	payments  map[int64][]Payment
	sequencer numbering.Sequencer
	nextID    int64
	nextPayID int64
	txCount   int
	// conflicts fails that many commits with ErrConcurrentUpdate.
	conflicts int
}

type memoryTx struct {
	repo   *memoryRepo
	tenant shared.Tenant
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		docs:      make(map[int64]memoryDoc),
		payments:  make(map[int64][]Payment),
		sequencer: numbering.NewMemorySequencer(),
	}
}

// WithTx runs fn under the repository lock and restores state when fn fails.
func (r *memoryRepo) WithTx(ctx context.Context, tenant shared.Tenant, fn func(context.Context, TxRepository) error) error {
	if tenant.IsZero() {
		return shared.ErrInvalidTenant
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txCount++

	docs := make(map[int64]memoryDoc, len(r.docs))
	for k, v := range r.docs {
		docs[k] = v
	}
	payments := make(map[int64][]Payment, len(r.payments))
	for k, v := range r.payments {
		payments[k] = append([]Payment(nil), v...)
	}
	nextID, nextPayID := r.nextID, r.nextPayID
	var seqSnap map[numbering.Key]int64
	mem, isMem := r.sequencer.(*numbering.MemorySequencer)
	if isMem {
		seqSnap = mem.Snapshot()
	}

	err := fn(ctx, &memoryTx{repo: r, tenant: tenant})
	if err == nil && r.conflicts > 0 {
		r.conflicts--
		err = fmt.Errorf("%w: simulated serialization failure", ErrConcurrentUpdate)
	}
	if err != nil {
		r.docs, r.payments = docs, payments
		r.nextID, r.nextPayID = nextID, nextPayID
		if isMem {
			mem.Restore(seqSnap)
		}
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, tenant shared.Tenant, id int64) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(tenant, id)
}

func (r *memoryRepo) get(tenant shared.Tenant, id int64) (Document, error) {
	row, ok := r.docs[id]
	if !ok || row.tenant != tenant.ID() {
		return Document{}, ErrDocumentNotFound
	}
	doc := row.doc
	doc.Lines = append([]Line(nil), row.doc.Lines...)
	return doc, nil
}

func (r *memoryRepo) List(ctx context.Context, tenant shared.Tenant, filter ListFilter, now time.Time) ([]Document, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Document
	for _, row := range r.docs {
		doc := row.doc
		if row.tenant != tenant.ID() {
			continue
		}
		if filter.Kind != "" && doc.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, doc.Status) {
			continue
		}
		if filter.PartyID != 0 && doc.PartyID != filter.PartyID {
			continue
		}
		if !filter.From.IsZero() && doc.IssueDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && doc.IssueDate.After(filter.To) {
			continue
		}
		if filter.Overdue && (doc.DueDate.IsZero() || !doc.DueDate.Before(now) || IsTerminal(doc.Kind, doc.Status)) {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (r *memoryRepo) ListPayments(ctx context.Context, tenant shared.Tenant, documentID int64) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(tenant, documentID); err != nil {
		return nil, err
	}
	return append([]Payment(nil), r.payments[documentID]...), nil
}

func (r *memoryRepo) FindBySource(ctx context.Context, tenant shared.Tenant, kind Kind, sourceID int64) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.docs {
		if row.tenant == tenant.ID() && row.doc.Kind == kind && row.doc.SourceID != nil && *row.doc.SourceID == sourceID {
			return row.doc, nil
		}
	}
	return Document{}, ErrDocumentNotFound
}

// seed stores doc directly, bypassing numbering, as a legacy import would.
func (r *memoryRepo) seed(tenant shared.Tenant, doc Document) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc.ID = r.nextID
	r.docs[doc.ID] = memoryDoc{tenant: tenant.ID(), doc: doc}
	return doc.ID
}

func (t *memoryTx) Sequencer() numbering.Sequencer { return t.repo.sequencer }

func (t *memoryTx) NumbersWithPrefix(ctx context.Context, kind Kind, prefix string) ([]string, error) {
	var out []string
	for _, row := range t.repo.docs {
		if row.tenant == t.tenant.ID() && row.doc.Kind == kind && strings.HasPrefix(row.doc.Number, prefix) {
			out = append(out, row.doc.Number)
		}
	}
	return out, nil
}

func (t *memoryTx) Insert(ctx context.Context, doc Document) (int64, error) {
	for _, row := range t.repo.docs {
		if row.tenant == t.tenant.ID() && row.doc.Kind == doc.Kind && row.doc.Number == doc.Number {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateNumber, doc.Number)
		}
		if doc.SourceID != nil && row.tenant == t.tenant.ID() && row.doc.Kind == doc.Kind &&
			row.doc.SourceID != nil && *row.doc.SourceID == *doc.SourceID {
			return 0, ErrAlreadyConverted
		}
	}
	t.repo.nextID++
	doc.ID = t.repo.nextID
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	doc.Lines = nil
	t.repo.docs[doc.ID] = memoryDoc{tenant: t.tenant.ID(), doc: doc}
	return doc.ID, nil
}

func (t *memoryTx) ReplaceLines(ctx context.Context, documentID int64, lines []Line) error {
	row, ok := t.repo.docs[documentID]
	if !ok || row.tenant != t.tenant.ID() {
		return ErrDocumentNotFound
	}
	stored := make([]Line, len(lines))
	for i, l := range lines {
		l.ID = int64(i + 1)
		stored[i] = l
	}
	row.doc.Lines = stored
	t.repo.docs[documentID] = row
	return nil
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (Document, error) {
	return t.repo.get(t.tenant, id)
}

func (t *memoryTx) UpdateHeader(ctx context.Context, doc Document) error {
	row, ok := t.repo.docs[doc.ID]
	if !ok || row.tenant != t.tenant.ID() {
		return ErrDocumentNotFound
	}
	lines := row.doc.Lines
	row.doc = doc
	row.doc.Lines = lines
	row.doc.UpdatedAt = time.Now()
	t.repo.docs[doc.ID] = row
	return nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	row, ok := t.repo.docs[id]
	if !ok || row.tenant != t.tenant.ID() {
		return ErrDocumentNotFound
	}
	row.doc.Status = status
	t.repo.docs[id] = row
	return nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	t.repo.nextPayID++
	p.ID = t.repo.nextPayID
	t.repo.payments[p.DocumentID] = append(t.repo.payments[p.DocumentID], p)
	return p.ID, nil
}

func (t *memoryTx) UpdatePaid(ctx context.Context, id int64, paid, balance decimal.Decimal, status Status) error {
	row, ok := t.repo.docs[id]
	if !ok || row.tenant != t.tenant.ID() {
		return ErrDocumentNotFound
	}
	row.doc.Paid, row.doc.Balance, row.doc.Status = paid, balance, status
	t.repo.docs[id] = row
	return nil
}

type memoryAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *memoryAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]struct{})}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, tenant shared.Tenant, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tenant.String() + "|" + module + "|" + key
	if _, ok := m.keys[k]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, tenant shared.Tenant, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, tenant.String()+"|"+module+"|"+key)
	return nil
}
