package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Store reads audit_logs for one tenant.
type Store interface {
	Window(ctx context.Context, tenant shared.Tenant, f Filters, offset, limit int) ([]Entry, error)
	All(ctx context.Context, tenant shared.Tenant, f Filters) ([]Entry, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore returns the PostgreSQL store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Window(ctx context.Context, tenant shared.Tenant, f Filters, offset, limit int) ([]Entry, error) {
	query, args := buildQuery(tenant, f)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return s.query(ctx, query, args)
}

func (s *pgStore) All(ctx context.Context, tenant shared.Tenant, f Filters) ([]Entry, error) {
	query, args := buildQuery(tenant, f)
	return s.query(ctx, query, args)
}

func (s *pgStore) query(ctx context.Context, query string, args []any) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var meta []byte
		if err := row.Scan(&e.Ref, &e.At, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta); err != nil {
			return Entry{}, err
		}
		if len(meta) > 0 && string(meta) != "{}" {
			e.Meta = meta
		}
		return e, nil
	})
}

// buildQuery renders the filtered select. The tenant predicate is always first.
func buildQuery(tenant shared.Tenant, f Filters) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ref::text, occurred_at, actor_id, action, entity, entity_id, meta
		FROM audit_logs WHERE tenant_id = $1`)
	args := []any{tenant.ID()}
	add := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, " AND "+clause, len(args))
	}
	if !f.From.IsZero() {
		add("occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at < $%d", f.To)
	}
	if f.ActorID > 0 {
		add("actor_id = $%d", f.ActorID)
	}
	if f.Entity != "" {
		add("entity = $%d", f.Entity)
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	sb.WriteString(" ORDER BY occurred_at DESC, id DESC")
	return sb.String(), args
}
