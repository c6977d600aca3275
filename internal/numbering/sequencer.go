package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/workdesk/internal/platform/db"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Key selects one counter row.
type Key struct {
	Tenant shared.Tenant
	Prefix string
	Period string
}

// KeyFor builds the counter key for a prefix at date.
func KeyFor(tenant shared.Tenant, prefix string, date time.Time) Key {
	return Key{Tenant: tenant, Prefix: prefix, Period: Period(date)}
}

// Sequencer hands out monotonically increasing sequence values.
type Sequencer interface {
	Next(ctx context.Context, key Key) (int64, error)
	Reseed(ctx context.Context, key Key, floor int64) error
	Current(ctx context.Context, key Key) (int64, error)
}

// PGSequencer keeps counters in document_sequences. Bind it to a transaction
// so the increment commits or rolls back together with the document insert.
type PGSequencer struct {
	db db.Querier
}

// NewPGSequencer wraps a pool or transaction.
func NewPGSequencer(q db.Querier) *PGSequencer {
	return &PGSequencer{db: q}
}

// Next increments and returns the counter, creating it at 1.
func (s *PGSequencer) Next(ctx context.Context, key Key) (int64, error) {
	var seq int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO document_sequences (tenant_id, doc_type, period, seq)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, key.Tenant.ID(), key.Prefix, key.Period).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("numbering: next %s %s: %w", key.Prefix, key.Period, err)
	}
	return seq, nil
}

// Reseed raises the counter to at least floor. It never lowers it.
func (s *PGSequencer) Reseed(ctx context.Context, key Key, floor int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO document_sequences (tenant_id, doc_type, period, seq)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, doc_type, period)
		DO UPDATE SET seq = GREATEST(document_sequences.seq, EXCLUDED.seq)
	`, key.Tenant.ID(), key.Prefix, key.Period, floor)
	if err != nil {
		return fmt.Errorf("numbering: reseed %s %s: %w", key.Prefix, key.Period, err)
	}
	return nil
}

// Current returns the last issued value, 0 when the period has none.
func (s *PGSequencer) Current(ctx context.Context, key Key) (int64, error) {
	var seq int64
	err := s.db.QueryRow(ctx, `
		SELECT seq FROM document_sequences
		WHERE tenant_id = $1 AND doc_type = $2 AND period = $3
	`, key.Tenant.ID(), key.Prefix, key.Period).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("numbering: current %s %s: %w", key.Prefix, key.Period, err)
	}
	return seq, nil
}
