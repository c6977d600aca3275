package settings

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Store persists tenant settings as key/value pairs.
type Store interface {
	All(ctx context.Context, tenant shared.Tenant) (map[string]string, error)
	Set(ctx context.Context, tenant shared.Tenant, key, value string) error
	Tenants(ctx context.Context) ([]int64, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore returns the PostgreSQL store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) All(ctx context.Context, tenant shared.Tenant) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM tenant_settings WHERE tenant_id = $1`, tenant.ID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *pgStore) Set(ctx context.Context, tenant shared.Tenant, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_settings (tenant_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		tenant.ID(), key, value)
	return err
}

func (s *pgStore) Tenants(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM tenant_settings ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
