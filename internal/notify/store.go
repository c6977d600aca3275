package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/workdesk/internal/platform/db"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Store persists email templates.
type Store interface {
	Find(ctx context.Context, tenant shared.Tenant, name string) (Template, error)
	List(ctx context.Context, tenant shared.Tenant) ([]Template, error)
	Save(ctx context.Context, tenant shared.Tenant, tmpl Template) (Template, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore returns the PostgreSQL store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Find(ctx context.Context, tenant shared.Tenant, name string) (Template, error) {
	var tmpl Template
	err := s.pool.QueryRow(ctx, `SELECT id, name, description, updated_at FROM email_templates
		WHERE tenant_id = $1 AND name = $2`, tenant.ID(), name).
		Scan(&tmpl.ID, &tmpl.Name, &tmpl.Description, &tmpl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if err != nil {
		return Template{}, err
	}
	tmpl.Contents, err = s.contents(ctx, s.pool, tenant, tmpl.ID)
	return tmpl, err
}

func (s *pgStore) List(ctx context.Context, tenant shared.Tenant) ([]Template, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, updated_at FROM email_templates
		WHERE tenant_id = $1 ORDER BY name`, tenant.ID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		var tmpl Template
		if err := rows.Scan(&tmpl.ID, &tmpl.Name, &tmpl.Description, &tmpl.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, rows.Err()
}

func (s *pgStore) Save(ctx context.Context, tenant shared.Tenant, tmpl Template) (Template, error) {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO email_templates (tenant_id, name, description)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, name) DO UPDATE SET description = EXCLUDED.description, updated_at = NOW()
			RETURNING id, updated_at`, tenant.ID(), tmpl.Name, tmpl.Description).Scan(&tmpl.ID, &tmpl.UpdatedAt)
		if err != nil {
			return err
		}
		for _, c := range tmpl.Contents {
			if _, err := tx.Exec(ctx, `
				INSERT INTO email_template_contents (tenant_id, template_id, locale, subject, body)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (template_id, locale) DO UPDATE SET subject = EXCLUDED.subject, body = EXCLUDED.body`,
				tenant.ID(), tmpl.ID, c.Locale, c.Subject, c.Body); err != nil {
				return fmt.Errorf("save %s content: %w", c.Locale, err)
			}
		}
		return nil
	})
	if err != nil {
		return Template{}, err
	}
	tmpl.Contents, err = s.contents(ctx, s.pool, tenant, tmpl.ID)
	return tmpl, err
}

func (s *pgStore) contents(ctx context.Context, q db.Querier, tenant shared.Tenant, templateID int64) ([]Content, error) {
	rows, err := q.Query(ctx, `SELECT locale, subject, body FROM email_template_contents
		WHERE tenant_id = $1 AND template_id = $2 ORDER BY locale`, tenant.ID(), templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Content
	for rows.Next() {
		var c Content
		if err := rows.Scan(&c.Locale, &c.Subject, &c.Body); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
