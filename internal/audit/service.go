package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Service pages and exports the audit timeline.
type Service struct {
	store Store
}

// NewService builds the timeline service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Timeline loads one page. It fetches one extra row to detect a next page.
func (s *Service) Timeline(ctx context.Context, tenant shared.Tenant, filters Filters) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, errors.New("audit: store not configured")
	}
	f := filters.normalized()
	rows, err := s.store.Window(ctx, tenant, f, f.offset(), f.PageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > f.PageSize
	if hasNext {
		rows = rows[:f.PageSize]
	}
	paging := Paging{Page: f.Page, PageSize: f.PageSize, HasNext: hasNext}
	if f.Page > 1 {
		paging.PrevPage = f.Page - 1
	}
	if hasNext {
		paging.NextPage = f.Page + 1
	}
	if rows == nil {
		rows = []Entry{}
	}
	return Result{Entries: rows, Paging: paging}, nil
}

// Export loads every matching row.
func (s *Service) Export(ctx context.Context, tenant shared.Tenant, filters Filters) ([]Entry, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("audit: store not configured")
	}
	return s.store.All(ctx, tenant, filters)
}

var csvHeader = []string{"at", "actor_id", "action", "entity", "entity_id", "ref"}

// WriteCSV encodes entries in timeline order, newest first.
func WriteCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		record := []string{
			e.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.ActorID, 10),
			e.Action,
			e.Entity,
			e.EntityID,
			e.Ref,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("audit: write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("audit: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
