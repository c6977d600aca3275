// Package settings serves per-tenant configuration such as the company name.
package settings

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/workdesk/internal/platform/cache"
	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Well-known setting keys.
const (
	KeyCompanyName  = "company_name"
	KeyCompanyEmail = "company_email"
	KeyLocale       = "locale"
	KeySMTPFrom     = "smtp_from"
)

// ErrInvalidKey rejects empty or oversized keys.
var ErrInvalidKey = fmt.Errorf("%w: invalid setting key", httpx.ErrValidation)

// Service reads settings through a Redis cache, collapsing concurrent misses.
type Service struct {
	store Store
	cache *cache.JSONCache
	group singleflight.Group
}

// NewService constructs a Service. cache may be nil.
func NewService(store Store, cache *cache.JSONCache) *Service {
	return &Service{store: store, cache: cache}
}

// All returns every setting of tenant.
func (s *Service) All(ctx context.Context, tenant shared.Tenant) (map[string]string, error) {
	key := s.cacheKey(tenant)
	v, err, _ := s.group.Do(key, func() (any, error) {
		out := map[string]string{}
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.store.All(ctx, tenant)
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	src := v.(map[string]string)
	out := make(map[string]string, len(src))
	for k, val := range src {
		out[k] = val
	}
	return out, nil
}

// Get returns one setting and whether it exists.
func (s *Service) Get(ctx context.Context, tenant shared.Tenant, key string) (string, bool, error) {
	all, err := s.All(ctx, tenant)
	if err != nil {
		return "", false, err
	}
	v, ok := all[key]
	return v, ok, nil
}

// CompanyName returns the tenant's company_name setting or "".
func (s *Service) CompanyName(ctx context.Context, tenant shared.Tenant) (string, error) {
	v, _, err := s.Get(ctx, tenant, KeyCompanyName)
	return v, err
}

// Set stores a setting and drops the cached copy.
func (s *Service) Set(ctx context.Context, tenant shared.Tenant, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 64 {
		return ErrInvalidKey
	}
	if err := s.store.Set(ctx, tenant, key, value); err != nil {
		return err
	}
	return s.cache.Delete(ctx, s.cacheKey(tenant))
}

// ListTenants returns every tenant that has settings.
func (s *Service) ListTenants(ctx context.Context) ([]shared.Tenant, error) {
	ids, err := s.store.Tenants(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]shared.Tenant, 0, len(ids))
	for _, id := range ids {
		tenant, err := shared.TenantFromID(id)
		if err != nil {
			continue
		}
		out = append(out, tenant)
	}
	return out, nil
}

func (s *Service) cacheKey(tenant shared.Tenant) string {
	return s.cache.Key("tenant", tenant.String())
}
