package settings

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/workdesk/internal/platform/cache"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

type memoryStore struct {
	mu    sync.Mutex
	data  map[int64]map[string]string
	reads atomic.Int32
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[int64]map[string]string)}
}

func (m *memoryStore) All(ctx context.Context, tenant shared.Tenant) (map[string]string, error) {
	m.reads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.data[tenant.ID()] {
		out[k] = v
	}
	return out, nil
}

func (m *memoryStore) Set(ctx context.Context, tenant shared.Tenant, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[tenant.ID()] == nil {
		m.data[tenant.ID()] = map[string]string{}
	}
	m.data[tenant.ID()][key] = value
	return nil
}

func (m *memoryStore) Tenants(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func newService(t *testing.T) (*Service, *memoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := newMemoryStore()
	return NewService(store, cache.NewJSONCache(client, "settings", time.Minute)), store, mr
}

func tenantOf(t *testing.T, id int64) shared.Tenant {
	t.Helper()
	tenant, err := shared.TenantFromID(id)
	require.NoError(t, err)
	return tenant
}

func TestCompanyNameCachedAndInvalidated(t *testing.T) {
	svc, store, mr := newService(t)
	ctx := context.Background()
	tenant := tenantOf(t, 7)

	name, err := svc.CompanyName(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, svc.Set(ctx, tenant, KeyCompanyName, "Acme Ltd"))
	assert.False(t, mr.Exists("settings:tenant:7"))

	name, err = svc.CompanyName(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", name)
	_, err = svc.CompanyName(ctx, tenant)
	require.NoError(t, err)

	assert.Equal(t, int32(2), store.reads.Load())
	assert.True(t, mr.Exists("settings:tenant:7"))
}

func TestSettingsAreTenantScoped(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, tenantOf(t, 1), KeyLocale, "id"))

	_, ok, err := svc.Get(ctx, tenantOf(t, 2), KeyLocale)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := svc.Get(ctx, tenantOf(t, 1), KeyLocale)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "id", v)

	tenants, err := svc.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, int64(1), tenants[0].ID())
}

func TestSetRejectsInvalidKey(t *testing.T) {
	svc, _, _ := newService(t)
	err := svc.Set(context.Background(), tenantOf(t, 1), "  ", "x")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestServiceWithoutCache(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, tenantOf(t, 3), KeyCompanyName, "Initech"))
	name, err := svc.CompanyName(ctx, tenantOf(t, 3))
	require.NoError(t, err)
	assert.Equal(t, "Initech", name)
}

func TestAllReturnsCopy(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	tenant := tenantOf(t, 5)
	require.NoError(t, svc.Set(ctx, tenant, KeyLocale, "en"))
	all, err := svc.All(ctx, tenant)
	require.NoError(t, err)
	all[KeyLocale] = "mutated"
	v, _, err := svc.Get(ctx, tenant, KeyLocale)
	require.NoError(t, err)
	assert.Equal(t, "en", v)
}
