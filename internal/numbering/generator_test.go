package numbering

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/workdesk/internal/shared"
)

func mustTenant(t *testing.T, id int64) shared.Tenant {
	t.Helper()
	tenant, err := shared.TenantFromID(id)
	require.NoError(t, err)
	return tenant
}

func TestGeneratorSequencePerPeriod(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(NewMemorySequencer())
	tenant := mustTenant(t, 7)

	may := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)
	june := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	first, err := gen.Next(ctx, tenant, "SI", may)
	require.NoError(t, err)
	second, err := gen.Next(ctx, tenant, "SI", may)
	require.NoError(t, err)
	nextMonth, err := gen.Next(ctx, tenant, "SI", june)
	require.NoError(t, err)

	assert.Equal(t, "SI-2024-05-001", first)
	assert.Equal(t, "SI-2024-05-002", second)
	assert.Equal(t, "SI-2024-06-001", nextMonth)
}

func TestGeneratorIsolatesTenantsAndPrefixes(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(NewMemorySequencer())
	may := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)

	_, err := gen.Next(ctx, mustTenant(t, 1), "SI", may)
	require.NoError(t, err)
	_, err = gen.Next(ctx, mustTenant(t, 1), "SI", may)
	require.NoError(t, err)

	other, err := gen.Next(ctx, mustTenant(t, 2), "SI", may)
	require.NoError(t, err)
	purchase, err := gen.Next(ctx, mustTenant(t, 1), "PI", may)
	require.NoError(t, err)

	assert.Equal(t, "SI-2024-05-001", other)
	assert.Equal(t, "PI-2024-05-001", purchase)
}

func TestGeneratorReseedAndPeek(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(NewMemorySequencer())
	tenant := mustTenant(t, 3)
	may := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)

	peek, err := gen.Peek(ctx, tenant, "SI", may)
	require.NoError(t, err)
	assert.Equal(t, "SI-2024-05-001", peek)

	require.NoError(t, gen.Reseed(ctx, tenant, "SI", may, []string{"SI-2024-05-014", "SI-2024-05-003"}))
	next, err := gen.Next(ctx, tenant, "SI", may)
	require.NoError(t, err)
	assert.Equal(t, "SI-2024-05-015", next)

	// reseeding below the counter keeps it
	require.NoError(t, gen.Reseed(ctx, tenant, "SI", may, []string{"SI-2024-05-002"}))
	next, err = gen.Next(ctx, tenant, "SI", may)
	require.NoError(t, err)
	assert.Equal(t, "SI-2024-05-016", next)
}

func TestGeneratorConcurrentCallsAreUnique(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(NewMemorySequencer())
	tenant := mustTenant(t, 9)
	may := time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)

	const workers = 50
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := gen.Next(ctx, tenant, "SI", may)
			assert.NoError(t, err)
			mu.Lock()
			seen[number] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers)
}
