package governor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mediad/internal/tenant"
)

// fakeClock pins timeNow for deterministic bucket behavior.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func withFakeClock(t *testing.T) *fakeClock {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	orig := timeNow
	timeNow = clock.Now
	t.Cleanup(func() { timeNow = orig })
	return clock
}

func tenantCtx(id string, quota tenant.Quota) context.Context {
	return tenant.ContextWithTenant(context.Background(), &tenant.Info{
		TenantID: id,
		Quota:    quota,
	})
}

func TestGovernor_AdmitWithinCapacity(t *testing.T) {
	withFakeClock(t)
	g := New(Config{}, zap.NewNop())
	ctx := tenantCtx("acct-1", tenant.Quota{SearchesPerMinute: 5})

	for i := 0; i < 5; i++ {
		d, err := g.Admit(ctx, ResourceSearch)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should be admitted", i+1)
	}
}

// Exactly one denial past capacity, with a positive computed retry-after.
func TestGovernor_DeniesPastCapacity(t *testing.T) {
	withFakeClock(t)
	g := New(Config{}, zap.NewNop())
	ctx := tenantCtx("acct-1", tenant.Quota{SearchesPerMinute: 3})

	denied := 0
	var retryAfter time.Duration
	for i := 0; i < 4; i++ {
		d, err := g.Admit(ctx, ResourceSearch)
		require.NoError(t, err)
		if !d.Allowed {
			denied++
			retryAfter = d.RetryAfter
		}
	}

	assert.Equal(t, 1, denied)
	assert.Positive(t, retryAfter)
}

// Retry-after shrinks monotonically as real time elapses between denials.
func TestGovernor_RetryAfterShrinks(t *testing.T) {
	clock := withFakeClock(t)
	g := New(Config{}, zap.NewNop())
	ctx := tenantCtx("acct-1", tenant.Quota{SearchesPerMinute: 1})

	d, err := g.Admit(ctx, ResourceSearch)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	first, err := g.Admit(ctx, ResourceSearch)
	require.NoError(t, err)
	require.False(t, first.Allowed)
	require.Positive(t, first.RetryAfter)

	clock.Advance(10 * time.Second)

	second, err := g.Admit(ctx, ResourceSearch)
	require.NoError(t, err)
	require.False(t, second.Allowed)
	assert.Less(t, second.RetryAfter, first.RetryAfter)
}

// Refill is continuous: after enough elapsed time a denied tenant is
// admitted again without waiting for a window boundary.
func TestGovernor_ContinuousRefill(t *testing.T) {
	clock := withFakeClock(t)
	g := New(Config{}, zap.NewNop())
	ctx := tenantCtx("acct-1", tenant.Quota{SearchesPerMinute: 60}) // 1 token/sec

	for i := 0; i < 60; i++ {
		d, err := g.Admit(ctx, ResourceSearch)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := g.Admit(ctx, ResourceSearch)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	clock.Advance(1500 * time.Millisecond)

	d, err = g.Admit(ctx, ResourceSearch)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

// Buckets are separate per resource kind: exhausting uploads must not
// affect search admission.
func TestGovernor_ResourceKindsIndependent(t *testing.T) {
	withFakeClock(t)
	g := New(Config{}, zap.NewNop())
	ctx := tenantCtx("acct-1", tenant.Quota{SearchesPerMinute: 10, UploadsPerMinute: 1})

	d, err := g.Admit(ctx, ResourceUpload)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = g.Admit(ctx, ResourceUpload)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = g.Admit(ctx, ResourceSearch)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "search bucket must be unaffected by upload exhaustion")
}

// One tenant hitting its quota must not consume another tenant's tokens.
func TestGovernor_TenantsIndependent(t *testing.T) {
	withFakeClock(t)
	g := New(Config{}, zap.NewNop())
	ctxA := tenantCtx("acct-a", tenant.Quota{SearchesPerMinute: 1})
	ctxB := tenantCtx("acct-b", tenant.Quota{SearchesPerMinute: 1})

	d, err := g.Admit(ctxA, ResourceSearch)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = g.Admit(ctxA, ResourceSearch)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = g.Admit(ctxB, ResourceSearch)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestGovernor_MissingTenantFailsClosed(t *testing.T) {
	g := New(Config{}, zap.NewNop())
	_, err := g.Admit(context.Background(), ResourceSearch)
	assert.ErrorIs(t, err, tenant.ErrMissingTenant)
}

func TestGovernor_StorageByteLedger(t *testing.T) {
	withFakeClock(t)
	g := New(Config{}, zap.NewNop())
	ctx := tenantCtx("acct-1", tenant.Quota{
		StorageWritesPerMinute: 100,
		MaxStorageBytes:        1000,
	})

	d, err := g.AdmitStorageBytes(ctx, 600)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = g.AdmitStorageBytes(ctx, 600)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "write past byte cap must be denied")
	assert.Zero(t, d.RetryAfter, "capacity denial has no refill to wait for")

	require.NoError(t, g.ReleaseStorageBytes(ctx, 300))
	d, err = g.AdmitStorageBytes(ctx, 600)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "write must be admitted after space is freed")
}

// Under tenant-count pressure the oldest bucket state is dropped and later
// recreated full - the documented approximation.
func TestGovernor_PressureEvictionRecreatesFull(t *testing.T) {
	clock := withFakeClock(t)
	g := New(Config{MaxTenants: 2}, zap.NewNop())

	ctxA := tenantCtx("acct-a", tenant.Quota{SearchesPerMinute: 1})
	d, err := g.Admit(ctxA, ResourceSearch)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = g.Admit(ctxA, ResourceSearch)
	require.NoError(t, err)
	require.False(t, d.Allowed) // acct-a now empty

	clock.Advance(time.Second)
	_, err = g.Admit(tenantCtx("acct-b", tenant.Quota{}), ResourceSearch)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = g.Admit(tenantCtx("acct-c", tenant.Quota{}), ResourceSearch) // evicts acct-a
	require.NoError(t, err)

	d, err = g.Admit(ctxA, ResourceSearch)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "recreated bucket starts full")
}

func TestGovernor_UnknownResource(t *testing.T) {
	withFakeClock(t)
	g := New(Config{}, zap.NewNop())
	_, err := g.Admit(tenantCtx("acct-1", tenant.Quota{}), Resource("bogus"))
	assert.Error(t, err)
}
