// Package governor enforces per-tenant resource quotas so that one tenant
// cannot starve others. Each (tenant, resource) pair gets its own token
// bucket with continuous refill; admission is a fast, local, lock-protected
// operation that never touches I/O.
package governor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/mediad/internal/tenant"
)

// timeNow is swapped in tests for clock control.
var timeNow = time.Now

// Resource identifies a governed resource kind. Buckets are separate per
// kind so heavy uploads cannot starve a tenant's ability to search.
type Resource string

const (
	ResourceSearch       Resource = "search"
	ResourceUpload       Resource = "upload"
	ResourceStorageWrite Resource = "storage_write"
)

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed is true when a token was consumed and the operation may proceed.
	Allowed bool

	// RetryAfter is how long the caller should wait before retrying a denied
	// request. Computed from the bucket's refill rate and current deficit,
	// never a fixed constant. Zero when Allowed.
	RetryAfter time.Duration
}

// QuotaError is returned by callers that convert a denied Decision into an
// error. It carries enough information for an HTTP layer to emit a 429 with
// a Retry-After header.
type QuotaError struct {
	Resource   Resource
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded for %s, retry after %s", e.Resource, e.RetryAfter)
}

// Config holds governor configuration.
type Config struct {
	// DefaultQuota applies to tenants whose own quota fields are zero.
	DefaultQuota tenant.Quota

	// MaxTenants bounds the number of tenants with live bucket state.
	// When exceeded, the least recently seen tenant's buckets are dropped
	// and recreated full on next use. This resets that tenant's deficit,
	// which is an accepted approximation, not a correctness bug.
	MaxTenants int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.DefaultQuota.SearchesPerMinute == 0 {
		c.DefaultQuota.SearchesPerMinute = 60
	}
	if c.DefaultQuota.UploadsPerMinute == 0 {
		c.DefaultQuota.UploadsPerMinute = 20
	}
	if c.DefaultQuota.StorageWritesPerMinute == 0 {
		c.DefaultQuota.StorageWritesPerMinute = 60
	}
	if c.DefaultQuota.MaxStorageBytes == 0 {
		c.DefaultQuota.MaxStorageBytes = 10 << 30 // 10 GiB
	}
	if c.MaxTenants == 0 {
		c.MaxTenants = 10_000
	}
}

// buckets is the per-tenant bucket set. Buckets persist for the tenant
// lifetime (or until pressure eviction); quota state is in-memory only and
// resets on process restart.
type buckets struct {
	limiters     map[Resource]*rate.Limiter
	storageBytes int64
	maxBytes     int64
	lastSeen     time.Time
}

// Governor tracks and enforces per-tenant quotas.
type Governor struct {
	config  Config
	logger  *zap.Logger
	metrics *Metrics

	mu      sync.Mutex
	tenants map[string]*buckets
}

// New creates a Governor.
func New(config Config, logger *zap.Logger) *Governor {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	return &Governor{
		config:  config,
		logger:  logger,
		metrics: NewMetrics(),
		tenants: make(map[string]*buckets),
	}
}

// Admit checks and consumes one token for the given resource. The tenant is
// taken from the request context - fail closed, a request without tenant
// identity is never admitted.
//
// Admit is atomic: two concurrent requests cannot both succeed when only one
// token remains.
func (g *Governor) Admit(ctx context.Context, res Resource) (Decision, error) {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return Decision{}, err
	}
	if err := info.Validate(); err != nil {
		return Decision{}, err
	}

	now := timeNow()

	g.mu.Lock()
	b := g.bucketsForLocked(info, now)
	lim, ok := b.limiters[res]
	g.mu.Unlock()
	if !ok {
		return Decision{}, fmt.Errorf("unknown resource kind: %s", res)
	}

	if lim.AllowN(now, 1) {
		g.metrics.RecordAdmission(res, true)
		return Decision{Allowed: true}, nil
	}

	// Compute retry-after from the bucket's actual deficit, then hand the
	// reservation back so the denied request consumes nothing.
	r := lim.ReserveN(now, 1)
	retryAfter := r.DelayFrom(now)
	r.CancelAt(now)

	g.metrics.RecordAdmission(res, false)
	g.logger.Debug("admission denied",
		zap.String("tenant_id", info.TenantID),
		zap.String("resource", string(res)),
		zap.Duration("retry_after", retryAfter))

	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

// AdmitStorageBytes admits a storage write of n bytes: it consumes one
// storage-write token and checks the tenant's cumulative byte ledger against
// the configured cap. On denial nothing is consumed or recorded.
func (g *Governor) AdmitStorageBytes(ctx context.Context, n int64) (Decision, error) {
	if n < 0 {
		return Decision{}, fmt.Errorf("negative byte count: %d", n)
	}
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return Decision{}, err
	}
	if err := info.Validate(); err != nil {
		return Decision{}, err
	}

	now := timeNow()

	g.mu.Lock()
	defer g.mu.Unlock()

	b := g.bucketsForLocked(info, now)
	if b.storageBytes+n > b.maxBytes {
		g.metrics.RecordAdmission(ResourceStorageWrite, false)
		// A capacity denial has no refill to wait for; only freeing space
		// helps, so no retry-after hint is given.
		return Decision{Allowed: false}, nil
	}

	lim := b.limiters[ResourceStorageWrite]
	if !lim.AllowN(now, 1) {
		r := lim.ReserveN(now, 1)
		retryAfter := r.DelayFrom(now)
		r.CancelAt(now)
		g.metrics.RecordAdmission(ResourceStorageWrite, false)
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	b.storageBytes += n
	g.metrics.RecordAdmission(ResourceStorageWrite, true)
	return Decision{Allowed: true}, nil
}

// ReleaseStorageBytes credits n bytes back to the tenant's ledger after a
// delete. The ledger never goes below zero.
func (g *Governor) ReleaseStorageBytes(ctx context.Context, n int64) error {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.tenants[info.TenantID]
	if !ok {
		return nil
	}
	b.storageBytes -= n
	if b.storageBytes < 0 {
		b.storageBytes = 0
	}
	return nil
}

// bucketsForLocked returns the tenant's bucket set, creating it lazily with
// a full bucket on first request. Caller must hold g.mu.
func (g *Governor) bucketsForLocked(info *tenant.Info, now time.Time) *buckets {
	if b, ok := g.tenants[info.TenantID]; ok {
		b.lastSeen = now
		return b
	}

	if len(g.tenants) >= g.config.MaxTenants {
		g.evictOldestLocked()
	}

	q := g.effectiveQuota(info.Quota)
	b := &buckets{
		limiters: map[Resource]*rate.Limiter{
			ResourceSearch:       newMinuteLimiter(q.SearchesPerMinute),
			ResourceUpload:       newMinuteLimiter(q.UploadsPerMinute),
			ResourceStorageWrite: newMinuteLimiter(q.StorageWritesPerMinute),
		},
		maxBytes: q.MaxStorageBytes,
		lastSeen: now,
	}
	g.tenants[info.TenantID] = b
	g.metrics.SetTrackedTenants(len(g.tenants))
	return b
}

// newMinuteLimiter builds a token bucket with capacity perMinute and a
// continuous refill of perMinute/60 tokens per second. Continuous refill
// avoids thundering-herd admission at window boundaries.
func newMinuteLimiter(perMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
}

// effectiveQuota fills zero fields from the configured defaults.
func (g *Governor) effectiveQuota(q tenant.Quota) tenant.Quota {
	d := g.config.DefaultQuota
	if q.SearchesPerMinute == 0 {
		q.SearchesPerMinute = d.SearchesPerMinute
	}
	if q.UploadsPerMinute == 0 {
		q.UploadsPerMinute = d.UploadsPerMinute
	}
	if q.StorageWritesPerMinute == 0 {
		q.StorageWritesPerMinute = d.StorageWritesPerMinute
	}
	if q.MaxStorageBytes == 0 {
		q.MaxStorageBytes = d.MaxStorageBytes
	}
	return q
}

// evictOldestLocked drops the least recently seen tenant's buckets. That
// tenant's next request recreates them full. Caller must hold g.mu.
func (g *Governor) evictOldestLocked() {
	var oldestID string
	var oldestTime time.Time
	first := true
	for id, b := range g.tenants {
		if first || b.lastSeen.Before(oldestTime) {
			oldestID = id
			oldestTime = b.lastSeen
			first = false
		}
	}
	if oldestID != "" {
		delete(g.tenants, oldestID)
		g.metrics.RecordEviction()
		g.metrics.SetTrackedTenants(len(g.tenants))
		g.logger.Debug("evicted tenant bucket state under pressure",
			zap.String("tenant_id", oldestID))
	}
}
