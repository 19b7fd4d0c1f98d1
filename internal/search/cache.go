package search

import (
	"sort"
	"sync"
	"time"
)

// timeNow is swapped in tests for deterministic TTL behavior.
var timeNow = time.Now

// CacheConfig configures the query result cache.
type CacheConfig struct {
	// VectorTTL is the base lifetime of vector-provenance entries.
	// Default: 10 minutes.
	VectorTTL time.Duration

	// MetadataTTL is the base lifetime of metadata-provenance entries.
	// Shorter, so degraded results get retried against vector search
	// sooner. Default: 1 minute.
	MetadataTTL time.Duration

	// MaxEntriesPerTenant bounds each tenant partition. Default: 256.
	MaxEntriesPerTenant int

	// HotUsageMin is the usage count at which an entry is considered
	// hot. Hot entries get sliding expiry on access, outliving the
	// base TTL. Default: 3.
	HotUsageMin uint64
}

// ApplyDefaults sets default values for unset fields.
func (c *CacheConfig) ApplyDefaults() {
	if c.VectorTTL == 0 {
		c.VectorTTL = 10 * time.Minute
	}
	if c.MetadataTTL == 0 {
		c.MetadataTTL = time.Minute
	}
	if c.MaxEntriesPerTenant == 0 {
		c.MaxEntriesPerTenant = 256
	}
	if c.HotUsageMin == 0 {
		c.HotUsageMin = 3
	}
}

type cacheEntry struct {
	items      []Item
	provenance Provenance
	ttl        time.Duration

	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
	usage        uint64
}

// cachePartition holds one tenant's entries. Its mutex serializes all
// mutations for that tenant, making invalidate-then-put ordering
// observable per key.
type cachePartition struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// Cache is the tenant-partitioned query result cache. Partitions are
// independent: one tenant's churn never blocks another tenant's reads.
type Cache struct {
	config CacheConfig

	mu         sync.RWMutex
	partitions map[string]*cachePartition
}

// NewCache creates an empty cache.
func NewCache(config CacheConfig) *Cache {
	config.ApplyDefaults()
	return &Cache{
		config:     config,
		partitions: make(map[string]*cachePartition),
	}
}

func (c *Cache) partition(tenantID string, create bool) *cachePartition {
	c.mu.RLock()
	p, ok := c.partitions[tenantID]
	c.mu.RUnlock()
	if ok || !create {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok = c.partitions[tenantID]; ok {
		return p
	}
	p = &cachePartition{entries: make(map[string]*cacheEntry)}
	c.partitions[tenantID] = p
	return p
}

// Get returns the cached items and provenance for the key, or a miss.
// Hits bump the usage count; hot entries also get their expiry slid
// forward so frequently reused queries survive past the base TTL.
func (c *Cache) Get(tenantID, key string) ([]Item, Provenance, bool) {
	p := c.partition(tenantID, false)
	if p == nil {
		cacheMisses.Inc()
		return nil, "", false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[key]
	if !ok {
		cacheMisses.Inc()
		return nil, "", false
	}

	now := timeNow()
	if now.After(entry.expiresAt) {
		delete(p.entries, key)
		cacheMisses.Inc()
		return nil, "", false
	}

	entry.usage++
	entry.lastAccessed = now
	if entry.usage >= c.config.HotUsageMin {
		entry.expiresAt = now.Add(entry.ttl)
	}

	cacheHits.Inc()
	items := make([]Item, len(entry.items))
	copy(items, entry.items)
	return items, entry.provenance, true
}

// Put stores a result set under the key with the provenance-specific
// TTL, evicting a cold entry if the partition is full.
func (c *Cache) Put(tenantID, key string, items []Item, provenance Provenance) {
	p := c.partition(tenantID, true)

	ttl := c.config.VectorTTL
	if provenance == ProvenanceMetadata {
		ttl = c.config.MetadataTTL
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[key]; !exists && len(p.entries) >= c.config.MaxEntriesPerTenant {
		c.evictColdLocked(p)
	}

	now := timeNow()
	stored := make([]Item, len(items))
	copy(stored, items)
	p.entries[key] = &cacheEntry{
		items:        stored,
		provenance:   provenance,
		ttl:          ttl,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
	}
}

// evictColdLocked removes the least-recently-used entry among those
// with usage below the partition median. When every entry sits at the
// median (uniform usage), it falls back to plain LRU so the partition
// still makes room.
func (c *Cache) evictColdLocked(p *cachePartition) {
	if len(p.entries) == 0 {
		return
	}

	usages := make([]uint64, 0, len(p.entries))
	for _, e := range p.entries {
		usages = append(usages, e.usage)
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i] < usages[j] })
	median := usages[len(usages)/2]

	var victimKey string
	var victim *cacheEntry
	for k, e := range p.entries {
		if e.usage >= median {
			continue
		}
		if victim == nil || e.lastAccessed.Before(victim.lastAccessed) {
			victimKey, victim = k, e
		}
	}
	if victim == nil {
		for k, e := range p.entries {
			if victim == nil || e.lastAccessed.Before(victim.lastAccessed) {
				victimKey, victim = k, e
			}
		}
	}

	delete(p.entries, victimKey)
	cacheEvictions.Inc()
}

// Invalidate removes one key from the tenant's partition.
func (c *Cache) Invalidate(tenantID, key string) {
	p := c.partition(tenantID, false)
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
}

// InvalidateTenant drops the tenant's entire partition. Called by the
// upload and delete paths whenever the tenant's media set changes.
func (c *Cache) InvalidateTenant(tenantID string) {
	p := c.partition(tenantID, false)
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[string]*cacheEntry)
}

// Len reports the number of live entries for a tenant. Test helper.
func (c *Cache) Len(tenantID string) int {
	p := c.partition(tenantID, false)
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
