package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// MemoryStore is an in-memory MediaStore for tests and single-process
// development runs. It honors the same tenant scoping contract as the
// MySQL backend.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]map[string]MediaRecord
}

var _ MediaStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]map[string]MediaRecord)}
}

func (m *MemoryStore) Create(_ context.Context, rec *MediaRecord) error {
	if err := requireTenant(rec.TenantID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	part, ok := m.tenants[rec.TenantID]
	if !ok {
		part = make(map[string]MediaRecord)
		m.tenants[rec.TenantID] = part
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = timeNow()
	}
	rec.UpdatedAt = timeNow()
	part[rec.ID] = *rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, tenantID, id string) (*MediaRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tenants[tenantID][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) FindCandidates(_ context.Context, tenantID string, tokens []string, filter ListFilter) ([]MediaRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return []MediaRecord{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := []MediaRecord{}
	for _, rec := range m.tenants[tenantID] {
		if !matchesFilter(rec, filter) {
			continue
		}
		if matchesAnyToken(rec, tokens) {
			recs = append(recs, rec)
		}
	}
	sortNewestFirst(recs)
	if filter.Limit > 0 && len(recs) > filter.Limit {
		recs = recs[:filter.Limit]
	}
	return recs, nil
}

func (m *MemoryStore) List(_ context.Context, tenantID string, filter ListFilter) ([]MediaRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := []MediaRecord{}
	for _, rec := range m.tenants[tenantID] {
		if matchesFilter(rec, filter) {
			recs = append(recs, rec)
		}
	}
	sortNewestFirst(recs)
	if filter.Limit > 0 && len(recs) > filter.Limit {
		recs = recs[:filter.Limit]
	}
	return recs, nil
}

func (m *MemoryStore) Delete(_ context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[tenantID][id]; !ok {
		return ErrNotFound
	}
	delete(m.tenants[tenantID], id)
	return nil
}

func (m *MemoryStore) DeleteByTenant(_ context.Context, tenantID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tenants, tenantID)
	return nil
}

func matchesFilter(rec MediaRecord, filter ListFilter) bool {
	if filter.Kind != "" && rec.Kind != filter.Kind {
		return false
	}
	if filter.Album != "" && rec.Album != filter.Album {
		return false
	}
	if !filter.CreatedAfter.IsZero() && rec.CreatedAt.Before(filter.CreatedAfter) {
		return false
	}
	if !filter.CreatedBefore.IsZero() && !rec.CreatedAt.Before(filter.CreatedBefore) {
		return false
	}
	return true
}

func matchesAnyToken(rec MediaRecord, tokens []string) bool {
	filename := strings.ToLower(rec.Filename)
	title := strings.ToLower(rec.Title)
	tags := strings.ToLower(rec.Tags)
	for _, tok := range tokens {
		if strings.Contains(filename, tok) || strings.Contains(title, tok) || strings.Contains(tags, tok) {
			return true
		}
	}
	return false
}

func sortNewestFirst(recs []MediaRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
