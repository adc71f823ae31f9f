package item

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation for scaffolding and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[uuid.UUID]*Item
	drafts map[uuid.UUID]*Item
}

// NewMemoryStore creates an empty in-memory item store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make(map[uuid.UUID]*Item),
		drafts: make(map[uuid.UUID]*Item),
	}
}

// Create inserts the supplied item.
func (m *MemoryStore) Create(_ context.Context, record *Item) (*Item, error) {
	if record == nil || record.ID == uuid.Nil {
		return nil, ErrItemIDRequired
	}
	if record.TypeID == "" {
		return nil, ErrTypeIDRequired
	}
	seen := map[string]bool{}
	for _, tr := range record.Translations {
		if tr == nil {
			continue
		}
		if tr.Locale == "" {
			return nil, ErrLocaleRequired
		}
		if seen[tr.Locale] {
			return nil, ErrDuplicateLocale
		}
		seen[tr.Locale] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := record.Clone()
	m.items[copied.ID] = copied
	return copied.Clone(), nil
}

// PutDraft stores a forward revision for the item so lookups with the
// latest-revision flag observe it instead of the live record.
func (m *MemoryStore) PutDraft(_ context.Context, record *Item) error {
	if record == nil || record.ID == uuid.Nil {
		return ErrItemIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[record.ID] = record.Clone()
	return nil
}

// GetByID retrieves an item by identifier. When latestRevision is set and a
// forward revision exists, that revision is returned.
func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID, latestRevision bool) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if latestRevision {
		if draft, ok := m.drafts[id]; ok {
			return draft.Clone(), nil
		}
	}
	rec, ok := m.items[id]
	if !ok {
		return nil, &NotFoundError{Resource: "item", Key: id.String()}
	}
	return rec.Clone(), nil
}

// Update persists the supplied record as the live state. A pending forward
// revision for the same id is replaced as well, keeping both views coherent.
func (m *MemoryStore) Update(_ context.Context, record *Item) (*Item, error) {
	if record == nil || record.ID == uuid.Nil {
		return nil, ErrItemIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[record.ID]; !ok {
		return nil, &NotFoundError{Resource: "item", Key: record.ID.String()}
	}
	copied := record.Clone()
	m.items[copied.ID] = copied
	if _, ok := m.drafts[copied.ID]; ok {
		m.drafts[copied.ID] = copied.Clone()
	}
	return copied.Clone(), nil
}

// QueryDue returns ids of items matching the query, ordered by their earliest
// due timestamp ascending.
func (m *MemoryStore) QueryDue(_ context.Context, q DueQuery) ([]uuid.UUID, error) {
	if q.Field != "publish_at" && q.Field != "unpublish_at" {
		return nil, ErrFieldUnsupported
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	bundles := make(map[string]bool, len(q.Bundles))
	for _, b := range q.Bundles {
		bundles[b] = true
	}

	type due struct {
		id uuid.UUID
		at time.Time
	}
	matches := []due{}
	for id, rec := range m.items {
		candidate := rec
		if q.LatestRevision {
			if draft, ok := m.drafts[id]; ok {
				candidate = draft
			}
		}
		if candidate.TypeID != q.TypeID || !bundles[candidate.Bundle] {
			continue
		}
		earliest := earliestDue(candidate, q.Field, q.Until)
		if earliest == nil {
			continue
		}
		matches = append(matches, due{id: id, at: *earliest})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].at.Equal(matches[j].at) {
			return matches[i].id.String() < matches[j].id.String()
		}
		return matches[i].at.Before(matches[j].at)
	})

	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids, nil
}

// List returns every stored item, for diagnostics and tests.
func (m *MemoryStore) List(_ context.Context) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Item, 0, len(m.items))
	for _, rec := range m.items {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func earliestDue(rec *Item, field string, until time.Time) *time.Time {
	var earliest *time.Time
	for _, tr := range rec.Translations {
		if tr == nil {
			continue
		}
		var at *time.Time
		if field == "unpublish_at" {
			at = tr.UnpublishAt
		} else {
			at = tr.PublishAt
		}
		if at == nil || at.After(until) {
			continue
		}
		if earliest == nil || at.Before(*earliest) {
			earliest = at
		}
	}
	return earliest
}
