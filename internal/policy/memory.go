package policy

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory policy store for scaffolding and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]map[string]BundlePolicy
	global   *BundlePolicy
}

// NewMemoryStore creates an empty in-memory policy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]map[string]BundlePolicy),
	}
}

// Put stores the policy for type+bundle, replacing any existing record.
func (m *MemoryStore) Put(_ context.Context, entityTypeID, bundle string, pol BundlePolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byBundle, ok := m.policies[entityTypeID]
	if !ok {
		byBundle = make(map[string]BundlePolicy)
		m.policies[entityTypeID] = byBundle
	}
	byBundle[bundle] = pol
}

// PutGlobalDefaults stores the site-wide fallback policy.
func (m *MemoryStore) PutGlobalDefaults(_ context.Context, pol BundlePolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := pol
	m.global = &copied
}

func (m *MemoryStore) Get(_ context.Context, entityTypeID, bundle string) (*BundlePolicy, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byBundle, ok := m.policies[entityTypeID]
	if !ok {
		return nil, false, nil
	}
	pol, ok := byBundle[bundle]
	if !ok {
		return nil, false, nil
	}
	copied := pol
	return &copied, true, nil
}

func (m *MemoryStore) Bundles(_ context.Context, entityTypeID string) (map[string]BundlePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byBundle, ok := m.policies[entityTypeID]
	if !ok {
		return map[string]BundlePolicy{}, nil
	}
	out := make(map[string]BundlePolicy, len(byBundle))
	for bundle, pol := range byBundle {
		out[bundle] = pol
	}
	return out, nil
}

func (m *MemoryStore) GlobalDefaults(_ context.Context) (*BundlePolicy, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.global == nil {
		return nil, false, nil
	}
	copied := *m.global
	return &copied, true, nil
}
