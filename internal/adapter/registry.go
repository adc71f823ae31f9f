package adapter

import (
	"maps"
	"sort"
	"sync"

	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
)

// ModuleChecker reports whether a host module is active. Adapters declaring
// a DependencyModule are hidden while the module is inactive.
type ModuleChecker func(module string) bool

// BundleProbe reports whether the host schema exposes a bundle concept for
// the type. Types without bundles cannot be scheduled and are filtered out.
type BundleProbe func(entityTypeID string) bool

// Registry holds the registered adapter definitions and serves the gated,
// cached view the engine iterates on every pass.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]*Definition
	order   []string
	cache   map[string]*Definition
	checker ModuleChecker
	probe   BundleProbe
	logger  interfaces.Logger
}

// Option configures the registry.
type Option func(*Registry)

// WithModuleChecker installs the dependency gate applied during enumeration.
func WithModuleChecker(checker ModuleChecker) Option {
	return func(r *Registry) {
		if checker != nil {
			r.checker = checker
		}
	}
}

// WithBundleProbe installs the bundle-capability gate applied during enumeration.
func WithBundleProbe(probe BundleProbe) Option {
	return func(r *Registry) {
		if probe != nil {
			r.probe = probe
		}
	}
}

// WithLogger injects the registry logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty adapter registry. Without a module checker
// every adapter is considered available; without a bundle probe every type is
// considered bundle-capable.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		defs:    make(map[string]*Definition),
		checker: func(string) bool { return true },
		probe:   func(string) bool { return true },
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a definition. Duplicate entity type ids are rejected rather
// than disambiguated; the registry is populated once at boot.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.EntityTypeID]; exists {
		return ErrDuplicateType
	}
	copied := *def
	r.defs[def.EntityTypeID] = &copied
	r.order = append(r.order, def.EntityTypeID)
	r.cache = nil
	return nil
}

// List returns the available definitions keyed by entity type id, applying
// the dependency and bundle gates. The gated view is computed once and cached
// until InvalidateCache is called; callers receive their own copy of the map.
func (r *Registry) List() map[string]*Definition {
	r.mu.RLock()
	cached := r.cache
	r.mu.RUnlock()

	if cached == nil {
		r.mu.Lock()
		if r.cache == nil {
			r.cache = r.buildLocked()
		}
		cached = r.cache
		r.mu.Unlock()
	}
	return maps.Clone(cached)
}

// ListProvider returns the available definitions declared by the supplied
// dependency module.
func (r *Registry) ListProvider(module string) map[string]*Definition {
	out := map[string]*Definition{}
	for typeID, def := range r.List() {
		if def.DependencyModule == module {
			out[typeID] = def
		}
	}
	return out
}

// TypeIDs returns the available entity type ids in registration order.
func (r *Registry) TypeIDs() []string {
	available := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(available))
	for _, typeID := range r.order {
		if _, ok := available[typeID]; ok {
			out = append(out, typeID)
		}
	}
	return out
}

// Get resolves the adapter for an entity type, honouring the gates.
func (r *Registry) Get(entityTypeID string) (*Definition, bool) {
	def, ok := r.List()[entityTypeID]
	return def, ok
}

// InvalidateCache discards the gated view so the next enumeration recomputes
// it. Safe to call repeatedly and from any goroutine.
func (r *Registry) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = nil
}

func (r *Registry) buildLocked() map[string]*Definition {
	out := make(map[string]*Definition, len(r.defs))
	skipped := []string{}
	for typeID, def := range r.defs {
		if def.DependencyModule != "" && !r.checker(def.DependencyModule) {
			skipped = append(skipped, typeID)
			continue
		}
		if !r.probe(typeID) {
			skipped = append(skipped, typeID)
			continue
		}
		out[typeID] = def
	}
	if len(skipped) > 0 {
		sort.Strings(skipped)
		r.logger.Debug("adapter.registry.filtered", "skipped", skipped)
	}
	return out
}
