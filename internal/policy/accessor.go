package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/goliatone/go-lifecycle/internal/adapter"
	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/item"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
)

// Store is the keyed persistence contract for bundle policies. The host
// configuration layer writes records; the accessor only reads them.
type Store interface {
	// Get returns the policy stored for type+bundle; the bool reports presence.
	Get(ctx context.Context, entityTypeID, bundle string) (*BundlePolicy, bool, error)
	// Bundles returns every bundle of the type that has a stored policy.
	Bundles(ctx context.Context, entityTypeID string) (map[string]BundlePolicy, error)
	// GlobalDefaults returns the site-wide fallback policy, when configured.
	GlobalDefaults(ctx context.Context) (*BundlePolicy, bool, error)
}

// Accessor resolves effective bundle policies for the engine, falling back to
// adapter-declared defaults merged with global defaults when no record exists.
type Accessor struct {
	store     Store
	registry  *adapter.Registry
	logger    interfaces.Logger
	messenger interfaces.Messenger
}

// AccessorOption configures the accessor.
type AccessorOption func(*Accessor)

// WithLogger injects the accessor logger.
func WithLogger(logger interfaces.Logger) AccessorOption {
	return func(a *Accessor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMessenger injects the operator-facing message channel.
func WithMessenger(messenger interfaces.Messenger) AccessorOption {
	return func(a *Accessor) {
		if messenger != nil {
			a.messenger = messenger
		}
	}
}

// NewAccessor constructs a policy accessor over the supplied store and
// adapter registry.
func NewAccessor(store Store, registry *adapter.Registry, opts ...AccessorOption) *Accessor {
	a := &Accessor{
		store:    store,
		registry: registry,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EnabledBundles returns the sorted bundle names enabled for the process.
// Types without an adapter, or with no enabled bundle, yield an empty slice
// rather than an error.
func (a *Accessor) EnabledBundles(ctx context.Context, entityTypeID string, process domain.Process) ([]string, error) {
	if _, ok := a.registry.Get(entityTypeID); !ok {
		return nil, nil
	}
	stored, err := a.store.Bundles(ctx, entityTypeID)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for bundle, pol := range stored {
		if pol.EnabledFor(process) {
			out = append(out, bundle)
		}
	}
	sort.Strings(out)
	return out, nil
}

// BundlePolicyFor resolves the effective policy for a loaded item. A bundle
// field missing from the item is a configuration error: it is logged, an
// operator message is emitted, and the merged defaults apply so the pass
// keeps running.
func (a *Accessor) BundlePolicyFor(ctx context.Context, def *adapter.Definition, it *item.Item) (BundlePolicy, error) {
	bundle, ok := it.BundleValue(def.TypeFieldName)
	if !ok {
		text := fmt.Sprintf(
			"scheduler: adapter %q names bundle field %q but item %s does not carry it; using default policy",
			def.EntityTypeID, def.TypeFieldName, it.ID,
		)
		a.logger.Error("policy.bundle_field_missing",
			"type_id", def.EntityTypeID,
			"field", def.TypeFieldName,
			"item_id", it.ID.String(),
		)
		if a.messenger != nil {
			a.messenger.Message(ctx, interfaces.SeverityError, text)
		}
		return a.defaults(ctx, def)
	}

	stored, found, err := a.store.Get(ctx, def.EntityTypeID, bundle)
	if err != nil {
		return BundlePolicy{}, err
	}
	if found && stored != nil {
		return *stored, nil
	}
	return a.defaults(ctx, def)
}

// defaults merges adapter-declared defaults with the site-wide fallback; a
// configured global record wins over the adapter's compiled-in values.
func (a *Accessor) defaults(ctx context.Context, def *adapter.Definition) (BundlePolicy, error) {
	global, found, err := a.store.GlobalDefaults(ctx)
	if err != nil {
		return BundlePolicy{}, err
	}
	if found && global != nil {
		return *global, nil
	}
	return FromDefaults(def.Defaults), nil
}
