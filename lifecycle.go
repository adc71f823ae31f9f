// Package lifecycle implements a time-based content lifecycle scheduler: on
// each trigger tick it finds content whose scheduled publish or unpublish
// moment has elapsed and transitions its publication state, with per-bundle
// policy, pluggable content-type adapters, and extension hooks shaping or
// vetoing every transition.
package lifecycle

import (
	"context"
	"time"

	"github.com/goliatone/go-lifecycle/internal/adapter"
	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/events"
	"github.com/goliatone/go-lifecycle/internal/extension"
	"github.com/goliatone/go-lifecycle/internal/item"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/internal/policy"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
)

// Process re-exports the pass direction for module consumers.
type Process = domain.Process

const (
	ProcessPublish   = domain.ProcessPublish
	ProcessUnpublish = domain.ProcessUnpublish
)

// Item exports the scheduled item model.
type Item = item.Item

// Translation exports the per-locale variant model.
type Translation = item.Translation

// AdapterDefinition exports the content-type adapter contract.
type AdapterDefinition = adapter.Definition

// BundlePolicy exports the per-bundle policy value.
type BundlePolicy = policy.BundlePolicy

// Report exports the per-pass aggregate outcome.
type Report = engine.Report

// Module is the top level scheduler runtime facade.
type Module struct {
	cfg        Config
	registry   *adapter.Registry
	policies   *policy.Accessor
	store      engine.ItemStore
	extensions *extension.Registry
	events     *events.Bus
	actions    *engine.ActionRegistry
	engine     *engine.Engine
}

type moduleDeps struct {
	store       engine.ItemStore
	policyStore policy.Store
	provider    interfaces.LoggerProvider
	messenger   interfaces.Messenger
	audit       engine.AuditRecorder
	checker     adapter.ModuleChecker
	probe       adapter.BundleProbe
	clock       func() time.Time
}

// Option overrides a module dependency.
type Option func(*moduleDeps)

// WithItemStore installs the content store backing the engine.
func WithItemStore(store engine.ItemStore) Option {
	return func(d *moduleDeps) {
		if store != nil {
			d.store = store
		}
	}
}

// WithPolicyStore installs the bundle policy store.
func WithPolicyStore(store policy.Store) Option {
	return func(d *moduleDeps) {
		if store != nil {
			d.policyStore = store
		}
	}
}

// WithLoggerProvider installs the provider supplying module loggers.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(d *moduleDeps) {
		if provider != nil {
			d.provider = provider
		}
	}
}

// WithMessenger installs the operator-facing message channel.
func WithMessenger(messenger interfaces.Messenger) Option {
	return func(d *moduleDeps) {
		if messenger != nil {
			d.messenger = messenger
		}
	}
}

// WithAuditRecorder installs the audit sink for applied transitions.
func WithAuditRecorder(recorder engine.AuditRecorder) Option {
	return func(d *moduleDeps) {
		d.audit = recorder
	}
}

// WithModuleChecker installs the host module dependency gate for adapters.
func WithModuleChecker(checker adapter.ModuleChecker) Option {
	return func(d *moduleDeps) {
		if checker != nil {
			d.checker = checker
		}
	}
}

// WithBundleProbe installs the host bundle-capability gate for adapters.
func WithBundleProbe(probe adapter.BundleProbe) Option {
	return func(d *moduleDeps) {
		if probe != nil {
			d.probe = probe
		}
	}
}

// WithClock overrides the engine clock, used mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(d *moduleDeps) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// New constructs the scheduler module. Without store options the module runs
// entirely in memory, which suits tests and scaffolding.
func New(cfg Config, opts ...Option) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps := moduleDeps{
		store:       item.NewMemoryStore(),
		policyStore: policy.NewMemoryStore(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	registryOpts := []adapter.Option{
		adapter.WithLogger(logging.AdapterLogger(deps.provider)),
	}
	if deps.checker != nil {
		registryOpts = append(registryOpts, adapter.WithModuleChecker(deps.checker))
	}
	if deps.probe != nil {
		registryOpts = append(registryOpts, adapter.WithBundleProbe(deps.probe))
	}
	registry := adapter.NewRegistry(registryOpts...)

	accessorOpts := []policy.AccessorOption{
		policy.WithLogger(logging.PolicyLogger(deps.provider)),
	}
	if deps.messenger != nil {
		accessorOpts = append(accessorOpts, policy.WithMessenger(deps.messenger))
	}
	policies := policy.NewAccessor(deps.policyStore, registry, accessorOpts...)

	extensions := extension.NewRegistry()
	bus := events.NewBus()
	actions := engine.NewDefaultActions()

	engineOpts := []engine.Option{
		engine.WithExtensions(extensions),
		engine.WithEventBus(bus),
		engine.WithActions(actions),
		engine.WithLogger(logging.EngineLogger(deps.provider)),
		engine.WithRevisions(cfg.Features.Revisions),
		engine.WithClock(deps.clock),
	}
	if deps.audit != nil {
		engineOpts = append(engineOpts, engine.WithAuditRecorder(deps.audit))
	}
	if deps.messenger != nil {
		engineOpts = append(engineOpts, engine.WithMessenger(deps.messenger))
	}
	eng, err := engine.New(registry, policies, deps.store, engineOpts...)
	if err != nil {
		return nil, err
	}

	return &Module{
		cfg:        cfg,
		registry:   registry,
		policies:   policies,
		store:      deps.store,
		extensions: extensions,
		events:     bus,
		actions:    actions,
		engine:     eng,
	}, nil
}

// Adapters exposes the adapter registry for boot-time registration.
func (m *Module) Adapters() *adapter.Registry {
	return m.registry
}

// Extensions exposes the hook table for boot-time registration.
func (m *Module) Extensions() *extension.Registry {
	return m.extensions
}

// Events exposes the transition event bus.
func (m *Module) Events() *events.Bus {
	return m.events
}

// Actions exposes the builtin action registry so hosts can add their own.
func (m *Module) Actions() *engine.ActionRegistry {
	return m.actions
}

// Engine exposes the underlying engine for advanced integrations.
func (m *Module) Engine() *engine.Engine {
	return m.engine
}

// RunPass executes one pass in the given direction and reports whether any
// item transitioned, so trigger hosts can decide whether more work pends.
func (m *Module) RunPass(ctx context.Context, process Process) (bool, error) {
	if !m.cfg.Enabled {
		return false, nil
	}
	report, err := m.engine.RunPass(ctx, process)
	if err != nil {
		if report == nil {
			return false, err
		}
		return report.Processed(), err
	}
	return report.Processed(), nil
}

// RunPublishPass runs the publish direction.
func (m *Module) RunPublishPass(ctx context.Context) (bool, error) {
	return m.RunPass(ctx, ProcessPublish)
}

// RunUnpublishPass runs the unpublish direction.
func (m *Module) RunUnpublishPass(ctx context.Context) (bool, error) {
	return m.RunPass(ctx, ProcessUnpublish)
}
