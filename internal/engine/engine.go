package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-lifecycle/internal/adapter"
	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/events"
	"github.com/goliatone/go-lifecycle/internal/extension"
	"github.com/goliatone/go-lifecycle/internal/item"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/internal/policy"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
)

// ItemStore is the persistence contract the engine consumes. Both the
// in-memory store and the bun-backed store satisfy it.
type ItemStore interface {
	QueryDue(ctx context.Context, q item.DueQuery) ([]uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID, latestRevision bool) (*item.Item, error)
	Update(ctx context.Context, record *item.Item) (*item.Item, error)
}

// Engine runs the publish and unpublish passes: it queries due items, applies
// policy, dispatches extension hooks and transition events, performs or
// delegates the state change, and reports the aggregate outcome.
type Engine struct {
	registry   *adapter.Registry
	policies   *policy.Accessor
	store      ItemStore
	extensions *extension.Registry
	events     *events.Bus
	actions    ActionExecutor
	audit      AuditRecorder
	messenger  interfaces.Messenger
	logger     interfaces.Logger
	revisions  bool
	now        func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithExtensions installs the hook table consulted during passes.
func WithExtensions(registry *extension.Registry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.extensions = registry
		}
	}
}

// WithEventBus installs the transition event bus.
func WithEventBus(bus *events.Bus) Option {
	return func(e *Engine) {
		if bus != nil {
			e.events = bus
		}
	}
}

// WithActions installs the action executor used for default transitions.
func WithActions(actions ActionExecutor) Option {
	return func(e *Engine) {
		if actions != nil {
			e.actions = actions
		}
	}
}

// WithAuditRecorder installs the audit sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(e *Engine) {
		e.audit = recorder
	}
}

// WithMessenger installs the operator-facing message channel.
func WithMessenger(messenger interfaces.Messenger) Option {
	return func(e *Engine) {
		e.messenger = messenger
	}
}

// WithLogger injects the engine logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRevisions toggles revision creation globally. When disabled, passes
// still transition items but never open a revision, regardless of adapter
// and policy settings.
func WithRevisions(enabled bool) Option {
	return func(e *Engine) {
		e.revisions = enabled
	}
}

// WithClock overrides the internal clock, used mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// New constructs an engine over the required collaborators. Extensions,
// events, and actions default to empty or builtin implementations so a bare
// engine still runs the default pipeline.
func New(registry *adapter.Registry, policies *policy.Accessor, store ItemStore, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if policies == nil {
		return nil, ErrPolicyRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	e := &Engine{
		registry:   registry,
		policies:   policies,
		store:      store,
		extensions: extension.NewRegistry(),
		events:     events.NewBus(),
		actions:    NewDefaultActions(),
		logger:     logging.NoOp(),
		revisions:  true,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RunPass executes one full pass in the given direction across every
// registered type. It is safe to call repeatedly and concurrently: each
// translation's timestamp is cleared before its state mutates, so an
// overlapping run finds the timestamp gone and skips.
func (e *Engine) RunPass(ctx context.Context, process domain.Process) (*Report, error) {
	if !process.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrProcessInvalid, process)
	}

	now := e.now()
	report := &Report{Process: process, Started: now}
	logger := logging.WithFields(e.logger, map[string]any{"process": string(process)})

	for _, typeID := range e.registry.TypeIDs() {
		def, ok := e.registry.Get(typeID)
		if !ok {
			continue
		}
		if err := e.runType(ctx, process, def, now, report, logger); err != nil {
			return report, err
		}
	}

	logger.Debug("engine.pass.finished",
		"transitioned", report.Transitioned,
		"vetoed", report.Vetoed,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

func (e *Engine) runType(ctx context.Context, process domain.Process, def *adapter.Definition, now time.Time, report *Report, logger interfaces.Logger) error {
	typeID := def.EntityTypeID
	logger = logging.WithFields(logger, map[string]any{"type_id": typeID})

	bundles, err := e.policies.EnabledBundles(ctx, typeID, process)
	if err != nil {
		return err
	}

	injected, sources, err := e.extensions.CollectIDs(ctx, process, typeID, now)
	if err != nil {
		logger.Warn("engine.list_hook_failed", "error", err)
		injected = nil
	}

	// Nothing enabled and nothing injected: the type sits out this pass.
	if len(bundles) == 0 && len(injected) == 0 {
		return nil
	}

	ids := []uuid.UUID{}
	if len(bundles) > 0 {
		ids, err = e.store.QueryDue(ctx, item.DueQuery{
			TypeID:         typeID,
			Bundles:        bundles,
			Field:          process.TimestampField(),
			Until:          now,
			LatestRevision: def.Revisionable,
		})
		if err != nil {
			return fmt.Errorf("engine: due query for type %q failed: %w", typeID, err)
		}
	}
	ids = append(ids, injected...)

	if err := e.extensions.AlterIDs(ctx, process, typeID, &ids); err != nil {
		logger.Warn("engine.list_alter_hook_failed", "error", err)
	}
	ids = dedupe(ids)

	enabled := make(map[string]bool, len(bundles))
	for _, b := range bundles {
		enabled[b] = true
	}

	for _, id := range ids {
		loaded, err := e.store.GetByID(ctx, id, def.Revisionable)
		if err != nil {
			logger.Warn("engine.item.load_failed", "item_id", id.String(), "error", err)
			report.Skipped++
			continue
		}
		if err := e.runItem(ctx, process, def, loaded, enabled, sources[id], now, report, logger); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runItem(ctx context.Context, process domain.Process, def *adapter.Definition, it *item.Item, enabled map[string]bool, injectedBy []string, now time.Time, report *Report, logger interfaces.Logger) error {
	bundle, bundleKnown := it.BundleValue(def.TypeFieldName)
	pol, err := e.policies.BundlePolicyFor(ctx, def, it)
	if err != nil {
		return err
	}

	if !pol.EnabledFor(process) || (bundleKnown && !enabled[bundle]) {
		if bundleKnown {
			// Query-selected ids always belong to an enabled bundle, so a
			// disabled bundle here means a list hook injected an id it must
			// not. That contract violation halts the run.
			return &TypeNotEnabledError{
				EntityTypeID: def.EntityTypeID,
				Bundle:       bundle,
				Process:      process,
				Hooks:        injectedBy,
			}
		}
		// Bundle field missing: the accessor already logged the
		// configuration error; the default policy says no.
		report.Skipped++
		return nil
	}

	logger = logging.WithFields(logger, map[string]any{"item_id": it.ID.String()})

	locales := make([]string, 0, len(it.Translations))
	for _, tr := range it.Translations {
		if tr != nil {
			locales = append(locales, tr.Locale)
		}
	}

	for _, locale := range locales {
		tr := it.Translation(locale)
		if tr == nil {
			continue
		}
		replaced, err := e.runTranslation(ctx, process, def, pol, it, tr, now, report, logger)
		if err != nil {
			return err
		}
		if replaced != nil {
			// An event listener swapped the item; the rest of the fan-out
			// continues on the replacement.
			it = replaced
		}
	}
	return nil
}

func (e *Engine) runTranslation(ctx context.Context, process domain.Process, def *adapter.Definition, pol policy.BundlePolicy, it *item.Item, tr *item.Translation, now time.Time, report *Report, logger interfaces.Logger) (*item.Item, error) {
	sched := tr.ScheduleFor(process)
	if sched == nil || sched.After(now) {
		return nil, nil
	}
	schedAt := *sched

	logger = logging.WithFields(logger, map[string]any{"locale": tr.Locale})

	// Unpublishing while the same translation still has a due, unprocessed
	// publish date would contradict the pending publish; leave both for a
	// later pass.
	if process == domain.ProcessUnpublish && tr.PublishAt != nil && !tr.PublishAt.After(now) {
		logger.Debug("engine.unpublish.blocked_by_pending_publish")
		report.Skipped++
		return nil, nil
	}

	if !e.extensions.Allowed(ctx, process, def.EntityTypeID, it, tr) {
		logger.Info("engine.transition.vetoed", "scheduled_for", schedAt)
		report.Vetoed++
		return nil, nil
	}

	it, tr = e.firePre(ctx, process, def, it, tr)
	if tr == nil {
		report.Skipped++
		return it, nil
	}

	// Keep the audit trail aligned with the intended moment, not with when
	// cron happened to run.
	tr.ChangedAt = schedAt
	if process == domain.ProcessPublish {
		if pol.TouchCreatedOnPublish || (pol.TouchCreatedWhenPastDue && tr.CreatedAt.After(schedAt)) {
			tr.CreatedAt = schedAt
		}
	}
	if e.revisions && def.Revisionable && pol.CreateRevisionFor(process) {
		it.BeginRevision(revisionMessage(process, schedAt), now)
	}

	// Clear before any save so a concurrent or nested save cannot re-trigger
	// the same transition.
	tr.SetSchedule(process, nil)

	outcome := TransitionOutcome{}
	hooks := e.extensions.RunProcess(ctx, process, def.EntityTypeID, it, tr)
	if hooks.Failed {
		restored := schedAt
		tr.SetSchedule(process, &restored)
		outcome.FailedViaExtension = true
		outcome.RestoredTimestamp = &restored
		if _, err := e.store.Update(ctx, it); err != nil {
			logger.Error("engine.rollback.save_failed", "error", err)
		}
		logger.Warn("engine.transition.extension_failed",
			"failed_by", hooks.FailedBy,
			"reasons", hooks.Reasons,
			"restored", restored,
		)
		report.Failed++
		return it, nil
	}
	outcome.SucceededViaExtension = hooks.Handled

	if !hooks.Handled {
		actionID := def.ActionFor(process)
		if actionID == "" {
			return it, e.missingAction(ctx, def, process, actionID, logger)
		}
		resolved := e.resolveAction(actionID, it)
		if err := e.actions.Execute(ctx, resolved, it, tr); err != nil {
			if errors.Is(err, ErrActionNotFound) {
				return it, e.missingAction(ctx, def, process, resolved, logger)
			}
			restored := schedAt
			tr.SetSchedule(process, &restored)
			outcome.RestoredTimestamp = &restored
			if _, uerr := e.store.Update(ctx, it); uerr != nil {
				logger.Error("engine.rollback.save_failed", "error", uerr)
			}
			logger.Warn("engine.transition.action_failed", "action", resolved, "error", err)
			report.Failed++
			return it, nil
		}
		outcome.DefaultActionApplied = true
	}

	it.UpdatedAt = now
	if _, err := e.store.Update(ctx, it); err != nil {
		logger.Error("engine.item.save_failed", "error", err)
		report.Failed++
		return it, nil
	}

	it, _ = e.firePost(ctx, process, def, it, tr)

	label := def.Label
	if label == "" {
		label = def.EntityTypeID
	}
	logger.Info("engine.transition.applied",
		"type", label,
		"scheduled_for", schedAt,
		"via_extension", outcome.SucceededViaExtension,
		"default_action", outcome.DefaultActionApplied,
	)
	e.recordAudit(ctx, def, it, tr, process, now, schedAt)
	report.Transitioned++
	return it, nil
}

// firePre dispatches the pre-transition event and relocates the translation
// on the possibly-replaced item.
func (e *Engine) firePre(ctx context.Context, process domain.Process, def *adapter.Definition, it *item.Item, tr *item.Translation) (*item.Item, *item.Translation) {
	evt := &events.Event{
		Name:        def.EventName(process, events.StagePre),
		Process:     process,
		Stage:       events.StagePre,
		Item:        it,
		Translation: tr,
	}
	next := e.events.Dispatch(ctx, evt)
	if next == nil {
		return it, tr
	}
	if next != it {
		if moved := next.Translation(tr.Locale); moved != nil {
			return next, moved
		}
		// Replacement dropped the translation; nothing left to transition.
		return next, nil
	}
	return it, tr
}

func (e *Engine) firePost(ctx context.Context, process domain.Process, def *adapter.Definition, it *item.Item, tr *item.Translation) (*item.Item, *item.Translation) {
	evt := &events.Event{
		Name:        def.EventName(process, events.StagePost),
		Process:     process,
		Stage:       events.StagePost,
		Item:        it,
		Translation: tr,
	}
	next := e.events.Dispatch(ctx, evt)
	if next == nil {
		return it, tr
	}
	return next, tr
}

func (e *Engine) resolveAction(actionID string, it *item.Item) string {
	state, _ := it.Attributes["moderation_state"].(string)
	if state == "" {
		return actionID
	}
	variant := VariantActionID(actionID, state)
	if checker, ok := e.actions.(interface{ Has(string) bool }); ok && checker.Has(variant) {
		return variant
	}
	return actionID
}

func (e *Engine) missingAction(ctx context.Context, def *adapter.Definition, process domain.Process, actionID string, logger interfaces.Logger) error {
	err := &MissingActionError{
		EntityTypeID: def.EntityTypeID,
		Process:      process,
		ActionID:     actionID,
	}
	logger.Error("engine.action.missing", "action", actionID)
	if e.messenger != nil {
		e.messenger.Message(ctx, interfaces.SeverityError, err.Error())
	}
	return err
}

func (e *Engine) recordAudit(ctx context.Context, def *adapter.Definition, it *item.Item, tr *item.Translation, process domain.Process, now, schedAt time.Time) {
	if e.audit == nil {
		return
	}
	_ = e.audit.Record(ctx, AuditEvent{
		EntityType: def.EntityTypeID,
		EntityID:   it.ID.String(),
		Locale:     tr.Locale,
		Action:     string(process),
		OccurredAt: now,
		Metadata: map[string]any{
			"bundle":        it.Bundle,
			"scheduled_for": schedAt,
		},
	})
}

func revisionMessage(process domain.Process, schedAt time.Time) string {
	when := schedAt.UTC().Format(time.RFC3339)
	if process == domain.ProcessUnpublish {
		return fmt.Sprintf("Unpublished by the content scheduler. The scheduled date was %s.", when)
	}
	return fmt.Sprintf("Published by the content scheduler. The scheduled date was %s.", when)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
