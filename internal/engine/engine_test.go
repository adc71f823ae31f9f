package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-lifecycle/internal/adapter"
	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/events"
	"github.com/goliatone/go-lifecycle/internal/extension"
	"github.com/goliatone/go-lifecycle/internal/item"
	"github.com/goliatone/go-lifecycle/internal/policy"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
)

type fixture struct {
	registry    *adapter.Registry
	policyStore *policy.MemoryStore
	policies    *policy.Accessor
	store       *item.MemoryStore
	extensions  *extension.Registry
	bus         *events.Bus
	actions     *engine.ActionRegistry
	audit       *engine.InMemoryAuditRecorder
	messenger   *captureMessenger
	now         time.Time
	engine      *engine.Engine
}

type captureMessenger struct {
	mu       sync.Mutex
	messages []string
	severity []interfaces.Severity
}

func (m *captureMessenger) Message(_ context.Context, severity interfaces.Severity, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
	m.severity = append(m.severity, severity)
}

func newFixture(t *testing.T, def *adapter.Definition) *fixture {
	t.Helper()

	f := &fixture{
		registry:    adapter.NewRegistry(),
		policyStore: policy.NewMemoryStore(),
		store:       item.NewMemoryStore(),
		extensions:  extension.NewRegistry(),
		bus:         events.NewBus(),
		actions:     engine.NewDefaultActions(),
		audit:       engine.NewInMemoryAuditRecorder(),
		messenger:   &captureMessenger{},
		now:         time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	if def != nil {
		if err := f.registry.Register(def); err != nil {
			t.Fatalf("register adapter: %v", err)
		}
	}
	f.policies = policy.NewAccessor(f.policyStore, f.registry, policy.WithMessenger(f.messenger))

	eng, err := engine.New(f.registry, f.policies, f.store,
		engine.WithExtensions(f.extensions),
		engine.WithEventBus(f.bus),
		engine.WithActions(f.actions),
		engine.WithAuditRecorder(f.audit),
		engine.WithMessenger(f.messenger),
		engine.WithClock(func() time.Time { return f.now }),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	f.engine = eng
	return f
}

func pageAdapter() *adapter.Definition {
	return &adapter.Definition{
		EntityTypeID:      "content",
		Label:             "Content",
		EventNamespace:    "content",
		PublishActionID:   engine.ActionPublishItem,
		UnpublishActionID: engine.ActionUnpublishItem,
	}
}

func (f *fixture) enableBundle(t *testing.T, bundle string, pol policy.BundlePolicy) {
	t.Helper()
	f.policyStore.Put(context.Background(), "content", bundle, pol)
}

func (f *fixture) seedItem(t *testing.T, record *item.Item) {
	t.Helper()
	if _, err := f.store.Create(context.Background(), record); err != nil {
		t.Fatalf("seed item: %v", err)
	}
}

func (f *fixture) item(t *testing.T, id uuid.UUID) *item.Item {
	t.Helper()
	loaded, err := f.store.GetByID(context.Background(), id, false)
	if err != nil {
		t.Fatalf("load item: %v", err)
	}
	return loaded
}

func ptrTime(value time.Time) *time.Time {
	return &value
}

func TestRunPassPublishesDueTranslation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true, UnpublishEnabled: true})

	id := uuid.New()
	due := f.now.Add(-10 * time.Minute)
	future := f.now.Add(time.Hour)
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(due), CreatedAt: due.Add(-time.Hour)},
			{ID: uuid.New(), ItemID: id, Locale: "es", PublishAt: ptrTime(future)},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected 1 transition, got %+v", report)
	}

	updated := f.item(t, id)
	en := updated.Translation("en")
	if en == nil || !en.IsPublished {
		t.Fatalf("expected en translation published")
	}
	if en.PublishAt != nil {
		t.Fatalf("expected publish_at cleared, got %v", en.PublishAt)
	}
	if !en.ChangedAt.Equal(due) {
		t.Fatalf("expected changed_at aligned with scheduled time, got %v", en.ChangedAt)
	}
	if !updated.IsPublished {
		t.Fatalf("expected item flagged published")
	}

	es := updated.Translation("es")
	if es == nil || es.IsPublished || es.PublishAt == nil {
		t.Fatalf("expected es translation untouched, got %+v", es)
	}

	audits := f.audit.Events()
	if len(audits) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(audits))
	}
	if audits[0].Action != "publish" || audits[0].Locale != "en" {
		t.Fatalf("unexpected audit event %+v", audits[0])
	}
}

func TestRunPassIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	if _, err := f.engine.RunPass(ctx, domain.ProcessPublish); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if report.Transitioned != 0 {
		t.Fatalf("expected second pass to find nothing, got %+v", report)
	}
}

func TestRunPassUnpublishesDueTranslation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{UnpublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:          id,
		TypeID:      "content",
		Bundle:      "page",
		IsPublished: true,
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", IsPublished: true, UnpublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessUnpublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected 1 transition, got %+v", report)
	}

	updated := f.item(t, id)
	en := updated.Translation("en")
	if en.IsPublished || en.UnpublishAt != nil {
		t.Fatalf("expected en unpublished with cleared timestamp, got %+v", en)
	}
	if updated.IsPublished {
		t.Fatalf("expected item flagged unpublished")
	}
}

func TestUnpublishBlockedByPendingPublish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true, UnpublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{
				ID:          uuid.New(),
				ItemID:      id,
				Locale:      "en",
				PublishAt:   ptrTime(f.now.Add(-2 * time.Hour)),
				UnpublishAt: ptrTime(f.now.Add(-time.Hour)),
			},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessUnpublish)
	if err != nil {
		t.Fatalf("unpublish pass: %v", err)
	}
	if report.Transitioned != 0 || report.Skipped != 1 {
		t.Fatalf("expected the unpublish to be held back, got %+v", report)
	}

	updated := f.item(t, id)
	en := updated.Translation("en")
	if en.PublishAt == nil || en.UnpublishAt == nil {
		t.Fatalf("expected both timestamps retained, got %+v", en)
	}

	// The publish pass consumes the pending publish; the unpublish then runs.
	if _, err := f.engine.RunPass(ctx, domain.ProcessPublish); err != nil {
		t.Fatalf("publish pass: %v", err)
	}
	report, err = f.engine.RunPass(ctx, domain.ProcessUnpublish)
	if err != nil {
		t.Fatalf("second unpublish pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected unpublish after publish consumed, got %+v", report)
	}
}

func TestAllowedHookVetoesTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	invoked := 0
	f.extensions.RegisterAllowed("workflow", "content", func(context.Context, domain.Process, *item.Item, *item.Translation) extension.Decision {
		invoked++
		return extension.Deny
	})
	f.extensions.RegisterAllowed("audit-gate", "content", func(context.Context, domain.Process, *item.Item, *item.Translation) extension.Decision {
		invoked++
		return extension.Allow
	})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Vetoed != 1 || report.Transitioned != 0 {
		t.Fatalf("expected veto, got %+v", report)
	}
	if invoked != 2 {
		t.Fatalf("expected both allowed hooks consulted, got %d", invoked)
	}

	en := f.item(t, id).Translation("en")
	if en.PublishAt == nil || en.IsPublished {
		t.Fatalf("expected vetoed translation untouched, got %+v", en)
	}
}

func TestProcessHookFailureRollsBackTimestamp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	f.extensions.RegisterProcess("search-index", "content", func(context.Context, domain.Process, *item.Item, *item.Translation) extension.ProcessResult {
		return extension.Failed("index write rejected")
	})

	id := uuid.New()
	due := f.now.Add(-time.Minute)
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(due)},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Failed != 1 || report.Transitioned != 0 {
		t.Fatalf("expected failed transition, got %+v", report)
	}

	en := f.item(t, id).Translation("en")
	if en.IsPublished {
		t.Fatalf("expected translation still unpublished")
	}
	if en.PublishAt == nil || !en.PublishAt.Equal(due) {
		t.Fatalf("expected publish_at restored to %v, got %v", due, en.PublishAt)
	}
	if len(f.audit.Events()) != 0 {
		t.Fatalf("expected no audit event for a failed transition")
	}
}

func TestProcessHookHandlesTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	f.extensions.RegisterProcess("custom-publisher", "content", func(_ context.Context, _ domain.Process, it *item.Item, tr *item.Translation) extension.ProcessResult {
		tr.IsPublished = true
		it.RecomputePublished()
		if it.Attributes == nil {
			it.Attributes = map[string]any{}
		}
		it.Attributes["published_by"] = "custom-publisher"
		return extension.Succeeded()
	})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected 1 transition, got %+v", report)
	}

	updated := f.item(t, id)
	if updated.Attributes["published_by"] != "custom-publisher" {
		t.Fatalf("expected the process hook to own the transition, got %v", updated.Attributes)
	}
	if updated.Translation("en").PublishAt != nil {
		t.Fatalf("expected publish_at cleared")
	}
}

func TestInjectedDisabledBundleAbortsRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "landing",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	f.extensions.RegisterList("rogue-list", "content", func(context.Context, domain.Process, time.Time) ([]uuid.UUID, error) {
		return []uuid.UUID{id}, nil
	})

	_, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err == nil {
		t.Fatalf("expected run to abort")
	}
	var notEnabled *engine.TypeNotEnabledError
	if !errors.As(err, &notEnabled) {
		t.Fatalf("expected TypeNotEnabledError, got %v", err)
	}
	if notEnabled.Bundle != "landing" {
		t.Fatalf("expected offending bundle named, got %+v", notEnabled)
	}
	if len(notEnabled.Hooks) != 1 || notEnabled.Hooks[0] != "rogue-list" {
		t.Fatalf("expected offending hook named, got %v", notEnabled.Hooks)
	}
}

// listOnlyStore hides every item from the due query so candidates can only
// arrive through list hooks.
type listOnlyStore struct {
	engine.ItemStore
}

func (s listOnlyStore) QueryDue(context.Context, item.DueQuery) ([]uuid.UUID, error) {
	return nil, nil
}

func TestInjectedIDTransitionsWithoutQueryMatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	due := f.now.Add(-time.Minute)
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(due)},
		},
	})

	f.extensions.RegisterList("backfill", "content", func(context.Context, domain.Process, time.Time) ([]uuid.UUID, error) {
		return []uuid.UUID{id}, nil
	})

	eng, err := engine.New(f.registry, f.policies, listOnlyStore{f.store},
		engine.WithExtensions(f.extensions),
		engine.WithClock(func() time.Time { return f.now }),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	report, err := eng.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected the injected id to transition, got %+v", report)
	}

	updated := f.item(t, id)
	en := updated.Translation("en")
	if en == nil || !en.IsPublished {
		t.Fatalf("expected en translation published")
	}
	if en.PublishAt != nil {
		t.Fatalf("expected publish_at cleared, got %v", en.PublishAt)
	}
}

func TestListAlterHookRemovesCandidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	f.extensions.RegisterListAlter("embargo", "content", func(_ context.Context, _ domain.Process, ids *[]uuid.UUID) error {
		*ids = nil
		return nil
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 0 {
		t.Fatalf("expected alter hook to drop the candidate, got %+v", report)
	}
	if f.item(t, id).Translation("en").PublishAt == nil {
		t.Fatalf("expected dropped item untouched")
	}
}

func TestBundleFieldMissingFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	def := pageAdapter()
	def.TypeFieldName = "kind"
	f := newFixture(t, def)
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})
	f.policyStore.PutGlobalDefaults(ctx, policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected the pass to keep running on defaults, got %+v", report)
	}

	f.messenger.mu.Lock()
	defer f.messenger.mu.Unlock()
	if len(f.messenger.messages) == 0 {
		t.Fatalf("expected an operator message about the missing bundle field")
	}
	if f.messenger.severity[0] != interfaces.SeverityError {
		t.Fatalf("expected error severity, got %s", f.messenger.severity[0])
	}
	if !strings.Contains(f.messenger.messages[0], "kind") {
		t.Fatalf("expected message to name the missing field, got %q", f.messenger.messages[0])
	}
}

func TestMissingActionAbortsRun(t *testing.T) {
	ctx := context.Background()
	def := pageAdapter()
	def.PublishActionID = "host.custom.publish"
	f := newFixture(t, def)
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	_, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err == nil {
		t.Fatalf("expected run to abort")
	}
	var missing *engine.MissingActionError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingActionError, got %v", err)
	}
	if !errors.Is(err, engine.ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound in the chain")
	}
	if !strings.Contains(missing.Error(), "register the action") {
		t.Fatalf("expected remediation guidance, got %q", missing.Error())
	}

	f.messenger.mu.Lock()
	defer f.messenger.mu.Unlock()
	if len(f.messenger.messages) == 0 {
		t.Fatalf("expected an operator message for the missing action")
	}
}

func TestRevisionOpenedOnPublish(t *testing.T) {
	ctx := context.Background()
	def := pageAdapter()
	def.Revisionable = true
	f := newFixture(t, def)
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true, CreateRevisionOnPublish: true})

	id := uuid.New()
	due := f.now.Add(-time.Minute)
	f.seedItem(t, &item.Item{
		ID:               id,
		TypeID:           "content",
		Bundle:           "page",
		RevisionID:       3,
		LatestRevisionID: 3,
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(due)},
		},
	})

	if _, err := f.engine.RunPass(ctx, domain.ProcessPublish); err != nil {
		t.Fatalf("run pass: %v", err)
	}

	updated := f.item(t, id)
	if updated.RevisionID != 4 || updated.LatestRevisionID != 4 {
		t.Fatalf("expected a new revision, got live=%d latest=%d", updated.RevisionID, updated.LatestRevisionID)
	}
	if !strings.Contains(updated.RevisionLog, "Published by the content scheduler") {
		t.Fatalf("unexpected revision log %q", updated.RevisionLog)
	}
	if !strings.Contains(updated.RevisionLog, due.UTC().Format(time.RFC3339)) {
		t.Fatalf("expected revision log to carry the scheduled date, got %q", updated.RevisionLog)
	}
}

func TestRevisionsDisabledGloballySkipsRevision(t *testing.T) {
	ctx := context.Background()
	def := pageAdapter()
	def.Revisionable = true
	f := newFixture(t, def)
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true, CreateRevisionOnPublish: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:               id,
		TypeID:           "content",
		Bundle:           "page",
		RevisionID:       3,
		LatestRevisionID: 3,
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	eng, err := engine.New(f.registry, f.policies, f.store,
		engine.WithExtensions(f.extensions),
		engine.WithRevisions(false),
		engine.WithClock(func() time.Time { return f.now }),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	report, err := eng.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected the item to transition, got %+v", report)
	}

	updated := f.item(t, id)
	if !updated.IsPublished {
		t.Fatalf("expected item published")
	}
	if updated.RevisionID != 3 || updated.LatestRevisionID != 3 {
		t.Fatalf("expected no revision opened, got live=%d latest=%d", updated.RevisionID, updated.LatestRevisionID)
	}
	if updated.RevisionLog != "" {
		t.Fatalf("expected empty revision log, got %q", updated.RevisionLog)
	}
}

func TestRevisionableTypeLoadsLatestRevision(t *testing.T) {
	ctx := context.Background()
	def := pageAdapter()
	def.Revisionable = true
	f := newFixture(t, def)
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:         id,
		TypeID:     "content",
		Bundle:     "page",
		RevisionID: 1,
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en"},
		},
	})
	// Only the moderated draft carries the schedule.
	draft := &item.Item{
		ID:               id,
		TypeID:           "content",
		Bundle:           "page",
		RevisionID:       1,
		LatestRevisionID: 2,
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	}
	if err := f.store.PutDraft(ctx, draft); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected draft schedule to be honoured, got %+v", report)
	}

	updated := f.item(t, id)
	if !updated.Translation("en").IsPublished {
		t.Fatalf("expected draft translation published")
	}
}

func TestCreatedDateTouchPolicies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true, TouchCreatedOnPublish: true})

	id := uuid.New()
	due := f.now.Add(-time.Minute)
	created := due.Add(-48 * time.Hour)
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(due), CreatedAt: created},
		},
	})

	if _, err := f.engine.RunPass(ctx, domain.ProcessPublish); err != nil {
		t.Fatalf("run pass: %v", err)
	}
	en := f.item(t, id).Translation("en")
	if !en.CreatedAt.Equal(due) {
		t.Fatalf("expected created_at forced to scheduled time, got %v", en.CreatedAt)
	}
}

func TestCreatedDateTouchedOnlyWhenPastDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true, TouchCreatedWhenPastDue: true})

	due := f.now.Add(-time.Minute)

	earlier := uuid.New()
	earlierCreated := due.Add(-time.Hour)
	f.seedItem(t, &item.Item{
		ID:     earlier,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: earlier, Locale: "en", PublishAt: ptrTime(due), CreatedAt: earlierCreated},
		},
	})

	later := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     later,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: later, Locale: "en", PublishAt: ptrTime(due), CreatedAt: due.Add(time.Hour)},
		},
	})

	if _, err := f.engine.RunPass(ctx, domain.ProcessPublish); err != nil {
		t.Fatalf("run pass: %v", err)
	}

	if got := f.item(t, earlier).Translation("en").CreatedAt; !got.Equal(earlierCreated) {
		t.Fatalf("expected well-ordered created_at untouched, got %v", got)
	}
	if got := f.item(t, later).Translation("en").CreatedAt; !got.Equal(due) {
		t.Fatalf("expected past-due created_at corrected, got %v", got)
	}
}

func TestModerationStateSelectsActionVariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	ran := ""
	f.actions.Register(engine.VariantActionID(engine.ActionPublishItem, "approved"), func(_ context.Context, it *item.Item, tr *item.Translation) error {
		ran = "variant"
		tr.IsPublished = true
		it.RecomputePublished()
		return nil
	})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:         id,
		TypeID:     "content",
		Bundle:     "page",
		Attributes: map[string]any{"moderation_state": "approved"},
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	if _, err := f.engine.RunPass(ctx, domain.ProcessPublish); err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if ran != "variant" {
		t.Fatalf("expected moderation variant action to run")
	}
}

func TestModerationStateFallsBackToBaseAction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:         id,
		TypeID:     "content",
		Bundle:     "page",
		Attributes: map[string]any{"moderation_state": "review"},
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessPublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 1 {
		t.Fatalf("expected base action to handle the transition, got %+v", report)
	}
	if !f.item(t, id).Translation("en").IsPublished {
		t.Fatalf("expected base publish action applied")
	}
}

func TestPreEventListenerReplacesItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	f.bus.Subscribe("content.publish.pre", func(_ context.Context, e *events.Event) {
		swapped := e.Item.Clone()
		if swapped.Attributes == nil {
			swapped.Attributes = map[string]any{}
		}
		swapped.Attributes["stamped"] = true
		e.Item = swapped
	})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	if _, err := f.engine.RunPass(ctx, domain.ProcessPublish); err != nil {
		t.Fatalf("run pass: %v", err)
	}

	updated := f.item(t, id)
	if updated.Attributes["stamped"] != true {
		t.Fatalf("expected replaced item to be persisted, got %v", updated.Attributes)
	}
	if !updated.Translation("en").IsPublished {
		t.Fatalf("expected transition to continue on the replacement")
	}
}

func TestPostEventFiresAfterPersist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	var observed []string
	f.bus.SubscribeAll(func(_ context.Context, e *events.Event) {
		observed = append(observed, e.Name)
	})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	if _, err := f.engine.RunPass(ctx, domain.ProcessPublish); err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if len(observed) != 2 || observed[0] != "content.publish.pre" || observed[1] != "content.publish.post" {
		t.Fatalf("unexpected event sequence %v", observed)
	}
}

func TestDisabledProcessSitsOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, pageAdapter())
	f.enableBundle(t, "page", policy.BundlePolicy{PublishEnabled: true})

	id := uuid.New()
	f.seedItem(t, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", IsPublished: true, UnpublishAt: ptrTime(f.now.Add(-time.Minute))},
		},
	})

	report, err := f.engine.RunPass(ctx, domain.ProcessUnpublish)
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if report.Transitioned != 0 {
		t.Fatalf("expected no unpublish with the process disabled, got %+v", report)
	}
	if f.item(t, id).Translation("en").UnpublishAt == nil {
		t.Fatalf("expected timestamp retained for a later enablement")
	}
}

func TestInvalidProcessRejected(t *testing.T) {
	f := newFixture(t, pageAdapter())
	if _, err := f.engine.RunPass(context.Background(), domain.Process("archive")); !errors.Is(err, engine.ErrProcessInvalid) {
		t.Fatalf("expected ErrProcessInvalid, got %v", err)
	}
}
