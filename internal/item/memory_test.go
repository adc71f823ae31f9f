package item_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/item"
)

func ptrTime(value time.Time) *time.Time {
	return &value
}

func TestCreateRejectsDuplicateLocales(t *testing.T) {
	ctx := context.Background()
	store := item.NewMemoryStore()
	id := uuid.New()

	_, err := store.Create(ctx, &item.Item{
		ID:     id,
		TypeID: "content",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en"},
			{ID: uuid.New(), ItemID: id, Locale: "en"},
		},
	})
	if !errors.Is(err, item.ErrDuplicateLocale) {
		t.Fatalf("expected duplicate locale rejection, got %v", err)
	}
}

func TestGetByIDClonesState(t *testing.T) {
	ctx := context.Background()
	store := item.NewMemoryStore()
	id := uuid.New()
	if _, err := store.Create(ctx, &item.Item{
		ID:     id,
		TypeID: "content",
		Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en"},
		},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	loaded, err := store.GetByID(ctx, id, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	loaded.Bundle = "mutated"
	loaded.Translations[0].IsPublished = true

	reloaded, err := store.GetByID(ctx, id, false)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if reloaded.Bundle != "page" || reloaded.Translations[0].IsPublished {
		t.Fatalf("expected stored state unaffected by caller mutation")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := item.NewMemoryStore()
	_, err := store.GetByID(context.Background(), uuid.New(), false)
	if !item.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQueryDueFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := item.NewMemoryStore()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	later := uuid.New()
	seed(t, store, &item.Item{
		ID: later, TypeID: "content", Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: later, Locale: "en", PublishAt: ptrTime(now.Add(-time.Minute))},
		},
	})
	earlier := uuid.New()
	seed(t, store, &item.Item{
		ID: earlier, TypeID: "content", Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: earlier, Locale: "en", PublishAt: ptrTime(now.Add(-time.Hour))},
		},
	})
	wrongBundle := uuid.New()
	seed(t, store, &item.Item{
		ID: wrongBundle, TypeID: "content", Bundle: "article",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: wrongBundle, Locale: "en", PublishAt: ptrTime(now.Add(-time.Hour))},
		},
	})
	future := uuid.New()
	seed(t, store, &item.Item{
		ID: future, TypeID: "content", Bundle: "page",
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: future, Locale: "en", PublishAt: ptrTime(now.Add(time.Hour))},
		},
	})

	ids, err := store.QueryDue(ctx, item.DueQuery{
		TypeID:  "content",
		Bundles: []string{"page"},
		Field:   domain.ProcessPublish.TimestampField(),
		Until:   now,
	})
	if err != nil {
		t.Fatalf("query due: %v", err)
	}
	if len(ids) != 2 || ids[0] != earlier || ids[1] != later {
		t.Fatalf("expected earliest-first [%s %s], got %v", earlier, later, ids)
	}
}

func TestQueryDueRejectsUnknownField(t *testing.T) {
	store := item.NewMemoryStore()
	_, err := store.QueryDue(context.Background(), item.DueQuery{Field: "deleted_at"})
	if !errors.Is(err, item.ErrFieldUnsupported) {
		t.Fatalf("expected field rejection, got %v", err)
	}
}

func TestDraftObservedWithLatestRevisionFlag(t *testing.T) {
	ctx := context.Background()
	store := item.NewMemoryStore()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	id := uuid.New()

	seed(t, store, &item.Item{
		ID: id, TypeID: "content", Bundle: "page", RevisionID: 1,
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en"},
		},
	})
	if err := store.PutDraft(ctx, &item.Item{
		ID: id, TypeID: "content", Bundle: "page", RevisionID: 1, LatestRevisionID: 2,
		Translations: []*item.Translation{
			{ID: uuid.New(), ItemID: id, Locale: "en", PublishAt: ptrTime(now.Add(-time.Minute))},
		},
	}); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	ids, err := store.QueryDue(ctx, item.DueQuery{
		TypeID: "content", Bundles: []string{"page"}, Field: "publish_at", Until: now,
	})
	if err != nil {
		t.Fatalf("query live: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected live view to miss the draft schedule, got %v", ids)
	}

	ids, err = store.QueryDue(ctx, item.DueQuery{
		TypeID: "content", Bundles: []string{"page"}, Field: "publish_at", Until: now, LatestRevision: true,
	})
	if err != nil {
		t.Fatalf("query latest: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected draft schedule visible at latest revision, got %v", ids)
	}

	loaded, err := store.GetByID(ctx, id, true)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if loaded.LatestRevisionID != 2 {
		t.Fatalf("expected forward revision loaded, got %+v", loaded)
	}
}

func TestUpdateKeepsDraftCoherent(t *testing.T) {
	ctx := context.Background()
	store := item.NewMemoryStore()
	id := uuid.New()

	seed(t, store, &item.Item{
		ID: id, TypeID: "content", Bundle: "page",
		Translations: []*item.Translation{{ID: uuid.New(), ItemID: id, Locale: "en"}},
	})
	if err := store.PutDraft(ctx, &item.Item{
		ID: id, TypeID: "content", Bundle: "page", LatestRevisionID: 2,
		Translations: []*item.Translation{{ID: uuid.New(), ItemID: id, Locale: "en"}},
	}); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	live, err := store.GetByID(ctx, id, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	live.Translations[0].IsPublished = true
	if _, err := store.Update(ctx, live); err != nil {
		t.Fatalf("update: %v", err)
	}

	draft, err := store.GetByID(ctx, id, true)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if !draft.Translations[0].IsPublished {
		t.Fatalf("expected draft replaced alongside live state")
	}
}

func TestBundleValueResolution(t *testing.T) {
	it := &item.Item{Bundle: "page", Attributes: map[string]any{"kind": "landing", "weight": 3}}

	if got, ok := it.BundleValue(""); !ok || got != "page" {
		t.Fatalf("expected builtin column for empty field, got %q %v", got, ok)
	}
	if got, ok := it.BundleValue("bundle"); !ok || got != "page" {
		t.Fatalf("expected builtin column, got %q %v", got, ok)
	}
	if got, ok := it.BundleValue("kind"); !ok || got != "landing" {
		t.Fatalf("expected attribute lookup, got %q %v", got, ok)
	}
	if _, ok := it.BundleValue("missing"); ok {
		t.Fatalf("expected missing attribute reported")
	}
	if _, ok := it.BundleValue("weight"); ok {
		t.Fatalf("expected non-string attribute reported as absent")
	}
}

func TestRecomputePublished(t *testing.T) {
	it := &item.Item{
		Translations: []*item.Translation{
			{Locale: "en", IsPublished: false},
			{Locale: "es", IsPublished: true},
		},
	}
	it.RecomputePublished()
	if !it.IsPublished {
		t.Fatalf("expected item published while any translation is")
	}

	it.Translations[1].IsPublished = false
	it.RecomputePublished()
	if it.IsPublished {
		t.Fatalf("expected item unpublished once every translation is")
	}
}

func TestBeginRevision(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	it := &item.Item{RevisionID: 2, LatestRevisionID: 5}
	it.BeginRevision("opened by test", now)
	if it.LatestRevisionID != 6 || it.RevisionID != 6 {
		t.Fatalf("expected revision advanced past the newest, got live=%d latest=%d", it.RevisionID, it.LatestRevisionID)
	}
	if it.RevisionLog != "opened by test" || !it.UpdatedAt.Equal(now) {
		t.Fatalf("expected revision metadata recorded, got %+v", it)
	}
}

func seed(t *testing.T, store *item.MemoryStore, record *item.Item) {
	t.Helper()
	if _, err := store.Create(context.Background(), record); err != nil {
		t.Fatalf("seed: %v", err)
	}
}
