package item

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore persists items and their translations through bun. The live row
// carries both the live and the latest revision markers, so the
// latest-revision query flag selects which marker downstream code trusts
// rather than a different table.
type BunStore struct {
	db           *bun.DB
	repo         repository.Repository[*Item]
	translations repository.Repository[*Translation]
}

func NewBunStore(db *bun.DB) *BunStore {
	return NewBunStoreWithCache(db, nil, nil)
}

// NewBunStoreWithCache constructs a BunStore with optional read caching.
func NewBunStoreWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunStore {
	return &BunStore{
		db:           db,
		repo:         wrapWithCache(NewItemRepository(db), cacheService, keySerializer),
		translations: wrapWithCache(NewTranslationRepository(db), cacheService, keySerializer),
	}
}

func (r *BunStore) Create(ctx context.Context, record *Item) (*Item, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	if err := r.replaceTranslations(ctx, created.ID, record.Translations); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, created.ID, false)
}

func (r *BunStore) GetByID(ctx context.Context, id uuid.UUID, latestRevision bool) (*Item, error) {
	result, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "item", id.String())
	}
	translations, _, err := r.translations.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.item_id = ?", id).Order("locale ASC")
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "item translations", id.String())
	}
	result.Translations = translations
	if !latestRevision {
		// Callers reading the live revision must not act on forward
		// revision metadata.
		result.LatestRevisionID = result.RevisionID
	}
	return result, nil
}

func (r *BunStore) Update(ctx context.Context, record *Item) (*Item, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns(
			"is_published",
			"revision_id",
			"latest_revision_id",
			"revision_log",
			"attributes",
			"updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "item", record.ID.String())
	}
	if err := r.replaceTranslations(ctx, record.ID, record.Translations); err != nil {
		return nil, err
	}
	updated.Translations = record.Translations
	return updated, nil
}

// QueryDue returns ids of items with at least one translation due on the
// given schedule field, ordered by the earliest due timestamp ascending.
func (r *BunStore) QueryDue(ctx context.Context, q DueQuery) ([]uuid.UUID, error) {
	if q.Field != "publish_at" && q.Field != "unpublish_at" {
		return nil, ErrFieldUnsupported
	}
	if len(q.Bundles) == 0 {
		return nil, nil
	}

	var ids []uuid.UUID
	err := r.db.NewSelect().
		TableExpr("scheduled_items AS si").
		ColumnExpr("si.id").
		Join("JOIN scheduled_item_translations AS sit ON sit.item_id = si.id").
		Where("si.type_id = ?", q.TypeID).
		Where("si.bundle IN (?)", bun.In(q.Bundles)).
		Where("sit.? IS NOT NULL", bun.Ident(q.Field)).
		Where("sit.? <= ?", bun.Ident(q.Field), q.Until).
		GroupExpr("si.id").
		OrderExpr("MIN(sit.?) ASC", bun.Ident(q.Field)).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("item repository error: %w", err)
	}
	return ids, nil
}

func (r *BunStore) replaceTranslations(ctx context.Context, itemID uuid.UUID, translations []*Translation) error {
	if r.db == nil {
		return fmt.Errorf("item repository: database not configured")
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*Translation)(nil)).
			Where("?TableAlias.item_id = ?", itemID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete item translations: %w", err)
		}

		if len(translations) == 0 {
			return nil
		}

		now := time.Now().UTC()
		toInsert := make([]*Translation, 0, len(translations))
		for _, tr := range translations {
			if tr == nil {
				continue
			}
			cloned := *tr
			cloned.ItemID = itemID
			if cloned.ID == uuid.Nil {
				cloned.ID = uuid.New()
			}
			if cloned.CreatedAt.IsZero() {
				cloned.CreatedAt = now
			}
			if cloned.ChangedAt.IsZero() {
				cloned.ChangedAt = now
			}
			toInsert = append(toInsert, &cloned)
		}
		if len(toInsert) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&toInsert).Exec(ctx); err != nil {
			return fmt.Errorf("insert item translations: %w", err)
		}
		return nil
	})
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{
			Resource: resource,
			Key:      key,
		}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}
