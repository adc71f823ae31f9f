package policy

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

// globalScope marks the record row carrying the site-wide defaults.
const globalScope = "*"

// Record is the persisted form of a bundle policy.
type Record struct {
	bun.BaseModel `bun:"table:bundle_policies,alias:bp"`

	ID           uuid.UUID `bun:",pk,type:uuid" json:"id"`
	EntityTypeID string    `bun:"entity_type_id,notnull" json:"entity_type_id"`
	Bundle       string    `bun:"bundle,notnull" json:"bundle"`

	PublishEnabled            bool `bun:"publish_enabled,notnull,default:false" json:"publish_enabled"`
	UnpublishEnabled          bool `bun:"unpublish_enabled,notnull,default:false" json:"unpublish_enabled"`
	CreateRevisionOnPublish   bool `bun:"create_revision_on_publish,notnull,default:false" json:"create_revision_on_publish"`
	CreateRevisionOnUnpublish bool `bun:"create_revision_on_unpublish,notnull,default:false" json:"create_revision_on_unpublish"`
	TouchCreatedOnPublish     bool `bun:"touch_created_on_publish,notnull,default:false" json:"touch_created_on_publish"`
	TouchCreatedWhenPastDue   bool `bun:"touch_created_when_past_due,notnull,default:false" json:"touch_created_when_past_due"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

func (r *Record) policy() BundlePolicy {
	return BundlePolicy{
		PublishEnabled:            r.PublishEnabled,
		UnpublishEnabled:          r.UnpublishEnabled,
		CreateRevisionOnPublish:   r.CreateRevisionOnPublish,
		CreateRevisionOnUnpublish: r.CreateRevisionOnUnpublish,
		TouchCreatedOnPublish:     r.TouchCreatedOnPublish,
		TouchCreatedWhenPastDue:   r.TouchCreatedWhenPastDue,
	}
}

func NewRecordRepository(db *bun.DB) repository.Repository[*Record] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Record]{
		NewRecord: func() *Record { return &Record{} },
		GetID: func(r *Record) uuid.UUID {
			return r.ID
		},
		SetID: func(r *Record, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(r *Record) string {
			if r == nil {
				return ""
			}
			return r.ID.String()
		},
	})
}

// BunStore reads bundle policies from the host database.
type BunStore struct {
	repo repository.Repository[*Record]
}

func NewBunStore(db *bun.DB) *BunStore {
	return NewBunStoreWithCache(db, nil, nil)
}

// NewBunStoreWithCache constructs a BunStore with optional read caching.
// Policy rows change rarely, so caching them is usually worthwhile.
func NewBunStoreWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunStore {
	base := NewRecordRepository(db)
	if cacheService != nil && keySerializer != nil {
		base = repositorycache.New(base, cacheService, keySerializer)
	}
	return &BunStore{repo: base}
}

func (s *BunStore) Get(ctx context.Context, entityTypeID, bundle string) (*BundlePolicy, bool, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.entity_type_id = ?", entityTypeID).
				Where("?TableAlias.bundle = ?", bundle)
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, false, mapRepositoryError(err, entityTypeID+":"+bundle)
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	pol := records[0].policy()
	return &pol, true, nil
}

func (s *BunStore) Bundles(ctx context.Context, entityTypeID string) (map[string]BundlePolicy, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.entity_type_id = ?", entityTypeID)
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, entityTypeID)
	}
	out := make(map[string]BundlePolicy, len(records))
	for _, rec := range records {
		if rec == nil || rec.Bundle == globalScope {
			continue
		}
		out[rec.Bundle] = rec.policy()
	}
	return out, nil
}

func (s *BunStore) GlobalDefaults(ctx context.Context) (*BundlePolicy, bool, error) {
	return s.Get(ctx, globalScope, globalScope)
}

// Put stores the policy for type+bundle, replacing any existing record.
func (s *BunStore) Put(ctx context.Context, entityTypeID, bundle string, pol BundlePolicy) error {
	existing, err := s.record(ctx, entityTypeID, bundle)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	record := &Record{
		EntityTypeID:              entityTypeID,
		Bundle:                    bundle,
		PublishEnabled:            pol.PublishEnabled,
		UnpublishEnabled:          pol.UnpublishEnabled,
		CreateRevisionOnPublish:   pol.CreateRevisionOnPublish,
		CreateRevisionOnUnpublish: pol.CreateRevisionOnUnpublish,
		TouchCreatedOnPublish:     pol.TouchCreatedOnPublish,
		TouchCreatedWhenPastDue:   pol.TouchCreatedWhenPastDue,
		UpdatedAt:                 now,
	}

	if existing == nil {
		record.ID = uuid.New()
		record.CreatedAt = now
		if _, err := s.repo.Create(ctx, record); err != nil {
			return mapRepositoryError(err, entityTypeID+":"+bundle)
		}
		return nil
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	if _, err := s.repo.Update(ctx, record, repository.UpdateByID(existing.ID.String())); err != nil {
		return mapRepositoryError(err, entityTypeID+":"+bundle)
	}
	return nil
}

// PutGlobalDefaults stores the site-wide fallback policy.
func (s *BunStore) PutGlobalDefaults(ctx context.Context, pol BundlePolicy) error {
	return s.Put(ctx, globalScope, globalScope, pol)
}

func (s *BunStore) record(ctx context.Context, entityTypeID, bundle string) (*Record, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.entity_type_id = ?", entityTypeID).
				Where("?TableAlias.bundle = ?", bundle)
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, entityTypeID+":"+bundle)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return nil
	}
	return fmt.Errorf("policy repository error (%s): %w", key, err)
}
