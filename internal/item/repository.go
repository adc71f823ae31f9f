package item

import (
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func NewItemRepository(db *bun.DB) repository.Repository[*Item] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Item]{
		NewRecord: func() *Item { return &Item{} },
		GetID: func(i *Item) uuid.UUID {
			return i.ID
		},
		SetID: func(i *Item, id uuid.UUID) {
			i.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(i *Item) string {
			if i == nil {
				return ""
			}
			return i.ID.String()
		},
	})
}

func NewTranslationRepository(db *bun.DB) repository.Repository[*Translation] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Translation]{
		NewRecord: func() *Translation { return &Translation{} },
		GetID: func(t *Translation) uuid.UUID {
			return t.ID
		},
		SetID: func(t *Translation, id uuid.UUID) {
			t.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(t *Translation) string {
			if t == nil {
				return ""
			}
			return t.ID.String()
		},
	})
}
