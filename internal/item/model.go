package item

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-lifecycle/internal/domain"
)

// Item is the canonical record for a schedulable content unit. Identity,
// typing, and revision bookkeeping live here; scheduling timestamps live on
// the translations because each language variant runs its own schedule.
type Item struct {
	bun.BaseModel `bun:"table:scheduled_items,alias:si"`

	ID          uuid.UUID `bun:",pk,type:uuid" json:"id"`
	TypeID      string    `bun:"type_id,notnull" json:"type_id"`
	Bundle      string    `bun:"bundle,notnull" json:"bundle"`
	IsPublished bool      `bun:"is_published,notnull,default:false" json:"is_published"`

	// Revision bookkeeping. RevisionID tracks the live revision,
	// LatestRevisionID the newest one (a moderated draft may be ahead of the
	// live revision). RevisionLog carries the message recorded when the
	// scheduler opens a new revision.
	RevisionID       int64  `bun:"revision_id,notnull,default:0" json:"revision_id"`
	LatestRevisionID int64  `bun:"latest_revision_id,notnull,default:0" json:"latest_revision_id"`
	RevisionLog      string `bun:"revision_log" json:"revision_log,omitempty"`

	// Attributes holds host-defined fields keyed by name. Adapters whose
	// TypeFieldName is not the builtin bundle column resolve it from here.
	Attributes map[string]any `bun:"attributes,type:jsonb" json:"attributes,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`

	Translations []*Translation `bun:"rel:has-many,join:id=item_id" json:"translations,omitempty"`
}

// Translation is a language-specific variant of an item. Translations share
// the item identity but schedule independently.
type Translation struct {
	bun.BaseModel `bun:"table:scheduled_item_translations,alias:sit"`

	ID          uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	ItemID      uuid.UUID  `bun:"item_id,notnull,type:uuid" json:"item_id"`
	Locale      string     `bun:"locale,notnull" json:"locale"`
	PublishAt   *time.Time `bun:"publish_at,nullzero" json:"publish_at,omitempty"`
	UnpublishAt *time.Time `bun:"unpublish_at,nullzero" json:"unpublish_at,omitempty"`
	IsPublished bool       `bun:"is_published,notnull,default:false" json:"is_published"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	ChangedAt   time.Time  `bun:"changed_at,nullzero,default:current_timestamp" json:"changed_at"`
}

// ScheduleFor returns the translation's timestamp for the given process.
func (t *Translation) ScheduleFor(process domain.Process) *time.Time {
	if t == nil {
		return nil
	}
	if process == domain.ProcessUnpublish {
		return t.UnpublishAt
	}
	return t.PublishAt
}

// SetSchedule assigns the translation's timestamp for the given process.
func (t *Translation) SetSchedule(process domain.Process, at *time.Time) {
	if t == nil {
		return
	}
	if process == domain.ProcessUnpublish {
		t.UnpublishAt = at
		return
	}
	t.PublishAt = at
}

// Translation returns the variant for the supplied locale, or nil.
func (i *Item) Translation(locale string) *Translation {
	for _, tr := range i.Translations {
		if tr != nil && tr.Locale == locale {
			return tr
		}
	}
	return nil
}

// BundleValue resolves the bundle through the named field. The builtin
// "bundle" column is always available; any other name is looked up in the
// attribute map. The second return reports whether the field exists at all.
func (i *Item) BundleValue(field string) (string, bool) {
	if field == "" || field == "bundle" {
		return i.Bundle, true
	}
	raw, ok := i.Attributes[field]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	return value, ok
}

// BeginRevision opens a new revision so the transition lands on a fresh
// revision instead of overwriting the live one.
func (i *Item) BeginRevision(message string, at time.Time) {
	i.LatestRevisionID++
	i.RevisionID = i.LatestRevisionID
	i.RevisionLog = message
	i.UpdatedAt = at
}

// RecomputePublished derives the item-level flag from its translations. An
// item counts as published while any translation is.
func (i *Item) RecomputePublished() {
	for _, tr := range i.Translations {
		if tr != nil && tr.IsPublished {
			i.IsPublished = true
			return
		}
	}
	i.IsPublished = false
}

// Clone returns a deep copy so stores can hand out records without sharing
// mutable state with callers.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	copied := *i
	if len(i.Translations) > 0 {
		copied.Translations = make([]*Translation, len(i.Translations))
		for idx, tr := range i.Translations {
			if tr == nil {
				continue
			}
			local := *tr
			copied.Translations[idx] = &local
		}
	}
	if len(i.Attributes) > 0 {
		copied.Attributes = make(map[string]any, len(i.Attributes))
		for k, v := range i.Attributes {
			copied.Attributes[k] = v
		}
	}
	return &copied
}

// DueQuery describes one store lookup for due items: one type, the bundle set
// enabled for the pass, and the schedule field to compare against Until.
type DueQuery struct {
	TypeID  string
	Bundles []string
	// Field is the schedule column to compare, per domain.Process.TimestampField.
	Field string
	Until time.Time
	// LatestRevision asks the store to consider the newest revision of each
	// item rather than the live one, so moderated drafts stay reachable.
	LatestRevision bool
}
