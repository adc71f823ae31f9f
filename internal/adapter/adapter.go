package adapter

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-lifecycle/internal/domain"
)

var (
	ErrTypeIDRequired    = errors.New("adapter: entity type id is required")
	ErrActionsRequired   = errors.New("adapter: publish and unpublish action ids are required")
	ErrNamespaceRequired = errors.New("adapter: event namespace is required")
	ErrDuplicateType     = errors.New("adapter: entity type already registered")
)

// PolicyDefaults are the adapter-declared fallback policy values, merged
// under host configuration when a bundle has no stored policy of its own.
type PolicyDefaults struct {
	PublishEnabled             bool
	UnpublishEnabled           bool
	CreateRevisionOnPublish    bool
	CreateRevisionOnUnpublish  bool
	TouchCreatedOnPublish      bool
	TouchCreatedWhenPastDue    bool
}

// Definition describes how one content kind participates in scheduling.
// Definitions are immutable after registration; the registry caches the
// gated view and hands out the same values for the life of the process.
type Definition struct {
	// EntityTypeID keys the adapter; one adapter per content kind.
	EntityTypeID string
	// Label names the type in logs and operator messages.
	Label string
	// TypeFieldName is the item field carrying the bundle. Empty means the
	// builtin bundle column.
	TypeFieldName string
	// DependencyModule gates the adapter on a host module being active.
	// Empty means always available.
	DependencyModule string
	// EventNamespace prefixes the pre/post transition event names.
	EventNamespace string
	// PublishActionID and UnpublishActionID name the host actions that flip
	// the published flag. Missing ids are a configuration error at run time.
	PublishActionID   string
	UnpublishActionID string
	// Revisionable types must be loaded at their latest revision so
	// moderated drafts stay reachable.
	Revisionable bool
	// FormIDs list the editing surfaces that receive schedule fields.
	FormIDs []string
	// Defaults seed the policy accessor when no bundle policy is stored.
	Defaults PolicyDefaults
}

// Validate checks the definition is internally complete.
func (d *Definition) Validate() error {
	if d == nil || d.EntityTypeID == "" {
		return ErrTypeIDRequired
	}
	if d.EventNamespace == "" {
		return fmt.Errorf("%w: type %q", ErrNamespaceRequired, d.EntityTypeID)
	}
	if d.PublishActionID == "" || d.UnpublishActionID == "" {
		return fmt.Errorf("%w: type %q", ErrActionsRequired, d.EntityTypeID)
	}
	return nil
}

// ActionFor returns the action id for the given process direction.
func (d *Definition) ActionFor(process domain.Process) string {
	if process == domain.ProcessUnpublish {
		return d.UnpublishActionID
	}
	return d.PublishActionID
}

// EventName composes the event fired at the given stage of a transition,
// e.g. "lifecycle.content.publish.pre".
func (d *Definition) EventName(process domain.Process, stage string) string {
	return d.EventNamespace + "." + string(process) + "." + stage
}
