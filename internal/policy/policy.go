package policy

import (
	"github.com/goliatone/go-lifecycle/internal/adapter"
	"github.com/goliatone/go-lifecycle/internal/domain"
)

// BundlePolicy holds the per-bundle scheduling switches. Records are written
// by the host configuration surface; the engine only reads them.
type BundlePolicy struct {
	PublishEnabled            bool `json:"publish_enabled"`
	UnpublishEnabled          bool `json:"unpublish_enabled"`
	CreateRevisionOnPublish   bool `json:"create_revision_on_publish"`
	CreateRevisionOnUnpublish bool `json:"create_revision_on_unpublish"`
	// TouchCreatedOnPublish forces the creation date to the publish time.
	TouchCreatedOnPublish bool `json:"touch_created_on_publish"`
	// TouchCreatedWhenPastDue corrects creation dates that sit after the
	// publish time, e.g. backdated or clock-skewed entries.
	TouchCreatedWhenPastDue bool `json:"touch_created_when_past_due"`
}

// EnabledFor reports whether the given process is switched on for the bundle.
func (p BundlePolicy) EnabledFor(process domain.Process) bool {
	if process == domain.ProcessUnpublish {
		return p.UnpublishEnabled
	}
	return p.PublishEnabled
}

// CreateRevisionFor reports whether the transition should open a new revision.
func (p BundlePolicy) CreateRevisionFor(process domain.Process) bool {
	if process == domain.ProcessUnpublish {
		return p.CreateRevisionOnUnpublish
	}
	return p.CreateRevisionOnPublish
}

// FromDefaults lifts adapter-declared defaults into a policy value.
func FromDefaults(d adapter.PolicyDefaults) BundlePolicy {
	return BundlePolicy{
		PublishEnabled:            d.PublishEnabled,
		UnpublishEnabled:          d.UnpublishEnabled,
		CreateRevisionOnPublish:   d.CreateRevisionOnPublish,
		CreateRevisionOnUnpublish: d.CreateRevisionOnUnpublish,
		TouchCreatedOnPublish:     d.TouchCreatedOnPublish,
		TouchCreatedWhenPastDue:   d.TouchCreatedWhenPastDue,
	}
}
