package domain

// Process identifies the direction of a scheduler pass.
type Process string

const (
	// ProcessPublish moves due items into the published state.
	ProcessPublish Process = "publish"
	// ProcessUnpublish moves due items out of the published state.
	ProcessUnpublish Process = "unpublish"
)

// Valid reports whether the process names a supported pass direction.
func (p Process) Valid() bool {
	return p == ProcessPublish || p == ProcessUnpublish
}

// TimestampField returns the schedule column consulted for this process.
func (p Process) TimestampField() string {
	if p == ProcessUnpublish {
		return "unpublish_at"
	}
	return "publish_at"
}

// Status represents lifecycle states for scheduled items.
type Status string

const (
	// StatusDraft indicates content still under preparation.
	StatusDraft Status = "draft"
	// StatusScheduled marks content with a future publish time configured.
	StatusScheduled Status = "scheduled"
	// StatusPublished identifies content available to consumers.
	StatusPublished Status = "published"
	// StatusUnpublished marks content withdrawn from consumers but retained.
	StatusUnpublished Status = "unpublished"
)
