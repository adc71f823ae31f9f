package engine

import (
	"context"
	"sync"
	"time"
)

// AuditEvent captures one applied transition for the host audit trail.
type AuditEvent struct {
	EntityType string
	EntityID   string
	Locale     string
	Action     string
	OccurredAt time.Time
	Metadata   map[string]any
}

// AuditRecorder persists audit events. Recording is best effort; the engine
// never fails a transition because the audit sink did.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent) error
}

// InMemoryAuditRecorder collects audit events for tests and scaffolding.
type InMemoryAuditRecorder struct {
	mu     sync.Mutex
	events []AuditEvent
}

// NewInMemoryAuditRecorder creates an empty recorder.
func NewInMemoryAuditRecorder() *InMemoryAuditRecorder {
	return &InMemoryAuditRecorder{}
}

func (r *InMemoryAuditRecorder) Record(_ context.Context, event AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *InMemoryAuditRecorder) Events() []AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}
