package extension

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/item"
)

// The generic scope receives every type's pipeline, alongside the handlers
// registered for the specific entity type.
const scopeGeneric = ""

type namedList struct {
	source string
	fn     ListFunc
}

type namedListAlter struct {
	source string
	fn     ListAlterFunc
}

type namedAllowed struct {
	source string
	fn     AllowedFunc
}

type namedProcess struct {
	source string
	fn     ProcessFunc
}

// Registry is the explicit hook lookup table: handlers are registered under
// (hook kind, entity type id) at boot, replacing any naming-convention
// resolution at run time. Legacy type ids are supported through aliases so
// handlers registered under a historical id keep firing for the current one.
type Registry struct {
	mu       sync.RWMutex
	lists    map[string][]namedList
	alters   map[string][]namedListAlter
	alloweds map[string][]namedAllowed
	procs    map[string][]namedProcess
	aliases  map[string][]string
}

// NewRegistry creates an empty hook table.
func NewRegistry() *Registry {
	return &Registry{
		lists:    make(map[string][]namedList),
		alters:   make(map[string][]namedListAlter),
		alloweds: make(map[string][]namedAllowed),
		procs:    make(map[string][]namedProcess),
		aliases:  make(map[string][]string),
	}
}

// Alias makes handlers registered under legacyTypeID also resolve for
// entityTypeID. Safe to call before or after the legacy registrations.
func (r *Registry) Alias(entityTypeID, legacyTypeID string) {
	if entityTypeID == "" || legacyTypeID == "" || entityTypeID == legacyTypeID {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[entityTypeID] = append(r.aliases[entityTypeID], legacyTypeID)
}

// RegisterList attaches a list hook. An empty entityTypeID registers the
// generic scope consulted for every type. Source names the providing
// extension and is carried into diagnostics.
func (r *Registry) RegisterList(source, entityTypeID string, fn ListFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[entityTypeID] = append(r.lists[entityTypeID], namedList{source: source, fn: fn})
}

// RegisterListAlter attaches a list_alter hook.
func (r *Registry) RegisterListAlter(source, entityTypeID string, fn ListAlterFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alters[entityTypeID] = append(r.alters[entityTypeID], namedListAlter{source: source, fn: fn})
}

// RegisterAllowed attaches an allowed hook.
func (r *Registry) RegisterAllowed(source, entityTypeID string, fn AllowedFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alloweds[entityTypeID] = append(r.alloweds[entityTypeID], namedAllowed{source: source, fn: fn})
}

// RegisterProcess attaches a process hook.
func (r *Registry) RegisterProcess(source, entityTypeID string, fn ProcessFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[entityTypeID] = append(r.procs[entityTypeID], namedProcess{source: source, fn: fn})
}

// scopes returns the lookup keys consulted for a type: generic scope, the
// type itself, and any registered legacy aliases. Order is deterministic per
// registration but callers must not rely on generic-before-specific.
func (r *Registry) scopes(entityTypeID string) []string {
	out := []string{scopeGeneric, entityTypeID}
	out = append(out, r.aliases[entityTypeID]...)
	return out
}

// CollectIDs invokes every list hook for the type and returns the injected
// ids along with the source extensions that contributed each id.
func (r *Registry) CollectIDs(ctx context.Context, process domain.Process, entityTypeID string, until time.Time) ([]uuid.UUID, map[uuid.UUID][]string, error) {
	r.mu.RLock()
	handlers := []namedList{}
	for _, scope := range r.scopes(entityTypeID) {
		handlers = append(handlers, r.lists[scope]...)
	}
	r.mu.RUnlock()

	ids := []uuid.UUID{}
	sources := map[uuid.UUID][]string{}
	for _, h := range handlers {
		extra, err := h.fn(ctx, process, until)
		if err != nil {
			return nil, nil, fmt.Errorf("extension: list hook %q failed: %w", h.source, err)
		}
		for _, id := range extra {
			ids = append(ids, id)
			sources[id] = append(sources[id], h.source)
		}
	}
	return ids, sources, nil
}

// AlterIDs applies every list_alter hook to the candidate set in place.
func (r *Registry) AlterIDs(ctx context.Context, process domain.Process, entityTypeID string, ids *[]uuid.UUID) error {
	r.mu.RLock()
	handlers := []namedListAlter{}
	for _, scope := range r.scopes(entityTypeID) {
		handlers = append(handlers, r.alters[scope]...)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		if err := h.fn(ctx, process, ids); err != nil {
			return fmt.Errorf("extension: list_alter hook %q failed: %w", h.source, err)
		}
	}
	return nil
}

// Allowed consults every allowed hook. Every handler runs; any explicit deny
// vetoes the transition regardless of other answers.
func (r *Registry) Allowed(ctx context.Context, process domain.Process, entityTypeID string, it *item.Item, tr *item.Translation) bool {
	r.mu.RLock()
	handlers := []namedAllowed{}
	for _, scope := range r.scopes(entityTypeID) {
		handlers = append(handlers, r.alloweds[scope]...)
	}
	r.mu.RUnlock()

	allowed := true
	for _, h := range handlers {
		if h.fn(ctx, process, it, tr) == Deny {
			allowed = false
		}
	}
	return allowed
}

// ProcessOutcome aggregates the process hook results for one translation.
type ProcessOutcome struct {
	// Handled is set when any hook reported success; the engine skips its
	// own default action.
	Handled bool
	// Failed is set when any hook reported failure. Failure wins over
	// success: the whole transition rolls back for this translation.
	Failed bool
	// FailedBy names the extensions that reported failure.
	FailedBy []string
	// Reasons carries the failure reasons for the warning log.
	Reasons []string
}

// RunProcess invokes every process hook for the translation and folds the
// tagged results. All handlers run even after a success or failure so each
// extension observes the transition exactly once per pass.
func (r *Registry) RunProcess(ctx context.Context, process domain.Process, entityTypeID string, it *item.Item, tr *item.Translation) ProcessOutcome {
	r.mu.RLock()
	handlers := []namedProcess{}
	for _, scope := range r.scopes(entityTypeID) {
		handlers = append(handlers, r.procs[scope]...)
	}
	r.mu.RUnlock()

	outcome := ProcessOutcome{}
	for _, h := range handlers {
		result := h.fn(ctx, process, it, tr)
		switch result.State {
		case StateSucceeded:
			outcome.Handled = true
		case StateFailed:
			outcome.Failed = true
			outcome.FailedBy = append(outcome.FailedBy, h.source)
			if result.Reason != "" {
				outcome.Reasons = append(outcome.Reasons, result.Reason)
			}
		}
	}
	return outcome
}
