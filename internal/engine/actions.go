package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-lifecycle/internal/item"
)

// Default action ids registered out of the box.
const (
	ActionPublishItem   = "lifecycle.item.publish"
	ActionUnpublishItem = "lifecycle.item.unpublish"
)

// ActionExecutor runs a host action against one translation of an item.
type ActionExecutor interface {
	Execute(ctx context.Context, actionID string, it *item.Item, tr *item.Translation) error
}

// ActionFunc is a single registered action implementation.
type ActionFunc func(ctx context.Context, it *item.Item, tr *item.Translation) error

// ActionRegistry maps action ids to implementations. Hosts register their
// own actions next to the defaults, including moderation-specific variants
// keyed as "<action_id>:<moderation_state>".
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
}

// NewActionRegistry creates an empty action registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]ActionFunc)}
}

// NewDefaultActions returns a registry preloaded with the builtin publish and
// unpublish actions that flip the translation's published flag.
func NewDefaultActions() *ActionRegistry {
	r := NewActionRegistry()
	r.Register(ActionPublishItem, func(_ context.Context, it *item.Item, tr *item.Translation) error {
		tr.IsPublished = true
		it.RecomputePublished()
		return nil
	})
	r.Register(ActionUnpublishItem, func(_ context.Context, it *item.Item, tr *item.Translation) error {
		tr.IsPublished = false
		it.RecomputePublished()
		return nil
	})
	return r
}

// Register adds or replaces an action implementation.
func (r *ActionRegistry) Register(actionID string, fn ActionFunc) {
	if actionID == "" || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[actionID] = fn
}

// Has reports whether the action id is registered.
func (r *ActionRegistry) Has(actionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[actionID]
	return ok
}

// Execute runs the named action, wrapping unknown ids in ErrActionNotFound.
func (r *ActionRegistry) Execute(ctx context.Context, actionID string, it *item.Item, tr *item.Translation) error {
	r.mu.RLock()
	fn, ok := r.actions[actionID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrActionNotFound, actionID)
	}
	return fn(ctx, it, tr)
}

// VariantActionID composes the moderation-specific form of an action id.
func VariantActionID(actionID, moderationState string) string {
	return actionID + ":" + moderationState
}
