package extension

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/item"
)

// HookKind enumerates the pipeline points extensions can attach to.
type HookKind string

const (
	// HookList lets extensions inject extra candidate ids before loading.
	HookList HookKind = "list"
	// HookListAlter lets extensions filter or reorder the candidate id set.
	HookListAlter HookKind = "list_alter"
	// HookAllowed lets extensions veto a transition.
	HookAllowed HookKind = "allowed"
	// HookProcess lets extensions perform the transition themselves.
	HookProcess HookKind = "process"
)

// Decision is the tri-state answer of an allowed hook. Only an explicit deny
// blocks the transition; silence never does.
type Decision int

const (
	NoOpinion Decision = iota
	Allow
	Deny
)

// ProcessState tags the outcome of a process hook.
type ProcessState int

const (
	// StateUnhandled means the hook did not act; the pipeline continues.
	StateUnhandled ProcessState = iota
	// StateSucceeded means the hook performed the transition itself.
	StateSucceeded
	// StateFailed means the hook attempted and failed; the item rolls back.
	StateFailed
)

// ProcessResult is the tagged outcome of a process hook invocation.
type ProcessResult struct {
	State  ProcessState
	Reason string
}

// Unhandled reports that the hook did not act on the item.
func Unhandled() ProcessResult {
	return ProcessResult{State: StateUnhandled}
}

// Succeeded reports that the hook performed the transition.
func Succeeded() ProcessResult {
	return ProcessResult{State: StateSucceeded}
}

// Failed reports a failed attempt with a reason for the warning log.
func Failed(format string, args ...any) ProcessResult {
	return ProcessResult{State: StateFailed, Reason: fmt.Sprintf(format, args...)}
}

// ListFunc returns extra candidate ids for the pass, beyond what the store
// query selected.
type ListFunc func(ctx context.Context, process domain.Process, until time.Time) ([]uuid.UUID, error)

// ListAlterFunc mutates the candidate id set in place.
type ListAlterFunc func(ctx context.Context, process domain.Process, ids *[]uuid.UUID) error

// AllowedFunc answers whether the transition may proceed for one translation.
type AllowedFunc func(ctx context.Context, process domain.Process, it *item.Item, tr *item.Translation) Decision

// ProcessFunc may perform the transition itself, reporting the tagged result.
type ProcessFunc func(ctx context.Context, process domain.Process, it *item.Item, tr *item.Translation) ProcessResult
