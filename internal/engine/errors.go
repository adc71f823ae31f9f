package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-lifecycle/internal/domain"
)

var (
	ErrRegistryRequired = errors.New("engine: adapter registry is required")
	ErrPolicyRequired   = errors.New("engine: policy accessor is required")
	ErrStoreRequired    = errors.New("engine: item store is required")
	ErrProcessInvalid   = errors.New("engine: invalid process")
	// ErrActionNotFound reports an action id with no registered implementation.
	ErrActionNotFound = errors.New("engine: action not found")
)

// TypeNotEnabledError reports an extension-injected id whose bundle is not
// enabled for scheduling. The query step never selects such items, so this
// always points at a list hook tagging ids it should not. It aborts the whole
// run: silently dropping mis-tagged ids would hide the upstream bug.
type TypeNotEnabledError struct {
	EntityTypeID string
	Bundle       string
	Process      domain.Process
	Hooks        []string
}

func (e *TypeNotEnabledError) Error() string {
	hooks := "unknown"
	if len(e.Hooks) > 0 {
		hooks = strings.Join(e.Hooks, ", ")
	}
	return fmt.Sprintf(
		"engine: %s scheduling is not enabled for type %q bundle %q; id injected by list hook(s): %s",
		e.Process, e.EntityTypeID, e.Bundle, hooks,
	)
}

// MissingActionError reports that the default transition action for a type
// cannot be resolved. Fatal for the run: no extension handled the item and
// the engine has nothing to execute.
type MissingActionError struct {
	EntityTypeID string
	Process      domain.Process
	ActionID     string
}

func (e *MissingActionError) Error() string {
	return fmt.Sprintf(
		"engine: action %q for type %q (%s pass) is not defined; register the action or disable %s scheduling for this type",
		e.ActionID, e.EntityTypeID, e.Process, e.Process,
	)
}

func (e *MissingActionError) Unwrap() error {
	return ErrActionNotFound
}
