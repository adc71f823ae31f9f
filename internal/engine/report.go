package engine

import (
	"time"

	"github.com/goliatone/go-lifecycle/internal/domain"
)

// Report aggregates what one pass did. The Transitioned count backs the
// boolean contract of the trigger surface: callers use it to decide whether
// more cron work is pending.
type Report struct {
	Process      domain.Process
	Started      time.Time
	Transitioned int
	Vetoed       int
	Skipped      int
	Failed       int
}

// Processed reports whether any item transitioned during the pass.
func (r *Report) Processed() bool {
	return r != nil && r.Transitioned > 0
}

// TransitionOutcome tracks how a single translation fared, for logging and
// the rollback decision. It is never persisted beyond the run.
type TransitionOutcome struct {
	SucceededViaExtension bool
	FailedViaExtension    bool
	DefaultActionApplied  bool
	RestoredTimestamp     *time.Time
}
