package interfaces

import "context"

// Severity classifies operator-facing messages emitted alongside log entries.
type Severity string

const (
	SeverityStatus  Severity = "status"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Messenger delivers operator-facing messages. It is a distinct channel from
// logging: configuration problems surface through both so that the audience
// watching the admin surface sees them without tailing logs. Implementations
// must not fail the caller; delivery is best effort.
type Messenger interface {
	Message(ctx context.Context, severity Severity, text string)
}
