package item

import (
	"errors"
	"fmt"
)

var (
	ErrItemIDRequired   = errors.New("item: item id required")
	ErrTypeIDRequired   = errors.New("item: type id required")
	ErrLocaleRequired   = errors.New("item: translation locale required")
	ErrDuplicateLocale  = errors.New("item: duplicate translation locale")
	ErrFieldUnsupported = errors.New("item: unsupported schedule field")
)

// NotFoundError reports a missing record by resource and key.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "item: not found"
	}
	return fmt.Sprintf("item: %s %q not found", e.Resource, e.Key)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
