package blog

import (
	"fmt"
	"strings"
)

// ValidationError carries the human-readable reasons a record was rejected.
// It is a value, not a wire exception: executors turn it into a failed
// result envelope.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// NotFoundError reports a mutation against a record that does not exist.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d wasn't found", e.Kind, e.ID)
}
