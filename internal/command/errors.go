package command

import "fmt"

// ValidationError rejects malformed input at the boundary, before anything is
// persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
