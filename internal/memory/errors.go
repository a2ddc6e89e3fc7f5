package memory

import "fmt"

// LoadError indicates the store could not be read at turn start. The
// orchestrator surfaces it to the caller as a retryable failure rather
// than silently defaulting to empty context.
type LoadError struct {
	UserID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load context for user %s: %v", e.UserID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError indicates the end-of-turn persist failed. The orchestrator
// treats the entire turn as failed; nothing is partially written.
type SaveError struct {
	UserID string
	Err    error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save context for user %s: %v", e.UserID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
