// Package errs defines the typed error taxonomy for the flag registry.
// Handlers and callers branch on these types with errors.As, so every error
// that crosses a package boundary carries enough context to be mapped to a
// transport response without string matching.
package errs

import "fmt"

// ValidationError reports a rule or draft field outside its allowed domain.
// It is raised at construction time, before anything is persisted.
type ValidationError struct {
	// Field is the offending field (e.g., "percentage").
	Field string

	// Reason describes why the value was rejected.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError with a formatted reason.
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that no live (non-tombstoned) flag exists for a code.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("feature flag with code %q not found", e.Code)
}

// DuplicateCodeError reports a creation that collides with a live code.
// A tombstoned flag does not count as a collision; its code may be reused.
type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("feature flag with code %q already exists", e.Code)
}

// NotifierError wraps a change-notification failure. It is returned to the
// caller of a mutating operation AFTER the store and cache side effects have
// committed; the mutation itself is never rolled back.
type NotifierError struct {
	// Kind is the change kind whose notification failed (e.g., "updated").
	Kind string

	// Err is the underlying transport failure.
	Err error
}

func (e *NotifierError) Error() string {
	return fmt.Sprintf("failed to send %q notification: %v", e.Kind, e.Err)
}

// Unwrap exposes the cause for errors.Is/errors.As chains.
func (e *NotifierError) Unwrap() error {
	return e.Err
}
