package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated indicates no acting identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the actor is not the owner of the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCompletionFailed indicates the completion transition was attempted
	// but persistence did not confirm it.
	ErrCompletionFailed = errors.New("unable to complete project")
)

// CompletionFailedMessage is surfaced to the end user as a non-fatal
// warning when a completion attempt fails.
const CompletionFailedMessage = "Unable to complete project."

// Validation messages attached to individual fields.
const (
	MsgBlank = "can't be blank"
	MsgTaken = "has already been taken"
)

// ValidationError carries field-level validation messages. It is surfaced
// inline by the caller (form re-display), never as a redirect.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message to the given field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Any reports whether any field has a message.
func (e *ValidationError) Any() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, messages := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", field, strings.Join(messages, ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
