package api_v1

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	VALIDATION_ERROR    ErrorKind = "ValidationError"
	NOT_FOUND           ErrorKind = "NotFound"
	MALFORMED_MESSAGE   ErrorKind = "MalformedMessage"
	UNKNOWN_TRIGGER     ErrorKind = "UnknownTrigger"
	EVALUATION_ERROR    ErrorKind = "EvaluationError"
	PERSISTENCE_ERROR   ErrorKind = "PersistenceError"
	CONFIGURATION_ERROR ErrorKind = "ConfigurationError"
)

// Error is the single error type surfaced by the public operations. Kind
// tells callers which class of failure happened, Err keeps the cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf returns the kind of the outermost *Error in the chain, or an empty
// kind when err was not produced by this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// ValidateChannel checks that a channel is a usable identifier.
func ValidateChannel(channel string) error {
	if len(channel) == 0 {
		return NewError(VALIDATION_ERROR, "channel must be a non-empty string")
	}
	return nil
}
