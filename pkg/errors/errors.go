package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goErrors.New(msg)
}

// ContextError annotates an error with a description of the operation that
// produced it. Contexts stack as the error propagates up, so the final
// message reads like a breadcrumb trail.
type ContextError struct {
	Context string
	Err     error
}

func (err ContextError) Error() string {
	return fmt.Sprintf("%s: %s", err.Context, err.Err)
}

// Unwrap returns the wrapped error so that ContextError works with the
// standard errors.Is and errors.As.
func (err ContextError) Unwrap() error {
	return err.Err
}

// WithContext wraps err with a description of the operation that failed.
func WithContext(err error, context string) error {
	return ContextError{Context: context, Err: err}
}

// RootCause peels off all context annotations and returns the underlying
// error.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(ContextError)
		if !ok {
			return err
		}
		err = ctxErr.Err
	}
}

// FriendlyError is an error whose message is meant to be shown to the user
// directly, without any "context: context: cause" chain prepended.
type FriendlyError struct {
	Message string
}

func (err FriendlyError) Error() string {
	return err.Message
}

// NewFriendlyError creates a FriendlyError with a formatted message.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{Message: fmt.Sprintf(format, args...)}
}

// GetPrintableMessage returns the message that should be shown to the user
// for the given error.
func GetPrintableMessage(err error) string {
	if friendly, ok := err.(FriendlyError); ok {
		return friendly.Message
	}
	return err.Error()
}
