package errors

import (
	"fmt"
	"strings"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// DuplicateIdentityError represents two subdirectories within the same tree
// carrying the same identity marker. The reconciler refuses to guess which
// one is the real counterpart, so both are excluded from automatic actions
// until an operator removes one of the markers.
type DuplicateIdentityError struct {
	ID    string
	Paths []string
}

func (err DuplicateIdentityError) Error() string {
	return fmt.Sprintf("identity %q is claimed by multiple directories: %s",
		err.ID, strings.Join(err.Paths, ", "))
}
