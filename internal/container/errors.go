package container

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotZip        = errors.New("not a zip container")
	ErrEmptyArchive  = errors.New("container has no records")
	ErrMixedPrefixes = errors.New("container records do not share a root folder")
)

// RecordNotFoundError reports a request for a record the container does
// not hold.
type RecordNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record %q not found in container", e.Name)
}
