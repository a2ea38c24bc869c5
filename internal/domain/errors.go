package domain

import (
	"fmt"
)

// ValidationError reports a record that violates a domain invariant. The
// record is never constructed.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// RemoteFetchError reports a failed upstream request: either a non-2xx status
// or a transport/decoding failure (StatusCode is 0 in that case).
type RemoteFetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// StorageError reports a failed database operation. The enclosing
// transaction has been rolled back when this error is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
