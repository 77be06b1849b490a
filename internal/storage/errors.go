package storage

import "errors"

// ErrNotFound is returned by lookups that find nothing; it is not a
// failure (spec.md §4.7: "Returns value snapshots ... or nothing").
var ErrNotFound = errors.New("storage: not found")

// Error wraps an underlying driver/SQL error into the single "storage
// failure" kind the spec requires (spec.md §4.7 Failure model): callers
// treat any Error as an operation failure, never a connection failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
