package accommodation

import "errors"

var (
	// ErrNotFound indicates the targeted accommodation or room type does
	// not exist.
	ErrNotFound = errors.New("accommodation: not found")

	// ErrVersionConflict indicates an update carried a stale expected
	// version. The caller should reload and retry with current state.
	ErrVersionConflict = errors.New("accommodation: version conflict")
)
