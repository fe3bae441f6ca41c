package repositories

import "errors"

var (
	// ErrNotFound reports that the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports that a uniqueness constraint rejected the write.
	ErrConflict = errors.New("record already exists")
)
