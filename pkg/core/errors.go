package core

import "errors"

// Common errors.
var (
	ErrReadOnly          = errors.New("store is in read-only mode")
	ErrInvalidID         = errors.New("invalid id")
	ErrNotFound          = errors.New("not found")
	ErrStoreUnavailable  = errors.New("storage root is not accessible")
	ErrWatchNotSupported = errors.New("store does not support watching")
)
