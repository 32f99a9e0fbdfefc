package storage

import "errors"

// ErrNotFound is returned when a key has never been written
var ErrNotFound = errors.New("storage: not found")
