package store

import "errors"

// ErrNotFound represents a not found error
var ErrNotFound = errors.New("not found")
