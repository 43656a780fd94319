package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("submission not found")
	ErrClosed   = errors.New("store closed")
)
