package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("unique constraint violated")
	ErrInvalidKey = errors.New("invalid record key")
	ErrClosed     = errors.New("store closed")
)
