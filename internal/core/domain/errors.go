package domain

import "errors"

// Store-level outcomes shared by every storage adapter.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)
