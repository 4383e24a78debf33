package repository

import "errors"

// Sentinel errors mapped from storage constraints. Services translate them
// into the client-facing error taxonomy.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
