// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates a malformed or semantically invalid payload.
var ErrValidation = errors.New("validation error")

// ErrStorageUnavailable indicates a transient backend failure. It is the only
// error class a caller may retry.
var ErrStorageUnavailable = errors.New("storage unavailable")
