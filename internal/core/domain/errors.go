package domain

import (
	"errors"
)

// ErrThreadNotFound indicates a stored thread reference no longer exists
// upstream. Callers self-heal by clearing the reference.
var ErrThreadNotFound = errors.New("thread not found")
