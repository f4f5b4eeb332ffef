package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a user has no persisted session.
var ErrSessionNotFound = errors.New("session not found")

// ErrConflict is returned by a store when the session was modified since it was loaded.
var ErrConflict = errors.New("session version conflict")

// ErrInvalidCode is returned by the gateway when an access code is rejected.
var ErrInvalidCode = errors.New("invalid access code")

// ErrItemNotFound is returned by the gateway when an item is not in the catalog.
var ErrItemNotFound = errors.New("item not found")

// ErrProfileMissing is returned by the gateway when the user has no finalized profile.
var ErrProfileMissing = errors.New("profile missing")

// ErrTransport marks infrastructure failures (network, timeout, bad status, bad payload).
var ErrTransport = errors.New("transport failure")

// TransportError wraps an infrastructure failure of a remote operation.
// errors.Is(err, ErrTransport) reports true for it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
