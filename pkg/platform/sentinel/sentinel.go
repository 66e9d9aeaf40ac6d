package sentinel

import "errors"

// Infrastructure facts returned (optionally wrapped) by stores and KV backends.
// Services translate them into coded domain errors; handlers never see them.
var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a uniqueness violation, e.g. a second active reservation for a unit.
	ErrConflict = errors.New("conflict")
	ErrExpired  = errors.New("expired")
	// ErrContention reports that an optimistic transaction lost its race and exhausted retries.
	ErrContention  = errors.New("contention")
	ErrUnavailable = errors.New("unavailable")
)
