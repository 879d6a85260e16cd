package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, lockers and remote
// adapters return these (optionally wrapped) so services can translate them
// into domain errors.
//
//   - ErrNotFound: record or history row does not exist
//   - ErrConflict: a write raced with another writer
//   - ErrLockHeld: a vehicle lock is owned by someone else
//   - ErrUnavailable: remote service or backing store temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrLockHeld    = errors.New("lock held")
	ErrUnavailable = errors.New("unavailable")
)
