package service

import "errors"

// Sentinel kinds for service errors. Storage and domain errors pass through
// wrapped, so callers can also match repository.ErrNotFound and friends.
var (
	ErrValidation       = errors.New("validation failed")
	ErrForbidden        = errors.New("facilitator only")
	ErrRevealNotAllowed = errors.New("not every participant has voted")
	ErrNotStarted       = errors.New("service not started")
)
