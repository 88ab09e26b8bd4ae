package ranking

import "errors"

// Sentinel kinds for score index errors.
var (
	ErrNotFound     = errors.New("session not ranked")
	ErrInvalidLimit = errors.New("invalid report limit")
	ErrInvalidScore = errors.New("score must be finite")
)
