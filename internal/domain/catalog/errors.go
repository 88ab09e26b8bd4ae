package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrNotFound     = errors.New("catalog entry not found")
	ErrInvalidEntry = errors.New("invalid catalog entry")
	ErrInvalidPatch = errors.New("invalid catalog patch")
)
