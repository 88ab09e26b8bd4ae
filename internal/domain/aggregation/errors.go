package aggregation

import "errors"

// ErrInsufficientVotes is returned when no participant voted for a dimension.
var ErrInsufficientVotes = errors.New("insufficient votes")
