package result

import "errors"

// ErrDivisionByZero is returned when the effort aggregate is zero.
var ErrDivisionByZero = errors.New("effort is zero")
