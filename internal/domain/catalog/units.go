package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePointsPerUnit extracts the numeric rate from values such as
// "0.4/pp", "0.03/k€" or "0.06". A comma decimal separator is accepted.
func ParsePointsPerUnit(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	raw = strings.TrimPrefix(raw, "+")
	raw = strings.ReplaceAll(raw, ",", ".")
	if raw == "" {
		return 0, fmt.Errorf("%w: empty points per unit", ErrInvalidEntry)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(v) {
		return 0, fmt.Errorf("%w: points per unit %q", ErrInvalidEntry, s)
	}
	return v, nil
}
