package repository

import (
	"errors"
	"fmt"

	"github.com/okian/rice/internal/domain/catalog"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("store unavailable")
	ErrConflict    = errors.New("conflicting write")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

func catalogNotFound(id string) error {
	return fmt.Errorf("%w: %w", notFound("catalog", id), catalog.ErrNotFound)
}
