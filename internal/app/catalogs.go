package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/pkg/logger"
	"github.com/okian/rice/pkg/metrics"
)

// GetCatalog returns the catalog with the given id, or the default when it
// is missing, empty or unreadable. fallback reports the latter case.
func (s *Service) GetCatalog(ctx context.Context, catalogID string) (c *catalog.Catalog, fallback bool, err error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	c, fallback = s.catalogs.Get(ctx, catalogID)
	return c, fallback, nil
}

// SessionCatalog returns the catalog a session scores against.
func (s *Service) SessionCatalog(ctx context.Context, sessionID string) (*catalog.Catalog, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	c, fallback := s.catalogs.Get(ctx, sess.CatalogID)
	return c, fallback, nil
}

// catalogError reports malformed edits as validation failures.
func catalogError(err error) error {
	if errors.Is(err, catalog.ErrInvalidPatch) || errors.Is(err, catalog.ErrInvalidEntry) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}

// SaveCatalog creates or replaces a whole catalog.
func (s *Service) SaveCatalog(ctx context.Context, c *catalog.Catalog) error {
	if err := s.ready(); err != nil {
		return err
	}
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: catalog id is required", ErrValidation)
	}
	if err := c.Validate(); err != nil {
		return catalogError(err)
	}
	now := s.now()
	c = c.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if err := s.store.SaveCatalog(ctx, c); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

// ApplyCatalogPatch applies one typed edit atomically.
func (s *Service) ApplyCatalogPatch(ctx context.Context, catalogID string, p catalog.Patch) (*catalog.Catalog, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateCatalog(ctx, catalogID, func(c *catalog.Catalog) (*catalog.Catalog, error) {
		next, err := catalog.Apply(c, p)
		if err != nil {
			return nil, err
		}
		next.UpdatedAt = s.now()
		return next, nil
	})
	if err != nil {
		return nil, catalogError(err)
	}
	metrics.RecordCatalogPatch(string(p.Op))
	s.logger.Info(ctx, "catalog patched",
		logger.String("catalog", catalogID),
		logger.String("op", string(p.Op)),
		logger.String("kind", string(p.Kind)))
	return updated, nil
}

// ReplaceCatalogCollection swaps one whole collection of a catalog.
func (s *Service) ReplaceCatalogCollection(ctx context.Context, catalogID string, kind catalog.Kind, coll catalog.Collection) (*catalog.Catalog, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateCatalog(ctx, catalogID, func(c *catalog.Catalog) (*catalog.Catalog, error) {
		next, err := catalog.ReplaceCollection(c, kind, coll)
		if err != nil {
			return nil, err
		}
		next.UpdatedAt = s.now()
		return next, nil
	})
	if err != nil {
		return nil, catalogError(err)
	}
	metrics.RecordCatalogPatch("replace")
	return updated, nil
}
