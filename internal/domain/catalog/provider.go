package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/rice/pkg/logger"
	"github.com/okian/rice/pkg/metrics"
)

// Source is the storage a Provider reads catalogs from. A missing catalog
// must be reported with an error wrapping ErrNotFound.
type Source interface {
	GetCatalog(ctx context.Context, id string) (*Catalog, error)
}

// Fallback reasons reported in logs and metrics.
const (
	FallbackMissing     = "missing"
	FallbackEmpty       = "empty"
	FallbackUnavailable = "unavailable"
)

// Provider resolves the catalog a session scores against. Any failure to
// produce a usable stored catalog yields the default instead.
type Provider struct {
	src      Source
	fallback *Catalog
	log      logger.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithFallback replaces the built-in default catalog.
func WithFallback(c *Catalog) ProviderOption {
	return func(p *Provider) {
		if c != nil && !c.IsEmpty() {
			p.fallback = c.Clone()
		}
	}
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l logger.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProvider builds a Provider over src.
func NewProvider(src Source, opts ...ProviderOption) *Provider {
	p := &Provider{src: src, fallback: Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Default returns a copy of the catalog used when nothing is stored.
func (p *Provider) Default() *Catalog {
	return p.fallback.Clone()
}

// Get returns the stored catalog for id, or the fallback when the catalog
// is missing, empty or the source cannot be reached. The boolean reports
// whether the fallback was used.
func (p *Provider) Get(ctx context.Context, id string) (*Catalog, bool) {
	if id == "" || p.src == nil {
		return p.Default(), false
	}

	c, err := p.src.GetCatalog(ctx, id)
	switch {
	case err != nil && errors.Is(err, ErrNotFound):
		if id == DefaultID {
			return p.Default(), false
		}
		p.fellBack(ctx, id, FallbackMissing, err)
	case err != nil:
		p.fellBack(ctx, id, FallbackUnavailable, err)
	case c.IsEmpty():
		p.fellBack(ctx, id, FallbackEmpty, nil)
	default:
		return c, false
	}
	return p.Default(), true
}

func (p *Provider) fellBack(ctx context.Context, id, reason string, err error) {
	metrics.RecordCatalogFallback(reason)
	if p.log == nil {
		return
	}
	fields := []logger.Field{logger.String("catalog", id), logger.String("reason", reason)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	p.log.Warn(ctx, "using default catalog", fields...)
}

// LoadFile reads a catalog from a YAML file and validates it.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidEntry, path, err)
	}
	if c.ID == "" {
		c.ID = DefaultID
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
