package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/rice/internal/domain/catalog"
)

// CatalogDependencies defines the catalog operations.
type CatalogDependencies interface {
	GetCatalog(ctx context.Context, catalogID string) (*catalog.Catalog, bool, error)
	SessionCatalog(ctx context.Context, sessionID string) (*catalog.Catalog, bool, error)
	SaveCatalog(ctx context.Context, c *catalog.Catalog) error
	ApplyCatalogPatch(ctx context.Context, catalogID string, p catalog.Patch) (*catalog.Catalog, error)
	ReplaceCatalogCollection(ctx context.Context, catalogID string, kind catalog.Kind, coll catalog.Collection) (*catalog.Catalog, error)
}

// catalogResponse flags catalogs served in place of a missing one.
type catalogResponse struct {
	*catalog.Catalog
	Fallback bool `json:"fallback"`
}

// CatalogHandler handles catalog requests.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// HandleGet handles GET /catalogs/{id}. Unknown ids serve the default
// catalog with fallback set.
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, fallback, err := h.deps.GetCatalog(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Catalog: c, Fallback: fallback})
}

// HandleSessionCatalog handles GET /sessions/{id}/catalog.
func (h *CatalogHandler) HandleSessionCatalog(w http.ResponseWriter, r *http.Request) {
	c, fallback, err := h.deps.SessionCatalog(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Catalog: c, Fallback: fallback})
}

// HandlePut handles PUT /catalogs/{id}, creating or replacing a catalog.
func (h *CatalogHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var c catalog.Catalog
	if err := decode(r, &c); err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	if c.ID != "" && c.ID != id {
		writeError(w, fmt.Errorf("%w: body id %q does not match path id %q", ErrBadRequest, c.ID, id))
		return
	}
	c.ID = id
	if err := h.deps.SaveCatalog(r.Context(), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Catalog: &c})
}

// HandlePatch handles PATCH /catalogs/{id} with one typed edit.
func (h *CatalogHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	var p catalog.Patch
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.deps.ApplyCatalogPatch(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Catalog: c})
}

// HandleReplaceCollection handles PUT /catalogs/{id}/{kind}.
func (h *CatalogHandler) HandleReplaceCollection(w http.ResponseWriter, r *http.Request) {
	kind, err := catalog.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	var coll catalog.Collection
	if err := decode(r, &coll); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.deps.ReplaceCatalogCollection(r.Context(), r.PathValue("id"), kind, coll)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Catalog: c})
}
