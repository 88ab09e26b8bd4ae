package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/rice/internal/domain/aggregation"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/internal/domain/result"
)

// ResultDependencies defines the scoring and report operations.
type ResultDependencies interface {
	Finalize(ctx context.Context, sessionID, actorID string) (model.RiceResult, error)
	GetResult(ctx context.Context, sessionID string) (model.RiceResult, error)
	Scores(ctx context.Context, sessionID string) (aggregation.Scores, error)
	Report(ctx context.Context, limit int) ([]Entry, error)
	Rank(ctx context.Context, sessionID string) (Entry, error)
	Thresholds(ctx context.Context) result.Thresholds
}

// ResultHandler handles result, score and report requests.
type ResultHandler struct {
	deps ResultDependencies
}

// NewResultHandler creates a new result handler.
func NewResultHandler(deps ResultDependencies) *ResultHandler {
	return &ResultHandler{deps: deps}
}

// HandleFinalize handles POST /sessions/{id}/result. Repeating it
// recomputes and overwrites the stored result.
func (h *ResultHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.deps.Finalize(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGetResult handles GET /sessions/{id}/result.
func (h *ResultHandler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.GetResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleScores handles GET /sessions/{id}/scores.
func (h *ResultHandler) HandleScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.deps.Scores(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// HandleRank handles GET /sessions/{id}/rank.
func (h *ResultHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Rank(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleReport handles GET /results?limit=N. A missing limit uses the
// service default.
func (h *ResultHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if n, err = strconv.Atoi(raw); err != nil || n < 1 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
	}
	entries, err := h.deps.Report(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleThresholds handles GET /thresholds.
func (h *ResultHandler) HandleThresholds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Thresholds(r.Context()))
}
