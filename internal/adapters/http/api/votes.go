package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/rice/internal/app"
	"github.com/okian/rice/internal/domain/model"
)

// VoteDependencies defines the vote submission operations.
type VoteDependencies interface {
	SubmitReach(ctx context.Context, sessionID, participantID string, in service.ReachInput) error
	SubmitImpact(ctx context.Context, sessionID, participantID string, in service.ImpactInput) error
	SubmitConfidence(ctx context.Context, sessionID, participantID string, in service.ConfidenceInput) error
	SubmitEffort(ctx context.Context, sessionID, participantID string, in service.EffortInput) error
}

// voteRequest is the union of the four vote bodies; the path dimension
// decides which fields are read.
type voteRequest struct {
	ParticipantID string                 `json:"participant_id"`
	CategoryID    string                 `json:"category_id,omitempty"`
	Metrics       []model.MetricEstimate `json:"metrics,omitempty"`
	SourceIDs     []string               `json:"source_ids,omitempty"`
	DevSizeID     string                 `json:"dev_size_id,omitempty"`
	DesignSizeID  string                 `json:"design_size_id,omitempty"`
}

type voteAck struct {
	Status    string          `json:"status"`
	Dimension model.Dimension `json:"dimension"`
}

// VoteHandler handles vote submissions.
type VoteHandler struct {
	deps VoteDependencies
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(deps VoteDependencies) *VoteHandler {
	return &VoteHandler{deps: deps}
}

// HandlePutVote handles PUT /sessions/{id}/votes/{dimension}. A later vote
// by the same participant replaces the earlier one.
func (h *VoteHandler) HandlePutVote(w http.ResponseWriter, r *http.Request) {
	d, err := model.ParseDimension(r.PathValue("dimension"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	var req voteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	participant := strings.TrimSpace(req.ParticipantID)
	if participant == "" {
		participant = strings.TrimSpace(r.Header.Get(actorHeader))
	}
	if participant == "" {
		writeError(w, fmt.Errorf("%w: participant_id is required", ErrBadRequest))
		return
	}

	ctx, sessionID := r.Context(), r.PathValue("id")
	switch d {
	case model.DimensionReach:
		err = h.deps.SubmitReach(ctx, sessionID, participant, service.ReachInput{CategoryID: req.CategoryID})
	case model.DimensionImpact:
		err = h.deps.SubmitImpact(ctx, sessionID, participant, service.ImpactInput{Metrics: req.Metrics})
	case model.DimensionConfidence:
		err = h.deps.SubmitConfidence(ctx, sessionID, participant, service.ConfidenceInput{SourceIDs: req.SourceIDs})
	case model.DimensionEffort:
		err = h.deps.SubmitEffort(ctx, sessionID, participant, service.EffortInput{DevSizeID: req.DevSizeID, DesignSizeID: req.DesignSizeID})
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voteAck{Status: "stored", Dimension: d})
}
