package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/pkg/metrics"
)

// Impact vote bounds.
const (
	MinImpactMetrics = 1
	MaxImpactMetrics = 3
)

// ReachInput is a reach vote payload.
type ReachInput struct {
	CategoryID string `json:"category_id"`
}

// ImpactInput is an impact vote payload.
type ImpactInput struct {
	Metrics []model.MetricEstimate `json:"metrics"`
}

// ConfidenceInput is a confidence vote payload. An empty set is a valid
// "no evidence" answer and scores 0.
type ConfidenceInput struct {
	SourceIDs []string `json:"source_ids"`
}

// EffortInput is an effort vote payload.
type EffortInput struct {
	DevSizeID    string `json:"dev_size_id"`
	DesignSizeID string `json:"design_size_id"`
}

// voteContext is what every submission validates against.
type voteContext struct {
	session *model.Session
	catalog *catalog.Catalog
}

func (s *Service) beginVote(ctx context.Context, sessionID, participantID string) (voteContext, error) {
	if err := s.ready(); err != nil {
		return voteContext{}, err
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return voteContext{}, err
	}
	if sess.Status == model.StatusCompleted {
		return voteContext{}, fmt.Errorf("%w: session %q is completed", ErrValidation, sessionID)
	}
	if _, err := s.participant(ctx, sessionID, participantID); err != nil {
		return voteContext{}, err
	}
	c, _ := s.catalogs.Get(ctx, sess.CatalogID)
	return voteContext{session: sess, catalog: c}, nil
}

func requireEntry(c *catalog.Catalog, kind catalog.Kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: no %s selected", ErrValidation, kind)
	}
	if !c.Has(kind, id) {
		return fmt.Errorf("%w: unknown %s %q", ErrValidation, kind, id)
	}
	return nil
}

// afterVote counts the dimension's voters and notifies subscribers.
func (s *Service) afterVote(ctx context.Context, sessionID, participantID string, d model.Dimension) error {
	metrics.RecordVoteSubmitted(string(d))
	voters, err := s.store.CountDistinctVoters(ctx, d, sessionID)
	if err != nil {
		return err
	}
	s.publish(ctx, model.Event{
		Type:          model.EventVoteSubmitted,
		SessionID:     sessionID,
		Dimension:     d,
		ParticipantID: participantID,
		Voters:        voters,
	})
	return nil
}

// SubmitReach stores the participant's reach vote, replacing any earlier one.
func (s *Service) SubmitReach(ctx context.Context, sessionID, participantID string, in ReachInput) error {
	vc, err := s.beginVote(ctx, sessionID, participantID)
	if err != nil {
		return err
	}
	if err := requireEntry(vc.catalog, catalog.KindReach, in.CategoryID); err != nil {
		return err
	}
	if err := s.store.UpsertReachVote(ctx, sessionID, model.ReachVote{
		ParticipantID: participantID,
		CategoryID:    in.CategoryID,
		UpdatedAt:     s.now(),
	}); err != nil {
		return fmt.Errorf("store reach vote: %w", err)
	}
	return s.afterVote(ctx, sessionID, participantID, model.DimensionReach)
}

// SubmitImpact stores the participant's impact vote. It takes one to three
// distinct metrics with finite expected values. A parent metric and its own
// sub-metrics cannot be picked together.
func (s *Service) SubmitImpact(ctx context.Context, sessionID, participantID string, in ImpactInput) error {
	vc, err := s.beginVote(ctx, sessionID, participantID)
	if err != nil {
		return err
	}
	if n := len(in.Metrics); n < MinImpactMetrics || n > MaxImpactMetrics {
		return fmt.Errorf("%w: impact takes %d to %d metrics, got %d", ErrValidation, MinImpactMetrics, MaxImpactMetrics, n)
	}
	seen := make(map[string]bool, len(in.Metrics))
	for _, m := range in.Metrics {
		if err := requireEntry(vc.catalog, catalog.KindImpact, m.MetricID); err != nil {
			return err
		}
		if seen[m.MetricID] {
			return fmt.Errorf("%w: metric %q chosen twice", ErrValidation, m.MetricID)
		}
		seen[m.MetricID] = true
		if math.IsNaN(m.ExpectedValue) || math.IsInf(m.ExpectedValue, 0) {
			return fmt.Errorf("%w: expected value of %q is not a number", ErrValidation, m.MetricID)
		}
	}
	for _, m := range in.Metrics {
		kpi, err := vc.catalog.Impact(m.MetricID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		if kpi.IsBehaviorSubMetric && seen[kpi.ParentID] {
			return fmt.Errorf("%w: %q and its sub-metric %q are mutually exclusive", ErrValidation, kpi.ParentID, kpi.ID)
		}
	}
	if err := s.store.UpsertImpactVote(ctx, sessionID, model.ImpactVote{
		ParticipantID: participantID,
		Metrics:       append([]model.MetricEstimate(nil), in.Metrics...),
		UpdatedAt:     s.now(),
	}); err != nil {
		return fmt.Errorf("store impact vote: %w", err)
	}
	return s.afterVote(ctx, sessionID, participantID, model.DimensionImpact)
}

// SubmitConfidence stores the participant's confidence sources as a set.
func (s *Service) SubmitConfidence(ctx context.Context, sessionID, participantID string, in ConfidenceInput) error {
	vc, err := s.beginVote(ctx, sessionID, participantID)
	if err != nil {
		return err
	}
	v := model.ConfidenceVote{
		ParticipantID: participantID,
		SourceIDs:     append([]string{}, in.SourceIDs...),
		UpdatedAt:     s.now(),
	}
	v.Normalize()
	for _, id := range v.SourceIDs {
		if err := requireEntry(vc.catalog, catalog.KindConfidence, id); err != nil {
			return err
		}
	}
	if err := s.store.UpsertConfidenceVote(ctx, sessionID, v); err != nil {
		return fmt.Errorf("store confidence vote: %w", err)
	}
	return s.afterVote(ctx, sessionID, participantID, model.DimensionConfidence)
}

// SubmitEffort stores the participant's dev and design sizes.
func (s *Service) SubmitEffort(ctx context.Context, sessionID, participantID string, in EffortInput) error {
	vc, err := s.beginVote(ctx, sessionID, participantID)
	if err != nil {
		return err
	}
	if err := requireEntry(vc.catalog, catalog.KindEffort, in.DevSizeID); err != nil {
		return err
	}
	if err := requireEntry(vc.catalog, catalog.KindEffort, in.DesignSizeID); err != nil {
		return err
	}
	if err := s.store.UpsertEffortVote(ctx, sessionID, model.EffortVote{
		ParticipantID: participantID,
		DevSizeID:     in.DevSizeID,
		DesignSizeID:  in.DesignSizeID,
		UpdatedAt:     s.now(),
	}); err != nil {
		return fmt.Errorf("store effort vote: %w", err)
	}
	return s.afterVote(ctx, sessionID, participantID, model.DimensionEffort)
}
