package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/rice/internal/adapters/repository"
	"github.com/okian/rice/internal/domain/aggregation"
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/internal/domain/result"
	"github.com/okian/rice/internal/domain/session"
	"github.com/okian/rice/internal/domain/types"
	"github.com/okian/rice/pkg/logger"
	"github.com/okian/rice/pkg/metrics"
)

const (
	defaultReportLimit = 50
	maxReportLimit     = 1000
)

// loadVotes reads the four vote collections concurrently.
func (s *Service) loadVotes(ctx context.Context, sessionID string) (aggregation.Votes, error) {
	var v aggregation.Votes
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		v.Reach, err = s.store.ListReachVotes(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		v.Impact, err = s.store.ListImpactVotes(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		v.Confidence, err = s.store.ListConfidenceVotes(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		v.Effort, err = s.store.ListEffortVotes(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return aggregation.Votes{}, fmt.Errorf("load votes: %w", err)
	}
	return v, nil
}

// aggregate computes every dimension of a session against its catalog.
func (s *Service) aggregate(ctx context.Context, sess *model.Session) (aggregation.Scores, *catalog.Catalog, error) {
	c, _ := s.catalogs.Get(ctx, sess.CatalogID)
	votes, err := s.loadVotes(ctx, sess.ID)
	if err != nil {
		return aggregation.Scores{}, nil, err
	}

	start := time.Now()
	scores, err := aggregation.All(c, votes, sess.LocalMarket)
	metrics.RecordAggregationLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		return aggregation.Scores{}, nil, err
	}
	for d, rep := range scores.Reports {
		if len(rep.Skipped) == 0 {
			continue
		}
		metrics.RecordAggregationSkipped(string(d), len(rep.Skipped))
		s.logger.Warn(ctx, "votes reference ids missing from the catalog",
			logger.String("session_id", sess.ID),
			logger.String("dimension", string(d)),
			logger.Strings("skipped", rep.Skipped))
	}
	return scores, c, nil
}

// Scores recomputes every dimension on demand without persisting anything.
func (s *Service) Scores(ctx context.Context, sessionID string) (aggregation.Scores, error) {
	if err := s.ready(); err != nil {
		return aggregation.Scores{}, err
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return aggregation.Scores{}, err
	}
	scores, _, err := s.aggregate(ctx, sess)
	return scores, err
}

// RevealOutcome is the aggregate shown when a dimension is revealed.
type RevealOutcome struct {
	Dimension    model.Dimension    `json:"dimension"`
	Score        float64            `json:"score"`
	Report       aggregation.Report `json:"report"`
	Voters       int                `json:"voters"`
	Participants int                `json:"participants"`
}

// Reveal shows the active dimension's aggregate. It is allowed only once
// every participant has voted on that dimension.
func (s *Service) Reveal(ctx context.Context, sessionID, actorID string) (RevealOutcome, error) {
	if err := s.ready(); err != nil {
		return RevealOutcome{}, err
	}
	if err := s.facilitator(ctx, sessionID, actorID); err != nil {
		return RevealOutcome{}, err
	}

	cur, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return RevealOutcome{}, err
	}
	d, ok := cur.Stage.Dimension()
	if !ok {
		return RevealOutcome{}, stageError(fmt.Errorf("%w: %q", session.ErrNotVotingStage, cur.Stage))
	}
	voters, err := s.store.CountDistinctVoters(ctx, d, sessionID)
	if err != nil {
		return RevealOutcome{}, err
	}
	participants, err := s.store.CountParticipants(ctx, sessionID)
	if err != nil {
		return RevealOutcome{}, err
	}
	out := RevealOutcome{Dimension: d, Voters: voters, Participants: participants}

	sess, err := s.store.UpdateSession(ctx, sessionID, func(sess *model.Session) error {
		if sess.Stage != cur.Stage {
			return fmt.Errorf("%w: stage moved to %q", ErrValidation, sess.Stage)
		}
		_, allowed, err := session.Reveal(sess, voters, participants, s.now())
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: %d of %d voted on %s", ErrRevealNotAllowed, voters, participants, d)
		}
		return nil
	})
	metrics.RecordReveal(string(d), err == nil)
	if err != nil {
		return RevealOutcome{}, stageError(err)
	}

	c, _ := s.catalogs.Get(ctx, sess.CatalogID)
	votes, err := s.loadVotes(ctx, sessionID)
	if err != nil {
		return RevealOutcome{}, err
	}
	score, rep, err := aggregation.Dimension(c, out.Dimension, votes)
	if err != nil && !errors.Is(err, aggregation.ErrInsufficientVotes) {
		return RevealOutcome{}, err
	}
	if out.Dimension == model.DimensionReach {
		score = aggregation.ApplyLocalMarket(score, sess.LocalMarket && c.LocalMarketRuleEnabled)
	}
	out.Score, out.Report = score, rep

	s.publish(ctx, model.Event{
		Type:      model.EventRevealed,
		SessionID: sessionID,
		Stage:     sess.Stage,
		Dimension: out.Dimension,
		Voters:    out.Voters,
	})
	return out, nil
}

// Thresholds returns the priority thresholds derived from persisted scores.
func (s *Service) Thresholds(ctx context.Context) result.Thresholds {
	return s.index.Thresholds(ctx, s.minHistory, s.thresholds)
}

// Finalize computes the RICE result, upserts it and completes the session.
// Calling it again recomputes and overwrites the same result; the session's
// own earlier score never counts towards its priority thresholds. Partial
// results are stored but not ranked.
func (s *Service) Finalize(ctx context.Context, sessionID, actorID string) (model.RiceResult, error) {
	if err := s.ready(); err != nil {
		return model.RiceResult{}, err
	}
	if err := s.facilitator(ctx, sessionID, actorID); err != nil {
		return model.RiceResult{}, err
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return model.RiceResult{}, err
	}
	scores, c, err := s.aggregate(ctx, sess)
	if err != nil {
		return model.RiceResult{}, err
	}

	now := s.now()
	formula := result.Formula(c.Weights, c.CustomWeightsEnabled)
	thresholds := s.index.ThresholdsWithout(ctx, sessionID, s.minHistory, s.thresholds)
	r := result.Build(sessionID, scores, thresholds, formula, now)
	if err := s.store.UpsertResult(ctx, r); err != nil {
		return model.RiceResult{}, fmt.Errorf("store result: %w", err)
	}
	s.rank(ctx, r)
	if _, err := s.store.UpdateSession(ctx, sessionID, func(sess *model.Session) error {
		session.Complete(sess, now)
		return nil
	}); err != nil {
		return model.RiceResult{}, fmt.Errorf("complete session: %w", err)
	}

	metrics.RecordResultComputed(r.Partial)
	s.publish(ctx, model.Event{Type: model.EventResultComputed, SessionID: sessionID, Stage: model.StageResults})
	s.logger.Info(ctx, "result computed",
		logger.String("session_id", sessionID),
		logger.Float64("rice", r.RiceScore),
		logger.String("priority", string(r.Priority)),
		logger.Bool("partial", r.Partial))
	return r, nil
}

// rank indexes a complete result. Partial results score 0 and would drag
// the history thresholds down.
func (s *Service) rank(ctx context.Context, r model.RiceResult) { //nolint:gocritic // hugeParam
	if r.Partial {
		s.index.Remove(ctx, r.SessionID)
		return
	}
	if err := s.index.Upsert(ctx, r.SessionID, r.RiceScore); err != nil {
		s.logger.Warn(ctx, "result not ranked", logger.String("session_id", r.SessionID), logger.Error(err))
	}
}

// GetResult returns the persisted result of a session.
func (s *Service) GetResult(ctx context.Context, sessionID string) (model.RiceResult, error) {
	if err := s.ready(); err != nil {
		return model.RiceResult{}, err
	}
	return s.store.GetResult(ctx, sessionID)
}

// Report returns the best persisted results, best first, labelled with the
// current thresholds.
func (s *Service) Report(ctx context.Context, limit int) ([]types.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	switch {
	case limit == 0:
		limit = defaultReportLimit
	case limit < 0 || limit > maxReportLimit:
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, maxReportLimit)
	}
	entries, err := s.index.TopN(ctx, limit)
	if err != nil {
		return nil, err
	}
	t := s.Thresholds(ctx)
	for i := range entries {
		entries[i].Priority = result.Priority(entries[i].RiceScore, t)
	}
	return entries, nil
}

// Rank returns the position of a session's result among all results.
func (s *Service) Rank(ctx context.Context, sessionID string) (types.Entry, error) {
	if err := s.ready(); err != nil {
		return types.Entry{}, err
	}
	e, err := s.index.Rank(ctx, sessionID)
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: no result for session %q", repository.ErrNotFound, sessionID)
	}
	e.Priority = result.Priority(e.RiceScore, s.Thresholds(ctx))
	return e, nil
}
