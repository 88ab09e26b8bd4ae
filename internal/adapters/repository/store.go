// Package repository persists sessions, participants, votes, results and
// catalogs. Every write is a single atomic operation at the storage
// boundary; callers never read-then-write.
package repository

import (
	"context"
	"time"

	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/pkg/metrics"
)

// SessionStore persists sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	// GetSession returns ErrNotFound for an unknown id.
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// UpdateSession applies fn to the stored session atomically and persists
	// the result. An error from fn aborts the update and is returned as is.
	UpdateSession(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)
	ListSessions(ctx context.Context) ([]*model.Session, error)
	// DeleteSession removes the session with its participants, votes and result.
	DeleteSession(ctx context.Context, id string) error
}

// ParticipantStore is the participant registry.
type ParticipantStore interface {
	// AddParticipant stores p, assigning the facilitator role to the first
	// participant of the session and the voter role to everyone after. When
	// p.Identity matches an existing participant that one is returned.
	AddParticipant(ctx context.Context, p model.Participant) (model.Participant, error)
	GetParticipant(ctx context.Context, sessionID, participantID string) (model.Participant, error)
	// ListParticipants returns participants in join order.
	ListParticipants(ctx context.Context, sessionID string) ([]model.Participant, error)
	CountParticipants(ctx context.Context, sessionID string) (int, error)
}

// VoteStore holds one vote per participant per dimension. Upserts replace
// any earlier vote of the same participant.
type VoteStore interface {
	UpsertReachVote(ctx context.Context, sessionID string, v model.ReachVote) error
	UpsertImpactVote(ctx context.Context, sessionID string, v model.ImpactVote) error
	UpsertConfidenceVote(ctx context.Context, sessionID string, v model.ConfidenceVote) error
	UpsertEffortVote(ctx context.Context, sessionID string, v model.EffortVote) error

	ListReachVotes(ctx context.Context, sessionID string) ([]model.ReachVote, error)
	ListImpactVotes(ctx context.Context, sessionID string) ([]model.ImpactVote, error)
	ListConfidenceVotes(ctx context.Context, sessionID string) ([]model.ConfidenceVote, error)
	ListEffortVotes(ctx context.Context, sessionID string) ([]model.EffortVote, error)

	CountDistinctVoters(ctx context.Context, d model.Dimension, sessionID string) (int, error)
}

// ResultStore holds the final result of each session, keyed by session id.
type ResultStore interface {
	UpsertResult(ctx context.Context, r model.RiceResult) error
	GetResult(ctx context.Context, sessionID string) (model.RiceResult, error)
	ListResults(ctx context.Context) ([]model.RiceResult, error)
}

// CatalogStore holds catalogs. A missing catalog is reported with an error
// wrapping both ErrNotFound and catalog.ErrNotFound.
type CatalogStore interface {
	GetCatalog(ctx context.Context, id string) (*catalog.Catalog, error)
	SaveCatalog(ctx context.Context, c *catalog.Catalog) error
	// UpdateCatalog replaces the catalog with fn's result atomically.
	UpdateCatalog(ctx context.Context, id string, fn func(*catalog.Catalog) (*catalog.Catalog, error)) (*catalog.Catalog, error)
}

// Store combines every repository concern.
type Store interface {
	SessionStore
	ParticipantStore
	VoteStore
	ResultStore
	CatalogStore
	Close() error
}

// observe records latency and failures of one repository call.
func observe(op string, start time.Time, err error) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !isNotFound(err) {
		metrics.RecordRepositoryError(op)
	}
}
