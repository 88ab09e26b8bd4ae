package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/rice/internal/adapters/records"
	"github.com/okian/rice/internal/adapters/repository"
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/internal/domain/session"
	"github.com/okian/rice/pkg/logger"
	"github.com/okian/rice/pkg/metrics"
)

const maxNameLength = 200

// CreateSessionInput describes a new session.
type CreateSessionInput struct {
	Name        string `json:"name"`
	CatalogID   string `json:"catalog_id,omitempty"`
	RecordID    string `json:"record_id,omitempty"`
	LocalMarket bool   `json:"local_market,omitempty"`
}

// SessionState is the full state a polling client needs.
type SessionState struct {
	Session      *model.Session          `json:"session"`
	Participants []model.Participant     `json:"participants"`
	Voters       map[model.Dimension]int `json:"voters"`
	CanReveal    bool                    `json:"can_reveal"`
}

func validName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: %s is required", ErrValidation, field)
	case len(name) > maxNameLength:
		return "", fmt.Errorf("%w: %s is longer than %d bytes", ErrValidation, field, maxNameLength)
	}
	return name, nil
}

// CreateSession stores a new draft session.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*model.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	name, err := validName("name", in.Name)
	if err != nil {
		return nil, err
	}
	catalogID := strings.TrimSpace(in.CatalogID)
	if catalogID == "" {
		catalogID = catalog.DefaultID
	}

	sess := session.New(s.newID(), name, catalogID, strings.TrimSpace(in.RecordID), in.LocalMarket, s.now())
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info(ctx, "session created",
		logger.String("session_id", sess.ID), logger.String("catalog", catalogID))
	return sess, nil
}

// GetSession returns a session with its participants and per-dimension
// voter counts.
func (s *Service) GetSession(ctx context.Context, sessionID string) (SessionState, error) {
	if err := s.ready(); err != nil {
		return SessionState{}, err
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return SessionState{}, err
	}
	participants, err := s.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return SessionState{}, err
	}
	state := SessionState{
		Session:      sess,
		Participants: participants,
		Voters:       make(map[model.Dimension]int, len(model.Dimensions)),
	}
	for _, d := range model.Dimensions {
		n, err := s.store.CountDistinctVoters(ctx, d, sessionID)
		if err != nil {
			return SessionState{}, err
		}
		state.Voters[d] = n
	}
	if d, ok := sess.Stage.Dimension(); ok {
		state.CanReveal = session.CanReveal(state.Voters[d], len(participants))
	}
	return state, nil
}

// ListSessions returns every session, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]*model.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListSessions(ctx)
}

// DeleteSession removes a session with everything attached to it.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.index.Remove(ctx, sessionID)
	s.publish(ctx, model.Event{Type: model.EventSessionDeleted, SessionID: sessionID})
	s.logger.Info(ctx, "session deleted", logger.String("session_id", sessionID))
	return nil
}

// JoinInput identifies a joining participant. Identity is optional; a
// second join with the same identity returns the first participant.
type JoinInput struct {
	Name     string `json:"name"`
	Identity string `json:"identity,omitempty"`
}

// Join registers a participant. The first one becomes the facilitator.
func (s *Service) Join(ctx context.Context, sessionID string, in JoinInput) (model.Participant, error) {
	if err := s.ready(); err != nil {
		return model.Participant{}, err
	}
	name, err := validName("name", in.Name)
	if err != nil {
		return model.Participant{}, err
	}

	now := s.now()
	p, err := s.store.AddParticipant(ctx, model.Participant{
		ID:        s.newID(),
		SessionID: sessionID,
		Name:      name,
		Identity:  strings.TrimSpace(in.Identity),
		JoinedAt:  now,
	})
	if err != nil {
		return model.Participant{}, fmt.Errorf("join session: %w", err)
	}

	if _, err := s.store.UpdateSession(ctx, sessionID, func(sess *model.Session) error {
		session.Joined(sess, now)
		return nil
	}); err != nil {
		return model.Participant{}, fmt.Errorf("activate session: %w", err)
	}

	metrics.RecordParticipantJoined(string(p.Role))
	s.publish(ctx, model.Event{Type: model.EventParticipantJoined, SessionID: sessionID, ParticipantID: p.ID})
	return p, nil
}

// ListParticipants returns the participants of a session in join order.
func (s *Service) ListParticipants(ctx context.Context, sessionID string) ([]model.Participant, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, sessionID)
}

// participant loads a participant of the session, reporting unknown ids as
// validation failures.
func (s *Service) participant(ctx context.Context, sessionID, participantID string) (model.Participant, error) {
	p, err := s.store.GetParticipant(ctx, sessionID, participantID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Participant{}, fmt.Errorf("%w: participant %q is not part of session %q", ErrValidation, participantID, sessionID)
	}
	return p, err
}

// facilitator checks that actorID is the session's facilitator.
func (s *Service) facilitator(ctx context.Context, sessionID, actorID string) error {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return err
	}
	p, err := s.store.GetParticipant(ctx, sessionID, actorID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %q is not part of the session", ErrForbidden, actorID)
	case err != nil:
		return err
	case !p.IsFacilitator():
		return fmt.Errorf("%w: %q is a voter", ErrForbidden, actorID)
	}
	return nil
}

func (s *Service) moveStage(ctx context.Context, sessionID, actorID, direction string, move func(*model.Session) error) (*model.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.facilitator(ctx, sessionID, actorID); err != nil {
		return nil, err
	}
	sess, err := s.store.UpdateSession(ctx, sessionID, move)
	if err != nil {
		return nil, stageError(err)
	}
	metrics.RecordStageChange(direction)

	e := model.Event{Type: model.EventStageChanged, SessionID: sessionID, Stage: sess.Stage}
	if direction == "force" {
		e.Type = model.EventForcedAdvance
		e.ForceSeq = sess.ForceSeq
	}
	s.publish(ctx, e)
	return sess, nil
}

// stageError turns state machine refusals into validation failures.
func stageError(err error) error {
	for _, target := range []error{session.ErrNoNextStage, session.ErrNoPrevStage, session.ErrCompleted, session.ErrNotVotingStage} {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	return err
}

// Advance moves the session one stage forward.
func (s *Service) Advance(ctx context.Context, sessionID, actorID string) (*model.Session, error) {
	return s.moveStage(ctx, sessionID, actorID, "advance", func(sess *model.Session) error {
		return session.Advance(sess, false, s.now())
	})
}

// Retreat moves the session one stage back.
func (s *Service) Retreat(ctx context.Context, sessionID, actorID string) (*model.Session, error) {
	return s.moveStage(ctx, sessionID, actorID, "retreat", func(sess *model.Session) error {
		return session.Retreat(sess, s.now())
	})
}

// ForceAdvanceAll moves the session forward and tells every client to follow
// regardless of where it is.
func (s *Service) ForceAdvanceAll(ctx context.Context, sessionID, actorID string) (*model.Session, error) {
	return s.moveStage(ctx, sessionID, actorID, "force", func(sess *model.Session) error {
		return session.Advance(sess, true, s.now())
	})
}

// Initiative returns the metadata of the record a session scores.
func (s *Service) Initiative(ctx context.Context, sessionID string) (records.Initiative, error) {
	if err := s.ready(); err != nil {
		return records.Initiative{}, err
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return records.Initiative{}, err
	}
	if sess.RecordID == "" {
		return records.Initiative{}, fmt.Errorf("%w: session has no record", records.ErrNotFound)
	}
	return s.records.Lookup(ctx, sess.RecordID)
}
