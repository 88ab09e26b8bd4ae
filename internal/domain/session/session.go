// Package session sequences a scoring session through its stages and gates
// the facilitator actions.
package session

import (
	"fmt"
	"time"

	"github.com/okian/rice/internal/domain/model"
)

// Next returns the stage after s.
func Next(s model.Stage) (model.Stage, error) {
	i := s.Index()
	switch {
	case i < 0:
		return s, fmt.Errorf("%w: %q", ErrUnknownStage, s)
	case i == len(model.Stages)-1:
		return s, ErrNoNextStage
	}
	return model.Stages[i+1], nil
}

// Prev returns the stage before s.
func Prev(s model.Stage) (model.Stage, error) {
	i := s.Index()
	switch {
	case i < 0:
		return s, fmt.Errorf("%w: %q", ErrUnknownStage, s)
	case i == 0:
		return s, ErrNoPrevStage
	}
	return model.Stages[i-1], nil
}

// CanReveal reports whether every joined participant has voted on the
// active dimension.
func CanReveal(voters, participants int) bool {
	return participants > 0 && voters == participants
}

// New returns a draft session at the participants stage.
func New(id, name, catalogID, recordID string, localMarket bool, now time.Time) *model.Session {
	return &model.Session{
		ID:          id,
		Name:        name,
		CatalogID:   catalogID,
		RecordID:    recordID,
		LocalMarket: localMarket,
		Status:      model.StatusDraft,
		Stage:       model.StageParticipants,
		Revealed:    []model.Dimension{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Joined marks a draft session active once somebody joins.
func Joined(s *model.Session, now time.Time) bool {
	if s.Status != model.StatusDraft {
		return false
	}
	s.Status = model.StatusActive
	s.UpdatedAt = now
	return true
}

// Advance moves s one stage forward. force additionally bumps ForceSeq so
// every client moves with it. Leaving the participants stage starts voting.
func Advance(s *model.Session, force bool, now time.Time) error {
	if s.Status == model.StatusCompleted {
		return ErrCompleted
	}
	next, err := Next(s.Stage)
	if err != nil {
		return err
	}
	if s.Stage == model.StageParticipants {
		s.Status = model.StatusVotingStarted
	}
	s.Stage = next
	if force {
		s.ForceSeq++
	}
	s.UpdatedAt = now
	return nil
}

// Retreat moves s one stage back.
func Retreat(s *model.Session, now time.Time) error {
	if s.Status == model.StatusCompleted {
		return ErrCompleted
	}
	prev, err := Prev(s.Stage)
	if err != nil {
		return err
	}
	s.Stage = prev
	s.UpdatedAt = now
	return nil
}

// Reveal records that the active dimension's aggregate is visible.
// It returns the dimension and whether the gate allowed it.
func Reveal(s *model.Session, voters, participants int, now time.Time) (model.Dimension, bool, error) {
	d, ok := s.Stage.Dimension()
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrNotVotingStage, s.Stage)
	}
	if !CanReveal(voters, participants) {
		return d, false, nil
	}
	if !s.IsRevealed(d) {
		s.Revealed = append(s.Revealed, d)
	}
	s.UpdatedAt = now
	return d, true, nil
}

// Complete marks s completed on the results stage.
func Complete(s *model.Session, now time.Time) {
	s.Stage = model.StageResults
	s.Status = model.StatusCompleted
	s.UpdatedAt = now
}
