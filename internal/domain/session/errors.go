package session

import "errors"

var (
	// ErrNoNextStage is returned when advancing past the results stage.
	ErrNoNextStage = errors.New("no next stage")
	// ErrNoPrevStage is returned when retreating before the participants stage.
	ErrNoPrevStage = errors.New("no previous stage")
	// ErrUnknownStage is returned for a stage outside the flow.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrNotVotingStage is returned when revealing outside a voting stage.
	ErrNotVotingStage = errors.New("stage has no dimension to reveal")
	// ErrCompleted is returned when changing a completed session.
	ErrCompleted = errors.New("session completed")
)
