package model

import "time"

// EventType names a session change pushed to subscribers.
type EventType string

// Session event types.
const (
	EventParticipantJoined EventType = "participant_joined"
	EventVoteSubmitted     EventType = "vote_submitted"
	EventRevealed          EventType = "revealed"
	EventStageChanged      EventType = "stage_changed"
	EventForcedAdvance     EventType = "forced_advance"
	EventResultComputed    EventType = "result_computed"
	EventSessionDeleted    EventType = "session_deleted"
)

// Event is a change notification for one session. Subscribers may miss
// events and are expected to re-read the session when they care about the
// full state.
type Event struct {
	Type          EventType `json:"type"`
	SessionID     string    `json:"session_id"`
	Stage         Stage     `json:"stage,omitempty"`
	Dimension     Dimension `json:"dimension,omitempty"`
	ParticipantID string    `json:"participant_id,omitempty"`
	ForceSeq      int64     `json:"force_seq,omitempty"`
	Voters        int       `json:"voters,omitempty"`
	TS            time.Time `json:"ts"`
}
