// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role distinguishes the single facilitator of a session from its voters.
type Role string

// Participant roles.
const (
	RoleFacilitator Role = "facilitator"
	RoleVoter       Role = "voter"
)

// Participant is a person taking part in a session. Identity is an optional
// caller-supplied stable key; joins with the same identity resolve to the
// same participant.
type Participant struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Identity  string    `json:"identity,omitempty"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// IsFacilitator reports whether p drives the session.
func (p Participant) IsFacilitator() bool { return p.Role == RoleFacilitator }

// Dimension is one of the four RICE factors.
type Dimension string

// RICE dimensions in voting order.
const (
	DimensionReach      Dimension = "reach"
	DimensionImpact     Dimension = "impact"
	DimensionConfidence Dimension = "confidence"
	DimensionEffort     Dimension = "effort"
)

// Dimensions lists the dimensions in voting order.
var Dimensions = []Dimension{DimensionReach, DimensionImpact, DimensionConfidence, DimensionEffort}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DimensionReach, DimensionImpact, DimensionConfidence, DimensionEffort:
		return d, nil
	}
	return "", fmt.Errorf("unknown dimension %q", s)
}

// Status is the coarse lifecycle of a session.
type Status string

// Session statuses.
const (
	StatusDraft         Status = "draft"
	StatusActive        Status = "active"
	StatusVotingStarted Status = "voting_started"
	StatusCompleted     Status = "completed"
)

// Stage is the step of the guided flow a session is on.
type Stage string

// Stages in flow order.
const (
	StageParticipants Stage = "participants"
	StageReach        Stage = "reach"
	StageImpact       Stage = "impact"
	StageConfidence   Stage = "confidence"
	StageEffort       Stage = "effort"
	StageResults      Stage = "results"
)

// Stages lists every stage in flow order.
var Stages = []Stage{StageParticipants, StageReach, StageImpact, StageConfidence, StageEffort, StageResults}

// Dimension returns the dimension voted on at s, if any.
func (s Stage) Dimension() (Dimension, bool) {
	switch s {
	case StageReach:
		return DimensionReach, true
	case StageImpact:
		return DimensionImpact, true
	case StageConfidence:
		return DimensionConfidence, true
	case StageEffort:
		return DimensionEffort, true
	}
	return "", false
}

// Index returns the position of s in Stages, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Session is one scoring exercise for one initiative.
type Session struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	CatalogID   string      `json:"catalog_id"`
	RecordID    string      `json:"record_id,omitempty"`
	LocalMarket bool        `json:"local_market"`
	Status      Status      `json:"status"`
	Stage       Stage       `json:"stage"`
	Revealed    []Dimension `json:"revealed"`
	ForceSeq    int64       `json:"force_seq"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IsRevealed reports whether d's aggregate has been revealed.
func (s *Session) IsRevealed(d Dimension) bool {
	for _, r := range s.Revealed {
		if r == d {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Revealed = append([]Dimension(nil), s.Revealed...)
	return &out
}
