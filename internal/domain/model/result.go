package model

import "time"

// Priority is the label attached to a RICE score.
type Priority string

// Priority labels.
const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// RiceResult is the persisted outcome of a session. Partial is set when at
// least one dimension had no votes and contributed 0.
type RiceResult struct {
	SessionID       string    `json:"session_id"`
	ReachScore      float64   `json:"reach_score"`
	ImpactScore     float64   `json:"impact_score"`
	ConfidenceScore float64   `json:"confidence_score"`
	EffortScore     float64   `json:"effort_score"`
	RiceScore       float64   `json:"rice_score"`
	Priority        Priority  `json:"priority"`
	Partial         bool      `json:"partial"`
	Formula         string    `json:"formula,omitempty"`
	ComputedAt      time.Time `json:"computed_at"`
}
