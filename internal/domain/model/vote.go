package model

import (
	"sort"
	"time"
)

// ReachVote picks one reach category.
type ReachVote struct {
	ParticipantID string    `json:"participant_id"`
	CategoryID    string    `json:"category_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MetricEstimate is one expected KPI delta within an impact vote.
type MetricEstimate struct {
	MetricID      string  `json:"metric_id"`
	ExpectedValue float64 `json:"expected_value"`
}

// ImpactVote lists the KPIs a participant expects to move and by how much.
type ImpactVote struct {
	ParticipantID string           `json:"participant_id"`
	Metrics       []MetricEstimate `json:"metrics"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ConfidenceVote is a set of evidence sources.
type ConfidenceVote struct {
	ParticipantID string    `json:"participant_id"`
	SourceIDs     []string  `json:"source_ids"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EffortVote picks a dev and a design size.
type EffortVote struct {
	ParticipantID string    `json:"participant_id"`
	DevSizeID     string    `json:"dev_size_id"`
	DesignSizeID  string    `json:"design_size_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize collapses duplicate source ids and sorts them.
func (v *ConfidenceVote) Normalize() {
	if len(v.SourceIDs) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(v.SourceIDs))
	out := v.SourceIDs[:0]
	for _, id := range v.SourceIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	v.SourceIDs = out
}
