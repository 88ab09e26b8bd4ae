// Package result combines the dimension aggregates into the RICE score and
// its priority label.
package result

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/okian/rice/internal/domain/aggregation"
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
)

// Default priority thresholds, used until enough history exists.
const (
	DefaultHighThreshold   = 3.0
	DefaultMediumThreshold = 1.5
	DefaultMinHistory      = 3
)

// Thresholds split RICE scores into priority buckets.
type Thresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// DefaultThresholds returns the static fallback thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHighThreshold, Medium: DefaultMediumThreshold}
}

// Compute returns reach × impact × confidence / effort.
func Compute(reach, impact, confidence, effort float64) (float64, error) {
	if effort == 0 {
		return 0, ErrDivisionByZero
	}
	return reach * impact * confidence / effort, nil
}

// Priority labels score against t.
func Priority(score float64, t Thresholds) model.Priority {
	switch {
	case score >= t.High:
		return model.PriorityHigh
	case score >= t.Medium:
		return model.PriorityMedium
	}
	return model.PriorityLow
}

// FromHistory derives thresholds from past scores: the score a quarter of
// the way down the descending ranking is High, the median is Medium. With
// fewer than minHistory scores fallback is returned.
func FromHistory(scores []float64, minHistory int, fallback Thresholds) Thresholds {
	if len(scores) < minHistory || len(scores) == 0 {
		return fallback
	}
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	return AtRanks(len(sorted), func(rank int) float64 { return sorted[rank] })
}

// AtRanks computes history thresholds from n ordered scores, best first,
// read through at.
func AtRanks(n int, at func(rank int) float64) Thresholds {
	return Thresholds{
		High:   at(n / 4),
		Medium: at(n / 2),
	}
}

// Formula renders the RICE formula. Custom weights are shown only; the
// score itself never applies them.
func Formula(w catalog.Weights, customWeights bool) string {
	if !customWeights {
		return "RICE = (R × I × C) ÷ E"
	}
	return fmt.Sprintf("RICE = (%sR × %sI × %sC) ÷ %sE",
		pct(w.Reach), pct(w.Impact), pct(w.Confidence), pct(w.Effort))
}

func pct(v float64) string {
	return strconv.FormatFloat(v/100, 'f', -1, 64)
}

// Build computes the final result for a session from its aggregates. An
// effort of zero only happens when nobody voted on effort; the score is
// then 0 and the result partial.
func Build(sessionID string, s aggregation.Scores, t Thresholds, formula string, now time.Time) model.RiceResult {
	r := model.RiceResult{
		SessionID:       sessionID,
		ReachScore:      s.Reach,
		ImpactScore:     s.Impact,
		ConfidenceScore: s.Confidence,
		EffortScore:     s.Effort,
		Partial:         s.Partial,
		Formula:         formula,
		ComputedAt:      now,
	}
	score, err := Compute(s.Reach, s.Impact, s.Confidence, s.Effort)
	if err != nil {
		r.Partial = true
	}
	r.RiceScore = score
	r.Priority = Priority(score, t)
	return r
}
