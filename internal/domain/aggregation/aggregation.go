// Package aggregation turns a catalog and a set of votes into one score per
// RICE dimension. Every function is pure; results can be recomputed at any
// time from the stored votes.
package aggregation

import (
	"errors"
	"fmt"

	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
)

// Aggregation constants.
const (
	ConfidenceCap     = 5.0
	ConfidenceFloor   = 3.0
	DevEffortShare    = 0.55
	DesignEffortShare = 0.45
	// LocalMarketFactor scales reach for initiatives limited to the local
	// market when the catalog enables the rule.
	LocalMarketFactor = 0.6
)

// Report describes how a dimension was aggregated. Skipped lists the vote
// references that no longer exist in the catalog.
type Report struct {
	Voters  int      `json:"voters"`
	Skipped []string `json:"skipped,omitempty"`
}

func (r *Report) skip(kind catalog.Kind, id string) {
	r.Skipped = append(r.Skipped, fmt.Sprintf("%s:%s", kind, id))
}

// resolved reports whether err is nil, recording id as skipped when the
// catalog no longer holds it. Other errors are returned as is.
func (r *Report) resolved(kind catalog.Kind, id string, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, catalog.ErrNotFound):
		r.skip(kind, id)
		return false, nil
	default:
		return false, err
	}
}

func mean(sum float64, n int) float64 {
	return sum / float64(n)
}

// Reach is the mean of the chosen categories' points.
func Reach(c *catalog.Catalog, votes []model.ReachVote) (float64, Report, error) {
	var rep Report
	var sum float64
	for _, v := range votes {
		cat, err := c.Reach(v.CategoryID)
		ok, err := rep.resolved(catalog.KindReach, v.CategoryID, err)
		if err != nil {
			return 0, rep, err
		}
		if !ok {
			continue
		}
		sum += cat.Points
		rep.Voters++
	}
	if rep.Voters == 0 {
		return 0, rep, ErrInsufficientVotes
	}
	return mean(sum, rep.Voters), rep, nil
}

// ApplyLocalMarket scales reach by LocalMarketFactor when apply is set.
func ApplyLocalMarket(reach float64, apply bool) float64 {
	if !apply {
		return reach
	}
	return reach * LocalMarketFactor
}

// Effort is the mean of each participant's combined dev and design effort.
func Effort(c *catalog.Catalog, votes []model.EffortVote) (float64, Report, error) {
	var rep Report
	var sum float64
	for _, v := range votes {
		dev, err := c.Effort(v.DevSizeID)
		devOK, err := rep.resolved(catalog.KindEffort, v.DevSizeID, err)
		if err != nil {
			return 0, rep, err
		}
		design, err := c.Effort(v.DesignSizeID)
		designOK, err := rep.resolved(catalog.KindEffort, v.DesignSizeID, err)
		if err != nil {
			return 0, rep, err
		}
		if !devOK || !designOK {
			continue
		}
		sum += CombineEffort(dev.DevEffort, design.DesignEffort)
		rep.Voters++
	}
	if rep.Voters == 0 {
		return 0, rep, ErrInsufficientVotes
	}
	return mean(sum, rep.Voters), rep, nil
}

// CombineEffort weights dev and design effort into one value.
func CombineEffort(dev, design float64) float64 {
	return dev*DevEffortShare + design*DesignEffortShare
}

// Confidence is the mean of each participant's clamped evidence total.
func Confidence(c *catalog.Catalog, votes []model.ConfidenceVote) (float64, Report, error) {
	var rep Report
	var sum float64
	for _, v := range votes {
		v.SourceIDs = append([]string(nil), v.SourceIDs...)
		v.Normalize()

		var points float64
		known := 0
		for _, id := range v.SourceIDs {
			src, err := c.Confidence(id)
			ok, err := rep.resolved(catalog.KindConfidence, id, err)
			if err != nil {
				return 0, rep, err
			}
			if ok {
				points += src.Points
				known++
			}
		}
		if len(v.SourceIDs) > 0 && known == 0 {
			continue
		}
		sum += ClampConfidence(points, known)
		rep.Voters++
	}
	if rep.Voters == 0 {
		return 0, rep, ErrInsufficientVotes
	}
	return mean(sum, rep.Voters), rep, nil
}

// ClampConfidence caps total at ConfidenceCap, then raises it to
// ConfidenceFloor when at least one source was chosen. No source scores 0.
func ClampConfidence(total float64, sources int) float64 {
	if sources == 0 {
		return 0
	}
	if total > ConfidenceCap {
		total = ConfidenceCap
	}
	if total < ConfidenceFloor {
		total = ConfidenceFloor
	}
	return total
}
