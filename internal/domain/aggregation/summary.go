package aggregation

import (
	"errors"

	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
)

// Votes groups the four vote collections of one session.
type Votes struct {
	Reach      []model.ReachVote
	Impact     []model.ImpactVote
	Confidence []model.ConfidenceVote
	Effort     []model.EffortVote
}

// Scores holds the aggregate of every dimension. A dimension nobody voted
// on scores 0 and marks the whole set Partial.
type Scores struct {
	Reach      float64                    `json:"reach"`
	Impact     float64                    `json:"impact"`
	Confidence float64                    `json:"confidence"`
	Effort     float64                    `json:"effort"`
	Partial    bool                       `json:"partial"`
	Reports    map[model.Dimension]Report `json:"reports"`
}

// Skipped returns the number of unresolved vote references across dimensions.
func (s Scores) Skipped() int {
	n := 0
	for _, r := range s.Reports {
		n += len(r.Skipped)
	}
	return n
}

// Dimension aggregates a single dimension of v.
func Dimension(c *catalog.Catalog, d model.Dimension, v Votes) (float64, Report, error) {
	switch d {
	case model.DimensionReach:
		return Reach(c, v.Reach)
	case model.DimensionImpact:
		return Impact(c, v.Impact)
	case model.DimensionConfidence:
		return Confidence(c, v.Confidence)
	default:
		return Effort(c, v.Effort)
	}
}

// All aggregates every dimension. localMarket applies the local-market
// reach factor when the catalog enables it.
func All(c *catalog.Catalog, v Votes, localMarket bool) (Scores, error) {
	s := Scores{Reports: make(map[model.Dimension]Report, len(model.Dimensions))}
	for _, d := range model.Dimensions {
		value, rep, err := Dimension(c, d, v)
		s.Reports[d] = rep
		switch {
		case errors.Is(err, ErrInsufficientVotes):
			s.Partial = true
			value = 0
		case err != nil:
			return Scores{}, err
		}
		switch d {
		case model.DimensionReach:
			s.Reach = ApplyLocalMarket(value, localMarket && c.LocalMarketRuleEnabled)
		case model.DimensionImpact:
			s.Impact = value
		case model.DimensionConfidence:
			s.Confidence = value
		case model.DimensionEffort:
			s.Effort = value
		}
	}
	return s, nil
}
