package aggregation

import (
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
)

// Weights are the impact slot weights for one combination of metric classes.
type Weights struct {
	CVR      float64 `json:"cvr"`
	Revenue  float64 `json:"revenue"`
	Behavior float64 `json:"behavior"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 { return w.CVR + w.Revenue + w.Behavior }

// ImpactWeights returns the slot weights for the classes present. The zero
// value is returned when none is present.
func ImpactWeights(cvr, revenue, behavior bool) Weights {
	switch {
	case cvr && revenue && behavior:
		return Weights{CVR: 0.4, Revenue: 0.3, Behavior: 0.3}
	case cvr && revenue:
		return Weights{CVR: 0.4, Revenue: 0.6}
	case cvr && behavior:
		return Weights{CVR: 0.4, Behavior: 0.6}
	case revenue && behavior:
		return Weights{Revenue: 0.4, Behavior: 0.6}
	case cvr:
		return Weights{CVR: 1}
	case revenue:
		return Weights{Revenue: 1}
	case behavior:
		return Weights{Behavior: 1}
	}
	return Weights{}
}

type slot struct {
	sum float64
	n   int
}

func (s *slot) add(v float64) { s.sum += v; s.n++ }

func (s slot) present() bool { return s.n > 0 }

func (s slot) value() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

// ParticipantImpact scores one impact vote. Each metric earns
// expected value times its rate; metrics sharing a class are averaged,
// so behavior sub-metrics weigh 1/N within the behavior slot. The slots
// are then combined with ImpactWeights. ok is false when no metric of the
// vote resolved.
func ParticipantImpact(c *catalog.Catalog, v model.ImpactVote, rep *Report) (score float64, ok bool, err error) {
	var cvr, revenue, behavior slot
	for _, m := range v.Metrics {
		kpi, lookupErr := c.Impact(m.MetricID)
		found, lookupErr := rep.resolved(catalog.KindImpact, m.MetricID, lookupErr)
		if lookupErr != nil {
			return 0, false, lookupErr
		}
		if !found {
			continue
		}
		rate, rateErr := kpi.Rate()
		if rateErr != nil {
			return 0, false, rateErr
		}
		points := m.ExpectedValue * rate
		switch kpi.MetricClass() {
		case catalog.ClassRevenue:
			revenue.add(points)
		case catalog.ClassBehavior:
			behavior.add(points)
		default:
			cvr.add(points)
		}
	}
	w := ImpactWeights(cvr.present(), revenue.present(), behavior.present())
	if w.Sum() == 0 {
		return 0, false, nil
	}
	return w.CVR*cvr.value() + w.Revenue*revenue.value() + w.Behavior*behavior.value(), true, nil
}

// Impact is the mean of each participant's weighted impact score.
func Impact(c *catalog.Catalog, votes []model.ImpactVote) (float64, Report, error) {
	var rep Report
	var sum float64
	for _, v := range votes {
		score, ok, err := ParticipantImpact(c, v, &rep)
		if err != nil {
			return 0, rep, err
		}
		if !ok {
			continue
		}
		sum += score
		rep.Voters++
	}
	if rep.Voters == 0 {
		return 0, rep, ErrInsufficientVotes
	}
	return mean(sum, rep.Voters), rep, nil
}
