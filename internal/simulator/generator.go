package simulator

import (
	"math/rand/v2"
	"sync"

	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
)

// Expected value ranges per metric class.
const (
	minPercentDelta = 0.5
	maxPercentDelta = 8.0
	minRevenueDelta = 10.0
	maxRevenueDelta = 500.0
	maxSources      = 3
)

// Vote is the body of PUT /sessions/{id}/votes/{dimension}.
type Vote struct {
	ParticipantID string                 `json:"participant_id"`
	CategoryID    string                 `json:"category_id,omitempty"`
	Metrics       []model.MetricEstimate `json:"metrics,omitempty"`
	SourceIDs     []string               `json:"source_ids"`
	DevSizeID     string                 `json:"dev_size_id,omitempty"`
	DesignSizeID  string                 `json:"design_size_id,omitempty"`
}

// generator draws random but valid votes from a catalog. It is safe for
// concurrent use.
type generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	c   *catalog.Catalog
}

func newGenerator(c *catalog.Catalog, seed uint64) *generator {
	return &generator{rnd: rand.New(rand.NewPCG(seed, seed>>1|1)), c: c}
}

func pick[T any](rnd *rand.Rand, items []T) T {
	return items[rnd.IntN(len(items))]
}

// vote returns participantID's vote on d.
func (g *generator) vote(d model.Dimension, participantID string) Vote {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := Vote{ParticipantID: participantID}
	switch d {
	case model.DimensionReach:
		v.CategoryID = pick(g.rnd, g.c.ReachCategories).ID
	case model.DimensionImpact:
		v.Metrics = g.metrics()
	case model.DimensionConfidence:
		v.SourceIDs = g.sources()
	case model.DimensionEffort:
		v.DevSizeID = pick(g.rnd, g.c.EffortSizes).ID
		v.DesignSizeID = pick(g.rnd, g.c.EffortSizes).ID
	}
	return v
}

// metrics picks one to three distinct KPIs, never a parent together with
// one of its own sub-metrics.
func (g *generator) metrics() []model.MetricEstimate {
	perm := g.rnd.Perm(len(g.c.ImpactKPIs))
	n := 1 + g.rnd.IntN(min(3, len(perm)))
	picked := make(map[string]bool, n)
	out := make([]model.MetricEstimate, 0, n)
	for _, i := range perm {
		if len(out) == n {
			break
		}
		kpi := g.c.ImpactKPIs[i]
		if picked[kpi.ParentID] || g.hasPickedChild(picked, kpi.ID) {
			continue
		}
		picked[kpi.ID] = true
		lo, hi := minPercentDelta, maxPercentDelta
		if kpi.MetricClass() == catalog.ClassRevenue {
			lo, hi = minRevenueDelta, maxRevenueDelta
		}
		out = append(out, model.MetricEstimate{
			MetricID:      kpi.ID,
			ExpectedValue: lo + g.rnd.Float64()*(hi-lo),
		})
	}
	return out
}

func (g *generator) hasPickedChild(picked map[string]bool, parentID string) bool {
	for _, k := range g.c.SubMetrics(parentID) {
		if picked[k.ID] {
			return true
		}
	}
	return false
}

// sources returns zero to three distinct confidence sources.
func (g *generator) sources() []string {
	perm := g.rnd.Perm(len(g.c.ConfidenceSources))
	n := g.rnd.IntN(min(maxSources, len(perm)) + 1)
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, g.c.ConfidenceSources[i].ID)
	}
	return out
}
