// Package catalog holds the selectable scoring tiers for each RICE dimension
// and the operations that read and edit them.
package catalog

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind names one of the four entry collections.
type Kind string

// Entry kinds.
const (
	KindReach      Kind = "reach"
	KindImpact     Kind = "impact"
	KindConfidence Kind = "confidence"
	KindEffort     Kind = "effort"
)

// Kinds lists every entry kind in dimension order.
var Kinds = []Kind{KindReach, KindImpact, KindConfidence, KindEffort}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindReach, KindImpact, KindConfidence, KindEffort:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, s)
}

// MetricClass groups impact KPIs into the three weighted slots.
type MetricClass string

// Impact metric classes.
const (
	ClassCVR      MetricClass = "cvr"
	ClassRevenue  MetricClass = "revenue"
	ClassBehavior MetricClass = "behavior"
)

// ReachCategory is a reach tier; Points is on the native [0,1] scale.
type ReachCategory struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	MinReachPct float64 `json:"min_reach_pct" yaml:"min_reach_pct"`
	MaxReachPct float64 `json:"max_reach_pct" yaml:"max_reach_pct"`
	Points      float64 `json:"points" yaml:"points"`
	Example     string  `json:"example,omitempty" yaml:"example,omitempty"`
}

// ImpactKPI is an impact metric. PointsPerUnit keeps the catalog's textual
// form ("0.4/pp") and is parsed on use.
type ImpactKPI struct {
	ID                  string      `json:"id" yaml:"id"`
	Name                string      `json:"name" yaml:"name"`
	Class               MetricClass `json:"class,omitempty" yaml:"class,omitempty"`
	MinDelta            string      `json:"min_delta,omitempty" yaml:"min_delta,omitempty"`
	MaxDelta            string      `json:"max_delta,omitempty" yaml:"max_delta,omitempty"`
	PointsPerUnit       string      `json:"points_per_unit" yaml:"points_per_unit"`
	Example             string      `json:"example,omitempty" yaml:"example,omitempty"`
	IsBehaviorSubMetric bool        `json:"is_behavior_sub_metric,omitempty" yaml:"is_behavior_sub_metric,omitempty"`
	ParentID            string      `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
}

// MetricClass returns the weighted slot this KPI contributes to. Sub-metrics
// always feed the behavior slot; otherwise an explicit Class wins over the
// name heuristic.
func (k ImpactKPI) MetricClass() MetricClass {
	if k.IsBehaviorSubMetric {
		return ClassBehavior
	}
	if k.Class != "" {
		return k.Class
	}
	name := strings.ToLower(k.Name)
	switch {
	case strings.Contains(name, "behavior"), strings.Contains(name, "behaviour"):
		return ClassBehavior
	case strings.Contains(name, "revenue"), strings.Contains(name, "revenu"):
		return ClassRevenue
	default:
		return ClassCVR
	}
}

// Rate returns the parsed points-per-unit.
func (k ImpactKPI) Rate() (float64, error) {
	return ParsePointsPerUnit(k.PointsPerUnit)
}

// ConfidenceSource is a kind of evidence and its point value.
type ConfidenceSource struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Points  float64 `json:"points" yaml:"points"`
	Example string  `json:"example,omitempty" yaml:"example,omitempty"`
}

// EffortSize is a t-shirt size carrying both dev and design effort.
type EffortSize struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Duration     string  `json:"duration,omitempty" yaml:"duration,omitempty"`
	DevEffort    float64 `json:"dev_effort" yaml:"dev_effort"`
	DesignEffort float64 `json:"design_effort" yaml:"design_effort"`
	Example      string  `json:"example,omitempty" yaml:"example,omitempty"`
}

// Weights are the custom weight percentages shown in the formula.
type Weights struct {
	Reach      float64 `json:"reach" yaml:"reach"`
	Impact     float64 `json:"impact" yaml:"impact"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Effort     float64 `json:"effort" yaml:"effort"`
}

// Catalog is one versioned set of scoring tiers.
type Catalog struct {
	ID                     string             `json:"id" yaml:"id"`
	Name                   string             `json:"name" yaml:"name"`
	CustomWeightsEnabled   bool               `json:"custom_weights_enabled" yaml:"custom_weights_enabled"`
	LocalMarketRuleEnabled bool               `json:"local_market_rule_enabled" yaml:"local_market_rule_enabled"`
	Weights                Weights            `json:"weights" yaml:"weights"`
	ReachCategories        []ReachCategory    `json:"reach_categories" yaml:"reach_categories"`
	ImpactKPIs             []ImpactKPI        `json:"impact_kpis" yaml:"impact_kpis"`
	ConfidenceSources      []ConfidenceSource `json:"confidence_sources" yaml:"confidence_sources"`
	EffortSizes            []EffortSize       `json:"effort_sizes" yaml:"effort_sizes"`
	CreatedAt              time.Time          `json:"created_at" yaml:"-"`
	UpdatedAt              time.Time          `json:"updated_at" yaml:"-"`
}

// IsEmpty reports whether the catalog has no entries of any kind.
func (c *Catalog) IsEmpty() bool {
	return c == nil || len(c.ReachCategories)+len(c.ImpactKPIs)+len(c.ConfidenceSources)+len(c.EffortSizes) == 0
}

// Clone returns a deep copy.
func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return nil
	}
	out := *c
	out.ReachCategories = append([]ReachCategory(nil), c.ReachCategories...)
	out.ImpactKPIs = append([]ImpactKPI(nil), c.ImpactKPIs...)
	out.ConfidenceSources = append([]ConfidenceSource(nil), c.ConfidenceSources...)
	out.EffortSizes = append([]EffortSize(nil), c.EffortSizes...)
	return &out
}

// Reach looks up a reach category.
func (c *Catalog) Reach(id string) (ReachCategory, error) {
	for _, r := range c.ReachCategories {
		if r.ID == id {
			return r, nil
		}
	}
	return ReachCategory{}, fmt.Errorf("%w: reach %q", ErrNotFound, id)
}

// Impact looks up an impact KPI.
func (c *Catalog) Impact(id string) (ImpactKPI, error) {
	for _, k := range c.ImpactKPIs {
		if k.ID == id {
			return k, nil
		}
	}
	return ImpactKPI{}, fmt.Errorf("%w: impact %q", ErrNotFound, id)
}

// Confidence looks up a confidence source.
func (c *Catalog) Confidence(id string) (ConfidenceSource, error) {
	for _, s := range c.ConfidenceSources {
		if s.ID == id {
			return s, nil
		}
	}
	return ConfidenceSource{}, fmt.Errorf("%w: confidence %q", ErrNotFound, id)
}

// Effort looks up an effort size.
func (c *Catalog) Effort(id string) (EffortSize, error) {
	for _, s := range c.EffortSizes {
		if s.ID == id {
			return s, nil
		}
	}
	return EffortSize{}, fmt.Errorf("%w: effort %q", ErrNotFound, id)
}

// Resolve returns the scalar an entry contributes: points for reach and
// confidence, the parsed rate for impact and the dev effort for effort.
func (c *Catalog) Resolve(kind Kind, id string) (float64, error) {
	switch kind {
	case KindReach:
		r, err := c.Reach(id)
		return r.Points, err
	case KindImpact:
		k, err := c.Impact(id)
		if err != nil {
			return 0, err
		}
		return k.Rate()
	case KindConfidence:
		s, err := c.Confidence(id)
		return s.Points, err
	case KindEffort:
		s, err := c.Effort(id)
		return s.DevEffort, err
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, kind)
}

// ResolveEffort returns the dev and design effort of a size.
func (c *Catalog) ResolveEffort(id string) (dev, design float64, err error) {
	s, err := c.Effort(id)
	if err != nil {
		return 0, 0, err
	}
	return s.DevEffort, s.DesignEffort, nil
}

// SubMetrics lists the behavior sub-metrics whose parent is parentID.
func (c *Catalog) SubMetrics(parentID string) []ImpactKPI {
	var out []ImpactKPI
	for _, k := range c.ImpactKPIs {
		if k.IsBehaviorSubMetric && k.ParentID == parentID {
			out = append(out, k)
		}
	}
	return out
}

// Has reports whether an entry with id exists in the kind's collection.
func (c *Catalog) Has(kind Kind, id string) bool {
	var err error
	switch kind {
	case KindReach:
		_, err = c.Reach(id)
	case KindImpact:
		_, err = c.Impact(id)
	case KindConfidence:
		_, err = c.Confidence(id)
	case KindEffort:
		_, err = c.Effort(id)
	default:
		return false
	}
	return err == nil
}

// Validate checks the catalog invariants: unique ids per kind, finite
// values, positive effort and sub-metrics pointing at a top-level parent.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{})
	unique := func(kind Kind, id string) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: %s entry without id", ErrInvalidEntry, kind)
		}
		key := string(kind) + "/" + id
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate %s id %q", ErrInvalidEntry, kind, id)
		}
		seen[key] = struct{}{}
		return nil
	}

	for _, r := range c.ReachCategories {
		if err := unique(KindReach, r.ID); err != nil {
			return err
		}
		if !finite(r.Points) || r.Points < 0 {
			return fmt.Errorf("%w: reach %q points %v", ErrInvalidEntry, r.ID, r.Points)
		}
	}

	parents := make(map[string]bool)
	for _, k := range c.ImpactKPIs {
		if err := unique(KindImpact, k.ID); err != nil {
			return err
		}
		if _, err := k.Rate(); err != nil {
			return fmt.Errorf("impact %q: %w", k.ID, err)
		}
		switch k.Class {
		case "", ClassCVR, ClassRevenue, ClassBehavior:
		default:
			return fmt.Errorf("%w: impact %q class %q", ErrInvalidEntry, k.ID, k.Class)
		}
		parents[k.ID] = !k.IsBehaviorSubMetric
	}
	for _, k := range c.ImpactKPIs {
		if !k.IsBehaviorSubMetric {
			continue
		}
		if isTop, ok := parents[k.ParentID]; !ok || !isTop {
			return fmt.Errorf("%w: sub-metric %q references unknown parent %q", ErrInvalidEntry, k.ID, k.ParentID)
		}
	}

	for _, s := range c.ConfidenceSources {
		if err := unique(KindConfidence, s.ID); err != nil {
			return err
		}
		if !finite(s.Points) || s.Points < 0 {
			return fmt.Errorf("%w: confidence %q points %v", ErrInvalidEntry, s.ID, s.Points)
		}
	}

	for _, s := range c.EffortSizes {
		if err := unique(KindEffort, s.ID); err != nil {
			return err
		}
		if !finite(s.DevEffort) || !finite(s.DesignEffort) || s.DevEffort <= 0 || s.DesignEffort <= 0 {
			return fmt.Errorf("%w: effort %q must be > 0", ErrInvalidEntry, s.ID)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
