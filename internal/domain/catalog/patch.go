package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Op is the patch operation tag.
type Op string

// Patch operations.
const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Patch is a single typed catalog edit. Insert carries exactly one entry
// matching Kind; Update names a field valid for Kind and a JSON value of
// that field's type; Delete needs only EntryID.
type Patch struct {
	Op      Op              `json:"op"`
	Kind    Kind            `json:"kind"`
	EntryID string          `json:"entry_id,omitempty"`
	Field   string          `json:"field,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`

	Reach      *ReachCategory    `json:"reach,omitempty"`
	Impact     *ImpactKPI        `json:"impact,omitempty"`
	Confidence *ConfidenceSource `json:"confidence,omitempty"`
	Effort     *EffortSize       `json:"effort,omitempty"`
}

// Collection carries a whole replacement collection for one kind.
type Collection struct {
	Reach      []ReachCategory    `json:"reach,omitempty"`
	Impact     []ImpactKPI        `json:"impact,omitempty"`
	Confidence []ConfidenceSource `json:"confidence,omitempty"`
	Effort     []EffortSize       `json:"effort,omitempty"`
}

// NewEntryID generates an id such as "reach-V1StGXR8_Z".
func NewEntryID(kind Kind) (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", kind, id), nil
}

// Apply validates p against c and returns the patched copy. c is not modified.
func Apply(c *Catalog, p Patch) (*Catalog, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidPatch)
	}
	kind, err := ParseKind(string(p.Kind))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	p.Kind = kind

	out := c.Clone()
	switch p.Op {
	case OpInsert:
		err = applyInsert(out, p)
	case OpUpdate:
		err = applyUpdate(out, p)
	case OpDelete:
		err = applyDelete(out, p)
	default:
		err = fmt.Errorf("%w: unknown op %q", ErrInvalidPatch, p.Op)
	}
	if err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

// ReplaceCollection swaps the whole collection of kind with the one in coll.
func ReplaceCollection(c *Catalog, kind Kind, coll Collection) (*Catalog, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidPatch)
	}
	out := c.Clone()
	switch kind {
	case KindReach:
		out.ReachCategories = append([]ReachCategory{}, coll.Reach...)
		for i := range out.ReachCategories {
			if err := ensureID(kind, &out.ReachCategories[i].ID); err != nil {
				return nil, err
			}
		}
	case KindImpact:
		out.ImpactKPIs = append([]ImpactKPI{}, coll.Impact...)
		for i := range out.ImpactKPIs {
			if err := ensureID(kind, &out.ImpactKPIs[i].ID); err != nil {
				return nil, err
			}
		}
	case KindConfidence:
		out.ConfidenceSources = append([]ConfidenceSource{}, coll.Confidence...)
		for i := range out.ConfidenceSources {
			if err := ensureID(kind, &out.ConfidenceSources[i].ID); err != nil {
				return nil, err
			}
		}
	case KindEffort:
		out.EffortSizes = append([]EffortSize{}, coll.Effort...)
		for i := range out.EffortSizes {
			if err := ensureID(kind, &out.EffortSizes[i].ID); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPatch, kind)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

func ensureID(kind Kind, id *string) error {
	if strings.TrimSpace(*id) != "" {
		return nil
	}
	generated, err := NewEntryID(kind)
	if err != nil {
		return fmt.Errorf("generate %s id: %w", kind, err)
	}
	*id = generated
	return nil
}

func applyInsert(c *Catalog, p Patch) error {
	switch p.Kind {
	case KindReach:
		if p.Reach == nil {
			return fmt.Errorf("%w: insert reach without entry", ErrInvalidPatch)
		}
		e := *p.Reach
		if err := ensureID(p.Kind, &e.ID); err != nil {
			return err
		}
		c.ReachCategories = append(c.ReachCategories, e)
	case KindImpact:
		if p.Impact == nil {
			return fmt.Errorf("%w: insert impact without entry", ErrInvalidPatch)
		}
		e := *p.Impact
		if err := ensureID(p.Kind, &e.ID); err != nil {
			return err
		}
		c.ImpactKPIs = append(c.ImpactKPIs, e)
	case KindConfidence:
		if p.Confidence == nil {
			return fmt.Errorf("%w: insert confidence without entry", ErrInvalidPatch)
		}
		e := *p.Confidence
		if err := ensureID(p.Kind, &e.ID); err != nil {
			return err
		}
		c.ConfidenceSources = append(c.ConfidenceSources, e)
	case KindEffort:
		if p.Effort == nil {
			return fmt.Errorf("%w: insert effort without entry", ErrInvalidPatch)
		}
		e := *p.Effort
		if err := ensureID(p.Kind, &e.ID); err != nil {
			return err
		}
		c.EffortSizes = append(c.EffortSizes, e)
	}
	return nil
}

func applyDelete(c *Catalog, p Patch) error {
	if !c.Has(p.Kind, p.EntryID) {
		return fmt.Errorf("%w: %s %q", ErrNotFound, p.Kind, p.EntryID)
	}
	switch p.Kind {
	case KindReach:
		c.ReachCategories = removeWhere(c.ReachCategories, func(e ReachCategory) bool { return e.ID == p.EntryID })
	case KindImpact:
		c.ImpactKPIs = removeWhere(c.ImpactKPIs, func(e ImpactKPI) bool { return e.ID == p.EntryID })
	case KindConfidence:
		c.ConfidenceSources = removeWhere(c.ConfidenceSources, func(e ConfidenceSource) bool { return e.ID == p.EntryID })
	case KindEffort:
		c.EffortSizes = removeWhere(c.EffortSizes, func(e EffortSize) bool { return e.ID == p.EntryID })
	}
	return nil
}

func removeWhere[T any](in []T, match func(T) bool) []T {
	out := in[:0]
	for _, e := range in {
		if !match(e) {
			out = append(out, e)
		}
	}
	return out
}

func applyUpdate(c *Catalog, p Patch) error {
	if len(p.Value) == 0 {
		return fmt.Errorf("%w: update without value", ErrInvalidPatch)
	}
	field := strings.ToLower(strings.TrimSpace(p.Field))
	if field == "id" {
		return fmt.Errorf("%w: id is immutable", ErrInvalidPatch)
	}

	switch p.Kind {
	case KindReach:
		for i := range c.ReachCategories {
			if c.ReachCategories[i].ID == p.EntryID {
				return updateReach(&c.ReachCategories[i], field, p.Value)
			}
		}
	case KindImpact:
		for i := range c.ImpactKPIs {
			if c.ImpactKPIs[i].ID == p.EntryID {
				return updateImpact(&c.ImpactKPIs[i], field, p.Value)
			}
		}
	case KindConfidence:
		for i := range c.ConfidenceSources {
			if c.ConfidenceSources[i].ID == p.EntryID {
				return updateConfidence(&c.ConfidenceSources[i], field, p.Value)
			}
		}
	case KindEffort:
		for i := range c.EffortSizes {
			if c.EffortSizes[i].ID == p.EntryID {
				return updateEffort(&c.EffortSizes[i], field, p.Value)
			}
		}
	}
	return fmt.Errorf("%w: %s %q", ErrNotFound, p.Kind, p.EntryID)
}

func decodeField(field string, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: field %q: %w", ErrInvalidPatch, field, err)
	}
	return nil
}

func unknownField(kind Kind, field string) error {
	return fmt.Errorf("%w: %s has no field %q", ErrInvalidPatch, kind, field)
}

func updateReach(e *ReachCategory, field string, raw json.RawMessage) error {
	switch field {
	case "name":
		return decodeField(field, raw, &e.Name)
	case "min_reach_pct":
		return decodeField(field, raw, &e.MinReachPct)
	case "max_reach_pct":
		return decodeField(field, raw, &e.MaxReachPct)
	case "points":
		return decodeField(field, raw, &e.Points)
	case "example":
		return decodeField(field, raw, &e.Example)
	}
	return unknownField(KindReach, field)
}

func updateImpact(e *ImpactKPI, field string, raw json.RawMessage) error {
	switch field {
	case "name":
		return decodeField(field, raw, &e.Name)
	case "class":
		return decodeField(field, raw, &e.Class)
	case "min_delta":
		return decodeField(field, raw, &e.MinDelta)
	case "max_delta":
		return decodeField(field, raw, &e.MaxDelta)
	case "points_per_unit":
		return decodeField(field, raw, &e.PointsPerUnit)
	case "example":
		return decodeField(field, raw, &e.Example)
	case "is_behavior_sub_metric":
		return decodeField(field, raw, &e.IsBehaviorSubMetric)
	case "parent_id":
		return decodeField(field, raw, &e.ParentID)
	}
	return unknownField(KindImpact, field)
}

func updateConfidence(e *ConfidenceSource, field string, raw json.RawMessage) error {
	switch field {
	case "name":
		return decodeField(field, raw, &e.Name)
	case "points":
		return decodeField(field, raw, &e.Points)
	case "example":
		return decodeField(field, raw, &e.Example)
	}
	return unknownField(KindConfidence, field)
}

func updateEffort(e *EffortSize, field string, raw json.RawMessage) error {
	switch field {
	case "name":
		return decodeField(field, raw, &e.Name)
	case "duration":
		return decodeField(field, raw, &e.Duration)
	case "dev_effort":
		return decodeField(field, raw, &e.DevEffort)
	case "design_effort":
		return decodeField(field, raw, &e.DesignEffort)
	case "example":
		return decodeField(field, raw, &e.Example)
	}
	return unknownField(KindEffort, field)
}
