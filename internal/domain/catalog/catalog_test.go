package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rice/internal/domain/catalog"
)

func TestParsePointsPerUnit(t *testing.T) {
	Convey("Given textual points-per-unit values", t, func() {
		cases := map[string]float64{
			"0.4/pp":  0.4,
			"0.03/k€": 0.03,
			"0.06/%":  0.06,
			"1.5":     1.5,
			"0,4/pp":  0.4,
			"+2":      2,
		}
		for in, want := range cases {
			got, err := catalog.ParsePointsPerUnit(in)
			So(err, ShouldBeNil)
			So(got, ShouldAlmostEqual, want)
		}

		Convey("Then garbage is rejected as an invalid entry", func() {
			_, err := catalog.ParsePointsPerUnit("lots/pp")
			So(errors.Is(err, catalog.ErrInvalidEntry), ShouldBeTrue)
			_, err = catalog.ParsePointsPerUnit("")
			So(errors.Is(err, catalog.ErrInvalidEntry), ShouldBeTrue)
		})
	})
}

func TestDefaultCatalog(t *testing.T) {
	Convey("Given the default catalog", t, func() {
		c := catalog.Default()

		So(c.Validate(), ShouldBeNil)
		So(c.IsEmpty(), ShouldBeFalse)

		Convey("Then entries resolve to their scalar values", func() {
			v, err := c.Resolve(catalog.KindReach, "reach-critical")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0.7)

			v, err = c.Resolve(catalog.KindImpact, "impact-cvr")
			So(err, ShouldBeNil)
			So(v, ShouldAlmostEqual, 0.4)

			v, err = c.Resolve(catalog.KindConfidence, "conf-ab-test")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 2.5)

			dev, design, err := c.ResolveEffort("effort-m")
			So(err, ShouldBeNil)
			So(dev, ShouldEqual, 0.8)
			So(design, ShouldEqual, 0.5)
		})

		Convey("Then unknown ids are not found", func() {
			_, err := c.Resolve(catalog.KindReach, "reach-nowhere")
			So(errors.Is(err, catalog.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then behavior sub-metrics are listed under their parent", func() {
			subs := c.SubMetrics("impact-behavior")
			So(len(subs), ShouldEqual, 3)
			for _, s := range subs {
				So(s.MetricClass(), ShouldEqual, catalog.ClassBehavior)
			}
			So(c.SubMetrics("impact-cvr"), ShouldBeEmpty)
		})

		Convey("Then clones are independent", func() {
			cp := c.Clone()
			cp.ReachCategories[0].Points = 0.1
			So(c.ReachCategories[0].Points, ShouldEqual, 1.0)
		})
	})
}

func TestMetricClassInference(t *testing.T) {
	Convey("Given KPIs without an explicit class", t, func() {
		So(catalog.ImpactKPI{Name: "CVR (pp)"}.MetricClass(), ShouldEqual, catalog.ClassCVR)
		So(catalog.ImpactKPI{Name: "Revenue (€k)"}.MetricClass(), ShouldEqual, catalog.ClassRevenue)
		So(catalog.ImpactKPI{Name: "User behavior"}.MetricClass(), ShouldEqual, catalog.ClassBehavior)
		So(catalog.ImpactKPI{Name: "Revenue", Class: catalog.ClassCVR}.MetricClass(), ShouldEqual, catalog.ClassCVR)
	})
}

func TestCatalogValidate(t *testing.T) {
	Convey("Given a catalog with broken entries", t, func() {
		Convey("When ids are duplicated", func() {
			c := catalog.Default()
			c.ReachCategories = append(c.ReachCategories, c.ReachCategories[0])
			So(errors.Is(c.Validate(), catalog.ErrInvalidEntry), ShouldBeTrue)
		})

		Convey("When a sub-metric points at a missing parent", func() {
			c := catalog.Default()
			c.ImpactKPIs = append(c.ImpactKPIs, catalog.ImpactKPI{
				ID: "impact-orphan", Name: "Orphan", PointsPerUnit: "0.1/%",
				IsBehaviorSubMetric: true, ParentID: "impact-missing",
			})
			So(errors.Is(c.Validate(), catalog.ErrInvalidEntry), ShouldBeTrue)
		})

		Convey("When a sub-metric points at another sub-metric", func() {
			c := catalog.Default()
			c.ImpactKPIs = append(c.ImpactKPIs, catalog.ImpactKPI{
				ID: "impact-nested", Name: "Nested", PointsPerUnit: "0.1/%",
				IsBehaviorSubMetric: true, ParentID: "impact-add-to-cart",
			})
			So(errors.Is(c.Validate(), catalog.ErrInvalidEntry), ShouldBeTrue)
		})

		Convey("When an effort value is zero", func() {
			c := catalog.Default()
			c.EffortSizes[0].DesignEffort = 0
			So(errors.Is(c.Validate(), catalog.ErrInvalidEntry), ShouldBeTrue)
		})
	})
}

func TestApplyPatch(t *testing.T) {
	Convey("Given the default catalog", t, func() {
		c := catalog.Default()

		Convey("When inserting a reach category without an id", func() {
			out, err := catalog.Apply(c, catalog.Patch{
				Op:    catalog.OpInsert,
				Kind:  catalog.KindReach,
				Reach: &catalog.ReachCategory{Name: "Landing Page", Points: 0.4},
			})

			Convey("Then an id is generated and the original is untouched", func() {
				So(err, ShouldBeNil)
				So(len(out.ReachCategories), ShouldEqual, len(c.ReachCategories)+1)
				added := out.ReachCategories[len(out.ReachCategories)-1]
				So(strings.HasPrefix(added.ID, "reach-"), ShouldBeTrue)
				So(len(added.ID), ShouldEqual, len("reach-")+10)
				So(len(c.ReachCategories), ShouldEqual, 4)
			})
		})

		Convey("When inserting without the typed entry", func() {
			_, err := catalog.Apply(c, catalog.Patch{Op: catalog.OpInsert, Kind: catalog.KindEffort})
			So(errors.Is(err, catalog.ErrInvalidPatch), ShouldBeTrue)
		})

		Convey("When updating a typed field", func() {
			out, err := catalog.Apply(c, catalog.Patch{
				Op: catalog.OpUpdate, Kind: catalog.KindConfidence,
				EntryID: "conf-audit", Field: "points", Value: json.RawMessage(`0.7`),
			})
			So(err, ShouldBeNil)
			src, _ := out.Confidence("conf-audit")
			So(src.Points, ShouldEqual, 0.7)
		})

		Convey("When updating with a value of the wrong type", func() {
			_, err := catalog.Apply(c, catalog.Patch{
				Op: catalog.OpUpdate, Kind: catalog.KindConfidence,
				EntryID: "conf-audit", Field: "points", Value: json.RawMessage(`"high"`),
			})
			So(errors.Is(err, catalog.ErrInvalidPatch), ShouldBeTrue)
		})

		Convey("When updating a field the kind does not have", func() {
			_, err := catalog.Apply(c, catalog.Patch{
				Op: catalog.OpUpdate, Kind: catalog.KindReach,
				EntryID: "reach-micro", Field: "dev_effort", Value: json.RawMessage(`1`),
			})
			So(errors.Is(err, catalog.ErrInvalidPatch), ShouldBeTrue)
		})

		Convey("When an update breaks an invariant", func() {
			_, err := catalog.Apply(c, catalog.Patch{
				Op: catalog.OpUpdate, Kind: catalog.KindImpact,
				EntryID: "impact-cvr", Field: "points_per_unit", Value: json.RawMessage(`"many/pp"`),
			})
			So(errors.Is(err, catalog.ErrInvalidPatch), ShouldBeTrue)
		})

		Convey("When deleting an entry", func() {
			out, err := catalog.Apply(c, catalog.Patch{Op: catalog.OpDelete, Kind: catalog.KindEffort, EntryID: "effort-xl"})
			So(err, ShouldBeNil)
			So(out.Has(catalog.KindEffort, "effort-xl"), ShouldBeFalse)
			So(c.Has(catalog.KindEffort, "effort-xl"), ShouldBeTrue)
		})

		Convey("When deleting a parent that still has sub-metrics", func() {
			_, err := catalog.Apply(c, catalog.Patch{Op: catalog.OpDelete, Kind: catalog.KindImpact, EntryID: "impact-behavior"})
			So(errors.Is(err, catalog.ErrInvalidPatch), ShouldBeTrue)
		})

		Convey("When deleting an unknown entry", func() {
			_, err := catalog.Apply(c, catalog.Patch{Op: catalog.OpDelete, Kind: catalog.KindReach, EntryID: "reach-x"})
			So(errors.Is(err, catalog.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the op or kind is unknown", func() {
			_, err := catalog.Apply(c, catalog.Patch{Op: "upsert", Kind: catalog.KindReach})
			So(errors.Is(err, catalog.ErrInvalidPatch), ShouldBeTrue)
			_, err = catalog.Apply(c, catalog.Patch{Op: catalog.OpDelete, Kind: "speed"})
			So(errors.Is(err, catalog.ErrInvalidPatch), ShouldBeTrue)
		})
	})
}

func TestReplaceCollection(t *testing.T) {
	Convey("Given the default catalog", t, func() {
		c := catalog.Default()

		Convey("When replacing the effort sizes", func() {
			out, err := catalog.ReplaceCollection(c, catalog.KindEffort, catalog.Collection{
				Effort: []catalog.EffortSize{
					{Name: "Small", DevEffort: 0.5, DesignEffort: 0.5},
					{ID: "effort-big", Name: "Big", DevEffort: 2, DesignEffort: 1},
				},
			})
			So(err, ShouldBeNil)
			So(len(out.EffortSizes), ShouldEqual, 2)
			So(out.EffortSizes[0].ID, ShouldStartWith, "effort-")
			So(out.EffortSizes[1].ID, ShouldEqual, "effort-big")
			So(len(out.ReachCategories), ShouldEqual, 4)
		})

		Convey("When the replacement is invalid", func() {
			_, err := catalog.ReplaceCollection(c, catalog.KindConfidence, catalog.Collection{
				Confidence: []catalog.ConfidenceSource{{ID: "a", Points: 1}, {ID: "a", Points: 2}},
			})
			So(errors.Is(err, catalog.ErrInvalidPatch), ShouldBeTrue)
		})
	})
}

type fakeSource struct {
	c   *catalog.Catalog
	err error
}

func (f fakeSource) GetCatalog(context.Context, string) (*catalog.Catalog, error) {
	return f.c, f.err
}

func TestProvider(t *testing.T) {
	Convey("Given a catalog provider", t, func() {
		ctx := context.Background()
		stored := catalog.Default()
		stored.ID = "team-a"
		stored.Name = "Team A"

		Convey("When the catalog is stored", func() {
			c, fellBack := catalog.NewProvider(fakeSource{c: stored}).Get(ctx, "team-a")
			So(fellBack, ShouldBeFalse)
			So(c.Name, ShouldEqual, "Team A")
		})

		Convey("When the catalog is missing", func() {
			c, fellBack := catalog.NewProvider(fakeSource{err: catalog.ErrNotFound}).Get(ctx, "team-a")
			So(fellBack, ShouldBeTrue)
			So(c.ID, ShouldEqual, catalog.DefaultID)
		})

		Convey("When the catalog is empty", func() {
			_, fellBack := catalog.NewProvider(fakeSource{c: &catalog.Catalog{ID: "team-a"}}).Get(ctx, "team-a")
			So(fellBack, ShouldBeTrue)
		})

		Convey("When the store is unreachable", func() {
			c, fellBack := catalog.NewProvider(fakeSource{err: errors.New("disk on fire")}).Get(ctx, "team-a")
			So(fellBack, ShouldBeTrue)
			So(c.Validate(), ShouldBeNil)
		})

		Convey("When a fallback override is configured", func() {
			override := catalog.Default()
			override.Name = "Override"
			c, _ := catalog.NewProvider(fakeSource{err: catalog.ErrNotFound}, catalog.WithFallback(override)).Get(ctx, "team-a")
			So(c.Name, ShouldEqual, "Override")
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML catalog file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "catalog.yaml")
		content := `
name: Lab catalog
reach_categories:
  - id: reach-all
    name: Everyone
    points: 1
impact_kpis:
  - id: impact-cvr
    name: CVR
    class: cvr
    points_per_unit: 0.5/pp
confidence_sources:
  - id: conf-gut
    name: Gut feeling
    points: 0.5
effort_sizes:
  - id: effort-one
    name: One
    dev_effort: 1
    design_effort: 1
`
		So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)

		c, err := catalog.LoadFile(path)
		So(err, ShouldBeNil)
		So(c.ID, ShouldEqual, catalog.DefaultID)
		So(c.Name, ShouldEqual, "Lab catalog")
		v, err := c.Resolve(catalog.KindImpact, "impact-cvr")
		So(err, ShouldBeNil)
		So(v, ShouldAlmostEqual, 0.5)

		Convey("Then an invalid file is rejected", func() {
			bad := filepath.Join(dir, "bad.yaml")
			So(os.WriteFile(bad, []byte("effort_sizes:\n  - id: e\n    dev_effort: 0\n    design_effort: 1\n"), 0o600), ShouldBeNil)
			_, err := catalog.LoadFile(bad)
			So(errors.Is(err, catalog.ErrInvalidEntry), ShouldBeTrue)
		})
	})
}
