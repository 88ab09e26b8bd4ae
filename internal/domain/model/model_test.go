package model_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	model "github.com/okian/rice/internal/domain/model"
)

func TestStageDimension(t *testing.T) {
	convey.Convey("Given the ordered stages", t, func() {
		convey.Convey("Then only voting stages map to a dimension", func() {
			var dims []model.Dimension
			for _, s := range model.Stages {
				if d, ok := s.Dimension(); ok {
					dims = append(dims, d)
				}
			}
			convey.So(dims, convey.ShouldResemble, model.Dimensions)

			_, ok := model.StageParticipants.Dimension()
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = model.StageResults.Dimension()
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then Index follows flow order", func() {
			convey.So(model.StageParticipants.Index(), convey.ShouldEqual, 0)
			convey.So(model.StageResults.Index(), convey.ShouldEqual, 5)
			convey.So(model.Stage("lobby").Index(), convey.ShouldEqual, -1)
		})
	})
}

func TestParseDimension(t *testing.T) {
	convey.Convey("Given dimension names", t, func() {
		d, err := model.ParseDimension(" Impact ")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d, convey.ShouldEqual, model.DimensionImpact)

		_, err = model.ParseDimension("speed")
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestConfidenceVoteNormalize(t *testing.T) {
	convey.Convey("Given a confidence vote with repeated sources", t, func() {
		v := model.ConfidenceVote{SourceIDs: []string{"b", "a", "b", "", "a"}}
		v.Normalize()

		convey.Convey("Then the sources behave as a set", func() {
			convey.So(v.SourceIDs, convey.ShouldResemble, []string{"a", "b"})
		})
	})
}

func TestSessionClone(t *testing.T) {
	convey.Convey("Given a session with revealed dimensions", t, func() {
		s := &model.Session{ID: "s1", Revealed: []model.Dimension{model.DimensionReach}}
		cp := s.Clone()
		cp.Revealed[0] = model.DimensionEffort

		convey.So(s.IsRevealed(model.DimensionReach), convey.ShouldBeTrue)
		convey.So(cp.IsRevealed(model.DimensionReach), convey.ShouldBeFalse)
	})
}
