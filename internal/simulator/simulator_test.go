package simulator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rice/internal/adapters/http/api"
	service "github.com/okian/rice/internal/app"
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/internal/domain/types"
)

func init() {
	if err := SetupLogging("text", "warn", io.Discard); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When several sessions are played concurrently", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:  srv.URL,
				Sessions: 6,
				Voters:   3,
				Workers:  3,
				Timeout:  5 * time.Second,
				Seed:     7,
			})

			Convey("Then every session is finalized and reported", func() {
				So(err, ShouldBeNil)
				So(stats.SessionsCreated, ShouldEqual, 6)
				So(stats.SessionsFinalized, ShouldEqual, 6)
				So(stats.Participants, ShouldEqual, 24)
				So(stats.VotesSubmitted, ShouldEqual, 6*4*4)
				So(stats.VotesFailed, ShouldEqual, 0)
				So(stats.Reveals, ShouldEqual, 24)
				So(stats.ReportEntries, ShouldEqual, 6)

				sessions, err := svc.ListSessions(ctx)
				So(err, ShouldBeNil)
				for _, s := range sessions {
					So(s.Status, ShouldEqual, model.StatusCompleted)
					So(s.ForceSeq, ShouldEqual, int64(1))
				}
			})
		})

		Convey("When the config is unusable", func() {
			_, err := Run(ctx, &Config{BaseURL: srv.URL, Sessions: 0, Workers: 1})
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the service is unreachable", func() {
			_, err := Run(ctx, &Config{BaseURL: "http://127.0.0.1:1", Sessions: 1, Workers: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a generator over the default catalog", t, func() {
		c := catalog.Default()
		g := newGenerator(c, 42)

		Convey("Every vote references existing entries", func() {
			for range 200 {
				r := g.vote(model.DimensionReach, "p")
				So(c.Has(catalog.KindReach, r.CategoryID), ShouldBeTrue)

				im := g.vote(model.DimensionImpact, "p")
				So(len(im.Metrics), ShouldBeBetweenOrEqual, 1, 3)
				seen := map[string]bool{}
				for _, m := range im.Metrics {
					So(c.Has(catalog.KindImpact, m.MetricID), ShouldBeTrue)
					So(seen[m.MetricID], ShouldBeFalse)
					seen[m.MetricID] = true
					So(m.ExpectedValue, ShouldBeGreaterThan, 0)
				}
				for _, m := range im.Metrics {
					kpi, err := c.Impact(m.MetricID)
					So(err, ShouldBeNil)
					So(kpi.IsBehaviorSubMetric && seen[kpi.ParentID], ShouldBeFalse)
				}

				conf := g.vote(model.DimensionConfidence, "p")
				So(conf.SourceIDs, ShouldNotBeNil)
				So(len(conf.SourceIDs), ShouldBeLessThanOrEqualTo, maxSources)

				e := g.vote(model.DimensionEffort, "p")
				So(c.Has(catalog.KindEffort, e.DevSizeID), ShouldBeTrue)
				So(c.Has(catalog.KindEffort, e.DesignSizeID), ShouldBeTrue)
			}
		})

		Convey("The same seed draws the same votes", func() {
			other := newGenerator(catalog.Default(), 42)
			for _, d := range model.Dimensions {
				So(other.vote(d, "p"), ShouldResemble, g.vote(d, "p"))
			}
		})
	})
}

func TestVerifyReport(t *testing.T) {
	Convey("Given played sessions", t, func() {
		outcomes := []Outcome{{SessionID: "a", RiceScore: 4}, {SessionID: "b", RiceScore: 2}}

		Convey("A matching report passes even with older sessions in it", func() {
			report := []types.Entry{
				{Rank: 1, SessionID: "old", RiceScore: 9},
				{Rank: 2, SessionID: "a", RiceScore: 4},
				{Rank: 3, SessionID: "b", RiceScore: 2},
			}
			So(verifyReport(outcomes, report, 1000), ShouldBeNil)
		})

		Convey("Misordered, missing or wrong entries fail", func() {
			misordered := []types.Entry{{Rank: 1, SessionID: "b", RiceScore: 2}, {Rank: 2, SessionID: "a", RiceScore: 4}}
			So(errors.Is(verifyReport(outcomes, misordered, 1000), ErrMismatch), ShouldBeTrue)

			missing := []types.Entry{{Rank: 1, SessionID: "a", RiceScore: 4}}
			So(errors.Is(verifyReport(outcomes, missing, 1000), ErrMismatch), ShouldBeTrue)
			So(verifyReport(outcomes, missing, 1), ShouldBeNil)

			wrong := []types.Entry{{Rank: 1, SessionID: "a", RiceScore: 5}, {Rank: 2, SessionID: "b", RiceScore: 2}}
			So(errors.Is(verifyReport(outcomes, wrong, 1000), ErrMismatch), ShouldBeTrue)
		})
	})
}
