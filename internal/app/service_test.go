package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/rice/internal/app"
	"github.com/okian/rice/internal/adapters/repository"
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startService(opts ...service.Option) (*service.Service, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	svc := service.New(append([]service.Option{service.WithWorkerCount(2), service.WithQueueSize(100)}, opts...)...)
	So(svc.Start(ctx), ShouldBeNil)
	return svc, ctx, cancel
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("Operations fail until it is started", func() {
			_, err := svc.ListSessions(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats(context.Background())["started"], ShouldEqual, false)
		})

		Convey("When started and stopped", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats["sessions"], ShouldEqual, 0)

			svc.Stop()
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			svc.Stop()
		})
	})
}

func TestService_SessionsAndParticipants(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx, cancel := startService()
		defer cancel()
		defer svc.Stop()

		Convey("Creating a session needs a name", func() {
			_, err := svc.CreateSession(ctx, service.CreateSessionInput{Name: "  "})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("A new session is a draft on the default catalog", func() {
			sess, err := svc.CreateSession(ctx, service.CreateSessionInput{Name: "Sticky add-to-cart", RecordID: "rec42"})
			So(err, ShouldBeNil)
			So(sess.Status, ShouldEqual, model.StatusDraft)
			So(sess.Stage, ShouldEqual, model.StageParticipants)
			So(sess.CatalogID, ShouldEqual, catalog.DefaultID)

			Convey("The first join makes a facilitator and activates the session", func() {
				alice, err := svc.Join(ctx, sess.ID, service.JoinInput{Name: "Alice", Identity: "alice@example.com"})
				So(err, ShouldBeNil)
				So(alice.Role, ShouldEqual, model.RoleFacilitator)

				bob, err := svc.Join(ctx, sess.ID, service.JoinInput{Name: "Bob"})
				So(err, ShouldBeNil)
				So(bob.Role, ShouldEqual, model.RoleVoter)

				again, err := svc.Join(ctx, sess.ID, service.JoinInput{Name: "Alice (phone)", Identity: "alice@example.com"})
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, alice.ID)

				dup, err := svc.Join(ctx, sess.ID, service.JoinInput{Name: "Bob"})
				So(err, ShouldBeNil)
				So(dup.ID, ShouldNotEqual, bob.ID)

				state, err := svc.GetSession(ctx, sess.ID)
				So(err, ShouldBeNil)
				So(state.Session.Status, ShouldEqual, model.StatusActive)
				So(len(state.Participants), ShouldEqual, 3)
				So(state.CanReveal, ShouldBeFalse)
			})

			Convey("Joining an unknown session is not found", func() {
				_, err := svc.Join(ctx, "nope", service.JoinInput{Name: "Carol"})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Deleting removes it", func() {
				So(svc.DeleteSession(ctx, sess.ID), ShouldBeNil)
				_, err := svc.GetSession(ctx, sess.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(svc.DeleteSession(ctx, sess.ID), repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_StageControl(t *testing.T) {
	Convey("Given a session with a facilitator and a voter", t, func() {
		svc, ctx, cancel := startService()
		defer cancel()
		defer svc.Stop()

		sess, err := svc.CreateSession(ctx, service.CreateSessionInput{Name: "PDP redesign"})
		So(err, ShouldBeNil)
		fac, err := svc.Join(ctx, sess.ID, service.JoinInput{Name: "Fran"})
		So(err, ShouldBeNil)
		voter, err := svc.Join(ctx, sess.ID, service.JoinInput{Name: "Vic"})
		So(err, ShouldBeNil)

		Convey("Voters cannot drive the session", func() {
			_, err := svc.Advance(ctx, sess.ID, voter.ID)
			So(errors.Is(err, service.ErrForbidden), ShouldBeTrue)
			_, err = svc.ForceAdvanceAll(ctx, sess.ID, voter.ID)
			So(errors.Is(err, service.ErrForbidden), ShouldBeTrue)
			_, err = svc.Reveal(ctx, sess.ID, "stranger")
			So(errors.Is(err, service.ErrForbidden), ShouldBeTrue)
			_, err = svc.Finalize(ctx, sess.ID, voter.ID)
			So(errors.Is(err, service.ErrForbidden), ShouldBeTrue)
		})

		Convey("The facilitator moves through the stages without skipping", func() {
			_, err := svc.Retreat(ctx, sess.ID, fac.ID)
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			moved, err := svc.Advance(ctx, sess.ID, fac.ID)
			So(err, ShouldBeNil)
			So(moved.Stage, ShouldEqual, model.StageReach)
			So(moved.Status, ShouldEqual, model.StatusVotingStarted)

			back, err := svc.Retreat(ctx, sess.ID, fac.ID)
			So(err, ShouldBeNil)
			So(back.Stage, ShouldEqual, model.StageParticipants)
		})

		Convey("Revealing on the participants stage is refused", func() {
			_, err := svc.Reveal(ctx, sess.ID, fac.ID)
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("Reveal waits for every participant", func() {
			_, err := svc.Advance(ctx, sess.ID, fac.ID)
			So(err, ShouldBeNil)
			So(svc.SubmitReach(ctx, sess.ID, fac.ID, service.ReachInput{CategoryID: "reach-sitewide"}), ShouldBeNil)

			_, err = svc.Reveal(ctx, sess.ID, fac.ID)
			So(errors.Is(err, service.ErrRevealNotAllowed), ShouldBeTrue)

			So(svc.SubmitReach(ctx, sess.ID, voter.ID, service.ReachInput{CategoryID: "reach-critical"}), ShouldBeNil)
			out, err := svc.Reveal(ctx, sess.ID, fac.ID)
			So(err, ShouldBeNil)
			So(out.Dimension, ShouldEqual, model.DimensionReach)
			So(out.Voters, ShouldEqual, 2)
			So(out.Participants, ShouldEqual, 2)
			So(out.Score, ShouldAlmostEqual, 0.85)

			state, err := svc.GetSession(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(state.Session.IsRevealed(model.DimensionReach), ShouldBeTrue)
			So(state.Voters[model.DimensionReach], ShouldEqual, 2)
		})

		Convey("Force-advance reaches every subscriber", func() {
			sub, err := svc.Subscribe(ctx, sess.ID)
			So(err, ShouldBeNil)
			defer sub.Close()

			moved, err := svc.ForceAdvanceAll(ctx, sess.ID, fac.ID)
			So(err, ShouldBeNil)
			So(moved.ForceSeq, ShouldEqual, 1)

			var got model.Event
			timeout := time.After(2 * time.Second)
		wait:
			for got.Type != model.EventForcedAdvance {
				select {
				case got = <-sub.Events:
				case <-timeout:
					break wait
				}
			}
			So(got.Type, ShouldEqual, model.EventForcedAdvance)
			So(got.ForceSeq, ShouldEqual, 1)
			So(got.Stage, ShouldEqual, model.StageReach)
		})

		Convey("Subscribing to an unknown session is not found", func() {
			_, err := svc.Subscribe(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_VoteValidation(t *testing.T) {
	Convey("Given a session with one voter", t, func() {
		svc, ctx, cancel := startService()
		defer cancel()
		defer svc.Stop()

		sess, err := svc.CreateSession(ctx, service.CreateSessionInput{Name: "Search filters"})
		So(err, ShouldBeNil)
		p, err := svc.Join(ctx, sess.ID, service.JoinInput{Name: "Pat"})
		So(err, ShouldBeNil)

		Convey("Unknown participants and catalog ids are rejected", func() {
			err := svc.SubmitReach(ctx, sess.ID, "ghost", service.ReachInput{CategoryID: "reach-micro"})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitReach(ctx, sess.ID, p.ID, service.ReachInput{CategoryID: "reach-galaxy"})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitReach(ctx, sess.ID, p.ID, service.ReachInput{})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitEffort(ctx, sess.ID, p.ID, service.EffortInput{DevSizeID: "effort-m"})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitConfidence(ctx, sess.ID, p.ID, service.ConfidenceInput{SourceIDs: []string{"conf-hunch"}})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("Impact takes one to three distinct metrics", func() {
			err := svc.SubmitImpact(ctx, sess.ID, p.ID, service.ImpactInput{})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitImpact(ctx, sess.ID, p.ID, service.ImpactInput{Metrics: []model.MetricEstimate{
				{MetricID: "impact-cvr", ExpectedValue: 1},
				{MetricID: "impact-revenue", ExpectedValue: 1},
				{MetricID: "impact-add-to-cart", ExpectedValue: 1},
				{MetricID: "impact-scroll-depth", ExpectedValue: 1},
			}})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitImpact(ctx, sess.ID, p.ID, service.ImpactInput{Metrics: []model.MetricEstimate{
				{MetricID: "impact-cvr", ExpectedValue: 1},
				{MetricID: "impact-cvr", ExpectedValue: 2},
			}})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitImpact(ctx, sess.ID, p.ID, service.ImpactInput{Metrics: []model.MetricEstimate{
				{MetricID: "impact-cvr", ExpectedValue: 1},
				{MetricID: "impact-add-to-cart", ExpectedValue: 5},
			}})
			So(err, ShouldBeNil)
		})

		Convey("Behavior and its own sub-metrics exclude each other", func() {
			err := svc.SubmitImpact(ctx, sess.ID, p.ID, service.ImpactInput{Metrics: []model.MetricEstimate{
				{MetricID: "impact-behavior", ExpectedValue: 10},
				{MetricID: "impact-add-to-cart", ExpectedValue: 5},
			}})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitImpact(ctx, sess.ID, p.ID, service.ImpactInput{Metrics: []model.MetricEstimate{
				{MetricID: "impact-add-to-cart", ExpectedValue: 5},
				{MetricID: "impact-behavior", ExpectedValue: 10},
			}})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)

			err = svc.SubmitImpact(ctx, sess.ID, p.ID, service.ImpactInput{Metrics: []model.MetricEstimate{
				{MetricID: "impact-add-to-cart", ExpectedValue: 5},
				{MetricID: "impact-scroll-depth", ExpectedValue: 10},
			}})
			So(err, ShouldBeNil)
		})

		Convey("A later vote replaces the earlier one", func() {
			So(svc.SubmitReach(ctx, sess.ID, p.ID, service.ReachInput{CategoryID: "reach-micro"}), ShouldBeNil)
			So(svc.SubmitReach(ctx, sess.ID, p.ID, service.ReachInput{CategoryID: "reach-sitewide"}), ShouldBeNil)

			scores, err := svc.Scores(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(scores.Reach, ShouldEqual, 1.0)
			So(scores.Reports[model.DimensionReach].Voters, ShouldEqual, 1)
			So(scores.Partial, ShouldBeTrue)
		})

		Convey("An empty confidence set is a valid answer", func() {
			So(svc.SubmitConfidence(ctx, sess.ID, p.ID, service.ConfidenceInput{}), ShouldBeNil)
			state, err := svc.GetSession(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(state.Voters[model.DimensionConfidence], ShouldEqual, 1)
		})
	})
}

func TestService_Catalogs(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx, cancel := startService()
		defer cancel()
		defer svc.Stop()

		Convey("The default catalog is stored and patchable", func() {
			c, fallback, err := svc.GetCatalog(ctx, catalog.DefaultID)
			So(err, ShouldBeNil)
			So(fallback, ShouldBeFalse)
			So(c.Has(catalog.KindReach, "reach-micro"), ShouldBeTrue)

			updated, err := svc.ApplyCatalogPatch(ctx, catalog.DefaultID, catalog.Patch{
				Op: catalog.OpInsert, Kind: catalog.KindReach,
				Reach: &catalog.ReachCategory{Name: "Nano", MinReachPct: 0, MaxReachPct: 1, Points: 0.1},
			})
			So(err, ShouldBeNil)
			So(len(updated.ReachCategories), ShouldEqual, len(c.ReachCategories)+1)

			_, err = svc.ApplyCatalogPatch(ctx, catalog.DefaultID, catalog.Patch{
				Op: catalog.OpUpdate, Kind: catalog.KindReach, EntryID: "reach-micro", Field: "colour",
			})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("An unknown catalog falls back to the default", func() {
			c, fallback, err := svc.GetCatalog(ctx, "marketing-2024")
			So(err, ShouldBeNil)
			So(fallback, ShouldBeTrue)
			So(c.Validate(), ShouldBeNil)

			_, err = svc.ApplyCatalogPatch(ctx, "marketing-2024", catalog.Patch{Op: catalog.OpDelete, Kind: catalog.KindReach, EntryID: "x"})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Whole collections can be replaced", func() {
			updated, err := svc.ReplaceCatalogCollection(ctx, catalog.DefaultID, catalog.KindEffort, catalog.Collection{
				Effort: []catalog.EffortSize{{ID: "effort-one", Name: "One", DevEffort: 1, DesignEffort: 1}},
			})
			So(err, ShouldBeNil)
			So(len(updated.EffortSizes), ShouldEqual, 1)

			_, err = svc.ReplaceCatalogCollection(ctx, catalog.DefaultID, catalog.KindEffort, catalog.Collection{
				Effort: []catalog.EffortSize{{ID: "effort-zero", Name: "Zero"}},
			})
			So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
		})

		Convey("Saving a catalog needs an id and a valid body", func() {
			So(errors.Is(svc.SaveCatalog(ctx, &catalog.Catalog{}), service.ErrValidation), ShouldBeTrue)

			c := catalog.Default()
			c.ID = "team-b"
			So(svc.SaveCatalog(ctx, c), ShouldBeNil)
			got, fallback, err := svc.GetCatalog(ctx, "team-b")
			So(err, ShouldBeNil)
			So(fallback, ShouldBeFalse)
			So(got.ID, ShouldEqual, "team-b")
		})
	})
}

func TestService_DefaultCatalogAcrossRestarts(t *testing.T) {
	Convey("Given a sqlite file reused across restarts", t, func() {
		path := filepath.Join(t.TempDir(), "rice.sqlite")
		restart := func(opts ...service.Option) (*catalog.Catalog, *service.Service, context.Context, context.CancelFunc) {
			store, err := repository.OpenSQLite(context.Background(), path)
			So(err, ShouldBeNil)
			svc, ctx, cancel := startService(append([]service.Option{service.WithStore(store)}, opts...)...)
			c, fallback, err := svc.GetCatalog(ctx, catalog.DefaultID)
			So(err, ShouldBeNil)
			So(fallback, ShouldBeFalse)
			return c, svc, ctx, cancel
		}
		withReach := func(id string) *catalog.Catalog {
			c := catalog.Default()
			c.ReachCategories = []catalog.ReachCategory{{ID: id, Name: id, Points: 1}}
			return c
		}

		Convey("A supplied default catalog replaces the stored one on every start", func() {
			c, svc, _, cancel := restart(service.WithDefaultCatalog(withReach("reach-v1")))
			So(c.Has(catalog.KindReach, "reach-v1"), ShouldBeTrue)
			created := c.CreatedAt
			svc.Stop()
			cancel()

			c, svc, ctx, cancel := restart(service.WithDefaultCatalog(withReach("reach-v2")))
			So(c.Has(catalog.KindReach, "reach-v2"), ShouldBeTrue)
			So(c.Has(catalog.KindReach, "reach-v1"), ShouldBeFalse)
			So(c.CreatedAt.Equal(created), ShouldBeTrue)

			_, err := svc.ApplyCatalogPatch(ctx, catalog.DefaultID, catalog.Patch{
				Op: catalog.OpInsert, Kind: catalog.KindReach,
				Reach: &catalog.ReachCategory{ID: "reach-edit", Name: "Edit", Points: 0.5},
			})
			So(err, ShouldBeNil)
			svc.Stop()
			cancel()

			Convey("And without one the stored catalog and its edits are kept", func() {
				c, svc, _, cancel := restart()
				defer cancel()
				defer svc.Stop()
				So(c.Has(catalog.KindReach, "reach-v2"), ShouldBeTrue)
				So(c.Has(catalog.KindReach, "reach-edit"), ShouldBeTrue)
				So(c.Has(catalog.KindReach, "reach-micro"), ShouldBeFalse)
			})
		})
	})
}
