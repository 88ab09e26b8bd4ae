package session_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/internal/domain/session"
)

func TestNextPrev(t *testing.T) {
	Convey("Given the stage flow", t, func() {
		Convey("Then Next walks every stage in order", func() {
			s := model.StageParticipants
			visited := []model.Stage{s}
			for {
				next, err := session.Next(s)
				if err != nil {
					So(errors.Is(err, session.ErrNoNextStage), ShouldBeTrue)
					break
				}
				visited = append(visited, next)
				s = next
			}
			So(visited, ShouldResemble, model.Stages)
		})

		Convey("Then Prev never skips", func() {
			prev, err := session.Prev(model.StageConfidence)
			So(err, ShouldBeNil)
			So(prev, ShouldEqual, model.StageImpact)

			_, err = session.Prev(model.StageParticipants)
			So(errors.Is(err, session.ErrNoPrevStage), ShouldBeTrue)
		})

		Convey("Then unknown stages are rejected", func() {
			_, err := session.Next("lobby")
			So(errors.Is(err, session.ErrUnknownStage), ShouldBeTrue)
		})
	})
}

func TestCanReveal(t *testing.T) {
	Convey("Given every voter/participant combination up to 12", t, func() {
		for participants := 0; participants <= 12; participants++ {
			for voters := 0; voters <= participants; voters++ {
				want := participants > 0 && voters == participants
				So(session.CanReveal(voters, participants), ShouldEqual, want)
			}
		}
	})
}

func TestLifecycle(t *testing.T) {
	Convey("Given a new session", t, func() {
		now := time.Now()
		s := session.New("s1", "Sticky CTA", "default", "rec-1", false, now)

		So(s.Status, ShouldEqual, model.StatusDraft)
		So(s.Stage, ShouldEqual, model.StageParticipants)

		Convey("When somebody joins", func() {
			So(session.Joined(s, now), ShouldBeTrue)
			So(s.Status, ShouldEqual, model.StatusActive)
			So(session.Joined(s, now), ShouldBeFalse)

			Convey("And the facilitator forces the next stage", func() {
				So(session.Advance(s, true, now), ShouldBeNil)

				Convey("Then voting has started and clients see a new sequence", func() {
					So(s.Stage, ShouldEqual, model.StageReach)
					So(s.Status, ShouldEqual, model.StatusVotingStarted)
					So(s.ForceSeq, ShouldEqual, 1)
				})

				Convey("Then a plain advance keeps the sequence", func() {
					So(session.Advance(s, false, now), ShouldBeNil)
					So(s.Stage, ShouldEqual, model.StageImpact)
					So(s.ForceSeq, ShouldEqual, 1)
				})

				Convey("Then retreat goes back one stage", func() {
					So(session.Retreat(s, now), ShouldBeNil)
					So(s.Stage, ShouldEqual, model.StageParticipants)
				})
			})
		})
	})
}

func TestReveal(t *testing.T) {
	Convey("Given a session on the reach stage", t, func() {
		now := time.Now()
		s := session.New("s1", "", "default", "", false, now)
		So(session.Advance(s, false, now), ShouldBeNil)

		Convey("When not everybody voted", func() {
			d, ok, err := session.Reveal(s, 2, 3, now)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			So(d, ShouldEqual, model.DimensionReach)
			So(s.IsRevealed(model.DimensionReach), ShouldBeFalse)
		})

		Convey("When everybody voted", func() {
			_, ok, err := session.Reveal(s, 3, 3, now)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(s.IsRevealed(model.DimensionReach), ShouldBeTrue)

			_, _, err = session.Reveal(s, 3, 3, now)
			So(err, ShouldBeNil)
			So(len(s.Revealed), ShouldEqual, 1)
		})

		Convey("When the stage has no dimension", func() {
			So(session.Retreat(s, now), ShouldBeNil)
			_, _, err := session.Reveal(s, 1, 1, now)
			So(errors.Is(err, session.ErrNotVotingStage), ShouldBeTrue)
		})
	})

	Convey("Given a completed session", t, func() {
		now := time.Now()
		s := session.New("s1", "", "default", "", false, now)
		session.Complete(s, now)

		So(s.Stage, ShouldEqual, model.StageResults)
		So(errors.Is(session.Advance(s, true, now), session.ErrCompleted), ShouldBeTrue)
		So(errors.Is(session.Retreat(s, now), session.ErrCompleted), ShouldBeTrue)
	})
}
