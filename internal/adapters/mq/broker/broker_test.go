package broker_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rice/internal/adapters/mq/broker"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/pkg/logger"
)

func drain(ch <-chan model.Event) []model.Event {
	var out []model.Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-time.After(20 * time.Millisecond):
			return out
		}
	}
}

func TestBroker(t *testing.T) {
	ctx := context.Background()

	Convey("Given a broker with small subscriber buffers", t, func() {
		So(logger.Init(), ShouldBeNil)
		b := broker.New(broker.WithSubscriberBuffer(2))
		Reset(func() { _ = b.Close() })

		sub, err := b.Subscribe("s1")
		So(err, ShouldBeNil)
		other, err := b.Subscribe("s2")
		So(err, ShouldBeNil)
		So(b.Subscribers("s1"), ShouldEqual, 1)

		Convey("Events only reach subscribers of their session", func() {
			So(b.Handle(ctx, model.Event{Type: model.EventVoteSubmitted, SessionID: "s1", Voters: 1}), ShouldBeNil)

			got := drain(sub.Events)
			So(len(got), ShouldEqual, 1)
			So(got[0].Voters, ShouldEqual, 1)
			So(drain(other.Events), ShouldBeEmpty)
		})

		Convey("A full buffer drops ordinary events without blocking", func() {
			for i := 1; i <= 5; i++ {
				So(b.Handle(ctx, model.Event{Type: model.EventVoteSubmitted, SessionID: "s1", Voters: i}), ShouldBeNil)
			}
			got := drain(sub.Events)
			So(len(got), ShouldEqual, 2)
			So(got[0].Voters, ShouldEqual, 1)
			So(got[1].Voters, ShouldEqual, 2)
		})

		Convey("A forced advance evicts the oldest buffered event", func() {
			for i := 1; i <= 2; i++ {
				So(b.Handle(ctx, model.Event{Type: model.EventVoteSubmitted, SessionID: "s1", Voters: i}), ShouldBeNil)
			}
			So(b.Handle(ctx, model.Event{Type: model.EventForcedAdvance, SessionID: "s1", ForceSeq: 3}), ShouldBeNil)

			got := drain(sub.Events)
			So(len(got), ShouldEqual, 2)
			So(got[1].Type, ShouldEqual, model.EventForcedAdvance)
			So(got[1].ForceSeq, ShouldEqual, 3)
		})

		Convey("Closing a subscription closes its channel once", func() {
			sub.Close()
			sub.Close()
			_, open := <-sub.Events
			So(open, ShouldBeFalse)
			So(b.Subscribers("s1"), ShouldEqual, 0)
			So(b.Handle(ctx, model.Event{Type: model.EventVoteSubmitted, SessionID: "s1"}), ShouldBeNil)
		})

		Convey("Deleting the session ends its subscriptions", func() {
			So(b.Handle(ctx, model.Event{Type: model.EventSessionDeleted, SessionID: "s1"}), ShouldBeNil)
			got := drain(sub.Events)
			So(len(got), ShouldEqual, 1)
			So(got[0].Type, ShouldEqual, model.EventSessionDeleted)
			So(b.Subscribers("s1"), ShouldEqual, 0)
			So(b.Subscribers("s2"), ShouldEqual, 1)
		})

		Convey("Closing the broker ends everything and rejects new subscribers", func() {
			So(b.Close(), ShouldBeNil)
			_, open := <-other.Events
			So(open, ShouldBeFalse)
			_, err := b.Subscribe("s3")
			So(err, ShouldEqual, broker.ErrClosed)
		})
	})
}
