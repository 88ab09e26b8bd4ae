package types_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rice/internal/domain/model"
	types "github.com/okian/rice/internal/domain/types"
)

func TestEntry(t *testing.T) {
	Convey("Given an Entry struct", t, func() {
		Convey("When creating a new entry", func() {
			entry := types.Entry{Rank: 1, SessionID: "session-123", RiceScore: 14.44, Priority: model.PriorityHigh}

			Convey("Then it should have the correct values", func() {
				So(entry.Rank, ShouldEqual, 1)
				So(entry.SessionID, ShouldEqual, "session-123")
				So(entry.RiceScore, ShouldEqual, 14.44)
				So(entry.Priority, ShouldEqual, model.PriorityHigh)
			})
		})

		Convey("When creating an entry with zero values", func() {
			entry := types.Entry{}

			Convey("Then it should have default values", func() {
				So(entry.Rank, ShouldEqual, 0)
				So(entry.SessionID, ShouldEqual, "")
				So(entry.RiceScore, ShouldEqual, 0.0)
				So(entry.Priority, ShouldEqual, model.Priority(""))
			})
		})
	})
}
