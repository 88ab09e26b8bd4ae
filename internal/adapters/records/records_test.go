package records_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rice/internal/adapters/records"
)

func TestHTTPClient(t *testing.T) {
	Convey("Given a records service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/records/rec123":
				_ = json.NewEncoder(w).Encode(records.Initiative{Name: "Sticky add-to-cart", MarketName: "FR"})
			case "/records/slow":
				time.Sleep(200 * time.Millisecond)
			case "/records/broken":
				http.Error(w, "boom", http.StatusBadGateway)
			default:
				http.NotFound(w, r)
			}
		}))
		Reset(srv.Close)

		c := records.NewHTTPClient(srv.URL+"/", 50*time.Millisecond, nil)
		ctx := context.Background()

		Convey("A known record decodes and keeps its id", func() {
			in, err := c.Lookup(ctx, "rec123")
			So(err, ShouldBeNil)
			So(in.ID, ShouldEqual, "rec123")
			So(in.Name, ShouldEqual, "Sticky add-to-cart")
			So(in.MarketName, ShouldEqual, "FR")
		})

		Convey("Unknown and empty ids are not found", func() {
			_, err := c.Lookup(ctx, "rec999")
			So(errors.Is(err, records.ErrNotFound), ShouldBeTrue)
			_, err = c.Lookup(ctx, " ")
			So(errors.Is(err, records.ErrNotFound), ShouldBeTrue)
		})

		Convey("Server errors and timeouts are unavailable", func() {
			_, err := c.Lookup(ctx, "broken")
			So(errors.Is(err, records.ErrUnavailable), ShouldBeTrue)
			_, err = c.Lookup(ctx, "slow")
			So(errors.Is(err, records.ErrUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given no base url", t, func() {
		l := records.New("", time.Second)
		_, err := l.Lookup(context.Background(), "rec123")
		So(errors.Is(err, records.ErrDisabled), ShouldBeTrue)
	})
}
