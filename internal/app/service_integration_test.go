package service_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vesselsnap/internal/adapters/stream"
	service "github.com/okian/vesselsnap/internal/app"
	"github.com/okian/vesselsnap/internal/feedsim"
)

func mustFrame(shape feedsim.Shape, v feedsim.Vessel, tsMillis int64) []byte {
	b, err := feedsim.Frame(shape, v, time.UnixMilli(tsMillis))
	if err != nil {
		panic(err)
	}
	return b
}

func startFeed(opts ...feedsim.Option) (*feedsim.Server, *httptest.Server, string) {
	sim := feedsim.New(opts...)
	srv := httptest.NewServer(sim)
	return sim, srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newLiveService(url string) *service.Service {
	return service.New(
		service.WithDialer(stream.NewWebSocketDialer()),
		service.WithStreamURL(url),
		service.WithAPIKey("secret"),
		service.WithCloseTimeout(time.Second),
	)
}

func TestService_Integration(t *testing.T) {
	Convey("Given a live websocket feed", t, func() {
		ctx := context.Background()
		vessel := feedsim.Vessel{MMSI: 244000001, Name: "MAASSLUIS", Lat: 51.905, Lon: 4.46, SOG: 1}
		outside := feedsim.Vessel{MMSI: 244000002, Lat: 52.0, Lon: 4.46}

		Convey("When three reports for one vessel arrive out of order within a 2000ms window", func() {
			first, latest, middle := vessel, vessel, vessel
			first.SOG, latest.SOG, middle.SOG = 1, 3, 2
			sim, srv, url := startFeed(
				feedsim.WithAPIKey("secret"),
				feedsim.WithScript(
					mustFrame(feedsim.ShapePositionReport, first, 100),
					mustFrame(feedsim.ShapePositionReport, latest, 300),
					mustFrame(feedsim.ShapePositionReport, middle, 200),
					mustFrame(feedsim.ShapePositionReport, outside, 400),
				),
			)
			defer srv.Close()

			svc := newLiveService(url)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			snap, err := svc.Snapshot(ctx, rotterdam, 2000*time.Millisecond)

			Convey("Then the freshest report is the only record", func() {
				So(err, ShouldBeNil)
				So(snap.State, ShouldEqual, service.StateDone)
				So(snap.Partial, ShouldBeFalse)
				So(snap.Positions, ShouldHaveLength, 1)
				So(snap.Positions[0].Identity.Key(), ShouldEqual, "244000001")
				So(snap.Positions[0].ObservedAt, ShouldEqual, int64(300))
				So(*snap.Positions[0].SOG, ShouldEqual, 3.0)
				So(snap.Elapsed, ShouldBeGreaterThanOrEqualTo, 2000*time.Millisecond)
			})

			Convey("And the out-of-box report is counted but not kept", func() {
				So(snap.Stats.Frames, ShouldEqual, 4)
				So(snap.Stats.Positions, ShouldEqual, 4)
				So(snap.Stats.OutsideBox, ShouldEqual, 1)
				So(snap.Stats.Stale, ShouldEqual, 1)
			})

			Convey("And the feed saw one subscription for the box", func() {
				subs := sim.Subscriptions()
				So(subs, ShouldHaveLength, 1)
				So(subs[0].APIKey, ShouldEqual, "secret")
				So(subs[0].BoundingBoxes[0], ShouldResemble, [2][2]float64{{51.91, 4.44}, {51.90, 4.48}})
			})
		})

		Convey("When the feed closes the connection before the window ends", func() {
			_, srv, url := startFeed(
				feedsim.WithScript(mustFrame(feedsim.ShapeClassA, vessel, 100)),
				feedsim.WithCloseAfterScript(),
			)
			defer srv.Close()

			svc := newLiveService(url)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			snap, err := svc.Snapshot(ctx, rotterdam, 5*time.Second)

			Convey("Then the records so far are a complete snapshot", func() {
				So(err, ShouldBeNil)
				So(snap.State, ShouldEqual, service.StateDone)
				So(snap.Partial, ShouldBeFalse)
				So(snap.Positions, ShouldHaveLength, 1)
				So(snap.Elapsed, ShouldBeLessThan, 5*time.Second)
			})
		})

		Convey("When the feed rejects the API key", func() {
			_, srv, url := startFeed(feedsim.WithAPIKey("other"))
			defer srv.Close()

			svc := newLiveService(url)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			snap, err := svc.Snapshot(ctx, rotterdam, 2*time.Second)

			Convey("Then the upstream message is surfaced and nothing is returned", func() {
				So(errors.Is(err, service.ErrUpstream), ShouldBeTrue)
				var upErr *service.UpstreamError
				So(errors.As(err, &upErr), ShouldBeTrue)
				So(upErr.Message, ShouldEqual, "Api Key Is Not Valid")
				So(snap.State, ShouldEqual, service.StateErrored)
				So(snap.Positions, ShouldBeEmpty)
			})
		})

		Convey("When the simulated fleet streams for a short window", func() {
			_, srv, url := startFeed(
				feedsim.WithInterval(20*time.Millisecond),
				feedsim.WithFleetSize(10),
				feedsim.WithSeed(3),
			)
			defer srv.Close()

			svc := newLiveService(url)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			snap, err := svc.Snapshot(ctx, rotterdam, time.Second)

			Convey("Then every returned vessel lies inside the box", func() {
				So(err, ShouldBeNil)
				So(snap.Stats.Frames, ShouldBeGreaterThan, 0)
				for _, p := range snap.Positions {
					So(rotterdam.ContainsPosition(p), ShouldBeTrue)
				}
			})
		})

		Convey("When nothing listens at the feed address", func() {
			_, srv, url := startFeed()
			srv.Close()

			svc := newLiveService(url)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			_, err := svc.Snapshot(ctx, rotterdam, time.Second)

			Convey("Then the feed is reported unreachable", func() {
				So(errors.Is(err, service.ErrUpstreamUnreachable), ShouldBeTrue)
			})
		})
	})
}
