package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/okian/vesselsnap/internal/adapters/http/api"
	service "github.com/okian/vesselsnap/internal/app"
	"github.com/okian/vesselsnap/internal/domain/model"
)

var defaultBox = model.BoundingBox{MinLat: 51.901, MaxLat: 51.912, MinLon: 4.44, MaxLon: 4.48}

type snapshotCall struct {
	box    model.BoundingBox
	window time.Duration
}

// mockDependencies echoes the requested box and window back in the snapshot.
type mockDependencies struct {
	calls     []snapshotCall
	positions []model.Position
	partial   bool
	err       error
}

func (m *mockDependencies) Snapshot(_ context.Context, box model.BoundingBox, window time.Duration) (service.Snapshot, error) {
	m.calls = append(m.calls, snapshotCall{box: box, window: window})
	if m.err != nil {
		return service.Snapshot{Box: box}, m.err
	}
	if window == 0 {
		window = 6 * time.Second
	}
	return service.Snapshot{
		Box:       box,
		Window:    window,
		Positions: m.positions,
		Partial:   m.partial,
	}, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type snapshotBody struct {
	OK       bool    `json:"ok" msgpack:"ok"`
	Count    int     `json:"count" msgpack:"count"`
	MinLat   float64 `json:"minLat" msgpack:"minLat"`
	MaxLat   float64 `json:"maxLat" msgpack:"maxLat"`
	MinLon   float64 `json:"minLon" msgpack:"minLon"`
	MaxLon   float64 `json:"maxLon" msgpack:"maxLon"`
	WindowMs int64   `json:"windowMs" msgpack:"windowMs"`
	Partial  bool    `json:"partial" msgpack:"partial"`
	Data     []struct {
		MMSI string   `json:"mmsi" msgpack:"mmsi"`
		Name string   `json:"name" msgpack:"name"`
		Lat  float64  `json:"lat" msgpack:"lat"`
		Lon  float64  `json:"lon" msgpack:"lon"`
		SOG  *float64 `json:"sog" msgpack:"sog"`
		COG  *float64 `json:"cog" msgpack:"cog"`
		Type string   `json:"type" msgpack:"type"`
		TS   int64    `json:"ts" msgpack:"ts"`
	} `json:"data" msgpack:"data"`
}

type errorBody struct {
	OK    bool   `json:"ok" msgpack:"ok"`
	Code  string `json:"code" msgpack:"code"`
	Error string `json:"error" msgpack:"error"`
}

func newMux(deps api.Dependencies) *http.ServeMux {
	stats := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
	server := api.NewServer(deps, stats, defaultBox)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func samplePositions() []model.Position {
	return []model.Position{
		{
			Identity:   model.MMSIIdentity("244660000"),
			Name:       "MAASSLUIS",
			Latitude:   51.905,
			Longitude:  4.46,
			SOG:        model.Float(3.4),
			VesselType: "cargo",
			ObservedAt: 1700000000300,
		},
		{
			Identity:   model.NameIdentity("PILOT 7"),
			Name:       "PILOT 7",
			Latitude:   51.908,
			Longitude:  4.47,
			ObservedAt: 1700000000100,
		},
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Health answers ok with CORS headers", func() {
			w := serve(mux, http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")

			var body map[string]bool
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["ok"], ShouldBeTrue)
		})

		Convey("Stats serves the provider's map", func() {
			w := serve(mux, http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Stats rejects other methods", func() {
			w := serve(mux, http.MethodPost, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Metrics is exposed", func() {
			w := serve(mux, http.MethodGet, "/metrics", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Unknown routes are not found", func() {
			w := serve(mux, http.MethodGet, "/unknown", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSnapshotHandler(t *testing.T) {
	Convey("Given a snapshot endpoint", t, func() {
		deps := &mockDependencies{positions: samplePositions()}
		mux := newMux(deps)

		Convey("A request without query uses the default box and window", func() {
			w := serve(mux, http.MethodGet, "/snapshot", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.calls, ShouldHaveLength, 1)
			So(deps.calls[0].box, ShouldResemble, defaultBox)
			So(deps.calls[0].window, ShouldEqual, time.Duration(0))

			var body snapshotBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.OK, ShouldBeTrue)
			So(body.Count, ShouldEqual, 2)
			So(body.MinLat, ShouldEqual, defaultBox.MinLat)
			So(body.MaxLon, ShouldEqual, defaultBox.MaxLon)
			So(body.WindowMs, ShouldEqual, int64(6000))
			So(body.Partial, ShouldBeFalse)
		})

		Convey("Records use the wire field names", func() {
			w := serve(mux, http.MethodGet, "/snapshot", nil)
			So(w.Body.String(), ShouldContainSubstring, `"mmsi":"244660000"`)
			So(w.Body.String(), ShouldContainSubstring, `"mmsi":"NONMMSI:PILOT 7"`)
			So(w.Body.String(), ShouldContainSubstring, `"cog":null`)

			var body snapshotBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			first := body.Data[0]
			So(first.Name, ShouldEqual, "MAASSLUIS")
			So(first.Lat, ShouldEqual, 51.905)
			So(first.Lon, ShouldEqual, 4.46)
			So(*first.SOG, ShouldEqual, 3.4)
			So(first.COG, ShouldBeNil)
			So(first.Type, ShouldEqual, "cargo")
			So(first.TS, ShouldEqual, int64(1700000000300))
		})

		Convey("Query parameters override the defaults", func() {
			w := serve(mux, http.MethodGet, "/snapshot?minLat=51.90&maxLat=51.91&minLon=4.44&maxLon=4.48&windowMs=2000", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.calls[0].box, ShouldResemble, model.BoundingBox{MinLat: 51.90, MaxLat: 51.91, MinLon: 4.44, MaxLon: 4.48})
			So(deps.calls[0].window, ShouldEqual, 2*time.Second)
		})

		Convey("A partial query keeps the remaining defaults", func() {
			serve(mux, http.MethodGet, "/snapshot?maxLat=52", nil)
			So(deps.calls[0].box.MaxLat, ShouldEqual, 52.0)
			So(deps.calls[0].box.MinLat, ShouldEqual, defaultBox.MinLat)
		})

		Convey("The legacy path is an alias", func() {
			w := serve(mux, http.MethodGet, "/ais-snapshot", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.calls, ShouldHaveLength, 1)
		})

		Convey("Partial snapshots are flagged", func() {
			deps.partial = true
			w := serve(mux, http.MethodGet, "/snapshot", nil)
			var body snapshotBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.OK, ShouldBeTrue)
			So(body.Partial, ShouldBeTrue)
		})

		Convey("An empty snapshot returns an empty data array", func() {
			deps.positions = nil
			w := serve(mux, http.MethodGet, "/snapshot", nil)
			So(w.Body.String(), ShouldContainSubstring, `"data":[]`)
			So(w.Body.String(), ShouldContainSubstring, `"count":0`)
		})

		Convey("Msgpack is served on request", func() {
			w := serve(mux, http.MethodGet, "/snapshot", map[string]string{"Accept": "application/msgpack"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/msgpack")

			var body snapshotBody
			So(msgpack.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.OK, ShouldBeTrue)
			So(body.Count, ShouldEqual, 2)
			So(body.Data[1].MMSI, ShouldEqual, "NONMMSI:PILOT 7")
		})

		Convey("Preflight requests get 204 with CORS headers", func() {
			w := serve(mux, http.MethodOptions, "/snapshot", nil)
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			So(w.Header().Get("Access-Control-Allow-Methods"), ShouldEqual, "GET,OPTIONS")
			So(w.Header().Get("Access-Control-Allow-Headers"), ShouldEqual, "Content-Type")
			So(deps.calls, ShouldBeEmpty)
		})

		Convey("Other methods are refused", func() {
			w := serve(mux, http.MethodPost, "/snapshot", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(deps.calls, ShouldBeEmpty)
		})

		Convey("Bad query values are rejected before collecting", func() {
			for _, q := range []string{"minLat=north", "maxLon=NaN", "minLon=Inf", "windowMs=abc", "windowMs=-5", "windowMs=1.5"} {
				w := serve(mux, http.MethodGet, "/snapshot?"+q, nil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var body errorBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.OK, ShouldBeFalse)
				So(body.Code, ShouldEqual, "bad_request")
			}
			So(deps.calls, ShouldBeEmpty)
		})
	})
}

func TestSnapshotHandler_Errors(t *testing.T) {
	Convey("Given service failures", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{service.ErrCredentialsMissing, http.StatusInternalServerError, "credentials_missing"},
			{fmt.Errorf("%w: dial refused", service.ErrUpstreamUnreachable), http.StatusBadGateway, "upstream_unreachable"},
			{service.ErrBusy, http.StatusServiceUnavailable, "busy"},
			{service.ErrNotStarted, http.StatusServiceUnavailable, "not_started"},
			{context.Canceled, http.StatusServiceUnavailable, "canceled"},
			{fmt.Errorf("boom"), http.StatusBadGateway, "proxy_error"},
		}

		for _, tc := range cases {
			w := serve(newMux(&mockDependencies{err: tc.err}), http.MethodGet, "/snapshot", nil)
			So(w.Code, ShouldEqual, tc.status)

			var body errorBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.OK, ShouldBeFalse)
			So(body.Code, ShouldEqual, tc.code)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		}

		Convey("An upstream error passes the feed's message through", func() {
			err := &service.UpstreamError{Message: "Api Key Is Not Valid"}
			w := serve(newMux(&mockDependencies{err: err}), http.MethodGet, "/snapshot", nil)
			So(w.Code, ShouldEqual, http.StatusBadGateway)

			var body errorBody
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Code, ShouldEqual, "upstream_error")
			So(body.Error, ShouldEqual, "Api Key Is Not Valid")
		})
	})
}
