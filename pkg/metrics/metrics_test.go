package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.RecordSnapshot(OutcomeOK, 10, 1)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "vesselsnap_snapshot_"), ShouldBeTrue)
				}
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithSizeBuckets([]float64{1, 10}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordMessage("position")

			Convey("Then names and constant labels should follow them", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() != "test_sub_pre_messages_total" {
						continue
					}
					found = true
					labels := f.GetMetric()[0].GetLabel()
					var env string
					for _, l := range labels {
						if l.GetName() == "env" {
							env = l.GetValue()
						}
					}
					So(env, ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When snapshots finish", func() {
			m.RecordSnapshot(OutcomeOK, 6000, 12)
			m.RecordSnapshot(OutcomePartial, 3000, 2)
			m.RecordSnapshot(OutcomeUnreachable, 40, 0)
			m.RecordSnapshotRejected()

			Convey("Then each outcome should be counted", func() {
				So(testutil.ToFloat64(m.snapshots.WithLabelValues(OutcomeOK)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.snapshots.WithLabelValues(OutcomePartial)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.snapshots.WithLabelValues(OutcomeUnreachable)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.snapshots.WithLabelValues(OutcomeRejected)), ShouldEqual, 1)
			})

			Convey("Then vessel counts should only be observed for delivered snapshots", func() {
				So(testutil.CollectAndCount(m.snapshotVessels), ShouldEqual, 1)
			})
		})

		Convey("When the in-flight gauge moves", func() {
			m.AddSnapshotsInFlight(1)
			m.AddSnapshotsInFlight(1)
			m.AddSnapshotsInFlight(-1)
			So(testutil.ToFloat64(m.snapshotsInFlight), ShouldEqual, 1)
		})

		Convey("When feed activity is recorded", func() {
			m.RecordFrame("queued")
			m.RecordFrame("dropped")
			m.RecordPosition("added")
			m.RecordPosition("added")
			m.RecordStateTransition("collecting")
			m.UpdateQueue(3, 10)

			So(testutil.ToFloat64(m.framesReceived.WithLabelValues("dropped")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.positions.WithLabelValues("added")), ShouldEqual, 2)
			So(testutil.ToFloat64(m.stateTransitions.WithLabelValues("collecting")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.queueSize), ShouldEqual, 3)
			So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 10)
		})

		Convey("When HTTP, error and system metrics are recorded", func() {
			m.RecordHTTPRequest("/snapshot", "GET", "200", 12)
			m.RecordErrorByComponent("stream", "read")
			m.UpdateSystem(1024, 7)

			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/snapshot", "GET", "200")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.errorRateByComponent.WithLabelValues("stream", "read")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.systemGoroutineCount), ShouldEqual, 7)
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry), WithMetricsEnabled(false))

		Convey("When recording", func() {
			m.RecordSnapshot(OutcomeOK, 1, 1)
			m.RecordFrame("queued")

			Convey("Then nothing should change", func() {
				So(testutil.ToFloat64(m.snapshots.WithLabelValues(OutcomeOK)), ShouldEqual, 0)
				So(testutil.ToFloat64(m.framesReceived.WithLabelValues("queued")), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When calling the package helpers", func() {
			So(func() {
				RecordSnapshot(OutcomeOK, 1, 1)
				RecordSnapshotRejected()
				AddSnapshotsInFlight(1)
				AddSnapshotsInFlight(-1)
				RecordConnectLatency(3)
				RecordStateTransition("done")
				RecordFrame("queued")
				RecordMessage("position")
				RecordPosition("added")
				UpdateQueue(0, 1)
				RecordHTTPRequest("/healthz", "GET", "200", 1)
				RecordErrorByComponent("api", "encode")
				UpdateSystem(1, 1)
			}, ShouldNotPanic)

			Convey("Then the custom registry should expose them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
