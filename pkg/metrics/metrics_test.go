package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating a manager with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test_ns"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
			)

			Convey("Then the options should be applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test_ns")
				So(manager.latencyBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
				So(manager.constLabels["env"], ShouldEqual, "test")
			})

			Convey("And metrics should carry the namespace and labels", func() {
				manager.groupsCreated.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() != "test_ns_groups_created_total" {
						continue
					}
					found = true
					So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When passing empty or nil values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace(""),
				WithLatencyBuckets(nil),
				WithRefreshInterval(0),
				WithConstLabels(nil),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "correlate")
				So(manager.latencyBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(manager.constLabels, ShouldBeEmpty)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording correlation results", func() {
			before := testutil.ToFloat64(globalManager.groupsCreated)
			beforeRuns := testutil.ToFloat64(globalManager.runs.WithLabelValues("ok"))

			RecordRun("ok")
			RecordGroup(3)
			RecordGroup(1)
			RecordEventsIngested(4)
			RecordComparisons(5)
			UpdateLastRun(2, time.Unix(1700000000, 0))

			Convey("Then counters and gauges should reflect them", func() {
				So(testutil.ToFloat64(globalManager.groupsCreated), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.runs.WithLabelValues("ok")), ShouldEqual, beforeRuns+1)
				So(testutil.ToFloat64(globalManager.lastRunGroups), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.lastRunUnix), ShouldEqual, 1700000000)
			})
		})

		Convey("When recording is disabled", func() {
			SetEnabled(false)
			defer SetEnabled(true)

			before := testutil.ToFloat64(globalManager.eventsDuplicate)
			RecordEventDuplicate()

			Convey("Then observations should be dropped", func() {
				So(testutil.ToFloat64(globalManager.eventsDuplicate), ShouldEqual, before)
			})
		})

		Convey("When recording queue and worker state", func() {
			UpdateQueueCapacity(10)
			UpdateQueueSize(4)
			UpdateQueueUtilization(0.4)
			UpdateWorkerCount(3)

			Convey("Then gauges should be set", func() {
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.4)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 3)
			})
		})

		Convey("When gathering the custom registry", func() {
			RecordSourceFetch("file", 1.5, 3)
			families, err := GetRegistry().Gather()

			Convey("Then it should expose correlation metrics", func() {
				So(err, ShouldBeNil)
				names := make(map[string]bool)
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["correlate_groups_created_total"], ShouldBeTrue)
				So(names["correlate_source_events_total"], ShouldBeTrue)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a configured global manager", t, func() {
		Configure(
			WithNamespace("alerts"),
			WithConstLabels(map[string]string{"region": "eu"}),
			WithRefreshInterval(time.Minute),
		)
		defer Configure()

		Convey("When recording a run", func() {
			RecordRun("ok")
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			Convey("Then the served registry uses the configured namespace", func() {
				names := make(map[string]bool)
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["alerts_runs_total"], ShouldBeTrue)
				So(names["correlate_runs_total"], ShouldBeFalse)
				So(RefreshInterval(), ShouldEqual, time.Minute)
			})
		})
	})
}
