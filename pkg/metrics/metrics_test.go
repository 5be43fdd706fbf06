package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 1, 10}),
			)

			Convey("Then every collector is registered on it", func() {
				So(manager, ShouldNotBeNil)
				manager.commands.WithLabelValues("join", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_commands_total")
			})
		})

		Convey("When options receive empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "grouprank")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording command outcomes", func() {
			before := testutil.ToFloat64(globalManager.commands.WithLabelValues("rate", "ok"))
			RecordCommand("rate", "ok")
			RecordCommand("rate", "ok")

			Convey("Then the labelled counter increases", func() {
				after := testutil.ToFloat64(globalManager.commands.WithLabelValues("rate", "ok"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording a rating reset", func() {
			before := testutil.ToFloat64(globalManager.ratingsCleared)
			RecordRatingReset(7)

			Convey("Then the cleared counter grows by the dropped ratings", func() {
				So(testutil.ToFloat64(globalManager.ratingsCleared)-before, ShouldEqual, 7)
			})
		})

		Convey("When updating gauges", func() {
			UpdateLiveFeedSize(15)
			UpdateGroupsTotal(5)
			UpdateMembersTotal(12)

			Convey("Then the gauges hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.liveFeedSize), ShouldEqual, 15)
				So(testutil.ToFloat64(globalManager.groupsTotal), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.membersTotal), ShouldEqual, 12)
			})
		})

		Convey("When recording histograms and the remaining counters", func() {
			So(func() {
				RecordRatingSubmitted()
				RecordRatingRemoved()
				RecordRecomputeLatency(0.4)
				RecordStatsCacheHit()
				RecordStatsCacheMiss()
				RecordLiveEventPublished()
				RecordStoreLatency("put_rating", 1.2)
				RecordHTTPRequest("groups", "GET", "200")
				RecordHTTPRequestDuration("groups", "GET", "200", 3)
				RecordErrorByEndpoint("rate", "POST", "client_error")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.liveEventsEmitted)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordLiveEventPublished()
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(testutil.ToFloat64(globalManager.liveEventsEmitted)-before, ShouldEqual, 1000)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		RecordCommand("join", "ok")
		families, err := GetRegistry().Gather()

		Convey("Then it exposes the engine metrics", func() {
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
