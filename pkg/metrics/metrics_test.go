package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the gridpick namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.scoresWritten.Add(2)
				So(testutil.ToFloat64(manager.scoresWritten), ShouldEqual, 2)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "gridpick_game_scores_written_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithMetricPrefix("px"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names, labels and interval follow the options", func() {
				manager.storeConflicts.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var labels map[string]string
				for _, f := range families {
					if f.GetName() == "test_sub_px_store_conflicts_total" {
						labels = map[string]string{}
						for _, l := range f.GetMetric()[0].GetLabel() {
							labels[l.GetName()] = l.GetValue()
						}
					}
				}
				So(labels, ShouldNotBeNil)
				So(labels["env"], ShouldEqual, "test")
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When game metrics are recorded", func() {
			before := testutil.ToFloat64(global().predictionsSubmitted.WithLabelValues("race"))
			RecordPredictionSubmitted("race")
			RecordPredictionSubmitted("race")

			Convey("Then the labelled counter moves", func() {
				So(testutil.ToFloat64(global().predictionsSubmitted.WithLabelValues("race"))-before, ShouldEqual, 2)
			})
		})

		Convey("When rejections are recorded by kind", func() {
			before := testutil.ToFloat64(global().rejections.WithLabelValues("session_locked"))
			RecordRejection("session_locked")

			Convey("Then only that kind increments", func() {
				So(testutil.ToFloat64(global().rejections.WithLabelValues("session_locked"))-before, ShouldEqual, 1)
			})
		})

		Convey("When entity counts are updated", func() {
			UpdateEntityCount("race", 24)
			UpdateEntityCount("race", 23)

			Convey("Then the gauge holds the last value", func() {
				So(testutil.ToFloat64(global().entityCount.WithLabelValues("race")), ShouldEqual, 23)
			})
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				RecordSessionSkipped("quali")
				RecordH2HPredictions(3)
				RecordResultPublished("race")
				RecordScoresWritten(10)
				RecordH2HScoresWritten(4)
				RecordPublishLatency(12.5)
				RecordLeaderboardRead("season")
				RecordSeasonRescored()
				RecordStoreLatency("view", 0.4)
				RecordStoreConflict()
				RecordHTTPRequest("/leaderboard", "GET", "200")
				RecordHTTPRequestDuration("/leaderboard", "GET", "200", 3.0)
				RecordErrorByEndpoint("/races/{raceID}/predictions", "POST", "session_locked")
				UpdateQueueSize(2)
				UpdateQueueCapacity(64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(8)
				RecordWorkerError()
			}, ShouldNotPanic)
		})
	})
}

func TestSystemCollector(t *testing.T) {
	Convey("Given the system collector", t, func() {
		Convey("When sampled once", func() {
			CollectSystemMetrics()

			Convey("Then the goroutine gauge is positive", func() {
				So(testutil.ToFloat64(global().systemGoroutineCount), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When run with a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			done := make(chan struct{})
			go func() {
				RunSystemCollector(ctx)
				close(done)
			}()

			Convey("Then it returns", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("collector did not stop")
				}
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the process-wide manager", t, func() {
		defer Configure()

		Convey("When it is configured with another namespace and subsystem", func() {
			m := Configure(WithNamespace("paddock"), WithSubsystem(""))
			RecordSeasonRescored()

			Convey("Then the served registry carries the new names only", func() {
				So(global(), ShouldEqual, m)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["paddock_seasons_rescored_total"], ShouldBeTrue)
				So(names["gridpick_game_seasons_rescored_total"], ShouldBeFalse)
			})
		})

		Convey("When recording is disabled", func() {
			m := Configure(WithMetricsEnabled(false))
			RecordScoresWritten(5)
			RecordHTTPRequest("/leaderboard", "GET", "200")
			UpdateQueueSize(9)

			Convey("Then recorders leave every collector untouched", func() {
				So(m.Enabled(), ShouldBeFalse)
				So(testutil.ToFloat64(m.scoresWritten), ShouldEqual, 0)
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/leaderboard", "GET", "200")), ShouldEqual, 0)
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 0)
			})
		})
	})
}

func TestOptionsCopyInputs(t *testing.T) {
	Convey("Given caller-owned labels and buckets", t, func() {
		labels := map[string]string{"env": "test"}
		buckets := []float64{10, 1, 10, 100}
		m := NewManager(
			WithPrometheusRegistry(prometheus.NewRegistry()),
			WithCustomLabels(labels),
			WithHistogramBuckets(buckets),
		)
		labels["env"] = "changed"

		Convey("Then the manager keeps its own sorted copies", func() {
			So(m.customLabels["env"], ShouldEqual, "test")
			So(m.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
			So(buckets, ShouldResemble, []float64{10, 1, 10, 100})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		So(GetRegistry(), ShouldNotBeNil)
		_, err := GetRegistry().Gather()
		So(err, ShouldBeNil)
	})
}
