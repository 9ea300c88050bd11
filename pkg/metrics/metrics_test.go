package metrics

import (
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
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered on it", func() {
				So(manager, ShouldNotBeNil)
				manager.sessionsStarted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording interview metrics", func() {
			before := testutil.ToFloat64(globalManager.turnsRecorded)
			RecordTurn(8)
			RecordTurn(3)

			Convey("Then the turn counter moves", func() {
				So(testutil.ToFloat64(globalManager.turnsRecorded), ShouldEqual, before+2)
			})
		})

		Convey("When recording labelled metrics", func() {
			RecordAction("ADVANCE", "strong")
			RecordSessionFinished("COMPLETED")
			RecordQuestionFallback("unfiltered")

			Convey("Then label values are tracked", func() {
				So(testutil.ToFloat64(globalManager.actions.WithLabelValues("ADVANCE", "strong")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.sessionsFinished.WithLabelValues("COMPLETED")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordSessionStarted()
				UpdateLiveSessions(3)
				RecordForcedAdvance()
				RecordDuplicateAnswer()
				RecordLLMLatency("evaluate", 120)
				RecordLLMError("respond")
				RecordLLMDegraded("respond")
				RecordLLMRetry()
				RecordLedgerError("record_turn")
				RecordHTTPRequest("sessions", "POST", "201")
				RecordHTTPRequestDuration("sessions", "POST", "201", 12)
				UpdateQueueSize(4)
				UpdateQueueCapacity(100)
				RecordQueueDropped()
				RecordDispatchLatency(2)
				RecordDispatchError("amqp")
				UpdateWorkerCount(2)
			}, ShouldNotPanic)

			Convey("Then the live gauge holds the last value", func() {
				So(testutil.ToFloat64(globalManager.liveSessions), ShouldEqual, 3)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it includes runtime collectors", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "go_goroutines")
			})
		})
	})
}
