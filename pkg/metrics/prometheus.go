// Package metrics provides Prometheus metrics for the codevoice interview service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Turn scores are integers in [0,10].
var scoreBuckets = []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10} //nolint:gochecknoglobals // fixed bucket layout

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer
	goCollectors     bool

	// Interview lifecycle
	sessionsStarted   prometheus.Counter
	sessionsFinished  *prometheus.CounterVec
	liveSessions      prometheus.Gauge
	turnsRecorded     prometheus.Counter
	turnScore         prometheus.Histogram
	actions           *prometheus.CounterVec
	forcedAdvances    prometheus.Counter
	duplicateAnswers  prometheus.Counter
	questionFallbacks *prometheus.CounterVec

	// Language model
	llmLatency   *prometheus.HistogramVec
	llmErrors    *prometheus.CounterVec
	llmDegraded  *prometheus.CounterVec
	llmRetries   prometheus.Counter
	ledgerErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Event dispatch
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueDropped    prometheus.Counter
	dispatchLatency prometheus.Histogram
	dispatchErrors  *prometheus.CounterVec
	workerCount     prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide collectors

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served by /metrics

func init() { //nolint:gochecknoinits // collectors must exist before first use
	globalManager = NewManager(WithPrometheusRegistry(customRegistry), WithGoCollectors(true))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "codevoice",
		subsystem:        "interview",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	if m.goCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_started_total",
		Help: "Interview sessions created",
	})
	m.sessionsFinished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_finished_total",
		Help: "Interview sessions that reached a terminal status",
	}, []string{"status"})
	m.liveSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "live_sessions",
		Help: "Orchestrators currently held by the registry",
	})
	m.turnsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "turns_recorded_total",
		Help: "Turns persisted by the ledger",
	})
	m.turnScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "turn_score",
		Help:    "Distribution of per-turn scores",
		Buckets: scoreBuckets,
	})
	m.actions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "actions_total",
		Help: "Response policy decisions by action and score band",
	}, []string{"action", "band"})
	m.forcedAdvances = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "forced_advances_total",
		Help: "Follow-ups converted to advances after the follow-up cap",
	})
	m.duplicateAnswers = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "duplicate_answers_total",
		Help: "Transcript deliveries ignored because the utterance id was already processed",
	})
	m.questionFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "question_fallbacks_total",
		Help: "Question selections served from a wider pool than requested",
	}, []string{"pool"})

	m.llmLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "llm",
		Name:    "request_duration_milliseconds",
		Help:    "Language model call latency by purpose",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"purpose"})
	m.llmErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "llm",
		Name: "errors_total",
		Help: "Language model call failures by purpose",
	}, []string{"purpose"})
	m.llmDegraded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "llm",
		Name: "degraded_total",
		Help: "Results replaced with a fixed fallback because the model was unavailable",
	}, []string{"purpose"})
	m.llmRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "llm",
		Name: "retries_total",
		Help: "Retried language model calls",
	})
	m.ledgerErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ledger",
		Name: "errors_total",
		Help: "Ledger operation failures by operation",
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name:    "request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "events",
		Name: "queue_size",
		Help: "Events waiting for dispatch",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "events",
		Name: "queue_capacity",
		Help: "Configured event queue capacity",
	})
	m.queueDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "events",
		Name: "dropped_total",
		Help: "Events dropped because the queue was full or closed",
	})
	m.dispatchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "events",
		Name:    "dispatch_duration_milliseconds",
		Help:    "Time spent delivering one event to every sink",
		Buckets: m.histogramBuckets,
	})
	m.dispatchErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "events",
		Name: "dispatch_errors_total",
		Help: "Sink delivery failures by sink",
	}, []string{"sink"})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "events",
		Name: "workers",
		Help: "Dispatcher workers running",
	})
}

// Interview lifecycle.

// RecordSessionStarted counts a created session.
func RecordSessionStarted() { globalManager.sessionsStarted.Inc() }

// RecordSessionFinished counts a session reaching status (COMPLETED or FAILED).
func RecordSessionFinished(status string) {
	globalManager.sessionsFinished.WithLabelValues(status).Inc()
}

// UpdateLiveSessions sets the number of live orchestrators.
func UpdateLiveSessions(n int) { globalManager.liveSessions.Set(float64(n)) }

// RecordTurn counts a persisted turn and observes its score.
func RecordTurn(score int) {
	globalManager.turnsRecorded.Inc()
	globalManager.turnScore.Observe(float64(score))
}

// RecordAction counts a policy decision.
func RecordAction(action, band string) {
	globalManager.actions.WithLabelValues(action, band).Inc()
}

// RecordForcedAdvance counts a follow-up overridden by the follow-up cap.
func RecordForcedAdvance() { globalManager.forcedAdvances.Inc() }

// RecordDuplicateAnswer counts an ignored redelivery.
func RecordDuplicateAnswer() { globalManager.duplicateAnswers.Inc() }

// RecordQuestionFallback counts a selection served from a wider pool.
func RecordQuestionFallback(pool string) {
	globalManager.questionFallbacks.WithLabelValues(pool).Inc()
}

// Language model.

// RecordLLMLatency observes one model call.
func RecordLLMLatency(purpose string, latencyMs float64) {
	globalManager.llmLatency.WithLabelValues(purpose).Observe(latencyMs)
}

// RecordLLMError counts a failed model call.
func RecordLLMError(purpose string) { globalManager.llmErrors.WithLabelValues(purpose).Inc() }

// RecordLLMDegraded counts a fallback result.
func RecordLLMDegraded(purpose string) { globalManager.llmDegraded.WithLabelValues(purpose).Inc() }

// RecordLLMRetry counts a retried model call.
func RecordLLMRetry() { globalManager.llmRetries.Inc() }

// RecordLedgerError counts a failed ledger operation.
func RecordLedgerError(op string) { globalManager.ledgerErrors.WithLabelValues(op).Inc() }

// HTTP.

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes HTTP latency.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Event dispatch.

// UpdateQueueSize sets the number of queued events.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueDropped counts a dropped event.
func RecordQueueDropped() { globalManager.queueDropped.Inc() }

// RecordDispatchLatency observes one dispatch.
func RecordDispatchLatency(latencyMs float64) { globalManager.dispatchLatency.Observe(latencyMs) }

// RecordDispatchError counts a failed sink delivery.
func RecordDispatchError(sink string) { globalManager.dispatchErrors.WithLabelValues(sink).Inc() }

// UpdateWorkerCount sets the number of running dispatcher workers.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// GetRegistry returns the registry backing the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
