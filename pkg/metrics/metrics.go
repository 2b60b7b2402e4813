// Package metrics provides Prometheus metrics for the tempo batch pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every Prometheus metric emitted by the pipeline.
type Manager struct {
	namespace string
	subsystem string
	registry  *prometheus.Registry

	// Per-game outcomes
	gamesSealed prometheus.Counter
	gamesFailed prometheus.Counter

	// Detection output
	possessionsDetected prometheus.Counter
	possessionsFlagged  prometheus.Counter
	eventsRejected      prometheus.Counter

	// Validation verdicts, labeled pass/warn/fail
	validationVerdicts *prometheus.CounterVec

	// Pipeline performance
	gameDuration      prometheus.Histogram
	detectionDuration prometheus.Histogram

	// Batch infrastructure
	queueDepth    prometheus.Gauge
	activeWorkers prometheus.Gauge
}

// Global manager on a private registry so the default Go collectors do not
// pollute the scrape output.
var (
	registry      = prometheus.NewRegistry()
	globalManager = NewManager(WithRegistry(registry))
)

// NewManager creates a metrics manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "tempo",
		subsystem: "pipeline",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.register()
	return m
}

func (m *Manager) register() {
	factory := promauto.With(m.registry)

	m.gamesSealed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_sealed_total",
		Help:      "Games that completed detection and validation.",
	})
	m.gamesFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_failed_total",
		Help:      "Games discarded by per-game transactional failure.",
	})
	m.possessionsDetected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "possessions_detected_total",
		Help:      "Sealed possessions emitted by the state machine.",
	})
	m.possessionsFlagged = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "possessions_flagged_total",
		Help:      "Possessions sealed with a warning status.",
	})
	m.eventsRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rejected_total",
		Help:      "Events routed to the rejected-events diagnostic list.",
	})
	m.validationVerdicts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_verdicts_total",
		Help:      "Formula-validation verdicts by outcome.",
	}, []string{"verdict"})
	m.gameDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "game_duration_seconds",
		Help:      "Wall time to process one game end to end.",
		Buckets:   prometheus.DefBuckets,
	})
	m.detectionDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detection_duration_seconds",
		Help:      "Wall time spent inside the possession state machine.",
		Buckets:   prometheus.DefBuckets,
	})
	m.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_depth",
		Help:      "Game jobs waiting in the batch queue.",
	})
	m.activeWorkers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_workers",
		Help:      "Workers currently processing a game.",
	})
}

// Handler exposes the manager's registry for scraping.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package-level helpers against the global manager.

func RecordGameSealed() { globalManager.gamesSealed.Inc() }
func RecordGameFailed() { globalManager.gamesFailed.Inc() }

// RecordPossessions counts sealed possessions, flagged tracking the subset
// sealed with warnings.
func RecordPossessions(total, flagged int) {
	globalManager.possessionsDetected.Add(float64(total))
	globalManager.possessionsFlagged.Add(float64(flagged))
}

func RecordRejectedEvents(n int) {
	globalManager.eventsRejected.Add(float64(n))
}

func RecordVerdict(verdict string) {
	globalManager.validationVerdicts.WithLabelValues(verdict).Inc()
}

func ObserveGameDuration(seconds float64)      { globalManager.gameDuration.Observe(seconds) }
func ObserveDetectionDuration(seconds float64) { globalManager.detectionDuration.Observe(seconds) }

func UpdateQueueDepth(n int) { globalManager.queueDepth.Set(float64(n)) }

// IncActiveWorkers and DecActiveWorkers bracket one worker's busy span.
func IncActiveWorkers() { globalManager.activeWorkers.Inc() }
func DecActiveWorkers() { globalManager.activeWorkers.Dec() }

// Handler exposes the global registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
