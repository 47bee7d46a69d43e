// Package metrics exposes pulsebar's Prometheus collectors and the optional
// HTTP listener that serves them.
package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"

	ClickDispatched = "dispatched"
	ClickMalformed  = "malformed"
	ClickLimited    = "limited"
	ClickUnknown    = "unknown"

	QueueEmitter   = "emitter"
	QueuePersister = "persister"
	QueueClicks    = "clicks"
)

// Package-level collectors, registered via Register.
var (
	regOK atomic.Bool

	probeLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulsebar",
			Subsystem: "probe",
			Name:      "launches_total",
			Help:      "Number of probes started.",
		}, []string{"module"},
	)
	probeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulsebar",
			Subsystem: "probe",
			Name:      "results_total",
			Help:      "Probe outcomes by module (ok, error, timeout).",
		}, []string{"module", "result"},
	)
	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pulsebar",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Wall time of completed probes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"module"},
	)
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pulsebar",
			Name:      "tick_duration_seconds",
			Help:      "Time spent evaluating one tick, excluding the sleep.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)
	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pulsebar",
			Subsystem: "probe",
			Name:      "inflight",
			Help:      "Probes currently registered as in flight.",
		},
	)
	clicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulsebar",
			Name:      "clicks_total",
			Help:      "Click events by outcome.",
		}, []string{"result"},
	)
	queueDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulsebar",
			Name:      "queue_dropped_total",
			Help:      "Items evicted from full bounded queues.",
		}, []string{"queue"},
	)
	persistWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pulsebar",
			Subsystem: "persist",
			Name:      "writes_total",
			Help:      "State snapshot writes by outcome.",
		}, []string{"result"},
	)
)

// Register registers all collectors with r. Collectors r already holds are
// skipped, so repeated calls are safe. Each registerer gets its own pass.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{probeLaunches, probeResults, probeDuration, tickDuration, inflight, clicks, queueDropped, persistWrites}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register succeeds.

func IncProbeLaunch(module string) {
	if regOK.Load() {
		probeLaunches.WithLabelValues(module).Inc()
	}
}

func IncProbeResult(module, result string) {
	if regOK.Load() {
		probeResults.WithLabelValues(module, result).Inc()
	}
}

func ObserveProbeDuration(module string, seconds float64) {
	if regOK.Load() {
		probeDuration.WithLabelValues(module).Observe(seconds)
	}
}

func ObserveTick(seconds float64) {
	if regOK.Load() {
		tickDuration.Observe(seconds)
	}
}

func SetInflight(n int) {
	if regOK.Load() {
		inflight.Set(float64(n))
	}
}

func IncClick(result string) {
	if regOK.Load() {
		clicks.WithLabelValues(result).Inc()
	}
}

func IncQueueDropped(queue string) {
	if regOK.Load() {
		queueDropped.WithLabelValues(queue).Inc()
	}
}

func IncPersistWrite(result string) {
	if regOK.Load() {
		persistWrites.WithLabelValues(result).Inc()
	}
}
