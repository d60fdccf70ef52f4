package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	OutcomeFinished  = "finished"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeAbandoned = "abandoned"
)

// Metrics exposes Prometheus collectors that report bridge activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	eventsSent    *prometheus.CounterVec
	sessionOps    *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the package-level metrics instance registered with the
// global Prometheus registry. The collectors are created only once to avoid
// duplicate registration panics.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs a Metrics instance using the provided registerer and
// panics on registration errors. Tests should pass a fresh registry.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agui",
			Subsystem: "bridge",
			Name:      "runs_started_total",
			Help:      "Number of agent runs whose event stream was opened.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agui",
			Subsystem: "bridge",
			Name:      "runs_completed_total",
			Help:      "Number of agent runs by terminal outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agui",
			Subsystem: "bridge",
			Name:      "run_duration_seconds",
			Help:      "Wall time from stream open to terminal outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agui",
			Subsystem: "transport",
			Name:      "events_sent_total",
			Help:      "Protocol events written to clients by event type.",
		}, []string{"type"}),
		sessionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agui",
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session store operations by kind and result.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.runsStarted, m.runsCompleted, m.runDuration, m.eventsSent, m.sessionOps)
	return m
}

// RunStarted counts a run whose stream was opened.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
}

// RunCompleted records the terminal outcome of a run.
func (m *Metrics) RunCompleted(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsCompleted.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// EventSent counts one event written to a client.
func (m *Metrics) EventSent(eventType string) {
	if m == nil {
		return
	}
	m.eventsSent.WithLabelValues(eventType).Inc()
}

// SessionOp records a session store operation.
func (m *Metrics) SessionOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sessionOps.WithLabelValues(op, result).Inc()
}
