// Package metrics provides Prometheus metrics for the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the relay metrics. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	polls          *prometheus.CounterVec
	pollErrors     *prometheus.CounterVec
	pollDuration   *prometheus.HistogramVec
	itemsPublished *prometheus.CounterVec
	itemsDuplicate *prometheus.CounterVec
	publishErrors  *prometheus.CounterVec
	storedItems    prometheus.Gauge
}

// NewManager creates a metrics manager on its own registry unless one is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "reimbursement",
		subsystem:        "relay",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.polls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "polls_total",
		Help:      "Total number of source polls against the API",
	}, []string{"source"})

	m.pollErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_errors_total",
		Help:      "Total number of source polls that failed",
	}, []string{"source"})

	m.pollDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_duration_seconds",
		Help:      "Duration of a source poll including publishing",
		Buckets:   m.histogramBuckets,
	}, []string{"source"})

	m.itemsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "items_published_total",
		Help:      "Total number of items accepted by at least one publisher",
	}, []string{"kind"})

	m.itemsDuplicate = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "items_duplicate_total",
		Help:      "Total number of items skipped because they were already forwarded",
	}, []string{"kind"})

	m.publishErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_errors_total",
		Help:      "Total number of items no publisher accepted",
	}, []string{"kind"})

	m.storedItems = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stored_items",
		Help:      "Number of item ids held by the dedupe store",
	})
}

// ObservePoll records one poll of source.
func (m *Manager) ObservePoll(source string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(source).Inc()
	m.pollDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err != nil {
		m.pollErrors.WithLabelValues(source).Inc()
	}
}

// ItemPublished counts an item of kind delivered downstream.
func (m *Manager) ItemPublished(kind string) {
	if m == nil {
		return
	}
	m.itemsPublished.WithLabelValues(kind).Inc()
}

// ItemDuplicate counts an item of kind skipped by dedupe.
func (m *Manager) ItemDuplicate(kind string) {
	if m == nil {
		return
	}
	m.itemsDuplicate.WithLabelValues(kind).Inc()
}

// PublishFailed counts an item of kind that no publisher accepted.
func (m *Manager) PublishFailed(kind string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(kind).Inc()
}

// SetStoredItems reports the dedupe store size.
func (m *Manager) SetStoredItems(n int) {
	if m == nil {
		return
	}
	m.storedItems.Set(float64(n))
}

// Registry returns the registry backing the manager.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the manager's registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
