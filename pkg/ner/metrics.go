package ner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes NER client counters. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
	fallbackTotal prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	breakerState  prometheus.Gauge
}

// NewMetrics creates and registers the NER client metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "ner",
			Name:      "requests_total",
			Help:      "NER service requests by outcome.",
		}, []string{"outcome"}),
		fallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "ner",
			Name:      "fallback_total",
			Help:      "Analyses served by the local fallback detector.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "ner",
			Name:      "cache_hits_total",
			Help:      "NER result cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "ner",
			Name:      "cache_misses_total",
			Help:      "NER result cache misses.",
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "columnsight",
			Subsystem: "ner",
			Name:      "breaker_state",
			Help:      "NER circuit breaker state (0 closed, 1 open, 2 half-open).",
		}),
	}
	reg.MustRegister(m.requestsTotal, m.fallbackTotal, m.cacheHits, m.cacheMisses, m.breakerState)
	return m
}

func (m *Metrics) recordRequest(outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordFallback() {
	if m == nil {
		return
	}
	m.fallbackTotal.Inc()
}

func (m *Metrics) recordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) recordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) setBreakerState(state float64) {
	if m == nil {
		return
	}
	m.breakerState.Set(state)
}
