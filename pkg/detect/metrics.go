package detect

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the pipeline's Prometheus collectors. Registered on an
// injected Registerer so tests and multiple engine instances can isolate
// their registries. A nil *Metrics records nothing.
type Metrics struct {
	columnsAnalyzed   prometheus.Counter
	technicalSkips    prometheus.Counter
	stageSkips        *prometheus.CounterVec
	earlyTerminations *prometheus.CounterVec
	strategyFailures  *prometheus.CounterVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	processingSeconds prometheus.Histogram
	strategyHealth    *prometheus.GaugeVec
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		columnsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "columns_analyzed_total",
			Help:      "Columns that completed a pipeline run.",
		}),
		technicalSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "technical_skips_total",
			Help:      "Columns skipped as technical before any strategy ran.",
		}),
		stageSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "stage_skips_total",
			Help:      "Stages skipped, by stage and reason.",
		}, []string{"stage", "reason"}),
		earlyTerminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "early_terminations_total",
			Help:      "Cascades stopped early by a high-confidence detection.",
		}, []string{"stage"}),
		strategyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "strategy_failures_total",
			Help:      "Strategy invocations that returned an error.",
		}, []string{"strategy"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "cache_hits_total",
			Help:      "Column result cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "cache_misses_total",
			Help:      "Column result cache misses.",
		}),
		processingSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "processing_seconds",
			Help:      "Wall time per column pipeline run.",
			Buckets:   prometheus.DefBuckets,
		}),
		strategyHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "columnsight",
			Subsystem: "pipeline",
			Name:      "strategy_breaker_state",
			Help:      "Per-strategy circuit state (0 closed, 1 open, 2 half-open).",
		}, []string{"strategy"}),
	}
	reg.MustRegister(
		m.columnsAnalyzed, m.technicalSkips, m.stageSkips, m.earlyTerminations,
		m.strategyFailures, m.cacheHits, m.cacheMisses, m.processingSeconds,
		m.strategyHealth,
	)
	return m
}

func (m *Metrics) recordColumnAnalyzed(seconds float64) {
	if m == nil {
		return
	}
	m.columnsAnalyzed.Inc()
	m.processingSeconds.Observe(seconds)
}

func (m *Metrics) recordTechnicalSkip() {
	if m == nil {
		return
	}
	m.technicalSkips.Inc()
}

func (m *Metrics) recordStageSkip(stage, reason string) {
	if m == nil {
		return
	}
	m.stageSkips.WithLabelValues(stage, reason).Inc()
}

func (m *Metrics) recordEarlyTermination(stage string) {
	if m == nil {
		return
	}
	m.earlyTerminations.WithLabelValues(stage).Inc()
}

func (m *Metrics) recordStrategyFailure(strategy string) {
	if m == nil {
		return
	}
	m.strategyFailures.WithLabelValues(strategy).Inc()
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

func (m *Metrics) setStrategyBreakerState(strategy string, state float64) {
	if m == nil {
		return
	}
	m.strategyHealth.WithLabelValues(strategy).Set(state)
}
