package detect

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/breaker"
)

// HealthConfig tunes the strategy health monitor.
type HealthConfig struct {
	// FailureThreshold is the consecutive-failure count that marks a
	// strategy unhealthy.
	FailureThreshold int
	// ResetTimeout is how long an unhealthy strategy waits before a trial
	// invocation is allowed.
	ResetTimeout time.Duration
	// EmergencyRatio is the fraction of unhealthy strategies at which the
	// monitor declares emergency mode.
	EmergencyRatio float64
}

// DefaultHealthConfig returns production defaults.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		ResetTimeout:     60 * time.Second,
		EmergencyRatio:   0.5,
	}
}

// HealthProbe re-tests one strategy's backing dependency. Returning true
// restores the strategy to healthy.
type HealthProbe func(ctx context.Context) bool

// Monitor tracks per-strategy health with one circuit breaker per strategy
// and derives the global emergency-mode flag. In emergency mode only the
// lightweight strategies (heuristic, regex) should run; the coordinator
// enforces that.
type Monitor struct {
	config  HealthConfig
	metrics *Metrics
	logger  *zap.Logger

	mu               sync.RWMutex
	breakers         map[string]*breaker.Breaker
	serviceAvailable bool
	probes           map[string]HealthProbe
}

// NewMonitor creates a monitor tracking the given strategy names. Probes are
// optional per-strategy recovery checks; the NER strategy's probe is the
// service availability check.
func NewMonitor(strategies []string, config HealthConfig, metrics *Metrics, logger *zap.Logger) *Monitor {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = DefaultHealthConfig().FailureThreshold
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = DefaultHealthConfig().ResetTimeout
	}
	if config.EmergencyRatio <= 0 || config.EmergencyRatio > 1 {
		config.EmergencyRatio = DefaultHealthConfig().EmergencyRatio
	}

	breakers := make(map[string]*breaker.Breaker, len(strategies))
	for _, name := range strategies {
		breakers[name] = breaker.New(breaker.Config{
			FailureThreshold: config.FailureThreshold,
			ResetTimeout:     config.ResetTimeout,
		})
	}

	return &Monitor{
		config:           config,
		metrics:          metrics,
		logger:           logger.Named("health"),
		breakers:         breakers,
		serviceAvailable: true,
		probes:           make(map[string]HealthProbe),
	}
}

// RegisterProbe attaches a recovery probe for a strategy.
func (m *Monitor) RegisterProbe(strategy string, probe HealthProbe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[strategy] = probe
}

// MarkSuccess records a successful strategy invocation.
func (m *Monitor) MarkSuccess(strategy string) {
	if b := m.breakerFor(strategy); b != nil {
		b.RecordSuccess()
		m.metrics.setStrategyBreakerState(strategy, float64(b.State()))
	}
}

// MarkFailure records a failed strategy invocation.
func (m *Monitor) MarkFailure(strategy string) {
	b := m.breakerFor(strategy)
	if b == nil {
		return
	}
	b.RecordFailure()
	m.metrics.setStrategyBreakerState(strategy, float64(b.State()))
	if b.State() == breaker.StateOpen {
		m.logger.Warn("strategy marked unhealthy",
			zap.String("strategy", strategy),
			zap.Int("consecutive_failures", b.ConsecutiveFailures()))
	}
}

// IsHealthy reports whether the strategy's circuit is closed.
func (m *Monitor) IsHealthy(strategy string) bool {
	b := m.breakerFor(strategy)
	return b != nil && b.State() == breaker.StateClosed
}

// AllowExecution reports whether a strategy may run now. An open circuit
// past its reset timeout admits one trial invocation.
func (m *Monitor) AllowExecution(strategy string) bool {
	b := m.breakerFor(strategy)
	if b == nil {
		return false
	}
	allowed, _ := b.Allow()
	return allowed
}

// SetServiceAvailable records the NER service availability as last probed.
func (m *Monitor) SetServiceAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serviceAvailable = available
}

// ServiceAvailable returns the last probed NER service availability.
func (m *Monitor) ServiceAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.serviceAvailable
}

// EmergencyModeActive is true when the unhealthy fraction of strategies
// reaches the configured ratio, or when the NER strategy is unhealthy while
// its service is also unavailable.
func (m *Monitor) EmergencyModeActive() bool {
	m.mu.RLock()
	serviceAvailable := m.serviceAvailable
	m.mu.RUnlock()

	unhealthy := 0
	total := 0
	nerUnhealthy := false
	for name, b := range m.breakers {
		total++
		if b.State() != breaker.StateClosed {
			unhealthy++
			if name == StrategyNER {
				nerUnhealthy = true
			}
		}
	}
	if total == 0 {
		return false
	}
	if nerUnhealthy && !serviceAvailable {
		return true
	}
	return float64(unhealthy)/float64(total) >= m.config.EmergencyRatio
}

// CheckAndRecover probes every unhealthy strategy that has a registered
// probe and restores health on success. Called by the coordinator before a
// pipeline run so a recovered dependency rejoins the cascade promptly.
func (m *Monitor) CheckAndRecover(ctx context.Context) {
	m.mu.RLock()
	probes := make(map[string]HealthProbe, len(m.probes))
	for name, probe := range m.probes {
		probes[name] = probe
	}
	m.mu.RUnlock()

	for name, b := range m.breakers {
		if b.State() == breaker.StateClosed {
			continue
		}
		probe, ok := probes[name]
		if !ok {
			continue
		}
		if probe(ctx) {
			b.Reset()
			m.metrics.setStrategyBreakerState(name, float64(b.State()))
			if name == StrategyNER {
				m.SetServiceAvailable(true)
			}
			m.logger.Info("strategy recovered", zap.String("strategy", name))
		} else if name == StrategyNER {
			m.SetServiceAvailable(false)
		}
	}
}

// ForceHealthCheck probes every strategy with a registered probe regardless
// of current state. Administrative override.
func (m *Monitor) ForceHealthCheck(ctx context.Context) {
	m.mu.RLock()
	probes := make(map[string]HealthProbe, len(m.probes))
	for name, probe := range m.probes {
		probes[name] = probe
	}
	m.mu.RUnlock()

	for name, probe := range probes {
		healthy := probe(ctx)
		b := m.breakerFor(name)
		if b == nil {
			continue
		}
		if healthy {
			b.Reset()
		} else {
			b.RecordFailure()
		}
		m.metrics.setStrategyBreakerState(name, float64(b.State()))
		if name == StrategyNER {
			m.SetServiceAvailable(healthy)
		}
	}
}

// ResetEmergencyMode force-closes every strategy circuit and clears the
// service-unavailable flag. Administrative override.
func (m *Monitor) ResetEmergencyMode() {
	for name, b := range m.breakers {
		b.Reset()
		m.metrics.setStrategyBreakerState(name, float64(b.State()))
	}
	m.SetServiceAvailable(true)
	m.logger.Info("emergency mode reset")
}

func (m *Monitor) breakerFor(strategy string) *breaker.Breaker {
	// The breaker map is built once at construction and never mutated, so
	// reads need no lock.
	return m.breakers[strategy]
}
