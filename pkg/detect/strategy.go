// Package detect implements the PII classification pipeline: the detection
// strategies, the technical-column analyzer, the context enhancer, the
// strategy health monitor, the result cache, and the coordinator that runs
// the staged cascade per column.
package detect

import (
	"context"

	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/models"
	"github.com/columnsight/columnsight-engine/pkg/ner"
)

// Strategy names. The set is closed; the registry is built once at startup.
const (
	StrategyHeuristic = "heuristic"
	StrategyRegex     = "regex"
	StrategyNER       = "ner"
	StrategyComposite = "composite"
)

// DetectionRequest identifies the column under analysis and carries its
// sample values.
type DetectionRequest struct {
	ConnectionID string
	DBType       string
	TableName    string
	ColumnName   string
	Samples      []string
}

// Strategy is one detection method in the cascade.
type Strategy interface {
	// Name returns the strategy's registry name.
	Name() string

	// DetectColumnPII analyzes one column. A returned error means the
	// strategy itself failed (service outage, bad state); it never means
	// "no PII found". The coordinator recovers from strategy errors.
	DetectColumnPII(ctx context.Context, req DetectionRequest) (models.ColumnPIIInfo, error)

	// IsApplicable reports whether the strategy can contribute given what
	// inputs are available.
	IsApplicable(hasMetadata, hasSamples bool) bool

	// SetConfidenceThreshold updates the minimum confidence for emitting
	// a detection.
	SetConfidenceThreshold(threshold float64)
}

// Registry is the closed map of available strategies.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds the full strategy set. The composite strategy combines
// the two lightweight strategies; the staged cascade picks from the others.
func NewRegistry(client *ner.Client, threshold float64, logger *zap.Logger) *Registry {
	heuristic := NewHeuristicStrategy(threshold)
	regex := NewRegexStrategy(threshold)
	nerStrategy := NewNERStrategy(client, threshold, logger)
	composite := NewCompositeStrategy([]Strategy{heuristic, regex}, threshold)

	return &Registry{
		strategies: map[string]Strategy{
			StrategyHeuristic: heuristic,
			StrategyRegex:     regex,
			StrategyNER:       nerStrategy,
			StrategyComposite: composite,
		},
	}
}

// Get returns the named strategy.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns the registered strategy names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}

// SetConfidenceThreshold propagates a new threshold to every strategy.
func (r *Registry) SetConfidenceThreshold(threshold float64) {
	for _, s := range r.strategies {
		s.SetConfidenceThreshold(threshold)
	}
}
