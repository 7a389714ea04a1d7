package detect

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/columnsight/columnsight-engine/pkg/models"
)

// CompositeStrategy runs a fixed set of strategies and averages the
// confidences of those that agreed on a PII type. It serves callers that
// want an explicit multi-strategy opinion instead of the staged cascade.
type CompositeStrategy struct {
	strategies []Strategy

	mu        sync.RWMutex
	threshold float64
}

// NewCompositeStrategy combines the given strategies.
func NewCompositeStrategy(strategies []Strategy, threshold float64) *CompositeStrategy {
	return &CompositeStrategy{
		strategies: strategies,
		threshold:  threshold,
	}
}

func (s *CompositeStrategy) Name() string { return StrategyComposite }

// IsApplicable is true when any member strategy is applicable.
func (s *CompositeStrategy) IsApplicable(hasMetadata, hasSamples bool) bool {
	for _, member := range s.strategies {
		if member.IsApplicable(hasMetadata, hasSamples) {
			return true
		}
	}
	return false
}

// SetConfidenceThreshold updates the composite's own acceptance bar. Member
// thresholds are left alone; the registry propagates to them directly.
func (s *CompositeStrategy) SetConfidenceThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
}

func (s *CompositeStrategy) DetectColumnPII(ctx context.Context, req DetectionRequest) (models.ColumnPIIInfo, error) {
	s.mu.RLock()
	threshold := s.threshold
	s.mu.RUnlock()

	info := models.NewColumnPIIInfo(req.ConnectionID, req.DBType, req.TableName, req.ColumnName)

	type agreement struct {
		total   float64
		count   int
		methods []string
	}
	byType := make(map[models.PIIType]*agreement)

	hasSamples := len(req.Samples) > 0
	for _, member := range s.strategies {
		if !member.IsApplicable(true, hasSamples) {
			continue
		}
		result, err := member.DetectColumnPII(ctx, req)
		if err != nil {
			return info, fmt.Errorf("composite member %s: %w", member.Name(), err)
		}
		for _, d := range result.Detections {
			a := byType[d.Type]
			if a == nil {
				a = &agreement{}
				byType[d.Type] = a
			}
			a.total += d.Confidence
			a.count++
			a.methods = append(a.methods, member.Name())
		}
	}

	for piiType, a := range byType {
		avg := a.total / float64(a.count)
		if avg < threshold {
			continue
		}
		detection := models.PIITypeDetection{
			Type:       piiType,
			Confidence: avg,
			Method:     StrategyComposite,
		}
		detection.SetMetadata("agreeing_strategies", strings.Join(a.methods, ","))
		info.AddDetection(detection)
	}
	return info, nil
}
