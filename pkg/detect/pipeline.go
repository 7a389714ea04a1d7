package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/logging"
	"github.com/columnsight/columnsight-engine/pkg/models"
	"github.com/columnsight/columnsight-engine/pkg/ner"
	"github.com/columnsight/columnsight-engine/pkg/piierrors"
)

// highConfidence is the score at which a single detection ends the cascade.
const highConfidence = 0.9

// identifierPattern accepts the table/column names the pipeline will touch.
// Anything else is rejected before any state is read or written.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#.]{0,127}$`)

// PipelineOptions are the coordinator's feature toggles and stage order.
type PipelineOptions struct {
	// Stages is the ordered cascade. Valid entries are the registry names.
	Stages []string
	// EarlyTermination stops the cascade on a high-confidence detection.
	EarlyTermination bool
	// Caching serves repeated identical evaluations from the result cache.
	Caching bool
	// ContextEnhancement boosts heuristic-stage detections from name context.
	ContextEnhancement bool
}

// DefaultPipelineOptions returns the production defaults.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Stages:             []string{StrategyHeuristic, StrategyRegex, StrategyNER},
		EarlyTermination:   true,
		Caching:            true,
		ContextEnhancement: true,
	}
}

// Pipeline coordinates the staged detection cascade for one column at a
// time. It owns the early-termination and caching policy; the strategies own
// the detection logic.
type Pipeline struct {
	registry  *Registry
	technical *TechnicalAnalyzer
	enhancer  *Enhancer
	health    *Monitor
	cache     *ResultCache
	nerClient *ner.Client
	metrics   *Metrics
	logger    *zap.Logger

	mu        sync.RWMutex
	options   PipelineOptions
	threshold float64
}

// NewPipeline wires the coordinator. All collaborators are injected; the
// pipeline holds no global state.
func NewPipeline(
	options PipelineOptions,
	threshold float64,
	registry *Registry,
	health *Monitor,
	cache *ResultCache,
	nerClient *ner.Client,
	metrics *Metrics,
	logger *zap.Logger,
) (*Pipeline, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %v", piierrors.ErrInvalidThreshold, threshold)
	}
	if len(options.Stages) == 0 {
		options.Stages = DefaultPipelineOptions().Stages
	}
	for _, stage := range options.Stages {
		if _, ok := registry.Get(stage); !ok {
			return nil, fmt.Errorf("%w: %q", piierrors.ErrUnknownStage, stage)
		}
	}

	return &Pipeline{
		registry:  registry,
		technical: NewTechnicalAnalyzer(),
		enhancer:  NewEnhancer(logger),
		health:    health,
		cache:     cache,
		nerClient: nerClient,
		metrics:   metrics,
		logger:    logger.Named("pipeline"),
		options:   options,
		threshold: threshold,
	}, nil
}

// AnalyzeColumn runs the cascade for one column and returns its result. The
// error return is reserved for configuration problems (invalid identifiers);
// strategy failures degrade into metadata on the result instead.
func (p *Pipeline) AnalyzeColumn(ctx context.Context, connectionID, dbType, tableName, columnName string, samples []string) (models.ColumnPIIInfo, error) {
	if !validIdentifier(tableName) || !validIdentifier(columnName) {
		return models.ColumnPIIInfo{}, fmt.Errorf("%w: %q.%q", piierrors.ErrInvalidIdentifier, tableName, columnName)
	}

	p.mu.RLock()
	caching := p.options.Caching
	p.mu.RUnlock()

	if !caching {
		return p.runPipeline(ctx, connectionID, dbType, tableName, columnName, samples), nil
	}

	key := CacheKey("pipeline", connectionID, dbType, tableName, columnName, samples)
	return p.cache.WithCache(key, func() (models.ColumnPIIInfo, error) {
		return p.runPipeline(ctx, connectionID, dbType, tableName, columnName, samples), nil
	})
}

func (p *Pipeline) runPipeline(ctx context.Context, connectionID, dbType, tableName, columnName string, samples []string) models.ColumnPIIInfo {
	start := time.Now()

	p.mu.RLock()
	options := p.options
	stages := make([]string, len(options.Stages))
	copy(stages, options.Stages)
	p.mu.RUnlock()

	info := models.NewColumnPIIInfo(connectionID, dbType, tableName, columnName)

	if technical, reason := p.technical.Classify(columnName); technical {
		info.SetMetadata("skipped", "technical_column")
		info.SetMetadata("skip_reason", reason)
		p.metrics.recordTechnicalSkip()
		p.logger.Debug("technical column skipped",
			zap.String("table", tableName),
			zap.String("column", columnName),
			zap.String("reason", reason))
		return info
	}

	p.health.CheckAndRecover(ctx)

	req := DetectionRequest{
		ConnectionID: connectionID,
		DBType:       dbType,
		TableName:    tableName,
		ColumnName:   columnName,
		Samples:      samples,
	}

	for _, stage := range stages {
		strategy, ok := p.registry.Get(stage)
		if !ok {
			continue
		}

		if skip, reason := p.stageSkipReason(stage, samples); skip {
			info.SetMetadata("skip_"+stage, reason)
			p.metrics.recordStageSkip(stage, reason)
			continue
		}

		stageReq := req
		if stage == StrategyRegex {
			filtered := FilterSamples(samples)
			if len(filtered) == 0 {
				info.SetMetadata("skip_"+stage, "no_valid_samples")
				p.metrics.recordStageSkip(stage, "no_valid_samples")
				continue
			}
			stageReq.Samples = filtered
		}

		stageResult, err := strategy.DetectColumnPII(ctx, stageReq)
		if err != nil {
			p.health.MarkFailure(stage)
			p.metrics.recordStrategyFailure(stage)
			info.SetMetadata("error_"+stage, logging.SanitizeError(err))
			p.logger.Warn("strategy failed, continuing cascade",
				zap.String("strategy", stage),
				zap.String("table", tableName),
				zap.String("column", columnName),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		p.health.MarkSuccess(stage)

		best := stageResult.BestDetection()
		if best != nil {
			info.AddDetection(*best)
		}

		if stage == StrategyHeuristic && options.ContextEnhancement {
			p.enhancer.EnhanceConfidenceWithContext(tableName, columnName, &info)
		}

		if best != nil && options.EarlyTermination && info.BestDetection().Confidence >= highConfidence {
			info.SetMetadata("early_termination", stage)
			p.metrics.recordEarlyTermination(stage)
			break
		}
	}

	p.metrics.recordColumnAnalyzed(time.Since(start).Seconds())
	return info
}

// stageSkipReason decides the pre-invocation gates for one stage.
func (p *Pipeline) stageSkipReason(stage string, samples []string) (bool, string) {
	if stage == StrategyNER {
		if p.health.EmergencyModeActive() {
			return true, "emergency_mode"
		}
		if !p.health.ServiceAvailable() {
			return true, "service_unavailable"
		}
	}
	if !p.health.AllowExecution(stage) {
		return true, "unhealthy"
	}
	if (stage == StrategyRegex || stage == StrategyNER) && len(samples) == 0 {
		return true, "no_samples"
	}
	return false, ""
}

// SetConfidenceThreshold updates the acceptance bar, propagates it to every
// strategy, and clears both result caches: prior results were computed under
// the old bar.
func (p *Pipeline) SetConfidenceThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: %v", piierrors.ErrInvalidThreshold, threshold)
	}

	p.mu.Lock()
	p.threshold = threshold
	p.mu.Unlock()

	p.registry.SetConfidenceThreshold(threshold)
	p.cache.Clear()
	p.nerClient.ClearCache()
	p.logger.Info("confidence threshold updated, caches cleared", zap.Float64("threshold", threshold))
	return nil
}

// ConfidenceThreshold returns the current acceptance bar.
func (p *Pipeline) ConfidenceThreshold() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.threshold
}

// SetStages replaces the cascade order and clears the result cache.
func (p *Pipeline) SetStages(stages []string) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: empty stage list", piierrors.ErrUnknownStage)
	}
	for _, stage := range stages {
		if _, ok := p.registry.Get(stage); !ok {
			return fmt.Errorf("%w: %q", piierrors.ErrUnknownStage, stage)
		}
	}

	p.mu.Lock()
	p.options.Stages = make([]string, len(stages))
	copy(p.options.Stages, stages)
	p.mu.Unlock()

	p.cache.Clear()
	p.logger.Info("pipeline stages updated, cache cleared", zap.String("stages", strings.Join(stages, ",")))
	return nil
}

// Health exposes the monitor for administrative operations.
func (p *Pipeline) Health() *Monitor {
	return p.health
}

func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
