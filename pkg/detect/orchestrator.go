package detect

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/logging"
	"github.com/columnsight/columnsight-engine/pkg/models"
	"github.com/columnsight/columnsight-engine/pkg/parallel"
)

// SampleProvider is the narrow contract to the external metadata/sampling
// collaborator. Database connectivity, dialect SQL, and pooling live behind
// it.
type SampleProvider interface {
	// GetColumns returns the column descriptors for a table.
	GetColumns(ctx context.Context, dbType, connectionID, tableName string) ([]models.ColumnDescriptor, error)

	// SampleColumn returns up to limit raw values from one column.
	SampleColumn(ctx context.Context, dbType, connectionID, tableName, columnName string, limit int) ([]string, error)
}

// SamplingOptions bound the adaptive per-column sample limit.
type SamplingOptions struct {
	// MinLimit applies to wide tables, MaxLimit to narrow ones.
	MinLimit int
	MaxLimit int
	// WideTableColumns is the column count at which the limit bottoms out.
	WideTableColumns int
}

// DefaultSamplingOptions returns production defaults.
func DefaultSamplingOptions() SamplingOptions {
	return SamplingOptions{
		MinLimit:         10,
		MaxLimit:         100,
		WideTableColumns: 50,
	}
}

// Orchestrator runs the pipeline across a whole table: samples columns in
// parallel, fans the cascade out per column, and aggregates the results.
type Orchestrator struct {
	pipeline *Pipeline
	provider SampleProvider
	executor *parallel.Service
	sampling SamplingOptions
	logger   *zap.Logger
}

// NewOrchestrator wires the table-level orchestration.
func NewOrchestrator(pipeline *Pipeline, provider SampleProvider, executor *parallel.Service, sampling SamplingOptions, logger *zap.Logger) *Orchestrator {
	if sampling.MinLimit < 1 {
		sampling = DefaultSamplingOptions()
	}
	return &Orchestrator{
		pipeline: pipeline,
		provider: provider,
		executor: executor,
		sampling: sampling,
		logger:   logger.Named("orchestrator"),
	}
}

// DetectPIIInTable classifies every column of a table. Column failures never
// abort the table: a failed column contributes an error-flagged result with
// PIIDetected=false. The column order of the result follows completion order
// and is not deterministic.
func (o *Orchestrator) DetectPIIInTable(ctx context.Context, connectionID, dbType, tableName string) (models.TablePIIInfo, error) {
	runID := uuid.New().String()
	log := o.logger.With(
		zap.String("run_id", runID),
		zap.String("table", tableName),
		zap.String("db_type", dbType))

	table := models.TablePIIInfo{TableName: tableName}

	columns, err := o.provider.GetColumns(ctx, dbType, connectionID, tableName)
	if err != nil {
		return table, fmt.Errorf("fetching columns for %s: %w", tableName, err)
	}
	if len(columns) == 0 {
		return table, nil
	}

	limit := o.adaptiveSampleLimit(len(columns))
	log.Info("scanning table",
		zap.Int("columns", len(columns)),
		zap.Int("sample_limit", limit))

	samplesByColumn := o.sampleColumns(ctx, connectionID, dbType, tableName, columns, limit)

	tasks := make([]parallel.Task[models.ColumnPIIInfo], 0, len(columns))
	for _, col := range columns {
		col := col
		tasks = append(tasks, parallel.Task[models.ColumnPIIInfo]{
			ID: col.Name,
			Run: func(ctx context.Context) (models.ColumnPIIInfo, error) {
				return o.analyzeColumnSafe(ctx, connectionID, dbType, tableName, col.Name, samplesByColumn[col.Name]), nil
			},
		})
	}

	for _, result := range parallel.Execute(ctx, o.executor, tasks) {
		table.AddColumn(result.Value)
	}

	log.Info("table scan complete",
		zap.Int("columns_scanned", len(table.Columns)),
		zap.Bool("has_pii", table.HasPII))
	return table, nil
}

// analyzeColumnSafe isolates one column's failure: errors and panics become
// an error-flagged result instead of propagating.
func (o *Orchestrator) analyzeColumnSafe(ctx context.Context, connectionID, dbType, tableName, columnName string, samples []string) (info models.ColumnPIIInfo) {
	defer func() {
		if r := recover(); r != nil {
			info = models.NewColumnPIIInfo(connectionID, dbType, tableName, columnName)
			info.SetMetadata("error", fmt.Sprintf("panic analyzing column: %v", r))
			o.logger.Error("column analysis panicked",
				zap.String("table", tableName),
				zap.String("column", columnName),
				zap.Any("panic", r))
		}
	}()

	info, err := o.pipeline.AnalyzeColumn(ctx, connectionID, dbType, tableName, columnName, samples)
	if err != nil {
		info = models.NewColumnPIIInfo(connectionID, dbType, tableName, columnName)
		info.SetMetadata("error", logging.SanitizeError(err))
		o.logger.Warn("column analysis failed",
			zap.String("table", tableName),
			zap.String("column", columnName),
			zap.String("error", logging.SanitizeError(err)))
	}
	return info
}

// sampleColumns fetches sample values for every column through the bounded
// executor. A column whose fetch fails simply has no samples; the pipeline
// still runs its name-based stages.
func (o *Orchestrator) sampleColumns(ctx context.Context, connectionID, dbType, tableName string, columns []models.ColumnDescriptor, limit int) map[string][]string {
	tasks := make(map[string]func(ctx context.Context) ([]string, error), len(columns))
	for _, col := range columns {
		col := col
		tasks[col.Name] = func(ctx context.Context) ([]string, error) {
			return o.provider.SampleColumn(ctx, dbType, connectionID, tableName, col.Name, limit)
		}
	}
	return parallel.ExecuteKeyed(ctx, o.executor, tasks)
}

// adaptiveSampleLimit scales the per-column sample count down as tables get
// wider, keeping total sampled values roughly bounded.
func (o *Orchestrator) adaptiveSampleLimit(columnCount int) int {
	if columnCount >= o.sampling.WideTableColumns {
		return o.sampling.MinLimit
	}
	span := o.sampling.MaxLimit - o.sampling.MinLimit
	limit := o.sampling.MaxLimit - span*columnCount/o.sampling.WideTableColumns
	if limit < o.sampling.MinLimit {
		return o.sampling.MinLimit
	}
	return limit
}
