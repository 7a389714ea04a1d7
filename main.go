package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/config"
	"github.com/columnsight/columnsight-engine/pkg/detect"
	"github.com/columnsight/columnsight-engine/pkg/models"
	"github.com/columnsight/columnsight-engine/pkg/ner"
	"github.com/columnsight/columnsight-engine/pkg/parallel"
)

// Version is set at build time via ldflags.
var Version = "dev"

// tableFixture is the offline input format: a table description with the
// sampled values already attached. It stands in for a live database
// connection, which belongs to the metadata/sampling collaborator.
type tableFixture struct {
	Table   string          `json:"table"`
	DBType  string          `json:"db_type"`
	Columns []columnFixture `json:"columns"`
}

type columnFixture struct {
	Name     string   `json:"name"`
	DataType string   `json:"data_type"`
	Samples  []string `json:"samples"`
}

// fixtureProvider serves descriptors and samples from a loaded fixture.
type fixtureProvider struct {
	fixture tableFixture
}

func (p *fixtureProvider) GetColumns(_ context.Context, _, _, _ string) ([]models.ColumnDescriptor, error) {
	descriptors := make([]models.ColumnDescriptor, len(p.fixture.Columns))
	for i, col := range p.fixture.Columns {
		descriptors[i] = models.ColumnDescriptor{Name: col.Name, DataType: col.DataType}
	}
	return descriptors, nil
}

func (p *fixtureProvider) SampleColumn(_ context.Context, _, _, _, columnName string, limit int) ([]string, error) {
	for _, col := range p.fixture.Columns {
		if col.Name == columnName {
			if len(col.Samples) > limit {
				return col.Samples[:limit], nil
			}
			return col.Samples, nil
		}
	}
	return nil, nil
}

func main() {
	inputPath := flag.String("input", "", "path to a table fixture JSON file")
	connectionID := flag.String("connection", "local", "connection identifier recorded on results")
	flag.Parse()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting columnsight-engine",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.Float64("confidence_threshold", cfg.ConfidenceThreshold),
		zap.Strings("stages", cfg.Pipeline.Stages))

	if *inputPath == "" {
		logger.Fatal("no input file given, use -input <fixture.json>")
	}

	fixture, err := loadFixture(*inputPath)
	if err != nil {
		logger.Fatal("failed to load fixture", zap.String("path", *inputPath), zap.Error(err))
	}

	engine := buildEngine(cfg, &fixtureProvider{fixture: fixture}, logger)

	table, err := engine.DetectPIIInTable(context.Background(), *connectionID, fixture.DBType, fixture.Table)
	if err != nil {
		logger.Fatal("table scan failed", zap.String("table", fixture.Table), zap.Error(err))
	}

	out, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode results", zap.Error(err))
	}
	fmt.Println(string(out))
}

// buildEngine wires the full pipeline from configuration. Everything is
// constructed and injected here; no package holds global state.
func buildEngine(cfg *config.Config, provider detect.SampleProvider, logger *zap.Logger) *detect.Orchestrator {
	registry := prometheus.NewRegistry()
	pipelineMetrics := detect.NewMetrics(registry)
	nerMetrics := ner.NewMetrics(registry)

	client := ner.NewClient(ner.Config{
		BaseURL:                 cfg.NER.BaseURL,
		BackupURL:               cfg.NER.BackupURL,
		MaxRetries:              cfg.NER.MaxRetries,
		RetryDelay:              cfg.NER.RetryDelay(),
		RequestTimeout:          cfg.NER.RequestTimeout(),
		BreakerFailureThreshold: cfg.NER.BreakerFailureThreshold,
		BreakerResetTimeout:     cfg.NER.BreakerResetTimeout(),
	}, nerMetrics, logger)

	strategies := detect.NewRegistry(client, cfg.ConfidenceThreshold, logger)

	monitor := detect.NewMonitor(strategies.Names(), detect.HealthConfig{
		FailureThreshold: cfg.Health.FailureThreshold,
		ResetTimeout:     cfg.Health.ResetTimeout(),
		EmergencyRatio:   cfg.Health.EmergencyRatio,
	}, pipelineMetrics, logger)
	monitor.RegisterProbe(detect.StrategyNER, func(ctx context.Context) bool {
		return client.IsServiceAvailable(ctx)
	})

	pipeline, err := detect.NewPipeline(detect.PipelineOptions{
		Stages:             cfg.Pipeline.Stages,
		EarlyTermination:   cfg.Pipeline.EarlyTermination,
		Caching:            cfg.Pipeline.Caching,
		ContextEnhancement: cfg.Pipeline.ContextEnhancement,
	}, cfg.ConfidenceThreshold, strategies, monitor, detect.NewResultCache(pipelineMetrics), client, pipelineMetrics, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	executor := parallel.NewService(parallel.Config{
		MaxConcurrent: cfg.Parallel.MaxConcurrent,
		BatchTimeout:  cfg.Parallel.BatchTimeout(),
	}, logger)

	return detect.NewOrchestrator(pipeline, provider, executor, detect.SamplingOptions{
		MinLimit:         cfg.Sampling.MinLimit,
		MaxLimit:         cfg.Sampling.MaxLimit,
		WideTableColumns: cfg.Sampling.WideTableColumns,
	}, logger)
}

func loadFixture(path string) (tableFixture, error) {
	var fixture tableFixture
	data, err := os.ReadFile(path)
	if err != nil {
		return fixture, err
	}
	if err := json.Unmarshal(data, &fixture); err != nil {
		return fixture, fmt.Errorf("parsing %s: %w", path, err)
	}
	if fixture.Table == "" {
		return fixture, fmt.Errorf("fixture has no table name")
	}
	if fixture.DBType == "" {
		fixture.DBType = "postgres"
	}
	return fixture, nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
