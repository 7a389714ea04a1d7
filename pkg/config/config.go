package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for columnsight-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// ConfidenceThreshold is the minimum confidence for a detection to be
	// accepted into results. Must be in [0,1].
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD" env-default:"0.5"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	NER      NERConfig      `yaml:"ner"`
	Health   HealthConfig   `yaml:"health"`
	Parallel ParallelConfig `yaml:"parallel"`
	Sampling SamplingConfig `yaml:"sampling"`
}

// PipelineConfig controls stage selection and pipeline behavior.
type PipelineConfig struct {
	// StagesStr is a comma-separated, ordered list of detection stages.
	// Recognized stages: heuristic, regex, ner.
	StagesStr string `yaml:"stages" env:"PIPELINE_STAGES" env-default:"heuristic,regex,ner"`

	// Stages is the parsed list from StagesStr (not from config file).
	Stages []string `yaml:"-"`

	// EarlyTermination stops the cascade once a high-confidence detection
	// is found.
	EarlyTermination bool `yaml:"early_termination" env:"PIPELINE_EARLY_TERMINATION" env-default:"true"`

	// Caching enables the column result cache.
	Caching bool `yaml:"caching" env:"PIPELINE_CACHING" env-default:"true"`

	// ContextEnhancement enables column-name-based confidence boosting of
	// sample-derived detections.
	ContextEnhancement bool `yaml:"context_enhancement" env:"PIPELINE_CONTEXT_ENHANCEMENT" env-default:"true"`
}

// NERConfig holds connection settings for the external NER service.
type NERConfig struct {
	BaseURL   string `yaml:"base_url" env:"NER_BASE_URL" env-default:"http://localhost:8080/ner"`
	BackupURL string `yaml:"backup_url" env:"NER_BACKUP_URL" env-default:""`

	MaxRetries   int `yaml:"max_retries" env:"NER_MAX_RETRIES" env-default:"2"`
	RetryDelayMs int `yaml:"retry_delay_ms" env:"NER_RETRY_DELAY_MS" env-default:"500"`

	RequestTimeoutMs int `yaml:"request_timeout_ms" env:"NER_REQUEST_TIMEOUT_MS" env-default:"10000"`

	// Circuit breaker protecting the service.
	BreakerFailureThreshold int `yaml:"breaker_failure_threshold" env:"NER_BREAKER_FAILURE_THRESHOLD" env-default:"3"`
	BreakerResetTimeoutMs   int `yaml:"breaker_reset_timeout_ms" env:"NER_BREAKER_RESET_TIMEOUT_MS" env-default:"60000"`
}

// RetryDelay returns the delay between retry attempts.
func (c *NERConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout.
func (c *NERConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// BreakerResetTimeout returns how long an open circuit waits before
// admitting a trial call.
func (c *NERConfig) BreakerResetTimeout() time.Duration {
	return time.Duration(c.BreakerResetTimeoutMs) * time.Millisecond
}

// HealthConfig controls the strategy health monitor.
type HealthConfig struct {
	// FailureThreshold is the consecutive-failure count that opens a
	// strategy's circuit.
	FailureThreshold int `yaml:"failure_threshold" env:"HEALTH_FAILURE_THRESHOLD" env-default:"3"`

	// ResetTimeoutMs is how long an open strategy circuit waits before a
	// trial call is allowed.
	ResetTimeoutMs int `yaml:"reset_timeout_ms" env:"HEALTH_RESET_TIMEOUT_MS" env-default:"60000"`

	// EmergencyRatio is the fraction of unhealthy strategies at which the
	// monitor enters emergency mode.
	EmergencyRatio float64 `yaml:"emergency_ratio" env:"HEALTH_EMERGENCY_RATIO" env-default:"0.5"`
}

// ResetTimeout returns the strategy circuit reset timeout.
func (c *HealthConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutMs) * time.Millisecond
}

// ParallelConfig controls bounded-concurrency batch execution.
type ParallelConfig struct {
	MaxConcurrent  int `yaml:"max_concurrent" env:"PARALLEL_MAX_CONCURRENT" env-default:"8"`
	BatchTimeoutMs int `yaml:"batch_timeout_ms" env:"PARALLEL_BATCH_TIMEOUT_MS" env-default:"30000"`
}

// BatchTimeout returns the batch collection timeout.
func (c *ParallelConfig) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutMs) * time.Millisecond
}

// SamplingConfig controls how many values are drawn per column.
type SamplingConfig struct {
	// MinLimit is the floor for the adaptive per-column sample limit.
	MinLimit int `yaml:"min_limit" env:"SAMPLING_MIN_LIMIT" env-default:"10"`

	// MaxLimit is the ceiling for the adaptive per-column sample limit.
	MaxLimit int `yaml:"max_limit" env:"SAMPLING_MAX_LIMIT" env-default:"100"`

	// WideTableColumns is the column count at which a table is considered
	// wide and the sample limit shrinks toward MinLimit.
	WideTableColumns int `yaml:"wide_table_columns" env:"SAMPLING_WIDE_TABLE_COLUMNS" env-default:"50"`
}

// recognizedStages are the stage names accepted in pipeline.stages.
var recognizedStages = map[string]bool{
	"heuristic": true,
	"regex":     true,
	"ner":       true,
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. A missing config.yaml is not an error; defaults and
// environment variables apply.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	c.Pipeline.Stages = parseStages(c.Pipeline.StagesStr)
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if len(c.Pipeline.Stages) == 0 {
		return fmt.Errorf("pipeline.stages must name at least one stage")
	}
	for _, stage := range c.Pipeline.Stages {
		if !recognizedStages[stage] {
			return fmt.Errorf("unknown pipeline stage %q", stage)
		}
	}
	if c.NER.BaseURL == "" {
		return fmt.Errorf("ner.base_url must be set")
	}
	if c.Health.EmergencyRatio <= 0 || c.Health.EmergencyRatio > 1 {
		return fmt.Errorf("health.emergency_ratio must be in (0,1], got %v", c.Health.EmergencyRatio)
	}
	if c.Sampling.MinLimit < 1 || c.Sampling.MaxLimit < c.Sampling.MinLimit {
		return fmt.Errorf("sampling limits must satisfy 1 <= min_limit <= max_limit")
	}
	return nil
}

// parseStages parses the comma-separated stage list, trimming whitespace and
// dropping empty entries. Order is preserved; it is the cascade order.
func parseStages(value string) []string {
	var stages []string
	for _, part := range strings.Split(value, ",") {
		stage := strings.ToLower(strings.TrimSpace(part))
		if stage == "" {
			continue
		}
		stages = append(stages, stage)
	}
	return stages
}
