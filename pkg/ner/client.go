// Package ner provides the client for the external named-entity-recognition
// service. The client is resilient by construction: a circuit breaker guards
// the service, failed requests retry against an alternating backup endpoint,
// results are cached by exact sample content, and when the service cannot be
// reached the local fallback detector answers instead. Analysis calls never
// return an error to the pipeline.
package ner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/columnsight/columnsight-engine/pkg/breaker"
	"github.com/columnsight/columnsight-engine/pkg/logging"
	"github.com/columnsight/columnsight-engine/pkg/retry"
)

// Config holds NER client settings.
type Config struct {
	// BaseURL is the primary service endpoint. Analysis requests POST to it
	// directly; batch requests POST to BaseURL+"/batch"; health checks GET
	// BaseURL+"/health".
	BaseURL string
	// BackupURL is an optional secondary endpoint. After a first failed
	// attempt, retries alternate between backup and primary.
	BackupURL string

	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration

	BreakerFailureThreshold int
	BreakerResetTimeout     time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 "http://localhost:8080/ner",
		MaxRetries:              2,
		RetryDelay:              500 * time.Millisecond,
		RequestTimeout:          10 * time.Second,
		BreakerFailureThreshold: 3,
		BreakerResetTimeout:     60 * time.Second,
	}
}

// Client talks to the NER service.
type Client struct {
	http     *resty.Client
	config   Config
	breaker  *breaker.Breaker
	fallback *FallbackDetector
	cache    sync.Map // cache key -> map[string]float64
	metrics  *Metrics
	logger   *zap.Logger
}

type analyzeRequest struct {
	Texts []string `json:"texts"`
}

type batchResponse struct {
	Results []map[string]float64 `json:"results"`
}

// NewClient creates a NER client. The metrics argument may be nil.
func NewClient(config Config, metrics *Metrics, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultConfig().RequestTimeout
	}

	httpClient := resty.New().
		SetTimeout(config.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		config: config,
		breaker: breaker.New(breaker.Config{
			FailureThreshold: config.BreakerFailureThreshold,
			ResetTimeout:     config.BreakerResetTimeout,
		}),
		fallback: NewFallbackDetector(),
		metrics:  metrics,
		logger:   logger.Named("ner"),
	}
}

// AnalyzeText sends a column's samples to the NER service and returns entity
// confidences for the set as a whole. The error return is always nil for
// service-level failures; those degrade to the fallback detector. Results,
// including fallback results, are cached by exact sample content.
func (c *Client) AnalyzeText(ctx context.Context, samples []string) (map[string]float64, error) {
	if len(samples) == 0 {
		return map[string]float64{}, nil
	}

	key := cacheKey(samples)
	if cached, ok := c.cache.Load(key); ok {
		c.metrics.recordCacheHit()
		return copyScores(cached.(map[string]float64)), nil
	}
	c.metrics.recordCacheMiss()

	if allowed, allowErr := c.breaker.Allow(); !allowed {
		c.logger.Debug("circuit open, using fallback detector", zap.Error(allowErr))
		return c.useFallback(key, samples), nil
	}

	result, err := retry.DoWithResult(ctx, c.retryConfig(), func(attempt int) (map[string]float64, error) {
		return c.postAnalyze(ctx, c.requestURL(attempt, ""), samples)
	})
	if err != nil {
		c.recordFailure(err)
		return c.useFallback(key, samples), nil
	}

	c.recordSuccess()
	c.cache.Store(key, copyScores(result))
	return result, nil
}

// BatchAnalyzeText analyzes several columns' samples in a single request.
// Samples are flattened in deterministic column order, sent to the batch
// endpoint, and the per-text results are split back per column and reduced to
// a 75th-percentile confidence per entity type. Columns already cached are
// served from cache without being sent.
func (c *Client) BatchAnalyzeText(ctx context.Context, columns map[string][]string) (map[string]map[string]float64, error) {
	results := make(map[string]map[string]float64, len(columns))

	var pending []string
	for name, samples := range columns {
		if len(samples) == 0 {
			results[name] = map[string]float64{}
			continue
		}
		if cached, ok := c.cache.Load(cacheKey(samples)); ok {
			c.metrics.recordCacheHit()
			results[name] = copyScores(cached.(map[string]float64))
			continue
		}
		c.metrics.recordCacheMiss()
		pending = append(pending, name)
	}
	if len(pending) == 0 {
		return results, nil
	}
	sort.Strings(pending)

	if allowed, allowErr := c.breaker.Allow(); !allowed {
		c.logger.Debug("circuit open, batch served by fallback detector", zap.Error(allowErr))
		for _, name := range pending {
			results[name] = c.useFallback(cacheKey(columns[name]), columns[name])
		}
		return results, nil
	}

	var flattened []string
	offsets := make(map[string][2]int, len(pending))
	for _, name := range pending {
		start := len(flattened)
		flattened = append(flattened, columns[name]...)
		offsets[name] = [2]int{start, len(flattened)}
	}

	perText, err := retry.DoWithResult(ctx, c.retryConfig(), func(attempt int) ([]map[string]float64, error) {
		return c.postBatch(ctx, c.requestURL(attempt, "/batch"), flattened)
	})
	if err != nil {
		c.recordFailure(err)
		for _, name := range pending {
			results[name] = c.useFallback(cacheKey(columns[name]), columns[name])
		}
		return results, nil
	}

	c.recordSuccess()
	for _, name := range pending {
		span := offsets[name]
		aggregated := percentile75(perText[span[0]:span[1]])
		c.cache.Store(cacheKey(columns[name]), copyScores(aggregated))
		results[name] = aggregated
	}
	return results, nil
}

// IsServiceAvailable probes the health endpoint. A rejected breaker call
// reports unavailable without touching the network. A reachable backup counts
// as available.
func (c *Client) IsServiceAvailable(ctx context.Context) bool {
	if allowed, _ := c.breaker.Allow(); !allowed {
		return false
	}

	if c.checkHealth(ctx, c.config.BaseURL) {
		c.recordSuccess()
		return true
	}
	if c.config.BackupURL != "" && c.checkHealth(ctx, c.config.BackupURL) {
		c.recordSuccess()
		return true
	}

	c.recordFailure(fmt.Errorf("health check failed for %s", c.config.BaseURL))
	return false
}

// BreakerState exposes the circuit state for the health monitor.
func (c *Client) BreakerState() breaker.State {
	return c.breaker.State()
}

// ClearCache drops all cached results.
func (c *Client) ClearCache() {
	c.cache.Range(func(key, _ any) bool {
		c.cache.Delete(key)
		return true
	})
}

func (c *Client) retryConfig() retry.Config {
	return retry.Config{
		MaxRetries: c.config.MaxRetries,
		Delay:      c.config.RetryDelay,
	}
}

// requestURL picks the endpoint for a retry attempt. The first attempt always
// goes to the primary; after a failure, attempts alternate backup, primary,
// backup. Without a backup every attempt hits the primary.
func (c *Client) requestURL(attempt int, path string) string {
	base := c.config.BaseURL
	if c.config.BackupURL != "" && attempt%2 == 1 {
		base = c.config.BackupURL
	}
	return base + path
}

func (c *Client) postAnalyze(ctx context.Context, url string, texts []string) (map[string]float64, error) {
	var out map[string]float64
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(analyzeRequest{Texts: texts}).
		SetResult(&out).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("ner request to %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ner request to %s failed: %s", url, resp.Status())
	}
	if out == nil {
		out = map[string]float64{}
	}
	return out, nil
}

func (c *Client) postBatch(ctx context.Context, url string, texts []string) ([]map[string]float64, error) {
	var out batchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(analyzeRequest{Texts: texts}).
		SetResult(&out).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("ner batch request to %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ner batch request to %s failed: %s", url, resp.Status())
	}
	if len(out.Results) != len(texts) {
		return nil, fmt.Errorf("ner batch returned %d results for %d texts", len(out.Results), len(texts))
	}
	return out.Results, nil
}

func (c *Client) checkHealth(ctx context.Context, base string) bool {
	resp, err := c.http.R().SetContext(ctx).Get(base + "/health")
	return err == nil && !resp.IsError()
}

func (c *Client) useFallback(key string, samples []string) map[string]float64 {
	c.metrics.recordFallback()
	result := c.fallback.DetectPII(samples)
	c.cache.Store(key, copyScores(result))
	return result
}

func (c *Client) recordSuccess() {
	c.breaker.RecordSuccess()
	c.metrics.recordRequest("success")
	c.metrics.setBreakerState(float64(c.breaker.State()))
}

func (c *Client) recordFailure(err error) {
	c.breaker.RecordFailure()
	c.metrics.recordRequest("failure")
	c.metrics.setBreakerState(float64(c.breaker.State()))
	c.logger.Warn("ner service call failed",
		zap.String("error", logging.SanitizeError(err)),
		zap.String("breaker_state", c.breaker.State().String()))
}

// cacheKey identifies a sample set by exact content and order.
func cacheKey(samples []string) string {
	return strings.Join(samples, "\x1f")
}

func copyScores(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// percentile75 reduces per-sample entity confidences to one score per entity:
// the 75th percentile of that entity's scores across the samples where it
// appeared. A sample with no mention of an entity does not drag the score
// down as a zero.
func percentile75(perSample []map[string]float64) map[string]float64 {
	byEntity := make(map[string][]float64)
	for _, scores := range perSample {
		for entity, score := range scores {
			byEntity[entity] = append(byEntity[entity], score)
		}
	}

	out := make(map[string]float64, len(byEntity))
	for entity, scores := range byEntity {
		sort.Float64s(scores)
		idx := int(math.Ceil(0.75*float64(len(scores)))) - 1
		if idx < 0 {
			idx = 0
		}
		out[entity] = scores[idx]
	}
	return out
}
