package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Assassin199108/pokemon-agent-backend/config"
)

// Telemetry records pipeline metrics and LLM spend
type Telemetry struct {
	config   config.TelemetryConfig
	logger   *log.Logger
	registry *prometheus.Registry

	extractionsTotal   *prometheus.CounterVec
	extractionDuration prometheus.Histogram
	extractionQuality  prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	llmRequests        *prometheus.CounterVec
	llmTokens          *prometheus.CounterVec
	agentIterations    prometheus.Histogram

	mu          sync.RWMutex
	totalCost   float64
	totalTokens int64
	modelCosts  map[string]float64
}

// CostSummary provides a summary of LLM costs
type CostSummary struct {
	TotalCost   float64            `json:"total_cost"`
	TotalTokens int64              `json:"total_tokens"`
	ModelCosts  map[string]float64 `json:"model_costs"`
}

// New creates a telemetry instance with its own registry
func New(cfg config.TelemetryConfig) *Telemetry {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Telemetry{
		config:   cfg,
		logger:   log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		registry: registry,
		extractionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pokedex_extractions_total",
			Help: "Extraction pipeline runs by outcome.",
		}, []string{"outcome"}),
		extractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pokedex_extraction_duration_seconds",
			Help:    "End to end extraction pipeline duration.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		extractionQuality: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pokedex_extraction_quality",
			Help:    "Quality score of accepted extractions.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "pokedex_cache_hits_total",
			Help: "URL cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "pokedex_cache_misses_total",
			Help: "URL cache misses.",
		}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pokedex_llm_requests_total",
			Help: "LLM calls by model and outcome.",
		}, []string{"model", "outcome"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pokedex_llm_tokens_total",
			Help: "LLM tokens by model and direction.",
		}, []string{"model", "direction"}),
		agentIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pokedex_agent_iterations",
			Help:    "Iterations used per agent run.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		modelCosts: make(map[string]float64),
	}
}

// Handler serves this telemetry's registry for the /metrics endpoint
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// RecordExtraction records one pipeline run
func (t *Telemetry) RecordExtraction(success bool, quality float64, duration time.Duration) {
	if !t.config.Enabled {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
		t.extractionQuality.Observe(quality)
	}
	t.extractionsTotal.WithLabelValues(outcome).Inc()
	t.extractionDuration.Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit or miss
func (t *Telemetry) RecordCacheHit(hit bool) {
	if !t.config.Enabled {
		return
	}
	if hit {
		t.cacheHits.Inc()
	} else {
		t.cacheMisses.Inc()
	}
}

// RecordLLMCall records token usage and cost for one model call
func (t *Telemetry) RecordLLMCall(model string, inputTokens, outputTokens int64, cost float64, err error) {
	if !t.config.Enabled {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	t.llmRequests.WithLabelValues(model, outcome).Inc()
	t.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	t.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))

	if !t.config.CostTracking {
		return
	}
	t.mu.Lock()
	t.totalCost += cost
	t.totalTokens += inputTokens + outputTokens
	t.modelCosts[model] += cost
	t.mu.Unlock()
}

// RecordAgentRun records one autonomous loop run
func (t *Telemetry) RecordAgentRun(iterations int, duration time.Duration, success bool) {
	if !t.config.Enabled {
		return
	}
	t.agentIterations.Observe(float64(iterations))
	t.logger.Printf("Agent run: iterations=%d duration=%v success=%t", iterations, duration, success)
}

// GetCostSummary returns current cost summary
func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summary := CostSummary{
		TotalCost:   t.totalCost,
		TotalTokens: t.totalTokens,
		ModelCosts:  make(map[string]float64, len(t.modelCosts)),
	}
	for k, v := range t.modelCosts {
		summary.ModelCosts[k] = v
	}
	return summary
}

// Shutdown logs the final cost report
func (t *Telemetry) Shutdown() {
	costs := t.GetCostSummary()
	t.logger.Printf("Final report: cost=$%.4f tokens=%d", costs.TotalCost, costs.TotalTokens)
	for model, cost := range costs.ModelCosts {
		t.logger.Printf("  model %s: $%.4f", model, cost)
	}
}
