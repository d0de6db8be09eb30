package provider

import (
	"context"
	"fmt"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	openai_provider "github.com/Assassin199108/pokemon-agent-backend/provider/openai"
)

// ModelInfo describes a configured model
type ModelInfo struct {
	Name            string
	Provider        string
	MaxTokens       int
	CostPer1KInput  float64
	CostPer1KOutput float64
}

// LLMProvider is the interface every model backend must satisfy
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
	GetAvailableModels() []string
}

// Router resolves a task name to a configured model key
type Router struct {
	routing config.LLMRoutingConfig
}

func NewRouter(routing config.LLMRoutingConfig) Router {
	return Router{routing: routing}
}

// ModelFor returns the model key for a task, falling back to the configured
// fallback model when the task has no explicit route.
func (r Router) ModelFor(task string) string {
	var m string
	switch task {
	case "extraction":
		m = r.routing.Extraction
	case "reasoning":
		m = r.routing.Reasoning
	}
	if m == "" {
		m = r.routing.Fallback
	}
	return m
}

// NewProvider creates the LLM backend from config. Only OpenAI-compatible
// endpoints are supported; openrouter and similar gateways speak the same
// protocol behind a base_url.
func NewProvider(cfg config.LLMConfig) (LLMProvider, error) {
	for name, pc := range cfg.Providers {
		switch pc.Type {
		case "", "openai":
			return openai_provider.NewClient(pc), nil
		default:
			return nil, fmt.Errorf("unsupported LLM provider type %q (%s)", pc.Type, name)
		}
	}
	return nil, fmt.Errorf("no LLM providers configured")
}
