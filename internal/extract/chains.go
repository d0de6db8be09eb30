package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/telemetry"
	"github.com/Assassin199108/pokemon-agent-backend/provider"
	"github.com/Assassin199108/pokemon-agent-backend/utils"
)

const fallbackContentChars = 3000

// ChainManager runs the map-reduce extraction over text chunks
type ChainManager struct {
	llm       provider.LLMProvider
	model     string
	timeout   time.Duration
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewChainManager(llm provider.LLMProvider, router provider.Router, cfg config.PipelineConfig, tel *telemetry.Telemetry) *ChainManager {
	return &ChainManager{
		llm:       llm,
		model:     router.ModelFor("extraction"),
		timeout:   cfg.LLMCallTimeout,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags),
	}
}

// ExtractFromChunks maps every chunk to a partial record, reduces the
// partials to one record, and falls back to a single simplified pass over
// the head of the text when the primary path fails.
func (m *ChainManager) ExtractFromChunks(ctx context.Context, name string, chunks []string) (map[string]interface{}, error) {
	var partials []map[string]interface{}
	for i, chunk := range chunks {
		prompt := fmt.Sprintf(mapPromptTemplate, name, chunk)
		partial, err := m.callJSON(ctx, prompt, 800)
		if err != nil {
			m.logger.Printf("map stage chunk %d/%d failed: %v", i+1, len(chunks), err)
			continue
		}
		if len(partial) > 0 {
			partials = append(partials, partial)
		}
	}

	if len(partials) == 0 {
		return m.fallback(ctx, name, chunks)
	}
	if len(partials) == 1 {
		return partials[0], nil
	}

	merged, err := m.reduce(ctx, name, partials)
	if err != nil {
		m.logger.Printf("reduce stage failed: %v, retrying simplified", err)
		return m.fallback(ctx, name, chunks)
	}
	return merged, nil
}

func (m *ChainManager) reduce(ctx context.Context, name string, partials []map[string]interface{}) (map[string]interface{}, error) {
	var sb strings.Builder
	for _, p := range partials {
		b, err := json.Marshal(p)
		if err != nil {
			continue
		}
		sb.Write(b)
		sb.WriteByte('\n')
	}
	prompt := fmt.Sprintf(reducePromptTemplate, name, sb.String())
	return m.callJSON(ctx, prompt, 1400)
}

// fallback runs one simplified pass over the head of the original text
func (m *ChainManager) fallback(ctx context.Context, name string, chunks []string) (map[string]interface{}, error) {
	text := utils.Truncate(strings.Join(chunks, "\n"), fallbackContentChars)
	prompt := fmt.Sprintf(simplifiedPromptTemplate, name, text)
	out, err := m.callJSON(ctx, prompt, 1400)
	if err != nil {
		return nil, fmt.Errorf("fallback extraction: %w", err)
	}
	return out, nil
}

func (m *ChainManager) callJSON(ctx context.Context, prompt string, maxTokens int) (map[string]interface{}, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, inTok, outTok, err := m.llm.GenerateWithTokens(callCtx, prompt, m.model, map[string]interface{}{
		"temperature": 0.0,
		"max_tokens":  maxTokens,
	})
	if m.telemetry != nil {
		cost := m.llm.CalculateCost(inTok, outTok, m.model)
		m.telemetry.RecordLLMCall(m.model, inTok, outTok, cost, err)
	}
	if err != nil {
		return nil, err
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(utils.ExtractFirstJSON(out)), &parsed); err != nil {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}
	return parsed, nil
}
