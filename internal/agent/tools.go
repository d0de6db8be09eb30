package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/corpus"
	"github.com/Assassin199108/pokemon-agent-backend/internal/mcp"
	"github.com/Assassin199108/pokemon-agent-backend/internal/scraper"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search"
)

// Tool is one action the reasoning loop can take. Call returns the
// observation as a JSON string fed back into the next prompt.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, args map[string]interface{}) (string, error)
}

type searchTool struct {
	searcher web_search.WebSearcher
	cfg      config.SearchConfig
}

func (t *searchTool) Name() string { return "web_search" }
func (t *searchTool) Description() string {
	return `Search the web. Input: {"query": "..."}. Returns result list plus the best pokedex URL.`
}

func (t *searchTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "", errors.New("query is required")
	}
	results, err := t.searcher.Discover(ctx, query, t.cfg.MaxResults)
	if err != nil {
		return "", err
	}
	payload := map[string]interface{}{
		"results":  results,
		"best_url": web_search.SelectBestURL(results, t.cfg.PriorityDomains),
	}
	return marshalObservation(payload)
}

type scrapeTool struct {
	scraper *scraper.Scraper
}

func (t *scrapeTool) Name() string { return "web_content_scraper" }
func (t *scrapeTool) Description() string {
	return `Fetch one URL and extract structured pokemon data from it. Input: {"url": "...", "name": "..."}.`
}

func (t *scrapeTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return "", errors.New("url is required")
	}
	name, _ := args["name"].(string)
	out := t.scraper.ScrapeURL(ctx, name, url)
	return out.JSON(), nil
}

type corpusTool struct {
	corpus *corpus.Corpus
}

func (t *corpusTool) Name() string { return "corpus_search" }
func (t *corpusTool) Description() string {
	return `Search text already scraped this session without refetching. Input: {"q": "...", "k": 5}.`
}

func (t *corpusTool) Call(_ context.Context, args map[string]interface{}) (string, error) {
	q, _ := args["q"].(string)
	if q == "" {
		return "", errors.New("q is required")
	}
	k := 5
	if f, ok := args["k"].(float64); ok && f > 0 {
		k = int(f)
	}
	hits, err := t.corpus.Search(q, k)
	if err != nil {
		return "", err
	}
	return marshalObservation(map[string]interface{}{"hits": hits})
}

// remoteTool proxies a tool advertised by an external tool host
type remoteTool struct {
	manager *mcp.Manager
	host    string
	desc    mcp.ToolDesc
}

func (t *remoteTool) Name() string { return t.host + "." + t.desc.Name }
func (t *remoteTool) Description() string {
	schema, _ := json.Marshal(t.desc.InputSchema)
	return fmt.Sprintf("%s Input schema: %s", t.desc.Description, schema)
}

func (t *remoteTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	result, err := t.manager.Call(ctx, t.host, t.desc.Name, args)
	if err != nil {
		return "", err
	}
	return marshalObservation(result)
}

func marshalObservation(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
