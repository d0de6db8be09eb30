package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/corpus"
	"github.com/Assassin199108/pokemon-agent-backend/internal/scraper"
	"github.com/Assassin199108/pokemon-agent-backend/internal/webcache"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search"
)

// Server exposes this backend's tools to external agents over stdio
type Server struct {
	Scraper  *scraper.Scraper
	Searcher web_search.WebSearcher
	Cache    *webcache.Cache
	Corpus   *corpus.Corpus
	Search   config.SearchConfig

	CallTimeout time.Duration

	tools []ToolDesc
}

func NewServer(sc *scraper.Scraper, searcher web_search.WebSearcher, cache *webcache.Cache, corp *corpus.Corpus, searchCfg config.SearchConfig) *Server {
	srv := &Server{
		Scraper:     sc,
		Searcher:    searcher,
		Cache:       cache,
		Corpus:      corp,
		Search:      searchCfg,
		CallTimeout: 120 * time.Second,
	}
	srv.initTools()
	return srv
}

func (srv *Server) initTools() {
	srv.tools = []ToolDesc{
		{
			Name:        "pokemon.info",
			Description: "Search the web for a pokemon and extract its structured data.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        "web.search",
			Description: "Search the web, ranked toward pokedex domains.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"k":     map[string]any{"type": "integer", "minimum": 1, "maximum": 25},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "web.scrape",
			Description: "Fetch one URL and run the extraction pipeline on it.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url":  map[string]any{"type": "string"},
					"name": map[string]any{"type": "string"},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "corpus.search",
			Description: "BM25 search over the chunks of pages scraped this session.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"q": map[string]any{"type": "string"},
					"k": map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
				},
				"required": []string{"q"},
			},
		},
		{
			Name:        "cache.stats",
			Description: "Hit/miss statistics of the URL result cache.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
}

func (srv *Server) callTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case "pokemon.info":
		return srv.tPokemonInfo(ctx, args)
	case "web.search":
		return srv.tWebSearch(ctx, args)
	case "web.scrape":
		return srv.tWebScrape(ctx, args)
	case "corpus.search":
		return srv.tCorpusSearch(ctx, args)
	case "cache.stats":
		return srv.tCacheStats(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (srv *Server) tPokemonInfo(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := str(args["name"])
	if name == "" {
		return nil, errors.New("name is required")
	}
	out := srv.Scraper.ScrapeByName(ctx, name)
	return outcomeMap(out)
}

func (srv *Server) tWebSearch(ctx context.Context, args map[string]any) (map[string]any, error) {
	q := str(args["query"])
	if q == "" {
		return nil, errors.New("query is required")
	}
	k := clampInt(asInt(args["k"]), 1, 25)
	results, err := srv.Searcher.Discover(ctx, q, k)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]any{"title": r.Title, "url": r.URL, "snippet": r.Snippet})
	}
	return map[string]any{
		"results":  out,
		"best_url": web_search.SelectBestURL(results, srv.Search.PriorityDomains),
	}, nil
}

func (srv *Server) tWebScrape(ctx context.Context, args map[string]any) (map[string]any, error) {
	url := str(args["url"])
	if url == "" {
		return nil, errors.New("url is required")
	}
	name := str(args["name"])
	out := srv.Scraper.ScrapeURL(ctx, name, url)
	return outcomeMap(out)
}

func (srv *Server) tCorpusSearch(_ context.Context, args map[string]any) (map[string]any, error) {
	q := str(args["q"])
	if q == "" {
		return nil, errors.New("q is required")
	}
	k := asInt(args["k"])
	if k < 1 || k > 50 {
		k = 5
	}
	hits, err := srv.Corpus.Search(q, k)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		out = append(out, map[string]any{
			"doc_id":  h.DocID,
			"title":   h.Title,
			"url":     h.URL,
			"snippet": h.Snippet,
			"score":   h.Score,
		})
	}
	return map[string]any{"hits": out}, nil
}

func (srv *Server) tCacheStats(ctx context.Context, _ map[string]any) (map[string]any, error) {
	stats := srv.Cache.Stats(ctx)
	return map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"total":    stats.Total,
		"hit_rate": stats.HitRate,
		"size":     stats.Size,
	}, nil
}

func outcomeMap(out scraper.Outcome) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(out.JSON()), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Serve runs the stdio JSON-RPC loop until EOF
func (srv *Server) Serve(in io.Reader, out io.Writer) error {
	rd := bufio.NewReader(in)
	dec := json.NewDecoder(rd)
	for {
		var req rpcReq
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}

		switch req.Method {
		case "tools/list":
			writeResp(out, req.ID, map[string]any{"tools": srv.tools}, nil)

		case "tools/call":
			name := ""
			args := map[string]any{}
			if v, ok := req.Params["name"].(string); ok {
				name = v
			}
			if m, ok := req.Params["arguments"].(map[string]any); ok {
				args = m
			}
			ctx, cancel := context.WithTimeout(context.Background(), srv.CallTimeout)
			res, err := srv.callTool(ctx, name, args)
			cancel()
			writeResp(out, req.ID, res, err)

		default:
			writeResp(out, req.ID, nil, fmt.Errorf("unknown method: %s", req.Method))
		}
	}
}
