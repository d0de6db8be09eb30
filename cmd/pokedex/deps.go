package main

import (
	"context"
	"fmt"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/corpus"
	"github.com/Assassin199108/pokemon-agent-backend/internal/extract"
	"github.com/Assassin199108/pokemon-agent-backend/internal/scraper"
	"github.com/Assassin199108/pokemon-agent-backend/internal/store"
	"github.com/Assassin199108/pokemon-agent-backend/internal/telemetry"
	"github.com/Assassin199108/pokemon-agent-backend/internal/webcache"
	"github.com/Assassin199108/pokemon-agent-backend/provider"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_fetch"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search"
)

// pipeline bundles the dependencies shared by the one-shot and stdio
// tool-server commands. The HTTP server wires its own copy.
type pipeline struct {
	scraper   *scraper.Scraper
	searcher  web_search.WebSearcher
	cache     *webcache.Cache
	corpus    *corpus.Corpus
	llm       provider.LLMProvider
	router    provider.Router
	telemetry *telemetry.Telemetry
	store     *store.Store

	closers []func()
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	p := &pipeline{}

	p.telemetry = telemetry.New(cfg.Telemetry)
	p.closers = append(p.closers, p.telemetry.Shutdown)

	var cacheStore webcache.Store
	if cfg.Cache.Backend == "redis" {
		rdb, err := webcache.Conn(ctx, cfg.Storage.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		p.closers = append(p.closers, func() { _ = rdb.Close() })
		cacheStore = webcache.NewRedisStore(rdb)
	} else {
		cacheStore = webcache.NewMemoryStore(cfg.Cache.MaxEntries)
	}
	p.cache = webcache.New(cfg.Cache, cacheStore)

	if cfg.Storage.Postgres.Enabled() {
		st, err := store.New(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() { _ = st.Close() })
		p.store = st
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}
	p.llm = llm
	p.router = provider.NewRouter(cfg.LLM.Routing)

	apiKey := cfg.Search.TavilyAPIKey
	switch web_search.Provider(cfg.Search.Provider) {
	case web_search.SerperProvider:
		apiKey = cfg.Search.SerperAPIKey
	case web_search.BraveProvider:
		apiKey = cfg.Search.BraveAPIKey
	}
	p.searcher, err = web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), apiKey)
	if err != nil {
		return nil, err
	}

	p.corpus, err = corpus.New()
	if err != nil {
		return nil, err
	}

	p.scraper = scraper.New(scraper.Options{
		Config:    cfg,
		Cache:     p.cache,
		Fetcher:   web_fetch.NewWebFetcher(cfg.Fetch),
		Searcher:  p.searcher,
		Chains:    extract.NewChainManager(llm, p.router, cfg.Pipeline, p.telemetry),
		Corpus:    p.corpus,
		Store:     p.store,
		Telemetry: p.telemetry,
	})
	return p, nil
}
