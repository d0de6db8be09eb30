package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/agent"
	"github.com/Assassin199108/pokemon-agent-backend/internal/corpus"
	"github.com/Assassin199108/pokemon-agent-backend/internal/extract"
	"github.com/Assassin199108/pokemon-agent-backend/internal/mcp"
	"github.com/Assassin199108/pokemon-agent-backend/internal/scraper"
	"github.com/Assassin199108/pokemon-agent-backend/internal/store"
	"github.com/Assassin199108/pokemon-agent-backend/internal/telemetry"
	"github.com/Assassin199108/pokemon-agent-backend/internal/webcache"
	"github.com/Assassin199108/pokemon-agent-backend/provider"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_fetch"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search"
)

// Run wires every component from config and serves the HTTP API until the
// listener fails. addr overrides server.address when non-empty.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	ctx := context.Background()

	tele := telemetry.New(cfg.Telemetry)
	defer tele.Shutdown()

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(tele.Handler()))
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"service": "pokemon-agent-backend",
			"endpoints": []string{
				"POST /api/v1/pokemon/info",
				"POST /api/v1/pokemon/react-info",
				"GET /api/v1/pokemon/:name/history",
				"GET /api/v1/cache/stats",
				"DELETE /api/v1/cache",
				"GET /api/v1/stats",
			},
		})
	})

	var cacheStore webcache.Store
	if cfg.Cache.Backend == "redis" {
		rdb, err := webcache.Conn(ctx, cfg.Storage.Redis)
		if err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		cacheStore = webcache.NewRedisStore(rdb)
	} else {
		cacheStore = webcache.NewMemoryStore(cfg.Cache.MaxEntries)
	}
	cache := webcache.New(cfg.Cache, cacheStore)

	// Postgres persistence is optional; without it history endpoints 404.
	var st *store.Store
	if cfg.Storage.Postgres.Enabled() {
		if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
			log.Printf("migrate: %v", err)
		}
		var err error
		st, err = store.New(ctx, cfg.Storage.Postgres)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	router := provider.NewRouter(cfg.LLM.Routing)

	searcher, err := web_search.NewWebSearcher(
		web_search.Provider(cfg.Search.Provider), searchAPIKey(cfg.Search))
	if err != nil {
		return err
	}
	fetcher := web_fetch.NewWebFetcher(cfg.Fetch)

	idx, err := corpus.New()
	if err != nil {
		return err
	}

	chains := extract.NewChainManager(llm, router, cfg.Pipeline, tele)
	sc := scraper.New(scraper.Options{
		Config:    cfg,
		Cache:     cache,
		Fetcher:   fetcher,
		Searcher:  searcher,
		Chains:    chains,
		Corpus:    idx,
		Store:     st,
		Telemetry: tele,
	})

	var remote *mcp.Manager
	if len(cfg.ToolHosts) > 0 {
		remote = mcp.NewManager(ctx, cfg.ToolHosts)
		defer remote.Close()
	}
	ag := agent.New(agent.Options{
		LLM:       llm,
		Router:    router,
		Config:    cfg.Agent,
		Search:    cfg.Search,
		Searcher:  searcher,
		Scraper:   sc,
		Corpus:    idx,
		Remote:    remote,
		Telemetry: tele,
	})

	api := e.Group("/api/v1")
	if cfg.Server.JWTSecret != "" {
		api.Use(withAuth([]byte(cfg.Server.JWTSecret)))
	}
	h := &PokemonHandler{Scraper: sc, Agent: ag, Cache: cache, Store: st, Telemetry: tele}
	h.Register(api)

	janitor := &Janitor{Cache: cache, Store: st, CronSpec: cfg.Cache.CleanupCron, Stop: make(chan struct{})}
	janitor.Start()
	defer close(janitor.Stop)

	if addr == "" {
		addr = cfg.Server.Address
		if addr == "" {
			addr = ":8000"
		}
	}
	if addr[0] != ':' && !hasHost(addr) {
		addr = ":" + addr
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

func hasHost(addr string) bool {
	for i := 0; i < len(addr); i++ {
		if addr[i] == ':' {
			return i > 0
		}
	}
	return false
}

func searchAPIKey(cfg config.SearchConfig) string {
	switch web_search.Provider(cfg.Provider) {
	case web_search.SerperProvider:
		return cfg.SerperAPIKey
	case web_search.BraveProvider:
		return cfg.BraveAPIKey
	default:
		return cfg.TavilyAPIKey
	}
}
