package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/corpus"
	"github.com/Assassin199108/pokemon-agent-backend/internal/extract"
	"github.com/Assassin199108/pokemon-agent-backend/internal/telemetry"
	"github.com/Assassin199108/pokemon-agent-backend/internal/webcache"
	"github.com/Assassin199108/pokemon-agent-backend/models"
	"github.com/Assassin199108/pokemon-agent-backend/provider"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_fetch"
	searchmodels "github.com/Assassin199108/pokemon-agent-backend/tools/web_search/models"
)

const pikachuPage = `<html>
<head><title>皮卡丘 - 宝可梦图鉴</title></head>
<body>
<h1>皮卡丘</h1>
<p>皮卡丘是电属性宝可梦，全国图鉴编号025，身高0.4米，体重6.0千克，分类为鼠宝可梦。</p>
<p>皮卡丘的特性是静电，隐藏特性是避雷针。它的种族值为HP35、攻击55、防御40、特攻50、特防50、速度90。</p>
<p>皮丘通过亲密度进化为皮卡丘，皮卡丘使用雷之石进化为雷丘。皮卡丘初次登场于第一世代的红绿版本。</p>
</body>
</html>`

const fullReply = `{
  "basic_info": {"name": "皮卡丘", "dex_number": "025", "height": "0.4m", "weight": "6.0kg", "category": "鼠宝可梦"},
  "types": ["电"],
  "abilities": ["静电", "避雷针"],
  "base_stats": {"hp": "35", "attack": "55", "defense": "40", "special_attack": "50", "special_defense": "50", "speed": "90"},
  "evolution_chain": "皮丘 → 皮卡丘 → 雷丘",
  "game_info": {"generation": "第一世代", "version_debut": "红/绿"}
}`

type scriptedLLM struct {
	reply string
	err   error
	calls int
}

func (f *scriptedLLM) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	out, _, _, err := f.GenerateWithTokens(ctx, prompt, model, options)
	return out, err
}

func (f *scriptedLLM) GenerateWithTokens(ctx context.Context, prompt, model string, options map[string]interface{}) (string, int64, int64, error) {
	f.calls++
	if f.err != nil {
		return "", 0, 0, f.err
	}
	return f.reply, 10, 20, nil
}

func (f *scriptedLLM) CalculateCost(inputTokens, outputTokens int64, model string) float64 { return 0 }
func (f *scriptedLLM) GetAvailableModels() []string                                       { return []string{"test-model"} }

type staticSearcher struct {
	results []searchmodels.Result
	err     error
}

func (s staticSearcher) Discover(ctx context.Context, q string, k int) ([]searchmodels.Result, error) {
	return s.results, s.err
}

func newTestScraper(t *testing.T, llm provider.LLMProvider, searcher staticSearcher) *Scraper {
	t.Helper()
	cfg := &config.Config{}
	cfg.Search = cfg.Search.Normalize()
	cfg.Fetch = cfg.Fetch.Normalize()
	cfg.Fetch.Timeout = 5 * time.Second
	cfg.Fetch.MaxRetries = 0
	cfg.Pipeline = cfg.Pipeline.Normalize()
	cfg.Pipeline.AutoChunking = false
	cfg.Cache = cfg.Cache.Normalize()

	idx, err := corpus.New()
	if err != nil {
		t.Fatal(err)
	}
	router := provider.NewRouter(config.LLMRoutingConfig{Extraction: "test-model"})
	tele := telemetry.New(config.TelemetryConfig{})
	return New(Options{
		Config:    cfg,
		Cache:     webcache.New(cfg.Cache, webcache.NewMemoryStore(cfg.Cache.MaxEntries)),
		Fetcher:   web_fetch.NewWebFetcher(cfg.Fetch),
		Searcher:  searcher,
		Chains:    extract.NewChainManager(llm, router, cfg.Pipeline, tele),
		Corpus:    idx,
		Telemetry: tele,
	})
}

func TestScrapeURLSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pikachuPage))
	}))
	defer srv.Close()

	llm := &scriptedLLM{reply: fullReply}
	s := newTestScraper(t, llm, staticSearcher{})

	out := s.ScrapeURL(context.Background(), "皮卡丘", srv.URL)
	if !out.Success() {
		t.Fatalf("expected success, got %s", out.JSON())
	}
	if out.Result.Data.BasicInfo.Name != "皮卡丘" {
		t.Errorf("name = %q", out.Result.Data.BasicInfo.Name)
	}
	if out.Result.QualityScore != 1.0 {
		t.Errorf("quality = %v", out.Result.QualityScore)
	}
	if out.Result.Cached {
		t.Error("first run should not be marked cached")
	}

	stats := s.Stats()
	if stats.Total != 1 || stats.Successful != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestScrapeURLServesFromCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(pikachuPage))
	}))
	defer srv.Close()

	llm := &scriptedLLM{reply: fullReply}
	s := newTestScraper(t, llm, staticSearcher{})

	first := s.ScrapeURL(context.Background(), "皮卡丘", srv.URL)
	if !first.Success() {
		t.Fatalf("first run failed: %s", first.JSON())
	}
	llmCalls := llm.calls

	second := s.ScrapeURL(context.Background(), "皮卡丘", srv.URL)
	if !second.Success() {
		t.Fatalf("second run failed: %s", second.JSON())
	}
	if !second.Cached || !second.Result.Cached {
		t.Error("second run should be served from cache")
	}
	if hits != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", hits)
	}
	if llm.calls != llmCalls {
		t.Error("cached run should not call the LLM")
	}
}

func TestScrapeURLCachesFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestScraper(t, &scriptedLLM{reply: fullReply}, staticSearcher{})

	first := s.ScrapeURL(context.Background(), "皮卡丘", srv.URL)
	if first.Success() {
		t.Fatal("expected failure")
	}
	if first.Error.ErrorType != models.ErrorTypeHTTPStatus {
		t.Errorf("error type = %s", first.Error.ErrorType)
	}
	if first.Error.Suggestion == "" {
		t.Error("failure should carry a suggestion")
	}

	second := s.ScrapeURL(context.Background(), "皮卡丘", srv.URL)
	if second.Success() || !second.Cached {
		t.Error("failure envelope should be served from cache")
	}
	if hits != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", hits)
	}
}

func TestScrapeURLRejectsThinPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>太短</p></body></html>"))
	}))
	defer srv.Close()

	s := newTestScraper(t, &scriptedLLM{reply: fullReply}, staticSearcher{})
	out := s.ScrapeURL(context.Background(), "皮卡丘", srv.URL)
	if out.Success() {
		t.Fatal("expected failure for thin page")
	}
	if out.Error.ErrorType != models.ErrorTypeInsufficientContent {
		t.Errorf("error type = %s", out.Error.ErrorType)
	}
}

func TestScrapeURLRejectsLowQualityRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pikachuPage))
	}))
	defer srv.Close()

	llm := &scriptedLLM{reply: `{"types": ["电"]}`}
	s := newTestScraper(t, llm, staticSearcher{})
	out := s.ScrapeURL(context.Background(), "皮卡丘", srv.URL)
	if out.Success() {
		t.Fatal("expected quality rejection")
	}
	if out.Error.ErrorType != models.ErrorTypeValidation {
		t.Errorf("error type = %s", out.Error.ErrorType)
	}
}

func TestScrapeByNamePicksPriorityDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pikachuPage))
	}))
	defer srv.Close()

	s := newTestScraper(t, &scriptedLLM{reply: fullReply}, staticSearcher{results: []searchmodels.Result{
		{Title: "hit", URL: srv.URL + "/wiki/皮卡丘"},
	}})
	out := s.ScrapeByName(context.Background(), "皮卡丘")
	if !out.Success() {
		t.Fatalf("expected success, got %s", out.JSON())
	}
	if out.Result.URL != srv.URL+"/wiki/皮卡丘" {
		t.Errorf("url = %s", out.Result.URL)
	}
}

func TestScrapeByNameSearchFailure(t *testing.T) {
	s := newTestScraper(t, &scriptedLLM{reply: fullReply},
		staticSearcher{err: errors.New("provider down")})
	out := s.ScrapeByName(context.Background(), "皮卡丘")
	if out.Success() {
		t.Fatal("expected failure")
	}
	if out.Error.ErrorType != models.ErrorTypeSearch {
		t.Errorf("error type = %s", out.Error.ErrorType)
	}
	if !strings.Contains(out.Error.Error, "provider down") {
		t.Errorf("error message lost: %q", out.Error.Error)
	}
}
