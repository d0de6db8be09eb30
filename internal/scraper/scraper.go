package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/corpus"
	"github.com/Assassin199108/pokemon-agent-backend/internal/extract"
	"github.com/Assassin199108/pokemon-agent-backend/internal/htmlclean"
	"github.com/Assassin199108/pokemon-agent-backend/internal/store"
	"github.com/Assassin199108/pokemon-agent-backend/internal/telemetry"
	"github.com/Assassin199108/pokemon-agent-backend/internal/textsplit"
	"github.com/Assassin199108/pokemon-agent-backend/internal/webcache"
	"github.com/Assassin199108/pokemon-agent-backend/models"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_fetch"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search"
)

// searchQueryTemplate biases results toward Chinese pokedex wikis, which
// carry the most complete per-pokemon pages.
const searchQueryTemplate = "%s 宝可梦 图鉴 神奇宝贝百科"

// Outcome is the cached JSON envelope of one pipeline run
type Outcome struct {
	Result *models.ExtractionResult
	Error  *models.ErrorResponse
	Cached bool
}

func (o Outcome) Success() bool { return o.Result != nil && o.Result.Success }

// JSON renders the envelope exactly as it is cached and served
func (o Outcome) JSON() string {
	var v interface{}
	if o.Result != nil {
		v = o.Result
	} else {
		v = o.Error
	}
	b, err := json.Marshal(v)
	if err != nil {
		return `{"success":false,"error":"marshal failure","error_type":"extraction"}`
	}
	return string(b)
}

// Scraper composes search, fetch, clean, split, extract, validate and cache
// into the direct pipeline mode.
type Scraper struct {
	cfg       *config.Config
	cache     *webcache.Cache
	fetcher   web_fetch.WebFetcher
	searcher  web_search.WebSearcher
	chains    *extract.ChainManager
	corpus    *corpus.Corpus
	store     *store.Store // nil when persistence is not configured
	telemetry *telemetry.Telemetry
	stats     *extract.Statistics
	logger    *log.Logger
}

type Options struct {
	Config    *config.Config
	Cache     *webcache.Cache
	Fetcher   web_fetch.WebFetcher
	Searcher  web_search.WebSearcher
	Chains    *extract.ChainManager
	Corpus    *corpus.Corpus
	Store     *store.Store
	Telemetry *telemetry.Telemetry
}

func New(opts Options) *Scraper {
	return &Scraper{
		cfg:       opts.Config,
		cache:     opts.Cache,
		fetcher:   opts.Fetcher,
		searcher:  opts.Searcher,
		chains:    opts.Chains,
		corpus:    opts.Corpus,
		store:     opts.Store,
		telemetry: opts.Telemetry,
		stats:     extract.NewStatistics(),
		logger:    log.New(log.Writer(), "[SCRAPER] ", log.LstdFlags),
	}
}

// Stats returns the in-process extraction statistics
func (s *Scraper) Stats() models.ExtractionStats { return s.stats.Snapshot() }

// ScrapeByName searches for the pokemon's page, picks the best URL, and
// runs the pipeline on it.
func (s *Scraper) ScrapeByName(ctx context.Context, name string) Outcome {
	query := fmt.Sprintf(searchQueryTemplate, name)
	results, err := s.searcher.Discover(ctx, query, s.cfg.Search.MaxResults)
	if err != nil {
		return s.failure(models.ErrorTypeSearch, "", err)
	}
	if len(results) == 0 {
		return s.failure(models.ErrorTypeSearch, "", fmt.Errorf("no results for %q", name))
	}
	url := web_search.SelectBestURL(results, s.cfg.Search.PriorityDomains)
	s.logger.Printf("selected %s for %q from %d results", url, name, len(results))
	return s.ScrapeURL(ctx, name, url)
}

// ScrapeURL runs the full pipeline for one URL. Both success and failure
// envelopes are cached so repeated lookups stay cheap.
func (s *Scraper) ScrapeURL(ctx context.Context, name, url string) Outcome {
	t0 := time.Now()

	if payload, ok := s.cache.Get(ctx, url); ok {
		s.telemetry.RecordCacheHit(true)
		if out, err := decodeOutcome(payload); err == nil {
			out.Cached = true
			if out.Result != nil {
				out.Result.Cached = true
			}
			return out
		}
		s.logger.Printf("discarding undecodable cache entry for %s", url)
	}
	s.telemetry.RecordCacheHit(false)

	fetched, err := s.fetcher.Exec(ctx, url)
	if err != nil {
		return s.cacheFailure(ctx, url, web_fetch.Classify(err), err, t0)
	}

	title := fetched.Title
	text := fetched.Text
	if text == "" {
		doc, err := htmlclean.Clean(fetched.HTML, url)
		if err != nil {
			return s.cacheFailure(ctx, url, models.ErrorTypeEmptyContent, err, t0)
		}
		if score, recs := doc.Quality(); score < 50 {
			s.logger.Printf("low page quality %d for %s: %v", score, url, recs)
		}
		title = doc.Title
		text = doc.Text
	}

	if len(text) < s.cfg.Fetch.MinContentLength {
		return s.cacheFailure(ctx, url, models.ErrorTypeInsufficientContent,
			fmt.Errorf("cleaned text %d chars, need %d", len(text), s.cfg.Fetch.MinContentLength), t0)
	}
	if err := textsplit.ValidateContent(text); err != nil {
		errType := models.ErrorTypeValidation
		if errors.Is(err, textsplit.ErrEmptyContent) || errors.Is(err, textsplit.ErrContentShort) {
			errType = models.ErrorTypeInsufficientContent
		}
		return s.cacheFailure(ctx, url, errType, err, t0)
	}

	chunkSize, chunkOverlap := s.cfg.Pipeline.ChunkSize, s.cfg.Pipeline.ChunkOverlap
	if s.cfg.Pipeline.AutoChunking {
		chunkSize, chunkOverlap = textsplit.AutoParams(len([]rune(text)))
	}
	chunks := textsplit.New(chunkSize, chunkOverlap).Split(text)
	info := textsplit.Info(chunks)
	s.logger.Printf("split %s into %d chunks (avg %d chars)", url, info.Count, info.Avg)

	raw, err := s.chains.ExtractFromChunks(ctx, name, chunks)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return s.cacheFailure(ctx, url, models.ErrorTypeTimeout, err, t0)
		}
		return s.cacheFailure(ctx, url, models.ErrorTypeExtraction, err, t0)
	}
	if err := extract.ValidateStructure(raw); err != nil {
		return s.cacheFailure(ctx, url, models.ErrorTypeValidation, err, t0)
	}

	quality, issues := extract.Quality(raw)
	if quality < s.cfg.Pipeline.MinQuality {
		return s.cacheFailure(ctx, url, models.ErrorTypeValidation,
			fmt.Errorf("quality %.2f below threshold %.2f: %v", quality, s.cfg.Pipeline.MinQuality, issues), t0)
	}

	data := extract.Standardize(raw)
	result := &models.ExtractionResult{
		ID:            uuid.NewString(),
		Success:       true,
		URL:           url,
		Data:          data,
		QualityScore:  quality,
		QualityIssues: issues,
		CreatedAt:     time.Now().UTC(),
	}

	if s.corpus != nil {
		if _, err := s.corpus.Add(url, title, chunks); err != nil {
			s.logger.Printf("corpus index failed for %s: %v", url, err)
		}
	}
	if s.store != nil {
		rec := store.ExtractionRecord{
			ID:           result.ID,
			Name:         data.BasicInfo.Name,
			SourceURL:    url,
			Data:         data,
			QualityScore: quality,
		}
		if rec.Name == "" || rec.Name == "N/A" {
			rec.Name = name
		}
		if _, err := s.store.SaveExtraction(ctx, rec); err != nil {
			s.logger.Printf("persist failed for %s: %v", url, err)
		}
	}

	out := Outcome{Result: result}
	if err := s.cache.Set(ctx, url, out.JSON()); err != nil {
		s.logger.Printf("cache set failed for %s: %v", url, err)
	}
	s.stats.Record(true, quality)
	s.telemetry.RecordExtraction(true, quality, time.Since(t0))
	return out
}

func (s *Scraper) failure(errType, url string, err error) Outcome {
	resp := models.NewErrorResponse(errType, url, err)
	return Outcome{Error: &resp}
}

func (s *Scraper) cacheFailure(ctx context.Context, url, errType string, cause error, t0 time.Time) Outcome {
	out := s.failure(errType, url, cause)
	if err := s.cache.Set(ctx, url, out.JSON()); err != nil {
		s.logger.Printf("cache set failed for %s: %v", url, err)
	}
	s.stats.Record(false, 0)
	s.telemetry.RecordExtraction(false, 0, time.Since(t0))
	s.logger.Printf("pipeline failed for %s: %s: %v", url, errType, cause)
	return out
}

func decodeOutcome(payload string) (Outcome, error) {
	var probe struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return Outcome{}, err
	}
	if probe.Success {
		var res models.ExtractionResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: &res}, nil
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return Outcome{}, err
	}
	return Outcome{Error: &resp}, nil
}
