package models

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotCached is returned when a URL has no live cache entry
var ErrNotCached = errors.New("result not cached")

// ErrExtractionNotFound is returned when no persisted extraction matches
var ErrExtractionNotFound = errors.New("extraction not found")

// Error taxonomy values carried on ErrorResponse.ErrorType
const (
	ErrorTypeTimeout             = "timeout"
	ErrorTypeNetwork             = "network"
	ErrorTypeHTTPStatus          = "http_status"
	ErrorTypeEmptyContent        = "empty_content"
	ErrorTypeInsufficientContent = "insufficient_content"
	ErrorTypeValidation          = "validation"
	ErrorTypeExtraction          = "extraction"
	ErrorTypeSearch              = "search"
	ErrorTypeAgent               = "agent"
)

// PokemonData is the structured record produced by extraction. All fields
// are strings after standardization, with "N/A" for anything missing.
type PokemonData struct {
	BasicInfo      BasicInfo         `json:"basic_info"`
	Types          []string          `json:"types"`
	Abilities      []string          `json:"abilities"`
	BaseStats      map[string]string `json:"base_stats"`
	EvolutionChain string            `json:"evolution_chain"`
	GameInfo       GameInfo          `json:"game_info"`
}

type BasicInfo struct {
	Name      string `json:"name"`
	DexNumber string `json:"dex_number"`
	Height    string `json:"height"`
	Weight    string `json:"weight"`
	Category  string `json:"category"`
}

type GameInfo struct {
	Generation   string `json:"generation"`
	VersionDebut string `json:"version_debut"`
}

// BaseStatNames are the six stats a complete record carries
var BaseStatNames = []string{"hp", "attack", "defense", "special_attack", "special_defense", "speed"}

// ExtractionResult is the success envelope returned by the pipeline
type ExtractionResult struct {
	ID            string       `json:"id,omitempty"`
	Success       bool         `json:"success"`
	URL           string       `json:"url"`
	Data          *PokemonData `json:"data,omitempty"`
	QualityScore  float64      `json:"quality_score"`
	QualityIssues []string     `json:"quality_issues,omitempty"`
	Message       string       `json:"message,omitempty"`
	Cached        bool         `json:"cached"`
	CreatedAt     time.Time    `json:"created_at,omitempty"`
}

// ErrorResponse is the failure envelope. ErrorType takes one of the
// taxonomy constants so callers can branch on it.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	URL        string `json:"url,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	ErrorType  string `json:"error_type"`
}

// SuggestionFor maps a taxonomy value to user guidance
func SuggestionFor(errorType string) string {
	switch errorType {
	case ErrorTypeTimeout:
		return "the page took too long to respond, retry later or try another source"
	case ErrorTypeNetwork:
		return "check network connectivity and that the URL is reachable"
	case ErrorTypeHTTPStatus:
		return "the server rejected the request, the page may be gone or rate limited"
	case ErrorTypeEmptyContent:
		return "the page returned no usable text, try a different source"
	case ErrorTypeInsufficientContent:
		return "the page content is too short to extract from, try a more detailed page"
	case ErrorTypeValidation:
		return "extracted data failed validation, the source page may not describe a pokemon"
	case ErrorTypeExtraction:
		return "the model could not produce structured data, retry or try another source"
	case ErrorTypeSearch:
		return "no search results were found, re-check the pokemon name"
	case ErrorTypeAgent:
		return "the agent ran out of budget before reaching an answer"
	default:
		return ""
	}
}

// NewErrorResponse builds the failure envelope with its suggestion filled in
func NewErrorResponse(errorType, url string, err error) ErrorResponse {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ErrorResponse{
		Success:    false,
		Error:      msg,
		URL:        url,
		Suggestion: SuggestionFor(errorType),
		ErrorType:  errorType,
	}
}

// KeyInfo is the compact summary derived from a standardized record
type KeyInfo struct {
	Name          string   `json:"name"`
	DexNumber     string   `json:"dex_number"`
	Types         []string `json:"types"`
	BaseStatTotal int      `json:"base_stat_total"`
	AbilityCount  int      `json:"ability_count"`
}

// ExtractionStats aggregates persisted extraction outcomes
type ExtractionStats struct {
	Total      int     `json:"total"`
	Successful int     `json:"successful"`
	AvgQuality float64 `json:"avg_quality"`
	MinQuality float64 `json:"min_quality"`
	MaxQuality float64 `json:"max_quality"`
}

// CacheStats reports per-process cache behaviour
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
}

// SearchResult is one hit from a web search provider
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// MarshalPayload renders any envelope to the JSON stored in the cache
func MarshalPayload(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
