package web_search

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search/brave"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search/models"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search/serper"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search/tavily"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case TavilyProvider:
		return tavily.Search{ApiKey: apiKey}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// SelectBestURL picks the result whose host matches the earliest priority
// domain. Falls back to the first result when nothing matches.
func SelectBestURL(results []models.Result, priorityDomains []string) string {
	if len(results) == 0 {
		return ""
	}
	for _, domain := range priorityDomains {
		for _, r := range results {
			u, err := url.Parse(r.URL)
			if err != nil {
				continue
			}
			host := strings.TrimPrefix(u.Hostname(), "www.")
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return r.URL
			}
		}
	}
	return results[0].URL
}
