package web_search

import (
	"testing"

	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search/models"
)

var priority = []string{"wiki.52poke.com", "serebii.net", "bulbapedia.bulbagarden.net"}

func TestSelectBestURLPriorityOrder(t *testing.T) {
	results := []models.Result{
		{Title: "serebii", URL: "https://www.serebii.net/pokedex/025.shtml"},
		{Title: "52poke", URL: "https://wiki.52poke.com/wiki/皮卡丘"},
		{Title: "random", URL: "https://example.com/pikachu"},
	}
	got := SelectBestURL(results, priority)
	if got != "https://wiki.52poke.com/wiki/皮卡丘" {
		t.Fatalf("expected first priority domain to win, got %s", got)
	}
}

func TestSelectBestURLSubdomainAndWWW(t *testing.T) {
	results := []models.Result{
		{URL: "https://www.serebii.net/pokedex/025.shtml"},
	}
	if got := SelectBestURL(results, priority); got != results[0].URL {
		t.Fatalf("www prefix should still match, got %s", got)
	}

	results = []models.Result{
		{URL: "https://archives.bulbagarden.net/x"},
		{URL: "https://bmgf.bulbapedia.bulbagarden.net/pikachu"},
	}
	if got := SelectBestURL(results, priority); got != results[1].URL {
		t.Fatalf("subdomain of priority domain should match, got %s", got)
	}
}

func TestSelectBestURLFallsBackToFirst(t *testing.T) {
	results := []models.Result{
		{URL: "https://example.com/a"},
		{URL: "https://example.org/b"},
	}
	if got := SelectBestURL(results, priority); got != "https://example.com/a" {
		t.Fatalf("expected first result fallback, got %s", got)
	}
	if got := SelectBestURL(nil, priority); got != "" {
		t.Fatalf("expected empty string for no results, got %s", got)
	}
}

func TestNewWebSearcher(t *testing.T) {
	for _, p := range []Provider{TavilyProvider, SerperProvider, BraveProvider} {
		if _, err := NewWebSearcher(p, "key"); err != nil {
			t.Errorf("provider %s: %v", p, err)
		}
	}
	if _, err := NewWebSearcher("duckduckgo", "key"); err != ErrUnsupportedProvider {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
}
