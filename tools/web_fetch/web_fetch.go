package web_fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	domain "github.com/Assassin199108/pokemon-agent-backend/models"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_fetch/models"
)

// FetchError carries the taxonomy value for a failed fetch
type FetchError struct {
	Type string
	Err  error
}

func (e *FetchError) Error() string { return fmt.Sprintf("%s: %v", e.Type, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// Classify returns the taxonomy value for any fetch-related error
func Classify(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Type
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return domain.ErrorTypeTimeout
	}
	return domain.ErrorTypeNetwork
}

// WebFetcher retrieves a single page. Discovery and crawling are out of
// scope; one URL in, one document out.
type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type Fetcher struct {
	cfg    config.FetchConfig
	client *http.Client
}

func NewWebFetcher(cfg config.FetchConfig) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (f *Fetcher) Exec(ctx context.Context, rawURL string) (models.Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return models.Result{}, &FetchError{Type: domain.ErrorTypeNetwork, Err: errors.New("invalid url")}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()
	t0 := time.Now()

	html, status, err := f.fetchHTML(ctx, rawURL)
	if err != nil {
		return models.Result{URL: rawURL, Status: status, FetchMS: int(time.Since(t0) / time.Millisecond)}, err
	}
	if strings.TrimSpace(html) == "" {
		return models.Result{URL: rawURL, Status: status, FetchMS: int(time.Since(t0) / time.Millisecond)},
			&FetchError{Type: domain.ErrorTypeEmptyContent, Err: errors.New("empty response body")}
	}

	sum := sha1.Sum([]byte(html))
	result := models.Result{
		URL:      rawURL,
		HTML:     html,
		HTMLHash: hex.EncodeToString(sum[:]),
		Status:   status,
		FetchMS:  int(time.Since(t0) / time.Millisecond),
	}

	if f.cfg.Mode == "readability" {
		article, err := readability.FromReader(strings.NewReader(html), mustParseURL(rawURL))
		if err != nil {
			return result, &FetchError{Type: domain.ErrorTypeEmptyContent, Err: fmt.Errorf("readability: %w", err)}
		}
		result.Title = strings.TrimSpace(article.Title)
		result.Text = strings.TrimSpace(article.TextContent)
		if len(result.Text) < f.cfg.MinContentLength {
			return result, &FetchError{
				Type: domain.ErrorTypeInsufficientContent,
				Err:  fmt.Errorf("article text %d chars, need %d", len(result.Text), f.cfg.MinContentLength),
			}
		}
	}

	return result, nil
}

func (f *Fetcher) fetchHTML(ctx context.Context, rawURL string) (string, int, error) {
	var lastErr error
	lastStatus := 0
	tries := f.cfg.MaxRetries + 1
	for attempt := 0; attempt < tries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
		if err != nil {
			return "", 0, &FetchError{Type: domain.ErrorTypeNetwork, Err: err}
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", 0, &FetchError{Type: domain.ErrorTypeTimeout, Err: ctx.Err()}
			}
			lastErr = &FetchError{Type: Classify(err), Err: err}
		} else {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
			resp.Body.Close()
			lastStatus = resp.StatusCode
			switch {
			case readErr != nil:
				lastErr = &FetchError{Type: domain.ErrorTypeNetwork, Err: readErr}
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return string(body), resp.StatusCode, nil
			case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
				lastErr = &FetchError{Type: domain.ErrorTypeHTTPStatus, Err: fmt.Errorf("status %d", resp.StatusCode)}
			default:
				// 4xx other than 429 will not improve on retry
				return "", resp.StatusCode, &FetchError{Type: domain.ErrorTypeHTTPStatus, Err: fmt.Errorf("status %d", resp.StatusCode)}
			}
		}

		if attempt < tries-1 {
			select {
			case <-time.After(300 * time.Millisecond * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return "", lastStatus, &FetchError{Type: domain.ErrorTypeTimeout, Err: ctx.Err()}
			}
		}
	}
	return "", lastStatus, lastErr
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
