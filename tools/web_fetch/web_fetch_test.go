package web_fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	domain "github.com/Assassin199108/pokemon-agent-backend/models"
)

func testConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:          5 * time.Second,
		MaxRetries:       2,
		UserAgent:        "test-agent",
		MaxBodyBytes:     1 << 20,
		MinContentLength: 50,
		Mode:             "clean",
	}.Normalize()
}

func TestExecFetchesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("user agent = %q", got)
		}
		_, _ = w.Write([]byte("<html><body><p>pikachu page</p></body></html>"))
	}))
	defer srv.Close()

	f := NewWebFetcher(testConfig())
	res, err := f.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != 200 {
		t.Errorf("status = %d", res.Status)
	}
	if !strings.Contains(res.HTML, "pikachu page") {
		t.Errorf("html missing body: %q", res.HTML)
	}
	if res.HTMLHash == "" {
		t.Error("expected content hash")
	}
}

func TestExecRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer srv.Close()

	f := NewWebFetcher(testConfig())
	res, err := f.Exec(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if !strings.Contains(res.HTML, "recovered") {
		t.Errorf("unexpected body: %q", res.HTML)
	}
}

func TestExecFailsFastOn404(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewWebFetcher(testConfig())
	_, err := f.Exec(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("404 should not retry, got %d attempts", calls.Load())
	}
	if Classify(err) != domain.ErrorTypeHTTPStatus {
		t.Errorf("classified as %s", Classify(err))
	}
}

func TestExecEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewWebFetcher(testConfig())
	_, err := f.Exec(context.Background(), srv.URL)
	if Classify(err) != domain.ErrorTypeEmptyContent {
		t.Fatalf("expected empty_content, got %v", err)
	}
}

func TestExecTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Timeout = 200 * time.Millisecond
	f := NewWebFetcher(cfg)
	_, err := f.Exec(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if Classify(err) != domain.ErrorTypeTimeout {
		t.Fatalf("classified as %s: %v", Classify(err), err)
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != domain.ErrorTypeTimeout {
		t.Errorf("deadline = %s", got)
	}
	if got := Classify(errors.New("connection refused")); got != domain.ErrorTypeNetwork {
		t.Errorf("plain error = %s", got)
	}
	fe := &FetchError{Type: domain.ErrorTypeHTTPStatus, Err: errors.New("status 503")}
	if got := Classify(fe); got != domain.ErrorTypeHTTPStatus {
		t.Errorf("fetch error = %s", got)
	}
}

func TestReadabilityModeEnforcesMinLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>t</title></head><body><article><p>tiny</p></article></body></html>"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Mode = "readability"
	cfg.MinContentLength = 200
	f := NewWebFetcher(cfg)
	_, err := f.Exec(context.Background(), srv.URL)
	if Classify(err) != domain.ErrorTypeInsufficientContent {
		t.Fatalf("expected insufficient_content, got %v", err)
	}
}
