package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func testConfig(respectRobots bool) model.EnrichConfig {
	return model.EnrichConfig{
		Enabled:       true,
		Workers:       2,
		UserAgent:     "TrustLens/0.1 (+https://example.com)",
		Timeout:       5 * time.Second,
		MaxBodyBytes:  1 << 20,
		RespectRobots: respectRobots,
	}
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: TrustLens\nDisallow: /private/\n")
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("Expected User-Agent header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><meta name="description" content="Fetched summary"></head></html>`)
	})
	mux.HandleFunc("/private/article", func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected disallowed page not to be fetched")
	})
	mux.HandleFunc("/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestEnrich_FillsOnlyMissingSnippets(t *testing.T) {
	noSleep(t)
	server := newSite(t)

	items := []model.EvidenceItem{
		{URL: server.URL + "/article", Domain: "a.com"},
		{URL: server.URL + "/article?x=1", Domain: "a.com", Snippet: "already here"},
		{URL: server.URL + "/private/article", Domain: "a.com"},
		{URL: server.URL + "/pdf", Domain: "a.com"},
		{URL: server.URL + "/gone", Domain: "a.com"},
	}

	e := New(testConfig(true), nil)
	got, filled := e.Enrich(context.Background(), items)

	if filled != 1 {
		t.Errorf("Expected 1 filled snippet, got %d", filled)
	}
	if got[0].Snippet != "Fetched summary" {
		t.Errorf("Expected fetched snippet, got %q", got[0].Snippet)
	}
	if got[1].Snippet != "already here" {
		t.Errorf("Expected existing snippet kept, got %q", got[1].Snippet)
	}
	for _, i := range []int{2, 3, 4} {
		if got[i].Snippet != "" {
			t.Errorf("item %d: expected empty snippet, got %q", i, got[i].Snippet)
		}
	}
	if items[0].Snippet != "" {
		t.Error("Expected input slice to be left untouched")
	}
}

func TestEnrich_NothingToDo(t *testing.T) {
	e := New(testConfig(false), nil)
	got, filled := e.Enrich(context.Background(), []model.EvidenceItem{{URL: "https://a.com", Snippet: "x"}})
	if filled != 0 || len(got) != 1 {
		t.Errorf("Expected no work, got filled=%d len=%d", filled, len(got))
	}
}

func TestRobotsChecker(t *testing.T) {
	server := newSite(t)
	rc := NewRobotsChecker("TrustLens/0.1", 5*time.Second)
	ctx := context.Background()

	allowed, _, err := rc.CanFetch(ctx, server.URL+"/article")
	if err != nil || !allowed {
		t.Errorf("Expected /article allowed, got %v %v", allowed, err)
	}
	allowed, _, err = rc.CanFetch(ctx, server.URL+"/private/article")
	if err != nil || allowed {
		t.Errorf("Expected /private/article disallowed, got %v %v", allowed, err)
	}
	if _, _, err := rc.CanFetch(ctx, "not a url"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	rc := NewRobotsChecker("TrustLens/0.1", 100*time.Millisecond)
	allowed, _, err := rc.CanFetch(context.Background(), "http://127.0.0.1:1/page")
	if err != nil || !allowed {
		t.Errorf("Expected unreachable robots.txt to allow, got %v %v", allowed, err)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test-agent", 1<<20)
	body, err := f.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if body != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test-agent", 1<<20)
	_, err := f.FetchWithRetry(context.Background(), server.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 StatusError, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 404 not to be retried, got %d attempts", attempts.Load())
	}
}

func TestFetch_LimitsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test-agent", 4)
	body, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if body != "0123" {
		t.Errorf("Expected body cut to 4 bytes, got %q", body)
	}
}
