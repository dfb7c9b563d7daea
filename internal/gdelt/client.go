// Package gdelt searches the GDELT DOC 2.0 API for news articles about a claim.
package gdelt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/praveenpuviindran/trustlens/internal/cache"
	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/util"
)

// retrySleepFunc is replaced in tests so retries run instantly
var retrySleepFunc = sleepContext

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const maxResponseBytes = 8 << 20

// StatusError is a non-2xx response from the API
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// retryable reports whether a failed attempt is worth repeating.
// A client timeout is retried; a done caller context never is.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// Client queries the article list endpoint
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRecords int
	maxCap     int
	retries    int
	backoff    time.Duration
	limiter    *rate.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	log        *slog.Logger
}

// NewClient builds a client from config. A nil cache disables caching.
func NewClient(cfg model.GDELTConfig, c cache.Cache, cacheTTL time.Duration, log *slog.Logger) *Client {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy)},
		baseURL:    cfg.BaseURL,
		maxRecords: cfg.MaxRecords,
		maxCap:     cfg.MaxRecordsCap,
		retries:    cfg.Retries,
		backoff:    cfg.Backoff,
		limiter:    rate.NewLimiter(limit, 1),
		cache:      c,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// EffectiveMaxRecords applies the configured default and cap
func (c *Client) EffectiveMaxRecords(n int) int {
	if n <= 0 {
		n = c.maxRecords
	}
	if c.maxCap > 0 && n > c.maxCap {
		n = c.maxCap
	}
	if n <= 0 {
		n = 1
	}
	return n
}

// BuildURL returns the article-list request URL for a query
func BuildURL(baseURL, query string, maxRecords int) string {
	q := url.Values{}
	q.Set("query", query)
	q.Set("mode", "artlist")
	q.Set("format", "json")
	q.Set("maxrecords", strconv.Itoa(maxRecords))
	q.Set("sort", "datedesc")
	return baseURL + "?" + q.Encode()
}

// Search returns up to maxRecords articles for query, newest first
func (c *Client) Search(ctx context.Context, query string, maxRecords int) ([]Article, error) {
	reqURL := BuildURL(c.baseURL, query, c.EffectiveMaxRecords(maxRecords))
	key := cache.Key("gdelt", reqURL)

	body, hit := c.cache.Get(key)
	if hit {
		c.log.Debug("gdelt cache hit", "query", query)
	} else {
		var err error
		body, err = c.fetchWithRetry(ctx, reqURL)
		if err != nil {
			return nil, fmt.Errorf("search gdelt: %w", err)
		}
	}

	articles, err := ParseArticles(body)
	if err != nil {
		return nil, fmt.Errorf("search gdelt: %w", err)
	}
	if !hit {
		if err := c.cache.Set(key, body, c.cacheTTL); err != nil {
			c.log.Warn("gdelt cache write failed", "err", err)
		}
	}

	c.log.Debug("gdelt search", "query", query, "articles", len(articles), "cached", hit)
	return articles, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<(attempt-1))
			c.log.Debug("gdelt retry", "attempt", attempt, "delay", delay, "err", lastErr)
			if err := retrySleepFunc(ctx, delay); err != nil {
				return nil, fmt.Errorf("retry backoff: %w", err)
			}
		}

		body, err := c.fetch(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
