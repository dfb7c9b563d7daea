// Package enrich fills in missing evidence snippets from the article pages.
package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/util"
	"github.com/praveenpuviindran/trustlens/internal/worker"
)

// Enricher fetches article pages for evidence items without a snippet
type Enricher struct {
	fetcher       *Fetcher
	robots        *RobotsChecker
	limiter       *worker.Limiter
	workers       int
	respectRobots bool
	log           *slog.Logger
}

// New builds an enricher from config
func New(cfg model.EnrichConfig, log *slog.Logger) *Enricher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	fetcher := NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes)
	robots := NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	if t := util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy); t != nil {
		fetcher.httpClient.Transport = t
		robots.httpClient.Transport = t
	}
	return &Enricher{
		fetcher:       fetcher,
		robots:        robots,
		limiter:       worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		workers:       cfg.Workers,
		respectRobots: cfg.RespectRobots,
		log:           log,
	}
}

// Enrich returns a copy of items where empty snippets were filled when the
// page could be fetched, and how many were filled. It never fails.
func (e *Enricher) Enrich(ctx context.Context, items []model.EvidenceItem) ([]model.EvidenceItem, int) {
	out := make([]model.EvidenceItem, len(items))
	copy(out, items)

	var targets []int
	for i, it := range out {
		if it.Snippet == "" && it.URL != "" {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return out, 0
	}

	pool := worker.NewPool(ctx, e.workers)
	pool.Start()
	for _, i := range targets {
		pool.Submit(&snippetJob{enricher: e, url: out[i].URL})
	}

	filled := 0
	for k, r := range pool.Wait() {
		res, ok := r.(*snippetResult)
		if !ok {
			continue
		}
		if res.err != nil {
			e.log.Debug("enrich skipped", "url", res.url, "err", res.err)
			continue
		}
		if res.snippet != "" {
			out[targets[k]].Snippet = res.snippet
			filled++
		}
	}
	e.log.Debug("enrich done", "candidates", len(targets), "filled", filled)
	return out, filled
}

func (e *Enricher) snippetFor(ctx context.Context, rawURL string) (string, error) {
	domain, err := worker.DomainOf(rawURL)
	if err != nil {
		return "", err
	}

	if e.respectRobots {
		allowed, delay, err := e.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", fmt.Errorf("disallowed by robots.txt")
		}
		e.limiter.SetDelay(domain, delay)
	}

	if err := e.limiter.Wait(ctx, domain); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	page, err := e.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return ExtractSnippet(page), nil
}

type snippetJob struct {
	enricher *Enricher
	url      string
}

func (j *snippetJob) Execute(ctx context.Context) worker.Result {
	snippet, err := j.enricher.snippetFor(ctx, j.url)
	return &snippetResult{url: j.url, snippet: snippet, err: err}
}

type snippetResult struct {
	url     string
	snippet string
	err     error
}

func (r *snippetResult) GetError() error {
	return r.err
}
