package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/praveenpuviindran/trustlens/internal/priors"
)

// Limiter keeps one token bucket per key (a domain, a client address)
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*bucket
	defaultRate  rate.Limit
	defaultBurst int
	idleTTL      time.Duration
	lastSweep    time.Time
	now          func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter; requestsPerSecond <= 0 means unlimited
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Limiter{
		limiters:     make(map[string]*bucket),
		defaultRate:  limit,
		defaultBurst: burst,
		now:          time.Now,
	}
}

// SetIdleTTL drops buckets unused for ttl. The ttl should exceed the time a
// bucket takes to refill, so a dropped bucket would have been full anyway.
func (l *Limiter) SetIdleTTL(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idleTTL = ttl
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Wait blocks until key may proceed
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Allow reports whether key may proceed now, consuming a token if so
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// WaitURL waits on the bucket of the URL's normalized domain
func (l *Limiter) WaitURL(ctx context.Context, rawURL string) error {
	domain, err := DomainOf(rawURL)
	if err != nil {
		return err
	}
	return l.Wait(ctx, domain)
}

// SetDelay slows a key to one request per delay, as asked by a robots.txt
// Crawl-delay. Delays shorter than the default interval are ignored.
func (l *Limiter) SetDelay(key string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	limit := rate.Every(delay)
	if limit >= l.defaultRate {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.limiters[key]; ok && cur.lim.Limit() == limit {
		return
	}
	l.limiters[key] = &bucket{lim: rate.NewLimiter(limit, 1), lastSeen: l.now()}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.limiters[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.defaultRate, l.defaultBurst)}
		l.limiters[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// sweep evicts idle buckets at most once per idleTTL; l.mu must be held
func (l *Limiter) sweep(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for key, b := range l.limiters {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
}

// DomainOf returns the normalized domain of a URL
func DomainOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	domain := priors.NormalizeDomain(parsed.Host)
	if domain == "" {
		return "", fmt.Errorf("parse URL: no host in %q", rawURL)
	}
	return domain, nil
}
