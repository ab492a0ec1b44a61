package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a name for logging/debugging.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// Every creates a limiter that lets one request through per interval with
// no bursting. A non-positive interval disables limiting.
func Every(name string, interval time.Duration) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, 1),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows a request to proceed.
// Returns an error if the context is cancelled. A nil Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Name returns the name of this rate limiter.
func (l *Limiter) Name() string {
	return l.name
}

// HostLimiters hands out one Limiter per request host so that every client
// talking to the same provider host shares its pacing.
type HostLimiters struct {
	mu       sync.Mutex
	interval time.Duration
	byHost   map[string]*Limiter
}

// NewHostLimiters creates a registry whose limiters allow one request per interval.
func NewHostLimiters(interval time.Duration) *HostLimiters {
	return &HostLimiters{
		interval: interval,
		byHost:   make(map[string]*Limiter),
	}
}

// ForURL returns the limiter for the host of rawURL.
func (h *HostLimiters) ForURL(rawURL string) *Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return h.ForHost(host)
}

// ForHost returns the limiter for host, creating it on first use.
func (h *HostLimiters) ForHost(host string) *Limiter {
	host = strings.ToLower(host)

	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.byHost[host]; ok {
		return l
	}
	l := Every(host, h.interval)
	h.byHost[host] = l
	return l
}
