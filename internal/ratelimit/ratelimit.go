// Package ratelimit implements the sliding-window limits applied to every
// inbound frame: per connection and per client IP.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onatuner/tap-or-tarp-sub001/internal/store"
)

// Defaults per the protocol: 20 messages per second.
const (
	DefaultLimit  = 20
	DefaultWindow = time.Second
)

// Limiter tracks recent event times per identifier in a sliding window.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	history map[string][]time.Time

	// Optional Redis counter bookkeeping under ratelimit:{identifier}.
	// Counters are observability only; admission is decided locally.
	rdb *redis.Client
}

// New creates a limiter with the protocol defaults.
func New() *Limiter {
	return NewWithConfig(DefaultLimit, DefaultWindow)
}

// NewWithConfig creates a limiter with custom limits.
func NewWithConfig(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		history: make(map[string][]time.Time),
	}
}

// SetRedis enables counter bookkeeping in Redis.
func (l *Limiter) SetRedis(rdb *redis.Client) {
	l.rdb = rdb
}

// Allow records one event for the identifier and reports whether it fits
// inside the window. The history pruning keeps memory bounded to the limit.
func (l *Limiter) Allow(id string) bool {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	times := l.history[id]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	allowed := len(kept) < l.limit
	if allowed {
		kept = append(kept, now)
	}
	l.history[id] = kept
	l.mu.Unlock()

	if !allowed && l.rdb != nil {
		go l.bump(id)
	}
	return allowed
}

// Forget drops an identifier's history, e.g. when a connection closes.
func (l *Limiter) Forget(id string) {
	l.mu.Lock()
	delete(l.history, id)
	l.mu.Unlock()
}

func (l *Limiter) bump(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	key := store.RateLimitKeyPrefix + id
	if err := l.rdb.Incr(ctx, key).Err(); err != nil {
		slog.Debug("rate limit counter bump failed", "key", key, "error", err)
		return
	}
	l.rdb.Expire(ctx, key, time.Hour)
}

// Sweep prunes identifiers with no recent activity. Called periodically by
// the hub's cleanup loop.
func (l *Limiter) Sweep() {
	cutoff := time.Now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, times := range l.history {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.history, id)
		}
	}
}
