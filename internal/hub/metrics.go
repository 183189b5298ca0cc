package hub

import "sync/atomic"

// Metrics are the hub's cumulative counters.
type Metrics struct {
	Connections   atomic.Int64
	Messages      atomic.Int64
	Errors        atomic.Int64
	GamesCreated  atomic.Int64
	GamesRestored atomic.Int64
	GamesClosed   atomic.Int64
	Ticks         atomic.Int64
}

// MetricsSnapshot is a point-in-time copy for the read-only API.
type MetricsSnapshot struct {
	Connections   int64   `json:"connections"`
	Messages      int64   `json:"messages"`
	Errors        int64   `json:"errors"`
	GamesCreated  int64   `json:"gamesCreated"`
	GamesRestored int64   `json:"gamesRestored"`
	GamesClosed   int64   `json:"gamesClosed"`
	Ticks         int64   `json:"ticks"`
	Sessions      int     `json:"sessions"`
	CacheHits     int64   `json:"cacheHits"`
	CacheMisses   int64   `json:"cacheMisses"`
	CacheHitRate  float64 `json:"cacheHitRate"`
	BusPublished  int64   `json:"busPublished"`
	BusOverflows  int64   `json:"busOverflows"`
	Degraded      bool    `json:"degraded"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
}
