// Package store holds the durable source of truth for game state. Three
// interchangeable variants sit behind one contract: an in-process map, a
// SQLite file, and Redis for multi-instance deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
)

// DefaultTTL is the expiry applied to persisted game state.
const DefaultTTL = 24 * time.Hour

// Key layout shared by the Redis variant and the pub/sub channel names.
const (
	GameKeyPrefix      = "game:"
	ReservedKeySuffix  = ":reserved"
	InvalidateChanPfx  = "cache:invalidate:"
	BroadcastChanPfx   = "broadcast:"
	RateLimitKeyPrefix = "ratelimit:"
	ShutdownChan       = "control:shutdown"
)

var (
	// ErrNotFound is returned when no state exists for the id.
	ErrNotFound = errors.New("store: game not found")
	// ErrExists is returned by Create when the id is already taken.
	ErrExists = errors.New("store: game already exists")
	// ErrConflict is returned by Update after optimistic retries exhaust.
	ErrConflict = errors.New("store: optimistic lock failed")
)

// Transform mutates a decoded state in place during an optimistic update.
type Transform func(*game.State) error

// Store is the durable state contract. Every operation returns a definite
// success or failure.
type Store interface {
	// Get returns a snapshot of the state, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.State, error)
	// Create atomically sets the state if absent; ErrExists otherwise.
	Create(ctx context.Context, id string, st *game.State, ttl time.Duration) error
	// Update runs an optimistic read-modify-write and returns the new state.
	Update(ctx context.Context, id string, fn Transform, ttl time.Duration) (*game.State, error)
	// Delete removes the state and its reservation marker.
	Delete(ctx context.Context, id string) error
	// Exists reports whether state is present for the id.
	Exists(ctx context.Context, id string) (bool, error)
	// ScanIDs iterates stored game ids. Reservation markers are filtered
	// out; consistency across scan batches is not guaranteed.
	ScanIDs(ctx context.Context) ([]string, error)
	// ReserveID is a set-if-absent on a distinct reservation marker.
	ReserveID(ctx context.Context, id string, ttl time.Duration) (bool, error)
	// Publish sends a payload on a named channel.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe registers a handler for a channel and returns an
	// unsubscribe function.
	Subscribe(channel string, handler func(payload []byte)) (func(), error)
	// Ping probes connectivity.
	Ping(ctx context.Context) error
	// Close releases all resources.
	Close() error
}

// GameKey returns the primary key for a game id.
func GameKey(id string) string { return GameKeyPrefix + id }

// ReservedKey returns the reservation marker key for a game id.
func ReservedKey(id string) string { return GameKeyPrefix + id + ReservedKeySuffix }
