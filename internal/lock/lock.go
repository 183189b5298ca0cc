// Package lock provides the per-game named mutex. Every mutation to a game
// on this instance runs inside it; cross-instance serialization is the
// store's optimistic protocol, not a distributed lock.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultTimeout bounds how long a caller waits for the slot.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when the slot could not be acquired in time.
var ErrTimeout = errors.New("lock: acquisition timed out")

// KeyedMutex hands out one exclusive slot per key. Waiters on the same key
// are served in FIFO order; idle entries are collected.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration
}

type entry struct {
	token   chan struct{} // holds one token when the slot is free
	holders int           // holders + waiters; entry collected at zero
}

// New creates a KeyedMutex with the default acquisition timeout.
func New() *KeyedMutex {
	return NewWithTimeout(DefaultTimeout)
}

// NewWithTimeout creates a KeyedMutex with a custom acquisition timeout.
func NewWithTimeout(timeout time.Duration) *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*entry),
		timeout: timeout,
	}
}

// WithLock acquires exclusive use of the key's slot, runs fn, and releases
// on every exit path. Acquisition fails with ErrTimeout after the
// configured wait, or with the context error if ctx ends first.
func (k *KeyedMutex) WithLock(ctx context.Context, key string, fn func() error) error {
	e := k.retain(key)
	defer k.release(key)

	timer := time.NewTimer(k.timeout)
	defer timer.Stop()

	select {
	case <-e.token:
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { e.token <- struct{}{} }()
	return fn()
}

func (k *KeyedMutex) retain(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{token: make(chan struct{}, 1)}
		e.token <- struct{}{}
		k.entries[key] = e
	}
	e.holders++
	return e
}

func (k *KeyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		return
	}
	e.holders--
	if e.holders == 0 {
		delete(k.entries, key)
	}
}

// Len reports how many keys currently have live lock entries.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
