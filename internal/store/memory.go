package store

import (
	"context"
	"sync"
	"time"

	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
)

// MemoryStore keeps everything in process. Publish dispatches synchronously
// to local subscribers, so single-instance deployments behave like the
// Redis variant without the round trips.
type MemoryStore struct {
	mu       sync.RWMutex
	games    map[string]*memEntry
	reserved map[string]time.Time

	subMu sync.RWMutex
	subs  map[string]map[int]func([]byte)
	nextSub int
}

type memEntry struct {
	state     *game.State
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:    make(map[string]*memEntry),
		reserved: make(map[string]time.Time),
		subs:     make(map[string]map[int]func([]byte)),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*game.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.games[id]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.state.Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, id string, st *game.State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.games[id]; ok && time.Now().Before(e.expiresAt) {
		return ErrExists
	}
	s.games[id] = &memEntry{state: st.Clone(), expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn Transform, ttl time.Duration) (*game.State, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.games[id]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	next := e.state.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.games[id] = &memEntry{state: next, expiresAt: time.Now().Add(ttl)}
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	delete(s.reserved, id)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.games[id]
	return ok && time.Now().Before(e.expiresAt), nil
}

func (s *MemoryStore) ScanIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.games))
	now := time.Now()
	for id, e := range s.games {
		if now.Before(e.expiresAt) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) ReserveID(_ context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if until, ok := s.reserved[id]; ok && time.Now().Before(until) {
		return false, nil
	}
	if e, ok := s.games[id]; ok && time.Now().Before(e.expiresAt) {
		return false, nil
	}
	s.reserved[id] = time.Now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) Publish(_ context.Context, channel string, payload []byte) error {
	s.subMu.RLock()
	handlers := make([]func([]byte), 0, len(s.subs[channel]))
	for _, h := range s.subs[channel] {
		handlers = append(handlers, h)
	}
	s.subMu.RUnlock()
	for _, h := range handlers {
		h(payload)
	}
	return nil
}

func (s *MemoryStore) Subscribe(channel string, handler func([]byte)) (func(), error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs[channel] == nil {
		s.subs[channel] = make(map[int]func([]byte))
	}
	id := s.nextSub
	s.nextSub++
	s.subs[channel][id] = handler
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs[channel], id)
		if len(s.subs[channel]) == 0 {
			delete(s.subs, channel)
		}
	}, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
