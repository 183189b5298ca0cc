// Package feedback stores user-submitted feedback notes.
package feedback

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength bounds a feedback note.
const MaxMessageLength = 2000

// ErrNotFound is returned when no feedback exists for the id.
var ErrNotFound = errors.New("feedback: not found")

// Entry is one submitted note.
type Entry struct {
	ID        string    `json:"id"`
	GameID    string    `json:"gameId,omitempty"`
	Author    string    `json:"author,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists feedback entries.
type Store interface {
	Save(e *Entry) error
	List(limit int) ([]Entry, error)
	Update(id, message string) (*Entry, error)
	Delete(id string) error
	Close() error
}

// NewEntry builds an entry with a fresh id and timestamps.
func NewEntry(gameID, author, message string) *Entry {
	now := time.Now()
	return &Entry{
		ID:        uuid.New().String(),
		GameID:    gameID,
		Author:    author,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MemoryStore keeps feedback in process; used when no SQLite path is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewMemoryStore creates an empty in-process feedback store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Save(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

func (s *MemoryStore) List(limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	// Newest first.
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if e, ok := s.entries[s.order[i]]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(id, message string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Message = message
	e.UpdatedAt = time.Now()
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
