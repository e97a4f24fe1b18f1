package match

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("match: not found")

// Store holds live matches by id. The in-memory implementation is the
// source of truth for everything before settlement; only settled and
// cancelled matches get archived elsewhere.
type Store interface {
	Get(id string) (*Match, error)
	Set(id string, m *Match) error
	Delete(id string) error
	Ids() []string
}

type memoryStore struct {
	mu      sync.RWMutex
	matches map[string]*Match
}

func NewMemoryStore() Store {
	return &memoryStore{matches: make(map[string]*Match)}
}

func (s *memoryStore) Get(id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *memoryStore) Set(id string, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[id] = m
	return nil
}

func (s *memoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return ErrNotFound
	}
	delete(s.matches, id)
	return nil
}

func (s *memoryStore) Ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.matches))
	for id := range s.matches {
		ids = append(ids, id)
	}
	return ids
}
