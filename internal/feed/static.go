package feed

import (
	"context"
	"sync"
)

// Static serves fixtures from memory. It backs tests and local runs without an API key.
type Static struct {
	mu       sync.RWMutex
	fixtures map[string]Fixture
	calls    map[string]int
	failures map[string]error
}

func NewStatic(fixtures ...Fixture) *Static {
	s := &Static{
		fixtures: make(map[string]Fixture),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
	for _, f := range fixtures {
		s.fixtures[f.ID] = f
	}
	return s
}

// Set adds or replaces a fixture.
func (s *Static) Set(f Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[f.ID] = f
	delete(s.failures, f.ID)
}

// Fail makes lookups of id return err until the fixture is Set again.
func (s *Static) Fail(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = err
}

// Calls returns how many lookups were made for id.
func (s *Static) Calls(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[id]
}

func (s *Static) Fixture(_ context.Context, id string) (Fixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	if err, ok := s.failures[id]; ok {
		return Fixture{}, err
	}
	f, ok := s.fixtures[id]
	if !ok {
		return Fixture{}, ErrFixtureNotFound
	}
	return f, nil
}
