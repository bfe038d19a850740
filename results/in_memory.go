package results

import (
	"sort"
	"sync"

	"github.com/hupe1980/trainmesh/core"
)

// InMemoryStore is a process local core.ResultStore. It is the single
// synchronized append point for JobResults: every Record holds the write
// lock for the whole update, so results for different jobs never interleave.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[string]core.JobResult
}

// NewInMemoryStore constructs an empty in-memory result store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{results: make(map[string]core.JobResult)}
}

// Record stores the result, replacing any earlier result for the same job.
func (s *InMemoryStore) Record(r core.JobResult) error {
	if r.Name == "" {
		return core.NewConfigurationError("name", "result without job name")
	}
	if r.Duration < 0 {
		r.Duration = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.Name] = r
	return nil
}

// Get returns the result recorded for name.
func (s *InMemoryStore) Get(name string) (core.JobResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[name]
	return r, ok
}

// List returns a snapshot of all results sorted by job name.
func (s *InMemoryStore) List() []core.JobResult {
	s.mu.RLock()
	out := make([]core.JobResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of recorded results.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Reset removes all recorded results.
func (s *InMemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make(map[string]core.JobResult)
}
