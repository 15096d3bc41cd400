package engine

import (
	"sync"

	"github.com/gyaneshwarpardhi/pgparser/internal/job"
)

// resultStore keeps the latest results by job id, evicting the oldest job
// once max ids are held.
type resultStore struct {
	mu    sync.RWMutex
	max   int
	byID  map[string]*job.Result
	order []string // insertion order of ids
}

func newResultStore(max int) *resultStore {
	return &resultStore{max: max, byID: make(map[string]*job.Result)}
}

func (s *resultStore) put(r *job.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; !ok {
		s.order = append(s.order, r.ID)
		for s.max > 0 && len(s.order) > s.max {
			delete(s.byID, s.order[0])
			s.order = s.order[1:]
		}
	}
	s.byID[r.ID] = r
}

func (s *resultStore) get(id string) (*job.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

func (s *resultStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
