package catalog

import (
	"fmt"
	"sort"
	"sync"
)

// Store is an in-memory catalog. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	processes   map[string]*Process
	collections map[string]*Collection
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		processes:   make(map[string]*Process),
		collections: make(map[string]*Collection),
	}
}

// NewStoreFrom builds a Store from definition lists. Later duplicates replace earlier ones.
func NewStoreFrom(processes []*Process, collections []*Collection) *Store {
	s := NewStore()
	for _, p := range processes {
		s.PutProcess(p)
	}
	for _, c := range collections {
		s.PutCollection(c)
	}
	return s
}

// Register adds a process. Panics on a duplicate id to surface misconfiguration early.
func (s *Store) Register(p *Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.processes[p.ID]; exists {
		panic(fmt.Sprintf("catalog: duplicate process %q", p.ID))
	}
	s.processes[p.ID] = p
}

// PutProcess adds or replaces a process.
func (s *Store) PutProcess(p *Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes[p.ID] = p
}

// PutCollection adds or replaces a collection.
func (s *Store) PutCollection(c *Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[c.ID] = c
}

// LookupProcess implements ProcessCatalog.
func (s *Store) LookupProcess(id string) (*Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processes[id]
	if !ok {
		return nil, processNotFound(id)
	}
	return p, nil
}

// LookupCollection implements CollectionCatalog.
func (s *Store) LookupCollection(id string) (*Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return nil, collectionNotFound(id)
	}
	return c, nil
}

// ProcessIDs returns all process ids, sorted.
func (s *Store) ProcessIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.processes))
	for k := range s.processes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CollectionIDs returns all collection ids, sorted.
func (s *Store) CollectionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.collections))
	for k := range s.collections {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of processes and collections held.
func (s *Store) Len() (processes, collections int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes), len(s.collections)
}
