// Package catalog resolves process and collection ids to their definitions.
//
// Backends: an in-memory Store, a directory of definition files (Dir), an openEO
// back-end's listing endpoints (Remote) and a SQLite database (SQLStore). Chain
// queries several of them in order.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is wrapped by every lookup miss.
var ErrNotFound = errors.New("not found")

// ProcessCatalog resolves process ids.
type ProcessCatalog interface {
	LookupProcess(id string) (*Process, error)
}

// CollectionCatalog resolves collection ids.
type CollectionCatalog interface {
	LookupCollection(id string) (*Collection, error)
}

// Catalog is implemented by every backend in this package.
type Catalog interface {
	ProcessCatalog
	CollectionCatalog
	ProcessIDs() []string
	CollectionIDs() []string
}

func processNotFound(id string) error {
	return fmt.Errorf("process %q: %w", id, ErrNotFound)
}

func collectionNotFound(id string) error {
	return fmt.Errorf("collection %q: %w", id, ErrNotFound)
}

// Chain asks each catalog in turn and returns the first hit.
type Chain []Catalog

// LookupProcess implements ProcessCatalog.
func (c Chain) LookupProcess(id string) (*Process, error) {
	for _, cat := range c {
		p, err := cat.LookupProcess(id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, processNotFound(id)
}

// LookupCollection implements CollectionCatalog.
func (c Chain) LookupCollection(id string) (*Collection, error) {
	for _, cat := range c {
		col, err := cat.LookupCollection(id)
		if err == nil {
			return col, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, collectionNotFound(id)
}

// ProcessIDs returns the sorted union of every member's process ids.
func (c Chain) ProcessIDs() []string {
	return union(c, Catalog.ProcessIDs)
}

// CollectionIDs returns the sorted union of every member's collection ids.
func (c Chain) CollectionIDs() []string {
	return union(c, Catalog.CollectionIDs)
}

func union(c Chain, ids func(Catalog) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cat := range c {
		for _, id := range ids(cat) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
