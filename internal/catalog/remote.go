package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultRemoteTimeout = 30 * time.Second

// Remote reads definitions from an openEO back-end. The process listing and the
// collection id listing are fetched once by NewRemote; full collection metadata
// is fetched on first lookup and cached.
type Remote struct {
	base   string
	client *http.Client

	store   *Store
	mu      sync.Mutex
	colIDs  []string
	fetched map[string]bool
}

// NewRemote fetches GET {base}/processes and GET {base}/collections.
// A nil client gets a default one with a 30s timeout.
func NewRemote(ctx context.Context, base string, client *http.Client) (*Remote, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	r := &Remote{
		base:    strings.TrimRight(base, "/"),
		client:  client,
		store:   NewStore(),
		fetched: make(map[string]bool),
	}

	var procs processListing
	if err := r.get(ctx, "/processes", &procs); err != nil {
		return nil, err
	}
	for _, p := range procs.Processes {
		r.store.PutProcess(p)
	}

	var cols collectionListing
	if err := r.get(ctx, "/collections", &cols); err != nil {
		return nil, err
	}
	for _, c := range cols.Collections {
		r.colIDs = append(r.colIDs, c.ID)
	}
	return r, nil
}

// LookupProcess implements ProcessCatalog.
func (r *Remote) LookupProcess(id string) (*Process, error) { return r.store.LookupProcess(id) }

// LookupCollection implements CollectionCatalog. Ids absent from the listing
// are not requested.
func (r *Remote) LookupCollection(id string) (*Collection, error) {
	if c, err := r.store.LookupCollection(id); err == nil {
		return c, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetched[id] || !r.listed(id) {
		return nil, collectionNotFound(id)
	}
	var c Collection
	if err := r.get(context.Background(), "/collections/"+url.PathEscape(id), &c); err != nil {
		return nil, err
	}
	r.fetched[id] = true
	if c.ID == "" {
		c.ID = id
	}
	r.store.PutCollection(&c)
	return &c, nil
}

// ProcessIDs implements Catalog.
func (r *Remote) ProcessIDs() []string { return r.store.ProcessIDs() }

// CollectionIDs implements Catalog.
func (r *Remote) CollectionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.colIDs))
	copy(out, r.colIDs)
	return out
}

func (r *Remote) listed(id string) bool {
	for _, c := range r.colIDs {
		if c == id {
			return true
		}
	}
	return false
}

func (r *Remote) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+path, nil)
	if err != nil {
		return fmt.Errorf("remote catalog: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote catalog GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote catalog GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("remote catalog GET %s: decode: %w", path, err)
	}
	return nil
}
