package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Dir serves definitions loaded from a processes directory and a collections
// directory. Each file holds one definition, or a listing under a "processes" /
// "collections" key. Reload swaps the whole set atomically.
type Dir struct {
	processesDir   string
	collectionsDir string
	logger         *slog.Logger

	current  atomic.Pointer[Store]
	mu       sync.Mutex
	onChange []func(*Store)
}

// OpenDir loads both directories. Either may be empty to skip it.
func OpenDir(processesDir, collectionsDir string, logger *slog.Logger) (*Dir, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dir{processesDir: processesDir, collectionsDir: collectionsDir, logger: logger}
	s, err := d.load()
	if err != nil {
		return nil, err
	}
	d.current.Store(s)
	return d, nil
}

// Store returns the current snapshot.
func (d *Dir) Store() *Store { return d.current.Load() }

// LookupProcess implements ProcessCatalog.
func (d *Dir) LookupProcess(id string) (*Process, error) { return d.Store().LookupProcess(id) }

// LookupCollection implements CollectionCatalog.
func (d *Dir) LookupCollection(id string) (*Collection, error) {
	return d.Store().LookupCollection(id)
}

// ProcessIDs implements Catalog.
func (d *Dir) ProcessIDs() []string { return d.Store().ProcessIDs() }

// CollectionIDs implements Catalog.
func (d *Dir) CollectionIDs() []string { return d.Store().CollectionIDs() }

// OnChange registers a callback invoked after every successful reload.
func (d *Dir) OnChange(fn func(*Store)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = append(d.onChange, fn)
}

// Reload re-reads both directories. On error the previous snapshot stays in place.
func (d *Dir) Reload() (*Store, error) {
	s, err := d.load()
	if err != nil {
		return nil, err
	}
	d.current.Store(s)
	d.mu.Lock()
	callbacks := make([]func(*Store), len(d.onChange))
	copy(callbacks, d.onChange)
	d.mu.Unlock()
	for _, fn := range callbacks {
		fn(s)
	}
	return s, nil
}

// Watch reloads the catalog whenever a file in either directory changes.
// Call the returned stop function to clean up.
func (d *Dir) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalog watcher: %w", err)
	}
	for _, dir := range []string{d.processesDir, d.collectionsDir} {
		if dir == "" {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("catalog watcher add %s: %w", dir, err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !isDefinitionFile(ev.Name) {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					s, err := d.Reload()
					if err != nil {
						d.logger.Warn("catalog reload failed; keeping previous", "file", ev.Name, "error", err)
						continue
					}
					p, c := s.Len()
					d.logger.Info("catalog reloaded", "processes", p, "collections", c)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				d.logger.Warn("catalog watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

func (d *Dir) load() (*Store, error) {
	s := NewStore()
	if d.processesDir != "" {
		err := eachFile(d.processesDir, func(path string, data []byte) error {
			procs, err := decodeProcesses(path, data)
			if err != nil {
				return err
			}
			for _, p := range procs {
				s.PutProcess(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if d.collectionsDir != "" {
		err := eachFile(d.collectionsDir, func(path string, data []byte) error {
			cols, err := decodeCollections(path, data)
			if err != nil {
				return err
			}
			for _, c := range cols {
				s.PutCollection(c)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// eachFile calls fn for every definition file directly inside dir, in name order.
func eachFile(dir string, fn func(path string, data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read catalog dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isDefinitionFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := fn(path, data); err != nil {
			return err
		}
	}
	return nil
}

func unmarshal(path string, data []byte, v interface{}) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

type processListing struct {
	Processes []*Process `json:"processes" yaml:"processes"`
}

type collectionListing struct {
	Collections []*Collection `json:"collections" yaml:"collections"`
}

func decodeProcesses(path string, data []byte) ([]*Process, error) {
	var list processListing
	if err := unmarshal(path, data, &list); err != nil {
		return nil, err
	}
	if len(list.Processes) > 0 {
		return list.Processes, nil
	}
	var p Process
	if err := unmarshal(path, data, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%s: process definition has no id", path)
	}
	return []*Process{&p}, nil
}

func decodeCollections(path string, data []byte) ([]*Collection, error) {
	var list collectionListing
	if err := unmarshal(path, data, &list); err != nil {
		return nil, err
	}
	if len(list.Collections) > 0 {
		return list.Collections, nil
	}
	var c Collection
	if err := unmarshal(path, data, &c); err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, fmt.Errorf("%s: collection definition has no id", path)
	}
	return []*Collection{&c}, nil
}
