package dag

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
)

// builder turns a process_graph object into nodes and callback edges.
type builder struct {
	catalog catalog.ProcessCatalog
	logger  *slog.Logger
	arena   *arena
	order   []string // node ids in document order
}

// Build walks pg in document order and returns one node per process invocation,
// with callback edges from every embedded node to its enclosing node.
// The returned graph is not linked; see Translate.
func Build(pg *pgdoc.Object, cat catalog.ProcessCatalog, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &builder{catalog: cat, logger: logger, arena: newArena()}
	if err := b.walk(pg, nil, nil); err != nil {
		return nil, err
	}
	return newGraph(b.arena, b.order), nil
}

// walk visits every key of v. parent is the nearest enclosing node, nil at the root.
func (b *builder) walk(v interface{}, keys pgdoc.Path, parent *Node) error {
	switch t := v.(type) {
	case *pgdoc.Object:
		for _, k := range t.Keys() {
			child, _ := t.Get(k)
			obj, ok := child.(*pgdoc.Object)
			if !ok {
				if err := b.walk(child, keys.Append(k), parent); err != nil {
					return err
				}
				continue
			}
			at := keys.Append(k)
			next := parent
			if obj.Has(pgdoc.KeyProcessID) {
				n, err := b.addNode(k, obj, at, parent)
				if err != nil {
					return fmt.Errorf("node %s: %w", k, err)
				}
				next = n
			}
			if err := b.walk(obj, at, next); err != nil {
				return err
			}
		}
	case []interface{}:
		for i, e := range t {
			if err := b.walk(e, keys.Append(i), parent); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) addNode(name string, content *pgdoc.Object, keys pgdoc.Path, parent *Node) (*Node, error) {
	pid, ok := content.String(pgdoc.KeyProcessID)
	if !ok {
		return nil, pgerr.Structure("node", "%s at %s must be a string", pgdoc.KeyProcessID, keys)
	}
	if parent != nil && !embeddedInGraph(keys, parent.keys) {
		return nil, pgerr.Structure("node", "%s at %s is not inside a %s of %s",
			name, keys, pgdoc.KeyProcessGraph, parent.id)
	}
	proc, err := b.catalog.LookupProcess(pid)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &pgerr.SchemaError{ProcessID: pid, Msg: "unknown process", Err: err}
		}
		return nil, fmt.Errorf("lookup process %s: %w", pid, err)
	}

	n := &Node{
		id:      name + "_" + strconv.Itoa(len(b.order)),
		name:    name,
		content: content,
		keys:    keys,
		process: proc,
		arena:   b.arena,
	}
	if parent != nil {
		e := newEdge(n.id, parent.id, EdgeCallback, false)
		n.AddEdge(e)
		parent.AddEdge(e)
		n.depth = parent.depth + 1
		b.logger.Debug("linked nodes", "from", n.id, "to", parent.id, "kind", EdgeCallback)
	}
	b.arena.nodes[n.id] = n
	b.order = append(b.order, n.id)
	return n, nil
}

// embeddedInGraph reports whether keys address a node as
// <parent>/<argument...>/process_graph/<name>.
func embeddedInGraph(keys, parentKeys pgdoc.Path) bool {
	return len(keys) >= len(parentKeys)+3 && keys[len(keys)-2] == pgdoc.KeyProcessGraph
}
