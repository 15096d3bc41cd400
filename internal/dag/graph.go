package dag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
)

// Graph is an ordered view over nodes of one arena. Views share nodes, so
// edges added through one view are visible through every other.
type Graph struct {
	arena *arena
	ids   []string
	index map[string]int
}

// newGraph builds a view over ids. Duplicates keep their first position.
func newGraph(a *arena, ids []string) *Graph {
	g := &Graph{arena: a, index: make(map[string]int, len(ids))}
	for _, id := range ids {
		if _, dup := g.index[id]; dup {
			continue
		}
		g.index[id] = len(g.ids)
		g.ids = append(g.ids, id)
	}
	return g
}

// Len returns the number of nodes in the view.
func (g *Graph) Len() int { return len(g.ids) }

// IDs returns node ids in view order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Nodes returns the nodes in view order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.ids))
	for i, id := range g.ids {
		out[i] = g.arena.nodes[id]
	}
	return out
}

// Contains reports whether id is part of the view.
func (g *Graph) Contains(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Node returns the node with the given id if it is part of the view.
func (g *Graph) Node(id string) (*Node, bool) {
	if !g.Contains(id) {
		return nil, false
	}
	return g.arena.nodes[id], true
}

// At returns the i-th node; it panics when i is out of range.
func (g *Graph) At(i int) *Node {
	return g.arena.nodes[g.ids[i]]
}

// ByName returns the first node declared under name, or nil.
func (g *Graph) ByName(name string) *Node {
	for _, n := range g.Nodes() {
		if n.name == name {
			return n
		}
	}
	return nil
}

// Get looks a node up by id first, then by name.
func (g *Graph) Get(key string) (*Node, error) {
	if n, ok := g.Node(key); ok {
		return n, nil
	}
	if n := g.ByName(key); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%q is not a valid node id or name", key)
}

// MaxDepth returns the deepest nesting level, or -1 for an empty view.
func (g *Graph) MaxDepth() int {
	max := -1
	for _, n := range g.Nodes() {
		if n.depth > max {
			max = n.depth
		}
	}
	return max
}

// Lineage repeatedly follows kind edges from n, collecting every node reached.
// With ancestors set the walk goes to edge sources, otherwise to edge targets.
func (g *Graph) Lineage(n *Node, kind EdgeKind, ancestors, includeNode bool) *Graph {
	var ids []string
	if includeNode {
		ids = append(ids, n.id)
	}
	seen := map[string]bool{n.id: true}
	current := []*Node{n}
	for len(current) > 0 {
		var next []*Node
		for _, c := range current {
			for _, r := range c.Relatives(kind, ancestors).Nodes() {
				if seen[r.id] {
					continue
				}
				seen[r.id] = true
				ids = append(ids, r.id)
				next = append(next, r)
			}
		}
		current = next
	}
	return newGraph(g.arena, ids)
}

// FindSiblings returns the nodes of the view sharing n's parent over kind.
// Nodes without a parent are siblings of each other.
func (g *Graph) FindSiblings(n *Node, kind EdgeKind, includeNode bool) (*Graph, error) {
	return g.sameRelative(n, includeNode, func(x *Node) (*Node, error) { return x.Parent(kind) })
}

// FindPartners returns the nodes of the view sharing n's child over kind.
// With kind EdgeCallback these are the nodes of n's scope.
func (g *Graph) FindPartners(n *Node, kind EdgeKind, includeNode bool) (*Graph, error) {
	return g.sameRelative(n, includeNode, func(x *Node) (*Node, error) { return x.Child(kind) })
}

func (g *Graph) sameRelative(n *Node, includeNode bool, rel func(*Node) (*Node, error)) (*Graph, error) {
	mine, err := rel(n)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, other := range g.Nodes() {
		if other.id == n.id {
			continue
		}
		theirs, err := rel(other)
		if err != nil {
			return nil, err
		}
		switch {
		case mine != nil && theirs != nil && mine.id == theirs.id:
			ids = append(ids, other.id)
		case mine == nil && theirs == nil:
			ids = append(ids, other.id)
		}
	}
	if includeNode {
		ids = append(ids, n.id)
	}
	return newGraph(g.arena, ids), nil
}

// Update lists every edge on both of its endpoints. It is idempotent.
func (g *Graph) Update() error {
	for _, n := range g.Nodes() {
		for _, e := range n.Edges() {
			for _, id := range []string{e.From, e.To} {
				if id == n.id {
					continue
				}
				other, ok := g.arena.nodes[id]
				if !ok {
					return pgerr.Structure("edge", "edge %s references unknown node %s", e.ID, id)
				}
				other.AddEdge(e)
			}
		}
	}
	return nil
}

// Edges returns the distinct edges of kind whose endpoints are both in the view,
// in node then adjacency order.
func (g *Graph) Edges(kind EdgeKind) []*Edge {
	seen := make(map[string]bool)
	var out []*Edge
	for _, n := range g.Nodes() {
		for _, e := range n.edges {
			if !e.matches(kind) || !g.Contains(e.From) || !g.Contains(e.To) {
				continue
			}
			if seen[e.key()] {
				continue
			}
			seen[e.key()] = true
			out = append(out, e)
		}
	}
	return out
}

// sortByDepth returns a view ordered by ascending depth, stable within a depth.
func (g *Graph) sortByDepth() *Graph {
	ids := g.IDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return g.arena.nodes[ids[i]].depth < g.arena.nodes[ids[j]].depth
	})
	return newGraph(g.arena, ids)
}

func (g *Graph) String() string {
	var b strings.Builder
	for _, n := range g.Nodes() {
		b.WriteString(n.String())
		b.WriteString("\n\n")
	}
	return b.String()
}
