package dag

import (
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
)

// Sort strategies.
const (
	// SortDependency orders nodes by when they are invoked: a node that opens
	// a callback is placed where its invocation starts.
	SortDependency = "dependency"
	// SortResult orders nodes by when their output is available: a node that
	// opens a callback is placed after its callback's result.
	SortResult = "result"
	// SortDepth orders nodes by nesting depth, stable within a level.
	SortDepth = "depth"
)

// Strategies lists the accepted Sort strategies.
var Strategies = []string{SortDependency, SortResult, SortDepth}

// Sort returns a new view ordered by strategy. The receiver is not modified.
func (g *Graph) Sort(by string) (*Graph, error) {
	switch by {
	case SortDepth:
		return g.sortByDepth(), nil
	case SortDependency:
		ids, err := g.linearOrder(true)
		if err != nil {
			return nil, err
		}
		return newGraph(g.arena, ids), nil
	case SortResult:
		ids, err := g.linearOrder(false)
		if err != nil {
			return nil, err
		}
		return newGraph(g.arena, ids), nil
	}
	return nil, &pgerr.ConfigError{Option: "sort", Msg: "unknown strategy " + strconv.Quote(by) +
		"; expected one of " + strings.Join(Strategies, ", ")}
}

// marker tells apart the two vertices of a node that opens a callback.
type marker int

const (
	plain    marker = iota
	entering        // invocation starts; the callback body can follow
	leaving         // callback result is available; successors can follow
)

type vertex struct {
	id string
	at marker
}

// linearOrder runs Kahn's algorithm over the view's visible process edges.
// A node opening a callback becomes two vertices, entering then leaving, so
// its incoming edges end at the first and its outgoing edges start at the
// second. useEntering selects which of the two names the node in the result.
func (g *Graph) linearOrder(useEntering bool) ([]string, error) {
	var vertices []vertex
	succ := make(map[vertex][]vertex)
	indeg := make(map[vertex]int)
	link := func(from, to vertex) {
		succ[from] = append(succ[from], to)
		indeg[to]++
	}

	opens := make(map[string]bool, g.Len())
	for _, n := range g.Nodes() {
		if n.OpensCallback() {
			opens[n.id] = true
			in, out := vertex{n.id, entering}, vertex{n.id, leaving}
			vertices = append(vertices, in, out)
			link(in, out)
			continue
		}
		vertices = append(vertices, vertex{n.id, plain})
	}
	source := func(id string) vertex {
		if opens[id] {
			return vertex{id, leaving}
		}
		return vertex{id, plain}
	}
	target := func(id string) vertex {
		if opens[id] {
			return vertex{id, entering}
		}
		return vertex{id, plain}
	}
	for _, e := range g.Edges(EdgeProcess) {
		if e.Hidden {
			continue
		}
		link(source(e.From), target(e.To))
	}

	queue := make([]vertex, 0, len(vertices))
	for _, v := range vertices {
		if indeg[v] == 0 {
			queue = append(queue, v)
		}
	}
	order := make([]vertex, 0, len(vertices))
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, next := range succ[v] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if len(order) < len(vertices) {
		var stuck []string
		for _, v := range vertices {
			if indeg[v] > 0 && (len(stuck) == 0 || stuck[len(stuck)-1] != v.id) {
				stuck = append(stuck, v.id)
			}
		}
		return nil, pgerr.Structure("cycle", "process dependencies form a cycle through %s",
			strings.Join(stuck, ", "))
	}

	ids := make([]string, 0, g.Len())
	for _, v := range order {
		switch {
		case v.at == plain,
			v.at == entering && useEntering,
			v.at == leaving && !useEntering:
			ids = append(ids, v.id)
		}
	}
	return ids, nil
}
