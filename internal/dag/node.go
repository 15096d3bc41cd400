package dag

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
)

// arena owns every node of one translation. Graph views and edges refer to
// nodes by id only.
type arena struct {
	nodes map[string]*Node
}

func newArena() *arena {
	return &arena{nodes: make(map[string]*Node)}
}

// Node is one process invocation.
type Node struct {
	id      string
	name    string
	content *pgdoc.Object
	depth   int
	keys    pgdoc.Path // from the process_graph root down to this node's key
	edges   []*Edge
	process *catalog.Process
	arena   *arena
}

func (n *Node) ID() string { return n.id }
func (n *Node) Name() string { return n.name }
func (n *Node) Depth() int { return n.depth }
func (n *Node) Content() *pgdoc.Object { return n.content }
func (n *Node) Process() *catalog.Process { return n.process }

// Keys returns the document path of the node.
func (n *Node) Keys() pgdoc.Path { return n.keys.Append() }

// Edges returns the node's adjacency list.
func (n *Node) Edges() []*Edge {
	out := make([]*Edge, len(n.edges))
	copy(out, n.edges)
	return out
}

// AddEdge appends e unless an equal edge is already listed.
func (n *Node) AddEdge(e *Edge) bool {
	for _, have := range n.edges {
		if have.Equal(e) {
			return false
		}
	}
	n.edges = append(n.edges, e)
	return true
}

func (n *Node) String() string {
	return fmt.Sprintf("Node ID: %s\nNode Name: %s\n%s", n.id, n.name, pretty(n.content))
}

// -----------------------------------------------------------------------
// Traversal
// -----------------------------------------------------------------------

// Relatives returns the nodes on the other side of this node's edges of the
// given kind. With ancestor set, edges ending here are followed back to their
// source; otherwise edges starting here are followed to their target.
func (n *Node) Relatives(kind EdgeKind, ancestor bool) *Graph {
	var ids []string
	for _, e := range n.edges {
		if !e.matches(kind) {
			continue
		}
		switch {
		case ancestor && e.To == n.id:
			ids = append(ids, e.From)
		case !ancestor && e.From == n.id:
			ids = append(ids, e.To)
		}
	}
	return newGraph(n.arena, ids)
}

// Ancestors returns the sources of edges ending at n.
func (n *Node) Ancestors(kind EdgeKind) *Graph { return n.Relatives(kind, true) }

// Descendants returns the targets of edges starting at n.
func (n *Node) Descendants(kind EdgeKind) *Graph { return n.Relatives(kind, false) }

// Parent returns the single ancestor over kind, or nil when there is none.
func (n *Node) Parent(kind EdgeKind) (*Node, error) {
	anc := n.Ancestors(kind)
	switch anc.Len() {
	case 0:
		return nil, nil
	case 1:
		return anc.At(0), nil
	}
	return nil, pgerr.Structure("parent", "node %s has %d parents over %q edges; only one is allowed",
		n.id, anc.Len(), kind)
}

// Child returns the single descendant over kind, or nil when there is none.
func (n *Node) Child(kind EdgeKind) (*Node, error) {
	desc := n.Descendants(kind)
	switch desc.Len() {
	case 0:
		return nil, nil
	case 1:
		return desc.At(0), nil
	}
	return nil, pgerr.Structure("child", "node %s has %d children over %q edges; only one is allowed",
		n.id, desc.Len(), kind)
}

// -----------------------------------------------------------------------
// Process graph queries
// -----------------------------------------------------------------------

// ProcessID returns the invoked process id.
func (n *Node) ProcessID() string {
	s, _ := n.content.String(pgdoc.KeyProcessID)
	return s
}

// Namespace returns the optional process namespace.
func (n *Node) Namespace() string {
	s, _ := n.content.String("namespace")
	return s
}

// Description returns the optional node description.
func (n *Node) Description() string {
	s, _ := n.content.String("description")
	return s
}

// IsResult reports whether the node is flagged as its scope's result.
func (n *Node) IsResult() bool { return n.content.Bool(pgdoc.KeyResult) }

// IsReducer reports whether the node's process is a reducer.
func (n *Node) IsReducer() bool { return n.process != nil && n.process.IsReducer() }

// OpensCallback reports whether other nodes are embedded in this node's arguments.
func (n *Node) OpensCallback() bool {
	for _, e := range n.edges {
		if e.Kind == EdgeCallback && e.To == n.id {
			return true
		}
	}
	return false
}

// ParentProcess returns the node whose embedded process graph holds n, or nil at the root.
func (n *Node) ParentProcess() (*Node, error) {
	p, err := n.Child(EdgeCallback)
	if err != nil {
		return nil, pgerr.Structure("parent", "node %s is embedded in more than one process", n.id)
	}
	return p, nil
}

// ChildProcesses returns every node embedded directly in n's arguments.
func (n *Node) ChildProcesses() *Graph { return n.Ancestors(EdgeCallback) }

// ResultProcesses returns the result nodes of n's embedded process graphs.
func (n *Node) ResultProcesses() *Graph {
	var ids []string
	for _, c := range n.ChildProcesses().Nodes() {
		if c.IsResult() {
			ids = append(ids, c.id)
		}
	}
	return newGraph(n.arena, ids)
}

// InputDataProcesses returns the nodes providing input data to n.
func (n *Node) InputDataProcesses() *Graph { return n.Ancestors(EdgeData) }

// OutputDataProcesses returns the nodes that run after n and consume its output.
func (n *Node) OutputDataProcesses() *Graph { return n.Descendants(EdgeProcess) }

// Dependencies returns the nodes that must complete before n runs.
func (n *Node) Dependencies() *Graph { return n.Ancestors(EdgeProcess) }

// HasDescendantProcess reports whether a node invoking processID follows n
// over process edges within g.
func (n *Node) HasDescendantProcess(g *Graph, processID string) bool {
	for _, d := range g.Lineage(n, EdgeProcess, false, true).Nodes() {
		if d.ProcessID() == processID {
			return true
		}
	}
	return false
}

// ExpectsParentInput reports whether any argument still reads from_parameter.
func (n *Node) ExpectsParentInput() bool {
	return len(n.parameterRefs()) > 0
}

// Arguments returns the explicit arguments merged with the declared defaults of
// parameters left unset. The result is a copy.
func (n *Node) Arguments() *pgdoc.Object {
	args := pgdoc.NewObject()
	if explicit, ok := n.content.Object(pgdoc.KeyArguments); ok {
		args = explicit.Clone()
	}
	if n.process == nil {
		return args
	}
	for _, p := range n.process.Parameters {
		if !args.Has(p.Name) {
			args.Set(p.Name, p.DefaultValue())
		}
	}
	return args
}

// Parameters returns parameter declarations placed next to embedded process
// graphs in n's arguments, from the first argument that has any.
func (n *Node) Parameters() []pgdoc.Parameter {
	args, ok := n.content.Object(pgdoc.KeyArguments)
	if !ok {
		return nil
	}
	for _, k := range args.Keys() {
		v, _ := args.Get(k)
		o, ok := v.(*pgdoc.Object)
		if !ok {
			continue
		}
		if decl, ok := o.Get(pgdoc.KeyParameters); ok {
			return pgdoc.ParametersFrom(decl)
		}
	}
	return nil
}

// Dimension returns the dimension a reducer works on. A reducer without a
// dimension argument inherits it from its parent process. Non-reducers return nil.
func (n *Node) Dimension() (interface{}, error) {
	if !n.IsReducer() {
		return nil, nil
	}
	if v, ok := n.Arguments().Get("dimension"); ok && v != nil {
		return v, nil
	}
	parent, err := n.ParentProcess()
	if err != nil || parent == nil {
		return nil, err
	}
	return parent.Dimension()
}

func (n *Node) arguments() interface{} {
	v, _ := n.content.Get(pgdoc.KeyArguments)
	return v
}

func (n *Node) parameterRefs() []pgdoc.Ref {
	return pgdoc.Refs(n.arguments(), pgdoc.Path{pgdoc.KeyArguments}, pgdoc.FromParameter)
}

func (n *Node) nodeRefs() []pgdoc.Ref {
	return pgdoc.Refs(n.arguments(), pgdoc.Path{pgdoc.KeyArguments}, pgdoc.FromNode)
}

// scopePath locates, inside parent's content, the argument holding the
// embedded process graph n belongs to.
func (n *Node) scopePath(parent *Node) pgdoc.Path {
	if parent == nil {
		return nil
	}
	return n.keys[len(parent.keys) : len(n.keys)-2].Append()
}

func pretty(o *pgdoc.Object) string {
	if o == nil {
		return "{}"
	}
	b, err := o.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return strings.TrimSpace(string(b))
}
