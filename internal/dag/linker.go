package dag

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
)

// linker resolves symbolic references in a built graph.
type linker struct {
	graph  *Graph
	params map[string]interface{} // global from_parameter table
	logger *slog.Logger
}

// Link runs the three resolution passes over g, updating edges after each:
// from_node references, from_parameter references, then callback results.
func Link(g *Graph, params map[string]interface{}, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	l := &linker{graph: g, params: params, logger: logger}
	passes := []struct {
		name string
		run  func() error
	}{
		{"from_node", l.linkFromNodes},
		{"from_parameter", l.linkFromParameters},
		{"callback", l.linkCallbacks},
	}
	for _, p := range passes {
		if err := p.run(); err != nil {
			return err
		}
		if err := g.Update(); err != nil {
			return fmt.Errorf("%s pass: %w", p.name, err)
		}
	}
	return nil
}

// connect records a data and a process edge from -> to on the target node.
func (l *linker) connect(from, to *Node, hidden bool) {
	for _, kind := range []EdgeKind{EdgeData, EdgeProcess} {
		if to.AddEdge(newEdge(from.id, to.id, kind, hidden)) {
			l.logger.Debug("linked nodes", "from", from.id, "to", to.id, "kind", kind, "hidden", hidden)
		}
	}
}

// -----------------------------------------------------------------------
// from_node
// -----------------------------------------------------------------------

func (l *linker) linkFromNodes() error {
	for _, n := range l.graph.Nodes() {
		partners, err := l.graph.FindPartners(n, EdgeCallback, true)
		if err != nil {
			return err
		}
		for _, ref := range n.nodeRefs() {
			other := partners.ByName(ref.Name)
			if other == nil {
				// Already rewritten to an id.
				other, _ = partners.Node(ref.Name)
			}
			if other == nil {
				return &pgerr.ReferenceError{NodeID: n.id, Kind: pgdoc.KeyFromNode, Name: ref.Name,
					Msg: fmt.Sprintf("node %s: from_node %q does not name a process in the same process graph", n.id, ref.Name)}
			}
			if err := pgdoc.Set(n.content, ref.Path.Append(pgdoc.KeyFromNode), other.id); err != nil {
				return err
			}
			l.connect(other, n, false)
		}
	}
	return nil
}

// -----------------------------------------------------------------------
// from_parameter
// -----------------------------------------------------------------------

// linkFromParameters visits nodes by ascending depth so enclosing nodes are
// bound before the nodes they contain.
func (l *linker) linkFromParameters() error {
	for _, n := range l.graph.sortByDepth().Nodes() {
		refs := n.parameterRefs()
		for _, ref := range refs {
			value, err := l.resolveParameter(n, ref.Name, len(refs))
			if err != nil {
				return err
			}
			if err := pgdoc.Set(n.content, ref.Path, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveParameter finds the value for a from_parameter reference in n, which
// holds refCount such references. Enclosing nodes are searched nearest first.
func (l *linker) resolveParameter(n *Node, name string, refCount int) (interface{}, error) {
	enclosing := l.graph.Lineage(n, EdgeCallback, false, false)
	for _, p := range enclosing.Nodes() {
		if p.process != nil {
			if sub, idx, ok := p.process.SubParameter(name); ok {
				return l.bindSubParameter(n, p, sub, idx, refCount), nil
			}
			if prm, ok := p.process.Param(name); ok {
				return prm.DefaultValue(), nil
			}
		}
		for _, prm := range p.Parameters() {
			if prm.Name == name {
				return prm.DefaultValue(), nil
			}
		}
	}
	if v, ok := l.params[name]; ok {
		return pgdoc.FromValue(v), nil
	}
	return nil, &pgerr.ReferenceError{NodeID: n.id, Kind: pgdoc.KeyFromParameter, Name: name}
}

// bindSubParameter resolves a parameter that parent passes into its embedded
// process graph. Required ones are bound to the data parent receives, or to
// parent itself when it receives none; optional ones take their default.
func (l *linker) bindSubParameter(n, parent *Node, sub pgdoc.Parameter, idx, refCount int) interface{} {
	if !sub.Required() {
		return sub.DefaultValue()
	}
	inputs := parent.InputDataProcesses().Nodes()
	if len(inputs) == 0 {
		l.connect(parent, n, true)
		return pgdoc.NodeRef(parent.id)
	}
	// One reference per input: each sub-parameter maps onto the input at its position.
	if refCount == len(inputs) && idx < len(inputs) {
		inputs = inputs[idx : idx+1]
	}
	refs := make([]interface{}, 0, len(inputs))
	for _, in := range inputs {
		l.connect(in, n, l.encloses(in, n))
		refs = append(refs, pgdoc.NodeRef(in.id))
	}
	if len(refs) == 1 {
		return refs[0]
	}
	return refs
}

// encloses reports whether outer is one of n's enclosing nodes. Such edges are
// hidden so they cannot order a node before its own callback body.
func (l *linker) encloses(outer, n *Node) bool {
	return l.graph.Lineage(n, EdgeCallback, false, false).Contains(outer.id)
}

// -----------------------------------------------------------------------
// callback results
// -----------------------------------------------------------------------

type scopeKey struct {
	parent string
	path   string
}

// linkCallbacks checks that every scope has exactly one result node, then
// replaces each embedded process graph in its parent's arguments with a
// from_node reference to that result.
func (l *linker) linkCallbacks() error {
	type scope struct {
		results []*Node
		parent  *Node
		path    pgdoc.Path
	}
	var order []scopeKey
	scopes := make(map[scopeKey]*scope)

	for _, n := range l.graph.Nodes() {
		parent, err := n.ParentProcess()
		if err != nil {
			return err
		}
		path := n.scopePath(parent)
		key := scopeKey{path: path.String()}
		if parent != nil {
			key.parent = parent.id
		}
		s, ok := scopes[key]
		if !ok {
			s = &scope{parent: parent, path: path}
			scopes[key] = s
			order = append(order, key)
		}
		if n.IsResult() {
			s.results = append(s.results, n)
		}
	}

	for _, key := range order {
		s := scopes[key]
		where := "the root process graph"
		if s.parent != nil {
			where = fmt.Sprintf("the process graph at %s/%s", s.parent.id, key.path)
		}
		switch len(s.results) {
		case 1:
		case 0:
			return pgerr.Structure("scope", "%s has no result node", where)
		default:
			ids := make([]string, len(s.results))
			for i, r := range s.results {
				ids[i] = r.id
			}
			return pgerr.Structure("scope", "%s has %d result nodes %v; exactly one is required", where, len(ids), ids)
		}
		if s.parent == nil {
			continue
		}
		result := s.results[0]
		if err := pgdoc.Set(s.parent.content, s.path, pgdoc.NodeRef(result.id)); err != nil {
			return pgerr.Structure("scope", "node %s: replace callback: %v", s.parent.id, err)
		}
		if s.parent.AddEdge(newEdge(result.id, s.parent.id, EdgeProcess, false)) {
			l.logger.Debug("linked nodes", "from", result.id, "to", s.parent.id, "kind", EdgeProcess)
		}
	}
	return nil
}
