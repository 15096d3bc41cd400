package dag

import (
	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
)

// NodeView is the serialisable form of a node.
type NodeView struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	ProcessID string        `json:"process_id"`
	Depth     int           `json:"depth"`
	Result    bool          `json:"result,omitempty"`
	Parent    string        `json:"parent,omitempty"`
	Arguments *pgdoc.Object `json:"arguments,omitempty"`
}

// EdgeView is the serialisable form of an edge.
type EdgeView struct {
	ID     string   `json:"id"`
	Kind   EdgeKind `json:"kind"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Hidden bool     `json:"hidden,omitempty"`
}

// View is a graph flattened for JSON output.
type View struct {
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
	Order []string   `json:"order,omitempty"`
}

// View exports the nodes and edges of g. Arguments are the resolved explicit arguments.
func (g *Graph) View() View {
	v := View{Nodes: make([]NodeView, 0, g.Len())}
	for _, n := range g.Nodes() {
		nv := NodeView{
			ID:        n.id,
			Name:      n.name,
			ProcessID: n.ProcessID(),
			Depth:     n.depth,
			Result:    n.IsResult(),
		}
		if args, ok := n.content.Object(pgdoc.KeyArguments); ok {
			nv.Arguments = args
		}
		if p, err := n.ParentProcess(); err == nil && p != nil {
			nv.Parent = p.id
		}
		v.Nodes = append(v.Nodes, nv)
	}
	edges := g.Edges(AnyEdge)
	v.Edges = make([]EdgeView, 0, len(edges))
	for _, e := range edges {
		v.Edges = append(v.Edges, EdgeView{ID: e.ID, Kind: e.Kind, From: e.From, To: e.To, Hidden: e.Hidden})
	}
	return v
}
