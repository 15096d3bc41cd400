package dag

// EdgeKind classifies the relationship an edge records.
type EdgeKind string

const (
	// EdgeData means the source's output is passed to the target as input.
	EdgeData EdgeKind = "data"
	// EdgeProcess means the target must run after the source.
	EdgeProcess EdgeKind = "process"
	// EdgeCallback links a child node (From) to the node whose embedded process graph holds it (To).
	EdgeCallback EdgeKind = "callback"
	// AnyEdge matches every kind in traversal queries.
	AnyEdge EdgeKind = ""
)

// Edge connects two nodes by id. Both endpoints list it once Graph.Update has run.
type Edge struct {
	ID     string
	Kind   EdgeKind
	From   string
	To     string
	Hidden bool // ignored when sorting
}

func newEdge(from, to string, kind EdgeKind, hidden bool) *Edge {
	return &Edge{ID: from + "_" + to, Kind: kind, From: from, To: to, Hidden: hidden}
}

// Equal compares endpoints and kind. Hidden and ID are not part of an edge's identity.
func (e *Edge) Equal(o *Edge) bool {
	return e.From == o.From && e.To == o.To && e.Kind == o.Kind
}

// Other returns the endpoint that is not id.
func (e *Edge) Other(id string) string {
	if e.From == id {
		return e.To
	}
	return e.From
}

func (e *Edge) matches(kind EdgeKind) bool {
	return kind == AnyEdge || e.Kind == kind
}

func (e *Edge) key() string {
	return e.From + "\x00" + e.To + "\x00" + string(e.Kind)
}
