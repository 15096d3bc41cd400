package pgdoc

// ArgKind discriminates the shapes an argument value can take.
type ArgKind int

const (
	Literal ArgKind = iota
	FromNode
	FromParameter
	Callback
)

func (k ArgKind) String() string {
	switch k {
	case FromNode:
		return "from_node"
	case FromParameter:
		return "from_parameter"
	case Callback:
		return "callback"
	default:
		return "literal"
	}
}

// Document keys with special meaning.
const (
	KeyFromNode      = "from_node"
	KeyFromParameter = "from_parameter"
	KeyProcessGraph  = "process_graph"
	KeyProcessID     = "process_id"
	KeyArguments     = "arguments"
	KeyParameters    = "parameters"
	KeyResult        = "result"
)

// Argument is one argument value, classified once.
type Argument struct {
	Kind  ArgKind
	Name  string      // referenced name for FromNode and FromParameter
	Graph *Object     // embedded process graph for Callback
	Value interface{} // the raw value
}

// Classify inspects v and returns its variant.
func Classify(v interface{}) Argument {
	o, ok := v.(*Object)
	if !ok {
		return Argument{Kind: Literal, Value: v}
	}
	if name, ok := o.String(KeyFromNode); ok {
		return Argument{Kind: FromNode, Name: name, Value: v}
	}
	if name, ok := o.String(KeyFromParameter); ok {
		return Argument{Kind: FromParameter, Name: name, Value: v}
	}
	if pg, ok := o.Object(KeyProcessGraph); ok {
		return Argument{Kind: Callback, Graph: pg, Value: v}
	}
	return Argument{Kind: Literal, Value: v}
}

// NodeRef builds the {"from_node": id} value.
func NodeRef(id string) *Object {
	o := NewObject()
	o.Set(KeyFromNode, id)
	return o
}

// Ref is a from_node or from_parameter reference found while walking a value.
type Ref struct {
	Kind ArgKind
	Name string
	Path Path // location of the reference object
}

// Refs collects the references of the given kind in v, in document order.
// Embedded process graphs are not entered; their references belong to their own nodes.
func Refs(v interface{}, base Path, kind ArgKind) []Ref {
	var out []Ref
	walkRefs(v, base, kind, &out)
	return out
}

func walkRefs(v interface{}, at Path, kind ArgKind, out *[]Ref) {
	switch t := v.(type) {
	case *Object:
		arg := Classify(t)
		if arg.Kind == FromNode || arg.Kind == FromParameter {
			if arg.Kind == kind {
				*out = append(*out, Ref{Kind: kind, Name: arg.Name, Path: at})
			}
			return
		}
		for _, k := range t.keys {
			if k == KeyProcessGraph {
				continue
			}
			walkRefs(t.vals[k], at.Append(k), kind, out)
		}
	case []interface{}:
		for i, e := range t {
			walkRefs(e, at.Append(i), kind, out)
		}
	}
}
