package pgdoc

import (
	"fmt"
	"os"

	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
)

// Parameter declares a named input, either on a process definition or at the
// top of a process graph document.
type Parameter struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      interface{} `json:"schema,omitempty" yaml:"schema,omitempty"`
	Optional    bool        `json:"optional,omitempty" yaml:"optional,omitempty"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`
}

// Required is the inverse of Optional.
func (p Parameter) Required() bool { return !p.Optional }

// DefaultValue returns the default converted to document values.
func (p Parameter) DefaultValue() interface{} { return FromValue(p.Default) }

// ParameterFromObject reads a parameter declaration.
func ParameterFromObject(o *Object) Parameter {
	p := Parameter{Optional: o.Bool("optional")}
	p.Name, _ = o.String("name")
	p.Description, _ = o.String("description")
	p.Schema, _ = o.Get("schema")
	p.Default, _ = o.Get("default")
	return p
}

// ParametersFrom reads a list of parameter declarations; entries that are not objects are skipped.
func ParametersFrom(v interface{}) []Parameter {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Parameter, 0, len(list))
	for _, e := range list {
		if o, ok := e.(*Object); ok {
			out = append(out, ParameterFromObject(o))
		}
	}
	return out
}

// Document is a decoded process graph document.
type Document struct {
	Raw          *Object
	Parameters   []Parameter
	ProcessGraph *Object
}

// Parse decodes data and unwraps its process_graph.
func Parse(data []byte) (*Document, error) {
	o, err := DecodeObject(data)
	if err != nil {
		return nil, &pgerr.IOError{Err: err}
	}
	return FromObject(o)
}

// ReadFile reads and parses the document at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pgerr.IOError{Path: path, Err: err}
	}
	o, err := DecodeObject(data)
	if err != nil {
		return nil, &pgerr.IOError{Path: path, Err: err}
	}
	return FromObject(o)
}

// FromObject wraps an already decoded document.
func FromObject(o *Object) (*Document, error) {
	pg, ok := o.Object(KeyProcessGraph)
	if !ok {
		return nil, pgerr.Structure("wrapper",
			"processes must be declared inside a %q object", KeyProcessGraph)
	}
	d := &Document{Raw: o, ProcessGraph: pg}
	if v, ok := o.Get(KeyParameters); ok {
		d.Parameters = ParametersFrom(v)
	}
	return d, nil
}

// Defaults returns the document's parameter defaults keyed by name.
func (d *Document) Defaults() map[string]interface{} {
	out := make(map[string]interface{}, len(d.Parameters))
	for _, p := range d.Parameters {
		out[p.Name] = p.DefaultValue()
	}
	return out
}

func (d *Document) String() string {
	return fmt.Sprintf("document(%d processes, %d parameters)", d.ProcessGraph.Len(), len(d.Parameters))
}
