package catalog

import (
	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
)

// Parameter is a declared process parameter.
type Parameter = pgdoc.Parameter

// Process is an openEO process definition.
type Process struct {
	ID           string                 `json:"id" yaml:"id"`
	Summary      string                 `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Categories   []string               `json:"categories,omitempty" yaml:"categories,omitempty"`
	Parameters   []Parameter            `json:"parameters" yaml:"parameters"`
	Returns      interface{}            `json:"returns,omitempty" yaml:"returns,omitempty"`
	Exceptions   map[string]interface{} `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
	ProcessGraph interface{}            `json:"process_graph,omitempty" yaml:"process_graph,omitempty"`
}

// IsReducer reports whether the process carries the "reducer" category.
func (p *Process) IsReducer() bool {
	for _, c := range p.Categories {
		if c == "reducer" {
			return true
		}
	}
	return false
}

// Param returns the declared parameter with the given name.
func (p *Process) Param(name string) (Parameter, bool) {
	for _, prm := range p.Parameters {
		if prm.Name == name {
			return prm, true
		}
	}
	return Parameter{}, false
}

// SubParameters returns the parameters a callback argument of this process
// passes into its embedded process graph, in declaration order. Names are unique;
// the first declaration wins.
func (p *Process) SubParameters() []Parameter {
	var out []Parameter
	seen := make(map[string]bool)
	for _, prm := range p.Parameters {
		for _, schema := range schemas(prm.Schema) {
			for _, sub := range parametersOf(schema) {
				if seen[sub.Name] {
					continue
				}
				seen[sub.Name] = true
				out = append(out, sub)
			}
		}
	}
	return out
}

// SubParameter returns a sub-parameter and its position in SubParameters.
func (p *Process) SubParameter(name string) (Parameter, int, bool) {
	for i, sub := range p.SubParameters() {
		if sub.Name == name {
			return sub, i, true
		}
	}
	return Parameter{}, -1, false
}

// schemas flattens a parameter schema, which is either one schema or a list of alternatives.
func schemas(s interface{}) []interface{} {
	switch t := s.(type) {
	case []interface{}:
		return t
	case nil:
		return nil
	default:
		return []interface{}{t}
	}
}

func parametersOf(schema interface{}) []Parameter {
	var list interface{}
	switch t := schema.(type) {
	case map[string]interface{}:
		list = t["parameters"]
	case *pgdoc.Object:
		list, _ = t.Get("parameters")
	default:
		return nil
	}
	entries, ok := list.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Parameter, 0, len(entries))
	for _, e := range entries {
		switch m := e.(type) {
		case map[string]interface{}:
			out = append(out, parameterFromMap(m))
		case *pgdoc.Object:
			out = append(out, pgdoc.ParameterFromObject(m))
		}
	}
	return out
}

func parameterFromMap(m map[string]interface{}) Parameter {
	p := Parameter{Schema: m["schema"], Default: m["default"]}
	p.Name, _ = m["name"].(string)
	p.Description, _ = m["description"].(string)
	p.Optional, _ = m["optional"].(bool)
	return p
}
