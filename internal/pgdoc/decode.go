package pgdoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	errNotObject = errors.New("document root is not an object")
	errEmpty     = errors.New("empty document")
)

// Decode parses a JSON or YAML document into ordered document values.
// Input starting with '{' or '[' is read as JSON, anything else as YAML.
func Decode(data []byte) (interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errEmpty
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return decodeJSON(trimmed)
	}
	return decodeYAML(trimmed)
}

// DecodeObject is Decode for documents whose root must be an object.
func DecodeObject(data []byte) (*Object, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*Object)
	if !ok {
		return nil, errNotObject
	}
	return o, nil
}

// -----------------------------------------------------------------------
// JSON
// -----------------------------------------------------------------------

func decodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after offset %d", dec.InputOffset())
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key at offset %d is not a string", dec.InputOffset())
				}
				val, err := readJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				o.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return o, nil
		case '[':
			arr := []interface{}{}
			for dec.More() {
				val, err := readJSON(dec)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", len(arr), err)
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q at offset %d", t, dec.InputOffset())
	case json.Number:
		return number(t.String())
	default:
		return t, nil // string, bool, nil
	}
}

func number(s string) (interface{}, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}

// -----------------------------------------------------------------------
// YAML
// -----------------------------------------------------------------------

// aliasAllowance is how many nodes alias expansion may add on top of the
// size of the document itself.
const aliasAllowance = 1 << 16

var (
	errAliasCycle    = errors.New("yaml alias refers to a node that contains it")
	errAliasExpanded = errors.New("yaml aliases expand beyond the allowed document size")
)

func decodeYAML(data []byte) (interface{}, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errEmpty
	}
	r := &yamlReader{budget: len(data) + aliasAllowance, open: make(map[*yaml.Node]bool)}
	return r.read(root.Content[0])
}

// yamlReader converts a node tree, expanding aliases. budget bounds the
// number of nodes produced; open holds the anchored nodes being converted.
type yamlReader struct {
	budget int
	open   map[*yaml.Node]bool
}

func (r *yamlReader) read(n *yaml.Node) (interface{}, error) {
	r.budget--
	if r.budget < 0 {
		return nil, errAliasExpanded
	}
	if n.Anchor != "" {
		r.open[n] = true
		defer delete(r.open, n)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return r.read(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil || r.open[n.Alias] {
			return nil, fmt.Errorf("line %d: *%s: %w", n.Line, n.Value, errAliasCycle)
		}
		return r.read(n.Alias)
	case yaml.MappingNode:
		o := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key is not a scalar", k.Line)
			}
			val, err := r.read(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k.Value, err)
			}
			o.Set(k.Value, val)
		}
		return o, nil
	case yaml.SequenceNode:
		arr := make([]interface{}, 0, len(n.Content))
		for i, c := range n.Content {
			val, err := r.read(c)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		if n.Tag == "!!timestamp" || n.Tag == "!!binary" {
			return n.Value, nil
		}
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return FromValue(v), nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
