package pgdoc

import (
	"fmt"
	"strconv"
	"strings"
)

// Path addresses a value inside a document. Elements are object keys (string)
// or array indices (int).
type Path []interface{}

// Append returns a copy of p extended by elems. The receiver is never aliased.
func (p Path) Append(elems ...interface{}) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)
	return append(out, elems...)
}

// Last returns the final element, or nil for the empty path.
func (p Path) Last() interface{} {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		switch t := e.(type) {
		case int:
			parts[i] = strconv.Itoa(t)
		default:
			parts[i] = fmt.Sprint(t)
		}
	}
	return strings.Join(parts, "/")
}

// Get resolves p against root.
func Get(root interface{}, p Path) (interface{}, error) {
	cur := root
	for i, e := range p {
		switch k := e.(type) {
		case string:
			o, ok := cur.(*Object)
			if !ok {
				return nil, fmt.Errorf("path %s: element %d is not an object", p, i)
			}
			v, ok := o.Get(k)
			if !ok {
				return nil, fmt.Errorf("path %s: key %q not found", p, k)
			}
			cur = v
		case int:
			arr, ok := cur.([]interface{})
			if !ok || k < 0 || k >= len(arr) {
				return nil, fmt.Errorf("path %s: index %d out of range", p, k)
			}
			cur = arr[k]
		default:
			return nil, fmt.Errorf("path %s: invalid element %v", p, e)
		}
	}
	return cur, nil
}

// Set replaces the value addressed by p. The container holding the last
// element must already exist; an empty path cannot be set.
func Set(root interface{}, p Path, v interface{}) error {
	if len(p) == 0 {
		return fmt.Errorf("cannot set the document root")
	}
	parent, err := Get(root, p[:len(p)-1])
	if err != nil {
		return err
	}
	switch k := p.Last().(type) {
	case string:
		o, ok := parent.(*Object)
		if !ok {
			return fmt.Errorf("path %s: parent is not an object", p)
		}
		o.Set(k, v)
	case int:
		arr, ok := parent.([]interface{})
		if !ok || k < 0 || k >= len(arr) {
			return fmt.Errorf("path %s: index %d out of range", p, k)
		}
		arr[k] = v
	default:
		return fmt.Errorf("path %s: invalid element %v", p, k)
	}
	return nil
}
