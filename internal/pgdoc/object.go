// Package pgdoc holds the process graph wire format: an order-preserving object
// model decoded from JSON or YAML, key paths into it, and the typed argument variants.
package pgdoc

import (
	"bytes"
	"encoding/json"
)

// Object is a JSON object that remembers key insertion order.
// Values are nil, bool, int64, float64, string, []interface{} or *Object.
type Object struct {
	keys []string
	vals map[string]interface{}
}

// NewObject allocates an empty Object.
func NewObject() *Object {
	return &Object{vals: make(map[string]interface{})}
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (interface{}, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (o *Object) Set(key string, v interface{}) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key if present.
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// String returns the value under key if it is a string.
func (o *Object) String(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the value under key if it is a bool.
func (o *Object) Bool(key string) bool {
	v, _ := o.Get(key)
	b, _ := v.(bool)
	return b
}

// Object returns the value under key if it is an object.
func (o *Object) Object(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Object)
	return sub, ok
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	return Clone(o).(*Object)
}

// Clone deep-copies any document value.
func Clone(v interface{}) interface{} {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return (*Object)(nil)
		}
		c := &Object{keys: make([]string, len(t.keys)), vals: make(map[string]interface{}, len(t.vals))}
		copy(c.keys, t.keys)
		for k, val := range t.vals {
			c.vals[k] = Clone(val)
		}
		return c
	case []interface{}:
		c := make([]interface{}, len(t))
		for i, val := range t {
			c[i] = Clone(val)
		}
		return c
	default:
		return v
	}
}

// Equal reports whether two document values are deeply equal. Key order is ignored.
func Equal(a, b interface{}) bool {
	switch at := a.(type) {
	case *Object:
		bt, ok := b.(*Object)
		if !ok || at.Len() != bt.Len() {
			return false
		}
		for _, k := range at.keys {
			bv, ok := bt.Get(k)
			if !ok || !Equal(at.vals[k], bv) {
				return false
			}
		}
		return true
	case []interface{}:
		bt, ok := b.([]interface{})
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	case int64:
		switch bt := b.(type) {
		case int64:
			return at == bt
		case float64:
			return float64(at) == bt
		}
		return false
	case float64:
		switch bt := b.(type) {
		case float64:
			return at == bt
		case int64:
			return at == float64(bt)
		}
		return false
	default:
		return a == b
	}
}

// ToMap converts o into plain maps and slices, losing key order.
func (o *Object) ToMap() map[string]interface{} {
	if o == nil {
		return nil
	}
	return plain(o).(map[string]interface{})
}

func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case *Object:
		m := make(map[string]interface{}, len(t.keys))
		for _, k := range t.keys {
			m[k] = plain(t.vals[k])
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

// FromValue converts plain Go values (maps, slices, numbers) into document values.
// Map keys of plain maps are not ordered, so callers needing order should build Objects directly.
func FromValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Object:
		return t
	case map[string]interface{}:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			o.Set(k, FromValue(t[k]))
		}
		return o
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = FromValue(e)
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// MarshalJSON writes the object with its keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return errNotObject
	}
	*o = *obj
	return nil
}
