package catalog

import (
	"fmt"
	"sort"
)

// Dimension describes one axis of a collection's data cube.
type Dimension struct {
	Type   string        `json:"type" yaml:"type"`
	Axis   string        `json:"axis,omitempty" yaml:"axis,omitempty"`
	Values []interface{} `json:"values,omitempty" yaml:"values,omitempty"`
	Extent []interface{} `json:"extent,omitempty" yaml:"extent,omitempty"`
	Step   interface{}   `json:"step,omitempty" yaml:"step,omitempty"`
}

// Collection is an openEO collection's metadata; only what validation needs is typed.
type Collection struct {
	ID          string               `json:"id" yaml:"id"`
	Title       string               `json:"title,omitempty" yaml:"title,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Dimensions  map[string]Dimension `json:"cube:dimensions,omitempty" yaml:"cube:dimensions,omitempty"`
}

// BandNames returns the values of every dimension of type "bands".
// Dimensions are visited in name order so the result is stable.
func (c *Collection) BandNames() []string {
	names := make([]string, 0, len(c.Dimensions))
	for name := range c.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)

	var bands []string
	for _, name := range names {
		dim := c.Dimensions[name]
		if dim.Type != "bands" {
			continue
		}
		for _, v := range dim.Values {
			bands = append(bands, fmt.Sprint(v))
		}
	}
	return bands
}
