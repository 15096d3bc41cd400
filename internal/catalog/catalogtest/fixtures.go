// Package catalogtest provides a small openEO process and collection catalog for tests.
package catalogtest

import (
	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
)

func req(name string) catalog.Parameter {
	return catalog.Parameter{Name: name, Schema: map[string]interface{}{}}
}

func opt(name string, def interface{}) catalog.Parameter {
	return catalog.Parameter{Name: name, Schema: map[string]interface{}{}, Optional: true, Default: def}
}

// callback is a parameter whose schema embeds a process graph receiving params.
func callback(name string, optional bool, params ...catalog.Parameter) catalog.Parameter {
	list := make([]interface{}, len(params))
	for i, p := range params {
		m := map[string]interface{}{"name": p.Name, "schema": map[string]interface{}{}}
		if p.Optional {
			m["optional"] = true
			m["default"] = p.Default
		}
		list[i] = m
	}
	return catalog.Parameter{
		Name:     name,
		Optional: optional,
		Schema: map[string]interface{}{
			"type":       "object",
			"subtype":    "process-graph",
			"parameters": list,
		},
	}
}

// Processes returns the process definitions used across tests.
func Processes() []*catalog.Process {
	return []*catalog.Process{
		{ID: "load_collection", Categories: []string{"cubes", "import"}, Parameters: []catalog.Parameter{
			req("id"),
			opt("spatial_extent", nil),
			opt("temporal_extent", nil),
			opt("bands", nil),
			// properties maps property names to filter callbacks receiving "value".
			{Name: "properties", Optional: true, Schema: []interface{}{
				map[string]interface{}{
					"type":                 "object",
					"additionalProperties": map[string]interface{}{},
				},
				map[string]interface{}{
					"type":       "object",
					"subtype":    "process-graph",
					"parameters": []interface{}{map[string]interface{}{"name": "value", "schema": map[string]interface{}{}}},
				},
				map[string]interface{}{"type": "null"},
			}},
		}},
		{ID: "save_result", Categories: []string{"cubes", "export"}, Parameters: []catalog.Parameter{
			req("data"), req("format"), opt("options", map[string]interface{}{}),
		}},
		{ID: "reduce_dimension", Categories: []string{"cubes", "reducer"}, Parameters: []catalog.Parameter{
			req("data"),
			callback("reducer", false, req("data"), opt("context", nil)),
			req("dimension"),
			opt("context", nil),
		}},
		{ID: "apply", Categories: []string{"cubes"}, Parameters: []catalog.Parameter{
			req("data"),
			callback("process", false, req("x"), opt("context", nil)),
			opt("context", nil),
		}},
		{ID: "merge_cubes", Categories: []string{"cubes"}, Parameters: []catalog.Parameter{
			req("cube1"),
			req("cube2"),
			callback("overlap_resolver", true, req("x"), req("y"), opt("context", nil)),
			opt("context", nil),
		}},
		{ID: "mean", Categories: []string{"math", "reducer"}, Parameters: []catalog.Parameter{
			req("data"), opt("ignore_nodata", true),
		}},
		{ID: "max", Categories: []string{"math", "reducer"}, Parameters: []catalog.Parameter{
			req("data"), opt("ignore_nodata", true),
		}},
		{ID: "min", Categories: []string{"math", "reducer"}, Parameters: []catalog.Parameter{
			req("data"), opt("ignore_nodata", true),
		}},
		{ID: "sum", Categories: []string{"math", "reducer"}, Parameters: []catalog.Parameter{
			req("data"), opt("ignore_nodata", true),
		}},
		{ID: "array_element", Categories: []string{"arrays"}, Parameters: []catalog.Parameter{
			req("data"), opt("index", nil), opt("label", nil), opt("return_nodata", false),
		}},
		{ID: "normalized_difference", Categories: []string{"math"}, Parameters: []catalog.Parameter{
			req("x"), req("y"),
		}},
		{ID: "linear_scale_range", Categories: []string{"math"}, Parameters: []catalog.Parameter{
			req("x"), req("inputMin"), req("inputMax"), opt("outputMin", 0), opt("outputMax", 1),
		}},
		{ID: "multiply", Categories: []string{"math"}, Parameters: []catalog.Parameter{req("x"), req("y")}},
		{ID: "add", Categories: []string{"math"}, Parameters: []catalog.Parameter{req("x"), req("y")}},
		{ID: "eq", Categories: []string{"comparison"}, Parameters: []catalog.Parameter{
			req("x"), req("y"), opt("delta", nil), opt("case_sensitive", true),
		}},
		{ID: "lte", Categories: []string{"comparison"}, Parameters: []catalog.Parameter{req("x"), req("y")}},
	}
}

// Collections returns collection metadata used across tests.
func Collections() []*catalog.Collection {
	return []*catalog.Collection{
		{
			ID: "COPERNICUS/S2",
			Dimensions: map[string]catalog.Dimension{
				"x":     {Type: "spatial", Axis: "x"},
				"y":     {Type: "spatial", Axis: "y"},
				"t":     {Type: "temporal"},
				"bands": {Type: "bands", Values: []interface{}{"B02", "B03", "B04", "B08"}},
			},
		},
	}
}

// Store returns a fresh in-memory catalog holding Processes and Collections.
func Store() *catalog.Store {
	return catalog.NewStoreFrom(Processes(), Collections())
}
