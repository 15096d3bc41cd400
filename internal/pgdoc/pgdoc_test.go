package pgdoc_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
)

const ndviJSON = `{
  "parameters": [{"name": "scale", "schema": {"type": "number"}, "default": 3}],
  "process_graph": {
    "zeta": {"process_id": "load_collection", "arguments": {"id": "S2", "bands": ["B04", "B08"]}},
    "alpha": {"process_id": "save_result", "arguments": {"data": {"from_node": "zeta"}, "ratio": 0.5}, "result": true}
  }
}`

func TestDecodeJSONKeepsKeyOrder(t *testing.T) {
	doc, err := pgdoc.Parse([]byte(ndviJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha"}, doc.ProcessGraph.Keys())

	alpha, ok := doc.ProcessGraph.Object("alpha")
	require.True(t, ok)
	assert.Equal(t, []string{"process_id", "arguments", "result"}, alpha.Keys())
	assert.True(t, alpha.Bool("result"))

	ratio, err := pgdoc.Get(alpha, pgdoc.Path{"arguments", "ratio"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, ratio)

	band, err := pgdoc.Get(doc.ProcessGraph, pgdoc.Path{"zeta", "arguments", "bands", 1})
	require.NoError(t, err)
	assert.Equal(t, "B08", band)

	assert.Equal(t, map[string]interface{}{"scale": int64(3)}, doc.Defaults())
}

func TestDecodeYAMLMatchesJSON(t *testing.T) {
	yamlDoc := `
parameters:
  - name: scale
    schema: {type: number}
    default: 3
process_graph:
  zeta:
    process_id: load_collection
    arguments: {id: S2, bands: [B04, B08]}
  alpha:
    process_id: save_result
    arguments:
      data: {from_node: zeta}
      ratio: 0.5
    result: true
`
	fromYAML, err := pgdoc.Parse([]byte(yamlDoc))
	require.NoError(t, err)
	fromJSON, err := pgdoc.Parse([]byte(ndviJSON))
	require.NoError(t, err)

	assert.True(t, pgdoc.Equal(fromJSON.Raw, fromYAML.Raw))
	assert.Equal(t, fromJSON.ProcessGraph.Keys(), fromYAML.ProcessGraph.Keys())
}

func TestMarshalJSONPreservesOrder(t *testing.T) {
	o, err := pgdoc.DecodeObject([]byte(`{"b": 1, "a": {"z": null, "y": [true, "x"]}}`))
	require.NoError(t, err)

	out, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":{"z":null,"y":[true,"x"]}}`, string(out))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "   ", pgerr.ErrIO},
		{"broken json", `{"process_graph": {`, pgerr.ErrIO},
		{"root is array", `[1, 2]`, pgerr.ErrIO},
		{"no wrapper", `{"lc": {"process_id": "load_collection"}}`, pgerr.ErrStructure},
		{"yaml alias cycle", "process_graph: &pg\n  a: *pg\n", pgerr.ErrIO},
		{"yaml alias in sequence cycle", "process_graph:\n  a: &list [1, *list]\n", pgerr.ErrIO},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pgdoc.Parse([]byte(tc.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pg.json")
	require.NoError(t, os.WriteFile(path, []byte(ndviJSON), 0o644))

	doc, err := pgdoc.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.ProcessGraph.Len())

	_, err = pgdoc.ReadFile(filepath.Join(dir, "missing.json"))
	var ioErr *pgerr.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, ioErr.Path, "missing.json")
}

func TestPathSet(t *testing.T) {
	o, err := pgdoc.DecodeObject([]byte(`{"args": {"list": [{"from_parameter": "x"}, 2]}}`))
	require.NoError(t, err)

	require.NoError(t, pgdoc.Set(o, pgdoc.Path{"args", "list", 0}, pgdoc.NodeRef("lc_0")))
	got, err := pgdoc.Get(o, pgdoc.Path{"args", "list", 0, "from_node"})
	require.NoError(t, err)
	assert.Equal(t, "lc_0", got)

	assert.Error(t, pgdoc.Set(o, pgdoc.Path{"args", "list", 5}, 1))
	assert.Error(t, pgdoc.Set(o, pgdoc.Path{}, 1))
	assert.Equal(t, "args/list/0", pgdoc.Path{"args", "list", 0}.String())
}

func TestClassify(t *testing.T) {
	o, err := pgdoc.DecodeObject([]byte(`{
		"a": {"from_node": "lc"},
		"b": {"from_parameter": "data"},
		"c": {"process_graph": {"m": {"process_id": "mean"}}},
		"d": 5,
		"e": {"from_node": 3}
	}`))
	require.NoError(t, err)

	want := map[string]pgdoc.ArgKind{
		"a": pgdoc.FromNode,
		"b": pgdoc.FromParameter,
		"c": pgdoc.Callback,
		"d": pgdoc.Literal,
		"e": pgdoc.Literal,
	}
	for key, kind := range want {
		v, _ := o.Get(key)
		assert.Equal(t, kind, pgdoc.Classify(v).Kind, key)
	}
	v, _ := o.Get("a")
	assert.Equal(t, "lc", pgdoc.Classify(v).Name)
}

func TestRefsSkipsNestedGraphs(t *testing.T) {
	args, err := pgdoc.DecodeObject([]byte(`{
		"data": {"from_node": "lc"},
		"list": [{"from_parameter": "x"}, {"deep": {"from_node": "other"}}],
		"reducer": {"process_graph": {"m": {"process_id": "mean", "arguments": {"data": {"from_node": "hidden"}}}}}
	}`))
	require.NoError(t, err)

	refs := pgdoc.Refs(args, pgdoc.Path{"arguments"}, pgdoc.FromNode)
	require.Len(t, refs, 2)
	assert.Equal(t, "lc", refs[0].Name)
	assert.Equal(t, pgdoc.Path{"arguments", "data"}, refs[0].Path)
	assert.Equal(t, "other", refs[1].Name)
	assert.Equal(t, pgdoc.Path{"arguments", "list", 1, "deep"}, refs[1].Path)

	params := pgdoc.Refs(args, nil, pgdoc.FromParameter)
	require.Len(t, params, 1)
	assert.Equal(t, pgdoc.Path{"list", 0}, params[0].Path)
}

func TestCloneIsDeep(t *testing.T) {
	o, err := pgdoc.DecodeObject([]byte(`{"a": {"b": [1, 2]}}`))
	require.NoError(t, err)
	c := o.Clone()
	require.NoError(t, pgdoc.Set(c, pgdoc.Path{"a", "b", 0}, "changed"))

	orig, _ := pgdoc.Get(o, pgdoc.Path{"a", "b", 0})
	assert.Equal(t, int64(1), orig)
}

func TestYAMLAliasesExpand(t *testing.T) {
	doc, err := pgdoc.Parse([]byte(`
extent: &extent {west: 16.1, east: 16.6}
process_graph:
  a: {process_id: load_collection, arguments: {id: S2, spatial_extent: *extent}}
  b: {process_id: load_collection, arguments: {id: S1, spatial_extent: *extent}, result: true}
`))
	require.NoError(t, err)
	west, err := pgdoc.Get(doc.ProcessGraph, pgdoc.Path{"b", "arguments", "spatial_extent", "west"})
	require.NoError(t, err)
	assert.Equal(t, 16.1, west)
}

func TestYAMLAliasExpansionIsBounded(t *testing.T) {
	// Nine levels of ten aliases each would expand to 10^9 scalars.
	var b strings.Builder
	b.WriteString("l0: &l0 x\n")
	for i := 1; i <= 9; i++ {
		refs := make([]string, 10)
		for j := range refs {
			refs[j] = "*l" + string(rune('0'+i-1))
		}
		b.WriteString("l" + string(rune('0'+i)) + ": &l" + string(rune('0'+i)) + " [" + strings.Join(refs, ", ") + "]\n")
	}
	b.WriteString("process_graph: {a: *l9}\n")

	start := time.Now()
	_, err := pgdoc.Parse([]byte(b.String()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgerr.ErrIO), "got %v", err)
	assert.Contains(t, err.Error(), "expand beyond")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestJSONEscapes(t *testing.T) {
	o, err := pgdoc.DecodeObject([]byte(`{"href": "https:\/\/openeo.org\/processes", "big": 9007199254740993}`))
	require.NoError(t, err)
	href, _ := o.String("href")
	assert.Equal(t, "https://openeo.org/processes", href)
	big, _ := o.Get("big")
	assert.Equal(t, int64(9007199254740993), big)
}
