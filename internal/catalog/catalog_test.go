package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/catalog/catalogtest"
)

func TestSubParameters(t *testing.T) {
	s := catalogtest.Store()

	reduce, err := s.LookupProcess("reduce_dimension")
	require.NoError(t, err)
	assert.True(t, reduce.IsReducer())

	subs := reduce.SubParameters()
	require.Len(t, subs, 2)
	assert.Equal(t, "data", subs[0].Name)
	assert.True(t, subs[0].Required())
	assert.Equal(t, "context", subs[1].Name)
	assert.True(t, subs[1].Optional)

	merge, err := s.LookupProcess("merge_cubes")
	require.NoError(t, err)
	p, idx, ok := merge.SubParameter("y")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.True(t, p.Required())
	assert.False(t, merge.IsReducer())

	lc, err := s.LookupProcess("load_collection")
	require.NoError(t, err)
	_, _, ok = lc.SubParameter("value")
	assert.True(t, ok, "sub-parameters are found among schema alternatives")

	mean, err := s.LookupProcess("mean")
	require.NoError(t, err)
	assert.Empty(t, mean.SubParameters())
}

func TestStoreLookupMiss(t *testing.T) {
	s := catalogtest.Store()
	_, err := s.LookupProcess("nope")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
	_, err = s.LookupCollection("nope")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestStoreRegisterPanicsOnDuplicate(t *testing.T) {
	s := catalog.NewStore()
	s.Register(&catalog.Process{ID: "mean"})
	assert.Panics(t, func() { s.Register(&catalog.Process{ID: "mean"}) })
}

func TestBandNames(t *testing.T) {
	s := catalogtest.Store()
	c, err := s.LookupCollection("COPERNICUS/S2")
	require.NoError(t, err)
	assert.Equal(t, []string{"B02", "B03", "B04", "B08"}, c.BandNames())
}

func TestChain(t *testing.T) {
	first := catalog.NewStoreFrom([]*catalog.Process{{ID: "mean", Description: "first"}}, nil)
	second := catalog.NewStoreFrom(
		[]*catalog.Process{{ID: "mean", Description: "second"}, {ID: "max"}},
		[]*catalog.Collection{{ID: "S2"}},
	)
	chain := catalog.Chain{first, second}

	p, err := chain.LookupProcess("mean")
	require.NoError(t, err)
	assert.Equal(t, "first", p.Description)

	_, err = chain.LookupProcess("max")
	assert.NoError(t, err)
	_, err = chain.LookupCollection("S2")
	assert.NoError(t, err)
	_, err = chain.LookupProcess("min")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))

	assert.Equal(t, []string{"max", "mean"}, chain.ProcessIDs())
	assert.Equal(t, []string{"S2"}, chain.CollectionIDs())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDirLoadsJSONAndYAML(t *testing.T) {
	procDir := t.TempDir()
	colDir := t.TempDir()
	writeFile(t, procDir, "mean.json", `{"id": "mean", "categories": ["reducer"], "parameters": [{"name": "data", "schema": {}}]}`)
	writeFile(t, procDir, "listing.yaml", `
processes:
  - id: apply
    parameters:
      - name: data
        schema: {}
      - name: process
        schema:
          type: object
          parameters:
            - name: x
              schema: {}
            - name: context
              schema: {}
              optional: true
`)
	writeFile(t, procDir, "README.md", "ignored")
	writeFile(t, colDir, "s2.json", `{"id": "S2", "cube:dimensions": {"bands": {"type": "bands", "values": ["B04", "B08"]}}}`)

	d, err := catalog.OpenDir(procDir, colDir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"apply", "mean"}, d.ProcessIDs())
	mean, err := d.LookupProcess("mean")
	require.NoError(t, err)
	assert.True(t, mean.IsReducer())

	apply, err := d.LookupProcess("apply")
	require.NoError(t, err)
	x, idx, ok := apply.SubParameter("context")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.True(t, x.Optional)

	col, err := d.LookupCollection("S2")
	require.NoError(t, err)
	assert.Equal(t, []string{"B04", "B08"}, col.BandNames())
}

func TestDirReloadKeepsPreviousOnError(t *testing.T) {
	procDir := t.TempDir()
	writeFile(t, procDir, "mean.json", `{"id": "mean", "parameters": []}`)

	d, err := catalog.OpenDir(procDir, "", nil)
	require.NoError(t, err)

	var notified int
	d.OnChange(func(*catalog.Store) { notified++ })

	writeFile(t, procDir, "max.json", `{"id": "max", "parameters": []}`)
	_, err = d.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
	assert.Equal(t, []string{"max", "mean"}, d.ProcessIDs())

	writeFile(t, procDir, "broken.json", `{"id": `)
	_, err = d.Reload()
	require.Error(t, err)
	assert.Equal(t, 1, notified)
	assert.Equal(t, []string{"max", "mean"}, d.ProcessIDs())
}

func TestOpenDirMissing(t *testing.T) {
	_, err := catalog.OpenDir(filepath.Join(t.TempDir(), "absent"), "", nil)
	assert.Error(t, err)
}

func TestRemote(t *testing.T) {
	var collectionHits int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /processes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"processes": catalogtest.Processes(),
		})
	})
	mux.HandleFunc("GET /collections", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"collections": []map[string]string{{"id": "COPERNICUS/S2"}},
		})
	})
	mux.HandleFunc("GET /collections/{id...}", func(w http.ResponseWriter, r *http.Request) {
		collectionHits++
		for _, c := range catalogtest.Collections() {
			if c.ID == r.PathValue("id") {
				json.NewEncoder(w).Encode(c)
				return
			}
		}
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r, err := catalog.NewRemote(context.Background(), srv.URL+"/", srv.Client())
	require.NoError(t, err)

	p, err := r.LookupProcess("reduce_dimension")
	require.NoError(t, err)
	assert.True(t, p.IsReducer())
	assert.Len(t, p.SubParameters(), 2)

	c, err := r.LookupCollection("COPERNICUS/S2")
	require.NoError(t, err)
	assert.Contains(t, c.BandNames(), "B08")
	_, err = r.LookupCollection("COPERNICUS/S2")
	require.NoError(t, err)
	assert.Equal(t, 1, collectionHits)

	_, err = r.LookupCollection("unknown")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
	assert.Equal(t, []string{"COPERNICUS/S2"}, r.CollectionIDs())
}

func TestRemoteListingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := catalog.NewRemote(context.Background(), srv.URL, nil)
	assert.Error(t, err)
}

func TestSQLStoreImport(t *testing.T) {
	ctx := context.Background()
	s, err := catalog.OpenSQL(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer s.Close()

	np, nc, err := s.Import(ctx, catalogtest.Store())
	require.NoError(t, err)
	assert.Equal(t, len(catalogtest.Processes()), np)
	assert.Equal(t, len(catalogtest.Collections()), nc)

	p, err := s.LookupProcess("reduce_dimension")
	require.NoError(t, err)
	sub, idx, ok := p.SubParameter("data")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.True(t, sub.Required())

	c, err := s.LookupCollection("COPERNICUS/S2")
	require.NoError(t, err)
	assert.Equal(t, []string{"B02", "B03", "B04", "B08"}, c.BandNames())

	_, err = s.LookupProcess("nope")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))

	reducers, err := s.Reducers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"max", "mean", "min", "reduce_dimension", "sum"}, reducers)

	require.NoError(t, s.PutProcess(ctx, &catalog.Process{ID: "mean", Description: "replaced"}))
	p, err = s.LookupProcess("mean")
	require.NoError(t, err)
	assert.Equal(t, "replaced", p.Description)
	assert.Contains(t, s.ProcessIDs(), "apply")

	// The replacement carries no reducer category, so the column follows it.
	reducers, err = s.Reducers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"max", "min", "reduce_dimension", "sum"}, reducers)

	require.NoError(t, s.PutCollection(ctx, &catalog.Collection{ID: "LANDSAT/8"}))
	assert.Equal(t, []string{"COPERNICUS/S2", "LANDSAT/8"}, s.CollectionIDs())

	// Importing again replaces rows instead of failing on the primary key.
	np, _, err = s.Import(ctx, catalogtest.Store())
	require.NoError(t, err)
	assert.Equal(t, len(catalogtest.Processes()), np)
	reducers, err = s.Reducers(ctx)
	require.NoError(t, err)
	assert.Contains(t, reducers, "mean")
}

func TestOpenSources(t *testing.T) {
	ctx := context.Background()
	procDir := t.TempDir()
	writeFile(t, procDir, "mean.json", `{"id": "mean", "summary": "from dir", "parameters": []}`)

	dsn := filepath.Join(t.TempDir(), "catalog.db")
	s, err := catalog.OpenSQL(dsn)
	require.NoError(t, err)
	_, _, err = s.Import(ctx, catalogtest.Store())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	o, err := catalog.Open(ctx, catalog.Sources{ProcessesDir: procDir, SQLiteDSN: dsn}, nil)
	require.NoError(t, err)
	defer o.Close()

	require.Len(t, o.Chain, 2)
	require.NotNil(t, o.Dir)
	require.NotNil(t, o.SQL)

	mean, err := o.LookupProcess("mean")
	require.NoError(t, err)
	assert.Equal(t, "from dir", mean.Summary)

	_, err = o.LookupProcess("reduce_dimension")
	assert.NoError(t, err)
	_, err = o.LookupCollection("COPERNICUS/S2")
	assert.NoError(t, err)
}

func TestOpenSourcesErrors(t *testing.T) {
	ctx := context.Background()
	assert.True(t, catalog.Sources{}.Empty())

	_, err := catalog.Open(ctx, catalog.Sources{}, nil)
	assert.Error(t, err)

	_, err = catalog.Open(ctx, catalog.Sources{ProcessesDir: filepath.Join(t.TempDir(), "absent")}, nil)
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err = catalog.Open(ctx, catalog.Sources{RemoteURL: srv.URL, Client: srv.Client()}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote catalog")
}

func TestShippedDefinitions(t *testing.T) {
	d, err := catalog.OpenDir("../../configs/processes", "../../configs/collections", nil)
	require.NoError(t, err)

	reduce, err := d.LookupProcess("reduce_dimension")
	require.NoError(t, err)
	assert.True(t, reduce.IsReducer())
	assert.Len(t, reduce.SubParameters(), 2)

	lc, err := d.LookupProcess("load_collection")
	require.NoError(t, err)
	_, _, ok := lc.SubParameter("value")
	assert.True(t, ok)

	s2, err := d.LookupCollection("COPERNICUS/S2")
	require.NoError(t, err)
	assert.Contains(t, s2.BandNames(), "B8A")
}
