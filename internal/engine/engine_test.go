package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/catalog/catalogtest"
	"github.com/gyaneshwarpardhi/pgparser/internal/config"
	"github.com/gyaneshwarpardhi/pgparser/internal/job"
	"github.com/gyaneshwarpardhi/pgparser/internal/validate"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const reduceDoc = `{"process_graph": {
  "lc": {"process_id": "load_collection", "arguments": {"id": "COPERNICUS/S2"}},
  "rd": {"process_id": "reduce_dimension", "arguments": {
    "data": {"from_node": "lc"}, "dimension": "t",
    "reducer": {"process_graph": {"m": {"process_id": "mean", "arguments": {"data": {"from_parameter": "data"}}, "result": true}}}
  }},
  "save": {"process_id": "save_result", "arguments": {"data": {"from_node": "rd"}, "format": "GTiff"}, "result": true}
}}`

func newTestEngine(t *testing.T, conf config.EngineConf) *Engine {
	t.Helper()
	if conf.JobTimeoutMs == 0 {
		conf.JobTimeoutMs = 2000
	}
	if conf.QueueDepth == 0 {
		conf.QueueDepth = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := New(ctx, catalogtest.Store(), conf, quiet)
	t.Cleanup(func() {
		cancel()
		e.Shutdown()
	})
	return e
}

func TestRunTranslate(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 2})

	req := job.NewRequest(job.KindTranslate, []byte(reduceDoc))
	req.Sort = "dependency"
	res, err := e.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, job.StatusDone, res.Status)
	assert.Equal(t, req.ID, res.ID)
	require.NotNil(t, res.Graph)
	assert.Equal(t, []string{"lc_0", "m_2", "rd_1", "save_3"}, res.Graph.Order)
	assert.Len(t, res.Graph.Nodes, 4)
	assert.Equal(t, "rd_1", res.Graph.Nodes[1].Parent)
}

func TestRunDepthOrderWithoutSort(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 1})

	res, err := e.Run(context.Background(), job.NewRequest(job.KindTranslate, []byte(reduceDoc)))
	require.NoError(t, err)
	require.NotNil(t, res.Graph)
	assert.Empty(t, res.Graph.Order)
	ids := make([]string, len(res.Graph.Nodes))
	for i, n := range res.Graph.Nodes {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"lc_0", "rd_1", "save_3", "m_2"}, ids)
}

func TestRunValidate(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 1})

	res, err := e.Run(context.Background(), job.NewRequest(job.KindValidate, []byte(`{"process_graph": {
	  "lc": {"process_id": "load_collection", "arguments": {"id": "COPERNICUS/S2", "bands": ["B99"]}, "result": true}
	}}`)))
	require.NoError(t, err)
	require.NotNil(t, res.Valid)
	assert.False(t, *res.Valid)
	require.Len(t, res.Problems, 1)
	assert.Equal(t, validate.KindBand, res.Problems[0].Kind)
}

func TestRunReportsTranslationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  *job.Request
		kind string
	}{
		{
			name: "reference",
			req: job.NewRequest(job.KindTranslate, []byte(`{"process_graph": {
			  "s": {"process_id": "save_result", "arguments": {"data": {"from_node": "ghost"}, "format": "GTiff"}, "result": true}
			}}`)),
			kind: "reference",
		},
		{name: "io", req: job.NewRequest(job.KindTranslate, []byte(`{"process_graph": `)), kind: "io"},
		{
			name: "process as arguments value",
			req: job.NewRequest(job.KindTranslate, []byte(`{"process_graph": {
			  "a": {"process_id": "apply", "arguments": {"process_id": "multiply", "result": true}, "result": true}
			}}`)),
			kind: "structure",
		},
		{name: "unknown sort", req: &job.Request{ID: "x", Kind: job.KindTranslate, Sort: "random", Document: []byte(reduceDoc)}, kind: "config"},
		{name: "unknown kind", req: &job.Request{ID: "y", Kind: "render", Document: []byte(reduceDoc)}, kind: "config"},
	}
	e := newTestEngine(t, config.EngineConf{Workers: 2})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.Run(context.Background(), tc.req)
			require.NoError(t, err)
			assert.True(t, res.Failed())
			assert.Equal(t, tc.kind, res.ErrorKind)
			assert.NotEmpty(t, res.Error)
			assert.Nil(t, res.Graph)
		})
	}
}

func TestParametersMerge(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 1})
	e.SetParameters(map[string]interface{}{"factor": 2, "offset": 1})

	doc := []byte(`{"process_graph": {
	  "m": {"process_id": "multiply", "arguments": {"x": {"from_parameter": "offset"}, "y": {"from_parameter": "factor"}}, "result": true}
	}}`)
	req := job.NewRequest(job.KindTranslate, doc)
	req.Parameters = map[string]interface{}{"factor": 5}
	res, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res.Graph)

	args := res.Graph.Nodes[0].Arguments
	y, _ := args.Get("y")
	x, _ := args.Get("x")
	assert.Equal(t, int64(5), y)
	assert.Equal(t, int64(1), x)
}

func TestSubmitAndResult(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 2})

	req := job.NewRequest(job.KindTranslate, []byte(reduceDoc))
	require.True(t, e.Submit(req))

	require.Eventually(t, func() bool {
		res, ok := e.Result(req.ID)
		return ok && res.Status == job.StatusDone
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := e.Result("unknown")
	assert.False(t, ok)
}

func TestQueueFull(t *testing.T) {
	// No workers: queued jobs are never taken.
	e := newTestEngine(t, config.EngineConf{Workers: 0, QueueDepth: 1, JobTimeoutMs: 50})

	first := job.NewRequest(job.KindTranslate, []byte(reduceDoc))
	require.True(t, e.Submit(first))
	res, ok := e.Result(first.ID)
	require.True(t, ok)
	assert.Equal(t, job.StatusQueued, res.Status)
	assert.Equal(t, 1.0, e.QueueUtilization())

	second := job.NewRequest(job.KindTranslate, []byte(reduceDoc))
	assert.False(t, e.Submit(second))
	res, ok = e.Result(second.ID)
	require.True(t, ok)
	assert.True(t, res.Failed())

	_, err := e.Run(context.Background(), job.NewRequest(job.KindTranslate, []byte(reduceDoc)))
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestRunTimeout(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 0, QueueDepth: 4, JobTimeoutMs: 20})

	_, err := e.Run(context.Background(), job.NewRequest(job.KindTranslate, []byte(reduceDoc)))
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestSwapCatalog(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 1})
	e.SwapCatalog(catalog.NewStore())

	res, err := e.Run(context.Background(), job.NewRequest(job.KindTranslate, []byte(reduceDoc)))
	require.NoError(t, err)
	assert.Equal(t, "schema", res.ErrorKind)
	assert.Empty(t, e.Catalog().ProcessIDs())
}

// panicCatalog fails every process lookup with a panic.
type panicCatalog struct{ catalog.Catalog }

func (panicCatalog) LookupProcess(id string) (*catalog.Process, error) {
	panic("lookup " + id)
}

func TestRunRecoversFromPanic(t *testing.T) {
	e := newTestEngine(t, config.EngineConf{Workers: 1})
	e.SwapCatalog(panicCatalog{catalogtest.Store()})

	res, err := e.Run(context.Background(), job.NewRequest(job.KindTranslate, []byte(reduceDoc)))
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, "internal", res.ErrorKind)
	assert.Contains(t, res.Error, "job panicked: lookup load_collection")

	e.SwapCatalog(catalogtest.Store())
	res, err = e.Run(context.Background(), job.NewRequest(job.KindTranslate, []byte(reduceDoc)))
	require.NoError(t, err)
	assert.Equal(t, job.StatusDone, res.Status)
}

func TestSubmitAfterShutdown(t *testing.T) {
	e := New(context.Background(), catalogtest.Store(), config.EngineConf{Workers: 1, QueueDepth: 4, JobTimeoutMs: 100}, quiet)
	e.Shutdown()
	e.Shutdown()
	assert.False(t, e.Submit(job.NewRequest(job.KindTranslate, []byte(reduceDoc))))
}

func TestResultStoreEvictsOldest(t *testing.T) {
	s := newResultStore(2)
	for _, id := range []string{"a", "b", "c"} {
		s.put(&job.Result{ID: id, Status: job.StatusDone})
	}
	_, ok := s.get("a")
	assert.False(t, ok)
	_, ok = s.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, s.len())

	s.put(&job.Result{ID: "b", Status: job.StatusFailed})
	r, _ := s.get("b")
	assert.Equal(t, job.StatusFailed, r.Status)
	assert.Equal(t, 2, s.len())
}
