package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/config"
	"github.com/gyaneshwarpardhi/pgparser/internal/dag"
	"github.com/gyaneshwarpardhi/pgparser/internal/job"
	"github.com/gyaneshwarpardhi/pgparser/internal/metrics"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
	"github.com/gyaneshwarpardhi/pgparser/internal/validate"
)

var (
	// ErrQueueFull is returned when no queue slot is free.
	ErrQueueFull = errors.New("job queue full")
	// ErrTimeout is returned by Run when a job outlives the configured deadline.
	ErrTimeout = errors.New("job timed out")
	// ErrPanic marks a job whose processing panicked.
	ErrPanic = errors.New("job panicked")
)

// Engine runs translation jobs on a bounded worker pool. Every job builds its
// own graph; only the catalog is shared and it is read-only.
type Engine struct {
	catalog atomic.Pointer[catalogRef]
	params  atomic.Pointer[map[string]interface{}]
	pool    *workerPool[*work, *job.Result]
	results *resultStore
	conf    config.EngineConf
	logger  *slog.Logger
}

type catalogRef struct{ catalog.Catalog }

type work struct {
	req     *job.Request
	resultC chan *job.Result // nil for async jobs
}

// New creates an Engine using conf and starts the worker pool.
func New(ctx context.Context, cat catalog.Catalog, conf config.EngineConf, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		results: newResultStore(conf.MaxResults),
		conf:    conf,
		logger:  logger,
	}
	e.SwapCatalog(cat)
	e.SetParameters(nil)

	e.pool = newWorkerPool[*work, *job.Result](
		ctx,
		conf.Workers,
		conf.QueueDepth,
		func(ctx context.Context, w *work) *job.Result {
			res := e.process(w.req)
			if w.resultC != nil {
				w.resultC <- res
			} else {
				e.results.put(res)
			}
			return res
		},
	)
	return e
}

// SwapCatalog atomically replaces the catalog (used on reload). Jobs already
// running keep the catalog they started with.
func (e *Engine) SwapCatalog(cat catalog.Catalog) {
	e.catalog.Store(&catalogRef{cat})
	metrics.CatalogProcesses.Set(float64(len(cat.ProcessIDs())))
}

// Catalog returns the active catalog.
func (e *Engine) Catalog() catalog.Catalog {
	return e.catalog.Load().Catalog
}

// SetParameters replaces the global from_parameter table applied to every job.
func (e *Engine) SetParameters(params map[string]interface{}) {
	cp := make(map[string]interface{}, len(params))
	for k, v := range params {
		cp[k] = v
	}
	e.params.Store(&cp)
}

// Run processes req synchronously and returns its result. Translation
// failures are reported inside the result; the error is only set when the
// job could not run to completion.
func (e *Engine) Run(ctx context.Context, req *job.Request) (*job.Result, error) {
	resultC := make(chan *job.Result, 1)
	if !e.pool.Submit(&work{req: req, resultC: resultC}) {
		metrics.JobsDropped.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.JobsEnqueued.Inc()

	timeout := e.conf.JobTimeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-resultC:
		return res, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Submit enqueues req for background processing; the result becomes
// available through Result. Returns false if the queue is full.
func (e *Engine) Submit(req *job.Request) bool {
	e.results.put(job.Queued(req))
	if !e.pool.Submit(&work{req: req}) {
		metrics.JobsDropped.Inc()
		e.results.put(&job.Result{ID: req.ID, Kind: req.Kind, Status: job.StatusFailed,
			Error: ErrQueueFull.Error(), ErrorKind: "queue"})
		return false
	}
	metrics.JobsEnqueued.Inc()
	return true
}

// Result returns the stored result of an async job.
func (e *Engine) Result(id string) (*job.Result, bool) {
	return e.results.get(id)
}

// QueueUtilization returns queue used / capacity (0-1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

func (e *Engine) parameters(extra map[string]interface{}) map[string]interface{} {
	base := *e.params.Load()
	if len(extra) == 0 {
		return base
	}
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (e *Engine) process(req *job.Request) *job.Result {
	start := time.Now()
	cat := e.Catalog()
	logger := e.logger.With("job", req.ID)
	opts := dag.Options{Logger: logger, Parameters: e.parameters(req.Parameters)}

	res := &job.Result{ID: req.ID, Kind: req.Kind, Status: job.StatusDone}
	err := e.runRecovered(req, cat, opts, res)
	res.DurationMs = float64(time.Since(start).Microseconds()) / 1000

	outcome := "ok"
	if err != nil {
		res.Status = job.StatusFailed
		res.Error = err.Error()
		res.ErrorKind = pgerr.Kind(err)
		outcome = res.ErrorKind
		logger.Info("job failed", "kind", req.Kind, "error_kind", res.ErrorKind, "err", err)
	}
	metrics.JobsProcessed.WithLabelValues(string(req.Kind), outcome).Inc()
	metrics.JobDuration.WithLabelValues(string(req.Kind)).Observe(res.DurationMs)
	return res
}

// runRecovered is run with a panic reported as an ErrPanic error.
func (e *Engine) runRecovered(req *job.Request, cat catalog.Catalog, opts dag.Options, res *job.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			opts.Logger.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return e.run(req, cat, opts, res)
}

func (e *Engine) run(req *job.Request, cat catalog.Catalog, opts dag.Options, res *job.Result) error {
	if req.Kind != job.KindTranslate && req.Kind != job.KindValidate {
		return &pgerr.ConfigError{Option: "kind", Msg: fmt.Sprintf("unknown job kind %q", req.Kind)}
	}
	g, err := dag.TranslateBytes(req.Document, cat, opts)
	if err != nil {
		return err
	}
	metrics.GraphNodes.Observe(float64(g.Len()))

	if req.Kind == job.KindValidate {
		valid, problems, err := validate.Graph(g, cat, cat, opts.Logger)
		if err != nil {
			return err
		}
		for _, p := range problems {
			metrics.ValidationProblems.WithLabelValues(p.Kind).Inc()
		}
		res.Valid = &valid
		res.Problems = problems
		return nil
	}

	sorted := g
	if req.Sort != "" {
		if sorted, err = g.Sort(req.Sort); err != nil {
			return err
		}
	}
	view := sorted.View()
	if req.Sort != "" {
		view.Order = sorted.IDs()
	}
	res.Graph = &view
	return nil
}

// Shutdown drains the pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
