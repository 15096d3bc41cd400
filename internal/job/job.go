// Package job holds the request and result model of translation jobs.
package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/pgparser/internal/dag"
	"github.com/gyaneshwarpardhi/pgparser/internal/validate"
)

// Kind selects what a job does with its document.
type Kind string

const (
	KindTranslate Kind = "translate"
	KindValidate  Kind = "validate"
)

// Status of a job.
type Status string

const (
	StatusQueued Status = "queued"
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Request is one process graph document to translate or validate.
type Request struct {
	ID         string                 `json:"id"`
	Kind       Kind                   `json:"kind"`
	Sort       string                 `json:"sort,omitempty"` // empty keeps depth order
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Document   []byte                 `json:"-"` // JSON or YAML
	ReceivedAt time.Time              `json:"-"`
}

// NewRequest returns a request with a fresh id.
func NewRequest(kind Kind, doc []byte) *Request {
	return &Request{
		ID:         uuid.NewString(),
		Kind:       kind,
		Document:   doc,
		ReceivedAt: time.Now(),
	}
}

// Result is the outcome of one request.
type Result struct {
	ID         string             `json:"id"`
	Kind       Kind               `json:"kind"`
	Status     Status             `json:"status"`
	DurationMs float64            `json:"duration_ms"`
	Graph      *dag.View          `json:"graph,omitempty"`
	Valid      *bool              `json:"valid,omitempty"`
	Problems   []validate.Problem `json:"problems,omitempty"`
	Error      string             `json:"error,omitempty"`
	ErrorKind  string             `json:"error_kind,omitempty"` // see pgerr.Kind
}

// Queued returns the placeholder result stored while req waits for a worker.
func Queued(req *Request) *Result {
	return &Result{ID: req.ID, Kind: req.Kind, Status: StatusQueued}
}

// Failed reports whether the job ended with an error.
func (r *Result) Failed() bool { return r.Status == StatusFailed }
