// Package validate checks a translated process graph against process and
// collection catalogs. Findings are collected, not raised.
package validate

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/dag"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
)

// Problem kinds.
const (
	KindProcess    = "process"
	KindParameter  = "parameter"
	KindCollection = "collection"
	KindBand       = "band"
)

const loadCollection = "load_collection"

// Problem is one finding about one node.
type Problem struct {
	NodeID    string `json:"node_id"`
	ProcessID string `json:"process_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.NodeID, p.Message)
}

// Processes reports nodes whose process is unknown to cat and nodes missing a
// required argument. Catalog failures other than a miss are returned as errors.
func Processes(g *dag.Graph, cat catalog.ProcessCatalog) ([]Problem, error) {
	var problems []Problem
	for _, n := range g.Nodes() {
		pid := n.ProcessID()
		proc, err := cat.LookupProcess(pid)
		if errors.Is(err, catalog.ErrNotFound) {
			problems = append(problems, Problem{NodeID: n.ID(), ProcessID: pid, Kind: KindProcess,
				Message: fmt.Sprintf("'%s' is not in the current set of process definitions", pid)})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID(), err)
		}

		args, _ := n.Content().Object(pgdoc.KeyArguments)
		for _, prm := range proc.Parameters {
			if !prm.Required() || prm.Default != nil {
				continue
			}
			if args != nil && args.Has(prm.Name) {
				continue
			}
			problems = append(problems, Problem{NodeID: n.ID(), ProcessID: pid, Kind: KindParameter,
				Message: fmt.Sprintf("Parameter '%s' is required for process '%s'", prm.Name, pid)})
		}
	}
	return problems, nil
}

// Collections reports load_collection nodes naming a collection unknown to cat
// or requesting bands the collection does not declare. Band names compare
// case-insensitively; collections declaring no bands accept any.
func Collections(g *dag.Graph, cat catalog.CollectionCatalog) ([]Problem, error) {
	var problems []Problem
	for _, n := range g.Nodes() {
		if n.ProcessID() != loadCollection {
			continue
		}
		args := n.Arguments()
		id, ok := args.String("id")
		if !ok {
			v, _ := args.Get("id")
			problems = append(problems, Problem{NodeID: n.ID(), ProcessID: loadCollection, Kind: KindCollection,
				Message: fmt.Sprintf("collection id must be a string, got %v", v)})
			continue
		}
		coll, err := cat.LookupCollection(id)
		if errors.Is(err, catalog.ErrNotFound) {
			problems = append(problems, Problem{NodeID: n.ID(), ProcessID: loadCollection, Kind: KindCollection,
				Message: fmt.Sprintf("'%s' is not in the current set of collections", id)})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID(), err)
		}

		available := coll.BandNames()
		if len(available) == 0 {
			continue
		}
		known := make(map[string]bool, len(available))
		quoted := make([]string, len(available))
		for i, b := range available {
			known[strings.ToLower(b)] = true
			quoted[i] = "'" + strings.ToLower(b) + "'"
		}
		requested, _ := args.Get("bands")
		list, _ := requested.([]interface{})
		for _, b := range list {
			name := strings.ToLower(fmt.Sprint(b))
			if known[name] {
				continue
			}
			problems = append(problems, Problem{NodeID: n.ID(), ProcessID: loadCollection, Kind: KindBand,
				Message: fmt.Sprintf("'%s' is not a valid band name for collection '%s' with the following bands: %s",
					name, coll.ID, strings.Join(quoted, ", "))})
		}
	}
	return problems, nil
}

// Document translates doc and runs both checks. Translation failures are
// returned as errors; findings come back as problems, each logged at Warn.
func Document(doc *pgdoc.Document, procs catalog.ProcessCatalog, colls catalog.CollectionCatalog, opts dag.Options) (bool, []Problem, error) {
	g, err := dag.Translate(doc, procs, opts)
	if err != nil {
		return false, nil, err
	}
	return Graph(g, procs, colls, opts.Logger)
}

// Graph runs both checks on an already translated graph. A nil colls skips
// the collection check.
func Graph(g *dag.Graph, procs catalog.ProcessCatalog, colls catalog.CollectionCatalog, logger *slog.Logger) (bool, []Problem, error) {
	if logger == nil {
		logger = slog.Default()
	}
	problems, err := Processes(g, procs)
	if err != nil {
		return false, nil, err
	}
	if colls != nil {
		more, err := Collections(g, colls)
		if err != nil {
			return false, nil, err
		}
		problems = append(problems, more...)
	}
	for _, p := range problems {
		logger.Warn("process graph problem", "node", p.NodeID, "process", p.ProcessID, "kind", p.Kind, "msg", p.Message)
	}
	return len(problems) == 0, problems, nil
}
