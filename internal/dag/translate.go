package dag

import (
	"log/slog"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
)

// Options tune a translation.
type Options struct {
	// Logger receives one Debug record per created edge and an Info summary.
	// Nil means slog.Default().
	Logger *slog.Logger
	// Parameters seed the global from_parameter table. They override the
	// defaults declared in the document's top-level parameters.
	Parameters map[string]interface{}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Translate builds and links the document's process graph. The document is
// not modified; the returned graph owns a copy and is ordered by depth.
func Translate(doc *pgdoc.Document, cat catalog.ProcessCatalog, opts Options) (*Graph, error) {
	logger := opts.logger()

	params := doc.Defaults()
	for k, v := range opts.Parameters {
		params[k] = pgdoc.FromValue(v)
	}

	g, err := Build(doc.ProcessGraph.Clone(), cat, logger)
	if err != nil {
		return nil, err
	}
	if err := Link(g, params, logger); err != nil {
		return nil, err
	}
	g = g.sortByDepth()
	logger.Info("process graph translated",
		"nodes", g.Len(),
		"edges", len(g.Edges(AnyEdge)),
		"max_depth", g.MaxDepth())
	return g, nil
}

// TranslateBytes parses a JSON or YAML document and translates it.
func TranslateBytes(data []byte, cat catalog.ProcessCatalog, opts Options) (*Graph, error) {
	doc, err := pgdoc.Parse(data)
	if err != nil {
		return nil, err
	}
	return Translate(doc, cat, opts)
}

// TranslateFile reads the document at path and translates it.
func TranslateFile(path string, cat catalog.ProcessCatalog, opts Options) (*Graph, error) {
	doc, err := pgdoc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Translate(doc, cat, opts)
}
