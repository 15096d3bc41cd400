package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/dag"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgdoc"
	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
	"github.com/gyaneshwarpardhi/pgparser/internal/validate"
)

// readDocument parses the file at path, or stdin for "-".
func readDocument(cmd *cobra.Command, path string) (*pgdoc.Document, error) {
	if path != "-" {
		return pgdoc.ReadFile(path)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, &pgerr.IOError{Path: "stdin", Err: err}
	}
	return pgdoc.Parse(data)
}

// translateFile opens the catalog and translates the document at path.
func (o *options) translateFile(cmd *cobra.Command, path string) (*dag.Graph, catalog.Catalog, func(), error) {
	doc, err := readDocument(cmd, path)
	if err != nil {
		return nil, nil, nil, err
	}
	topts, err := o.translateOptions()
	if err != nil {
		return nil, nil, nil, err
	}
	cat, err := o.openCatalog(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() { _ = cat.Close() }
	g, err := dag.Translate(doc, cat, topts)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return g, cat, closeFn, nil
}

func newTranslateCmd(opts *options) *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "translate <file|->",
		Short: "Translate a process graph and print its nodes and edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, closeFn, err := opts.translateFile(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			view := g
			if sortBy != "" {
				if view, err = g.Sort(sortBy); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				v := view.View()
				if sortBy != "" {
					v.Order = view.IDs()
				}
				return printJSON(out, v)
			}

			nodes := newTable("ID", "PROCESS", "DEPTH", "PARENT", "RESULT")
			for _, n := range view.Nodes() {
				parent := "-"
				if p, err := n.ParentProcess(); err == nil && p != nil {
					parent = p.ID()
				}
				nodes.addRow(n.ID(), n.ProcessID(), strconv.Itoa(n.Depth()), parent, strconv.FormatBool(n.IsResult()))
			}
			nodes.render(out)
			fmt.Fprintln(out)

			edges := newTable("FROM", "TO", "KIND")
			for _, e := range g.Edges(dag.AnyEdge) {
				kind := string(e.Kind)
				if e.Hidden {
					kind += " (hidden)"
				}
				edges.addRow(e.From, e.To, kind)
			}
			edges.render(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", "order nodes by "+strings.Join(dag.Strategies, ", "))
	return cmd
}

func newSortCmd(opts *options) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "sort <file|->",
		Short: "Print the node execution order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, closeFn, err := opts.translateFile(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			sorted, err := g.Sort(by)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, map[string]interface{}{"by": by, "order": sorted.IDs()})
			}
			for _, id := range sorted.IDs() {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", dag.SortDependency, "strategy: "+strings.Join(dag.Strategies, ", "))
	return cmd
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a process graph against the process and collection catalogs",
		Long: `validate translates the process graph, then reports unknown processes,
missing required arguments, unknown collections and unknown bands.
The exit status is 1 when problems are found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, cat, closeFn, err := opts.translateFile(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			valid, problems, err := validate.Graph(g, cat, cat, opts.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				if err := printJSON(out, map[string]interface{}{"valid": valid, "problems": problems}); err != nil {
					return err
				}
			} else if valid {
				printSuccess(out, "%s is valid", args[0])
			} else {
				for _, p := range problems {
					errorColor.Fprintf(out, "%-10s ", p.Kind)
					fmt.Fprintf(out, "%s %s\n", p.NodeID, dimColor.Sprint(p.Message))
				}
				fmt.Fprintf(out, "%d problem(s) found\n", len(problems))
			}
			if !valid {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

func newCatalogCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and copy process catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("requires a subcommand\n\nRun '%s --help' for usage", cmd.CommandPath())
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the processes of the configured catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer cat.Close()

			reducers, err := reducerIDs(cmd.Context(), cat)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, map[string]interface{}{
					"processes":   cat.ProcessIDs(),
					"reducers":    reducers.ids(),
					"collections": cat.CollectionIDs(),
				})
			}
			t := newTable("PROCESS", "REDUCER", "SUMMARY")
			for _, id := range cat.ProcessIDs() {
				p, err := cat.LookupProcess(id)
				if err != nil {
					return err
				}
				t.addRow(p.ID, strconv.FormatBool(reducers[p.ID]), p.Summary)
			}
			t.render(out)
			fmt.Fprintf(out, "\n%d processes, %d collections\n", len(cat.ProcessIDs()), len(cat.CollectionIDs()))
			return nil
		},
	}

	var dsn string
	imp := &cobra.Command{
		Use:   "import",
		Short: "Copy the configured directory and remote catalogs into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := opts.sources()
			src.SQLiteDSN = ""
			if src.Empty() {
				return fmt.Errorf("nothing to import: pass --processes, --collections or --remote")
			}
			from, err := catalog.Open(cmd.Context(), src, opts.logger)
			if err != nil {
				return err
			}
			defer from.Close()

			to, err := catalog.OpenSQL(dsn)
			if err != nil {
				return err
			}
			defer to.Close()

			procs, colls, err := to.Import(cmd.Context(), from)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"processes": procs, "collections": colls, "dsn": dsn})
			}
			printSuccess(cmd.OutOrStdout(), "imported %d processes and %d collections into %s", procs, colls, dsn)
			return nil
		},
	}
	imp.Flags().StringVar(&dsn, "dsn", "", "target SQLite database")
	_ = imp.MarkFlagRequired("dsn")

	cmd.AddCommand(list, imp)
	return cmd
}

type idSet map[string]bool

func (s idSet) ids() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// reducerIDs collects the reducer processes of cat. The SQLite backend
// answers from its is_reducer column; the others are asked per process.
func reducerIDs(ctx context.Context, cat *catalog.Opened) (idSet, error) {
	set := make(idSet)
	if cat.SQL != nil {
		ids, err := cat.SQL.Reducers(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set[id] = true
		}
	}
	for _, id := range cat.ProcessIDs() {
		if set[id] {
			continue
		}
		p, err := cat.LookupProcess(id)
		if err != nil {
			return nil, err
		}
		if p.IsReducer() {
			set[id] = true
		}
	}
	return set, nil
}
