// Package cli provides the commands of the pgparse tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/config"
	"github.com/gyaneshwarpardhi/pgparser/internal/dag"
	"github.com/gyaneshwarpardhi/pgparser/internal/logging"
)

// options holds the global flags.
type options struct {
	configFile     string
	processesDir   string
	collectionsDir string
	remoteURL      string
	sqliteDSN      string
	logLevel       string
	jsonOut        bool
	params         []string

	logger *slog.Logger
	cfg    *config.Config // nil without --config
}

// exitError carries a process exit code without an error message.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// NewRootCmd builds the command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "pgparse",
		Short: "Translate, sort and validate openEO process graphs",
		Long: `pgparse parses openEO process graph documents (JSON or YAML) into a
linked graph of process nodes, orders them and checks them against process
and collection catalogs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "service config file to take catalog sources and parameters from")
	f.StringVar(&opts.processesDir, "processes", "", "directory of process definitions (.json, .yaml)")
	f.StringVar(&opts.collectionsDir, "collections", "", "directory of collection definitions (.json, .yaml)")
	f.StringVar(&opts.remoteURL, "remote", "", "openEO back-end root URL serving /processes and /collections")
	f.StringVar(&opts.sqliteDSN, "sqlite", "", "SQLite catalog database")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	f.BoolVar(&opts.jsonOut, "json", false, "print JSON instead of text")
	f.StringArrayVar(&opts.params, "param", nil, "global parameter name=value (repeatable, value parsed as YAML)")

	root.AddCommand(
		newTranslateCmd(opts),
		newSortCmd(opts),
		newValidateCmd(opts),
		newCatalogCmd(opts),
	)
	return root
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		printError(os.Stderr, "%v", err)
		return 2
	}
	return 0
}

func (o *options) setup(errOut io.Writer) error {
	if _, err := logging.ParseLevel(o.logLevel); err != nil {
		return err
	}
	o.logger = logging.New(o.logLevel, "text", errOut)
	if o.configFile == "" {
		return nil
	}
	data, err := os.ReadFile(o.configFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// sources merges catalog flags over the config file.
func (o *options) sources() catalog.Sources {
	var s catalog.Sources
	if o.cfg != nil {
		c := o.cfg.Catalog
		s = catalog.Sources{ProcessesDir: c.ProcessesDir, CollectionsDir: c.CollectionsDir,
			SQLiteDSN: c.SQLiteDSN, RemoteURL: c.RemoteURL}
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&s.ProcessesDir, o.processesDir)
	override(&s.CollectionsDir, o.collectionsDir)
	override(&s.SQLiteDSN, o.sqliteDSN)
	override(&s.RemoteURL, o.remoteURL)
	return s
}

func (o *options) openCatalog(ctx context.Context) (*catalog.Opened, error) {
	src := o.sources()
	if src.Empty() {
		return nil, errors.New("no catalog: pass --processes, --sqlite, --remote or --config")
	}
	return catalog.Open(ctx, src, o.logger)
}

// parameters parses --param flags over the config file's parameters.
func (o *options) parameters() (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if o.cfg != nil {
		for k, v := range o.cfg.Parameters {
			out[k] = v
		}
	}
	for _, p := range o.params {
		name, raw, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--param %q: want name=value", p)
		}
		var v interface{}
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("--param %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func (o *options) translateOptions() (dag.Options, error) {
	params, err := o.parameters()
	if err != nil {
		return dag.Options{}, err
	}
	return dag.Options{Logger: o.logger, Parameters: params}, nil
}
