package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gyaneshwarpardhi/pgparser/internal/pgerr"
)

var (
	logLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats = map[string]bool{"text": true, "json": true}
)

// Validate checks the config for:
//   - a version
//   - at least one catalog source, with a well-formed remote URL
//   - known log level and format
//   - positive engine limits
//
// All problems are reported together in one ConfigError.
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return &pgerr.ConfigError{Option: "version", Msg: "version is required"}
	}
	var errs []string

	c := cfg.Catalog
	if !c.HasDirs() && c.RemoteURL == "" && c.SQLiteDSN == "" {
		errs = append(errs, "catalog: one of processes_dir, collections_dir, remote_url or sqlite_dsn is required")
	}
	if c.RemoteURL != "" {
		if u, err := url.Parse(c.RemoteURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("catalog.remote_url: %q is not an absolute URL", c.RemoteURL))
		}
	}
	if c.Watch && !c.HasDirs() {
		errs = append(errs, "catalog.watch: requires processes_dir or collections_dir")
	}

	if !logLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level: unknown level %q", cfg.Log.Level))
	}
	if !logFormats[strings.ToLower(cfg.Log.Format)] {
		errs = append(errs, fmt.Sprintf("log.format: unknown format %q", cfg.Log.Format))
	}

	e := cfg.Engine
	for _, f := range []struct {
		name string
		v    int
	}{
		{"engine.workers", e.Workers},
		{"engine.queue_depth", e.QueueDepth},
		{"engine.job_timeout_ms", e.JobTimeoutMs},
		{"engine.max_results", e.MaxResults},
		{"server.read_timeout_ms", cfg.Server.ReadTimeoutMs},
		{"server.write_timeout_ms", cfg.Server.WriteTimeoutMs},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Sprintf("%s: must not be negative, got %d", f.name, f.v))
		}
	}

	for name := range cfg.Parameters {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, "parameters: names must not be blank")
		}
	}

	if len(errs) > 0 {
		return &pgerr.ConfigError{Option: "config", Msg: "validation errors:\n  - " + strings.Join(errs, "\n  - ")}
	}
	return nil
}
