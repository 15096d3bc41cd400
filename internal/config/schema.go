package config

import "time"

// Config is the top-level YAML structure of the parser service.
type Config struct {
	Version    string                 `yaml:"version"`
	Server     ServerConf             `yaml:"server"`
	Log        LogConf                `yaml:"log"`
	Catalog    CatalogConf            `yaml:"catalog"`
	Engine     EngineConf             `yaml:"engine"`
	Parameters map[string]interface{} `yaml:"parameters"` // global from_parameter defaults
}

// ServerConf configures the HTTP listener.
type ServerConf struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

// LogConf selects the slog handler.
type LogConf struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// CatalogConf lists the process and collection sources. They are queried in
// the order directories, sqlite, remote.
type CatalogConf struct {
	ProcessesDir   string `yaml:"processes_dir"`
	CollectionsDir string `yaml:"collections_dir"`
	RemoteURL      string `yaml:"remote_url"`
	SQLiteDSN      string `yaml:"sqlite_dsn"`
	Watch          bool   `yaml:"watch"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	Workers      int `yaml:"workers"`
	QueueDepth   int `yaml:"queue_depth"`
	JobTimeoutMs int `yaml:"job_timeout_ms"`
	MaxResults   int `yaml:"max_results"`
}

// JobTimeout returns the per-job deadline.
func (e EngineConf) JobTimeout() time.Duration {
	return time.Duration(e.JobTimeoutMs) * time.Millisecond
}

// ReadTimeout returns the server read timeout.
func (s ServerConf) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the server write timeout.
func (s ServerConf) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMs) * time.Millisecond
}

// HasDirs reports whether a directory source is configured.
func (c CatalogConf) HasDirs() bool {
	return c.ProcessesDir != "" || c.CollectionsDir != ""
}
