package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Sources names the backends to open. Empty fields are skipped.
type Sources struct {
	ProcessesDir   string
	CollectionsDir string
	SQLiteDSN      string
	RemoteURL      string
	Client         *http.Client // for RemoteURL; nil uses the Remote default
}

// Empty reports whether no backend is named.
func (s Sources) Empty() bool {
	return s.ProcessesDir == "" && s.CollectionsDir == "" && s.SQLiteDSN == "" && s.RemoteURL == ""
}

// Opened is the Chain built by Open together with the backends that need
// managing afterwards.
type Opened struct {
	Chain
	Dir *Dir      // nil without directories
	SQL *SQLStore // nil without a DSN
}

// Open builds a Chain over the named backends in the order directories,
// SQLite, remote.
func Open(ctx context.Context, src Sources, logger *slog.Logger) (*Opened, error) {
	if src.Empty() {
		return nil, errors.New("catalog: no source configured")
	}
	o := &Opened{}
	if src.ProcessesDir != "" || src.CollectionsDir != "" {
		d, err := OpenDir(src.ProcessesDir, src.CollectionsDir, logger)
		if err != nil {
			return nil, err
		}
		o.Dir = d
		o.Chain = append(o.Chain, d)
	}
	if src.SQLiteDSN != "" {
		s, err := OpenSQL(src.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		o.SQL = s
		o.Chain = append(o.Chain, s)
	}
	if src.RemoteURL != "" {
		r, err := NewRemote(ctx, src.RemoteURL, src.Client)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("remote catalog %s: %w", src.RemoteURL, err)
		}
		o.Chain = append(o.Chain, r)
	}
	if logger != nil {
		logger.Info("catalog opened", "members", len(o.Chain), "processes", len(o.ProcessIDs()))
	}
	return o, nil
}

// Close releases the SQLite handle, if any.
func (o *Opened) Close() error {
	if o.SQL != nil {
		return o.SQL.Close()
	}
	return nil
}
