package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS processes (
	id          TEXT PRIMARY KEY,
	is_reducer  INTEGER NOT NULL DEFAULT 0,
	definition  TEXT NOT NULL,
	update_time DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS collections (
	id          TEXT PRIMARY KEY,
	definition  TEXT NOT NULL,
	update_time DATETIME NOT NULL
);`

type definitionRow struct {
	ID         string    `db:"id"`
	IsReducer  bool      `db:"is_reducer"`
	Definition string    `db:"definition"`
	UpdateTime time.Time `db:"update_time"`
}

// SQLStore keeps definitions as JSON documents in SQLite.
type SQLStore struct {
	db *sqlx.DB
}

// OpenSQL opens (and creates if needed) the database at dsn.
func OpenSQL(dsn string) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure catalog db: %w", err)
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an open database and creates the tables.
func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	if _, err := db.Exec(sqlSchema); err != nil {
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }

// PutProcess inserts or replaces a process definition.
func (s *SQLStore) PutProcess(ctx context.Context, p *Process) error {
	if err := putProcess(ctx, s.db, p, time.Now().UTC()); err != nil {
		return fmt.Errorf("save %w", err)
	}
	return nil
}

// PutCollection inserts or replaces a collection definition.
func (s *SQLStore) PutCollection(ctx context.Context, c *Collection) error {
	if err := putCollection(ctx, s.db, c, time.Now().UTC()); err != nil {
		return fmt.Errorf("save %w", err)
	}
	return nil
}

// Import copies every process and collection of src in one transaction.
// It returns how many of each were written.
func (s *SQLStore) Import(ctx context.Context, src Catalog) (processes, collections int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, id := range src.ProcessIDs() {
		p, err := src.LookupProcess(id)
		if err != nil {
			return 0, 0, err
		}
		if err := putProcess(ctx, tx, p, now); err != nil {
			return 0, 0, fmt.Errorf("import %w", err)
		}
		processes++
	}
	for _, id := range src.CollectionIDs() {
		c, err := src.LookupCollection(id)
		if err != nil {
			return 0, 0, err
		}
		if err := putCollection(ctx, tx, c, now); err != nil {
			return 0, 0, fmt.Errorf("import %w", err)
		}
		collections++
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit import: %w", err)
	}
	return processes, collections, nil
}

func putProcess(ctx context.Context, ext sqlx.ExtContext, p *Process, now time.Time) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("process %s: encode: %w", p.ID, err)
	}
	row := definitionRow{ID: p.ID, IsReducer: p.IsReducer(), Definition: string(data), UpdateTime: now}
	if _, err := sqlx.NamedExecContext(ctx, ext, `
		INSERT OR REPLACE INTO processes (id, is_reducer, definition, update_time)
		VALUES (:id, :is_reducer, :definition, :update_time)`, row); err != nil {
		return fmt.Errorf("process %s: %w", p.ID, err)
	}
	return nil
}

func putCollection(ctx context.Context, ext sqlx.ExtContext, c *Collection, now time.Time) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("collection %s: encode: %w", c.ID, err)
	}
	row := definitionRow{ID: c.ID, Definition: string(data), UpdateTime: now}
	if _, err := sqlx.NamedExecContext(ctx, ext, `
		INSERT OR REPLACE INTO collections (id, definition, update_time)
		VALUES (:id, :definition, :update_time)`, row); err != nil {
		return fmt.Errorf("collection %s: %w", c.ID, err)
	}
	return nil
}

// LookupProcess implements ProcessCatalog.
func (s *SQLStore) LookupProcess(id string) (*Process, error) {
	var def string
	err := s.db.Get(&def, `SELECT definition FROM processes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, processNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query process %s: %w", id, err)
	}
	var p Process
	if err := json.Unmarshal([]byte(def), &p); err != nil {
		return nil, fmt.Errorf("decode process %s: %w", id, err)
	}
	return &p, nil
}

// LookupCollection implements CollectionCatalog.
func (s *SQLStore) LookupCollection(id string) (*Collection, error) {
	var def string
	err := s.db.Get(&def, `SELECT definition FROM collections WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, collectionNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", id, err)
	}
	var c Collection
	if err := json.Unmarshal([]byte(def), &c); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", id, err)
	}
	return &c, nil
}

// ProcessIDs implements Catalog. Query failures yield an empty list.
func (s *SQLStore) ProcessIDs() []string {
	var ids []string
	if err := s.db.Select(&ids, `SELECT id FROM processes ORDER BY id`); err != nil {
		return nil
	}
	return ids
}

// CollectionIDs implements Catalog. Query failures yield an empty list.
func (s *SQLStore) CollectionIDs() []string {
	var ids []string
	if err := s.db.Select(&ids, `SELECT id FROM collections ORDER BY id`); err != nil {
		return nil
	}
	return ids
}

// Reducers lists the ids of processes in the "reducer" category.
func (s *SQLStore) Reducers(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM processes WHERE is_reducer = 1 ORDER BY id`); err != nil {
		return nil, fmt.Errorf("query reducers: %w", err)
	}
	return ids, nil
}
