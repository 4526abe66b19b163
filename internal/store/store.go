// Package store is the persistent indexed document store. Each collection is
// a SQLite table of JSON documents keyed by a key path, with secondary
// indexes over json_extract expressions.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/dbx"
	"github.com/dmitrijs2005/litepos/internal/filex"
	"github.com/dmitrijs2005/litepos/internal/store/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Reader is the read side shared by Store and Tx.
type Reader interface {
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)
	GetAll(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error)
}

// ReadWriter is satisfied by both *Store and *Tx, so repositories work
// inside and outside transactions.
type ReadWriter interface {
	Reader
	Put(ctx context.Context, collection string, value any) error
	Delete(ctx context.Context, collection, key string) error
	Iterate(ctx context.Context, collection, index string, r *Range, visit func(json.RawMessage) (bool, error)) error
}

// Range bounds an Iterate scan. Nil bounds are open-ended.
type Range struct {
	Lower     any
	Upper     any
	LowerOpen bool
	UpperOpen bool
}

// Only is the range matching a single index value.
func Only(v any) *Range { return &Range{Lower: v, Upper: v} }

// Store is safe for concurrent use. It holds a single connection, so
// transactions are serialized.
type Store struct {
	db     *sql.DB
	schema Schema
}

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = FULL",
	"PRAGMA busy_timeout = 5000",
}

// Open creates or opens the database at path and applies pragmas and
// migrations. It is idempotent.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, common.NewStorageError("open", "", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewStorageError("open", "", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, common.NewStorageError("open", "", fmt.Errorf("%s: %w", p, err))
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, common.NewStorageError("migrate", "", err)
	}

	return New(db, DefaultSchema()), nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// New wraps an already prepared database.
func New(db *sql.DB, schema Schema) *Store {
	return &Store{db: db, schema: schema}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the document stored under key, or nil when there is none.
func (s *Store) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	c, err := s.schema.lookup(collection)
	if err != nil {
		return nil, common.NewStorageError("get", collection, err)
	}
	return get(ctx, s.db, c, key)
}

// Put upserts value, which must marshal to a JSON object carrying the
// collection's key path.
func (s *Store) Put(ctx context.Context, collection string, value any) error {
	c, err := s.schema.lookup(collection)
	if err != nil {
		return common.NewStorageError("put", collection, err)
	}
	return put(ctx, s.db, c, value)
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	c, err := s.schema.lookup(collection)
	if err != nil {
		return common.NewStorageError("delete", collection, err)
	}
	return del(ctx, s.db, c, key)
}

// GetAll returns every document of collection. With an index it returns
// the documents having that field, in index order, and a non-nil value
// restricts them to equal index values.
func (s *Store) GetAll(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error) {
	c, err := s.schema.lookup(collection)
	if err != nil {
		return nil, common.NewStorageError("getAll", collection, err)
	}
	return getAll(ctx, s.db, c, index, value)
}

// Iterate visits documents in index order within r until visit returns
// false. visit must not call back into the store.
func (s *Store) Iterate(ctx context.Context, collection, index string, r *Range, visit func(json.RawMessage) (bool, error)) error {
	c, err := s.schema.lookup(collection)
	if err != nil {
		return common.NewStorageError("iterate", collection, err)
	}
	return iterate(ctx, s.db, c, index, r, visit)
}

// Transaction runs fn with exclusive read-write access to collections.
// An error from fn rolls back every write and is returned unchanged.
// fn must use tx, not the Store, for all access.
func (s *Store) Transaction(ctx context.Context, collections []string, fn func(ctx context.Context, tx *Tx) error) error {
	scope := make(map[string]Collection, len(collections))
	for _, name := range collections {
		c, err := s.schema.lookup(name)
		if err != nil {
			return common.NewStorageError("transaction", name, err)
		}
		scope[name] = c
	}

	var fnErr error
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, q dbx.DBTX) error {
		fnErr = fn(ctx, &Tx{q: q, scope: scope})
		return fnErr
	})
	if err != nil && !errors.Is(err, fnErr) {
		return common.NewStorageError("transaction", "", err)
	}
	return err
}

// Tx is a transaction scoped to the collections it was opened with.
type Tx struct {
	q     dbx.DBTX
	scope map[string]Collection
}

func (t *Tx) lookup(collection string) (Collection, error) {
	c, ok := t.scope[collection]
	if !ok {
		return Collection{}, fmt.Errorf("%w: %q", common.ErrOutOfScope, collection)
	}
	return c, nil
}

func (t *Tx) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	c, err := t.lookup(collection)
	if err != nil {
		return nil, common.NewStorageError("get", collection, err)
	}
	return get(ctx, t.q, c, key)
}

func (t *Tx) Put(ctx context.Context, collection string, value any) error {
	c, err := t.lookup(collection)
	if err != nil {
		return common.NewStorageError("put", collection, err)
	}
	return put(ctx, t.q, c, value)
}

func (t *Tx) Delete(ctx context.Context, collection, key string) error {
	c, err := t.lookup(collection)
	if err != nil {
		return common.NewStorageError("delete", collection, err)
	}
	return del(ctx, t.q, c, key)
}

func (t *Tx) GetAll(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error) {
	c, err := t.lookup(collection)
	if err != nil {
		return nil, common.NewStorageError("getAll", collection, err)
	}
	return getAll(ctx, t.q, c, index, value)
}

func (t *Tx) Iterate(ctx context.Context, collection, index string, r *Range, visit func(json.RawMessage) (bool, error)) error {
	c, err := t.lookup(collection)
	if err != nil {
		return common.NewStorageError("iterate", collection, err)
	}
	return iterate(ctx, t.q, c, index, r, visit)
}
