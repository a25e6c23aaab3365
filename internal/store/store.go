// Package store implements a durable record store over named collections
// backed by SQLite. Records are JSON payloads addressed by a
// store-assigned integer key that is monotonic per collection and never
// reused. Multi-value filtered lookup is deliberately full-scan only;
// callers filter in process. The one exception is FindUnique, which
// serves equality lookups on fields declared unique at schema time.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"depenses/internal/models"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"
)

// SchemaVersion is bumped on any structural change to the collections.
// A mismatch with the on-disk version wipes and recreates every
// collection: there is no cross-version data migration.
const SchemaVersion = 1

// Collection describes one named record set. Fields listed in Unique
// get a UNIQUE index over the JSON payload and become queryable with
// FindUnique.
type Collection struct {
	Name   string
	Unique []string
}

// DefaultSchema is the schema of the application database.
var DefaultSchema = []Collection{
	{Name: "users", Unique: []string{"username"}},
	{Name: "expenses"},
}

// Record is a stored payload together with its store-assigned key.
type Record struct {
	Key  int64
	Data json.RawMessage
}

// Store is a durable record store. Construct with New, then call Open
// before use. All methods are safe for concurrent use.
type Store struct {
	path   string
	schema []Collection

	group singleflight.Group
	mu    sync.Mutex
	db    *sql.DB
}

// New creates a Store for the database at path. The database is not
// touched until Open is called.
func New(path string, schema []Collection) *Store {
	return &Store{path: path, schema: schema}
}

// Open idempotently establishes the underlying database, creating it and
// running the schema migration if needed. Concurrent calls before the
// first completes share the same in-flight initialization.
func (s *Store) Open(ctx context.Context) error {
	_, err, _ := s.group.Do("open", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.db != nil {
			return nil, nil
		}
		db, err := open(ctx, s.path, s.schema)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		s.db = db
		return nil, nil
	})
	return err
}

// Close closes the underlying database. A closed store can be reopened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func open(ctx context.Context, path string, schema []Collection) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL for durable commits without blocking readers. A single
	// connection serializes writes, so key assignment never races.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(ctx, db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// migrate compares the on-disk schema version with SchemaVersion and, on
// mismatch, drops and recreates every collection inside one transaction.
func migrate(ctx context.Context, db *sql.DB, schema []Collection) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version == SchemaVersion {
		return nil
	}
	if version != 0 {
		slog.Warn("schema version mismatch, recreating collections",
			"on_disk", version, "expected", SchemaVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range schema {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", tableName(c.Name))); err != nil {
			return fmt.Errorf("drop collection %s: %w", c.Name, err)
		}
		create := fmt.Sprintf(`CREATE TABLE %q (
			k INTEGER PRIMARY KEY AUTOINCREMENT,
			data TEXT NOT NULL
		)`, tableName(c.Name))
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("create collection %s: %w", c.Name, err)
		}
		for _, field := range c.Unique {
			idx := fmt.Sprintf("CREATE UNIQUE INDEX %q ON %q (json_extract(data, '$.%s'))",
				indexName(c.Name, field), tableName(c.Name), field)
			if _, err := tx.ExecContext(ctx, idx); err != nil {
				return fmt.Errorf("create unique index %s.%s: %w", c.Name, field, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	return tx.Commit()
}

func tableName(collection string) string { return "c_" + collection }

func indexName(collection, field string) string {
	return "idx_" + collection + "_" + field
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("%w: store not opened", models.ErrStoreUnavailable)
	}
	return s.db, nil
}

func (s *Store) collection(name string) (Collection, error) {
	for _, c := range s.schema {
		if c.Name == name {
			return c, nil
		}
	}
	return Collection{}, fmt.Errorf("unknown collection %q", name)
}

// Insert marshals record, assigns a new key and persists it. It returns
// only after the write is durably committed. The key is monotonic per
// collection and never reused, even after deletes.
func (s *Store) Insert(ctx context.Context, collection string, record any) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	if _, err := s.collection(collection); err != nil {
		return 0, err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("marshal record: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &models.WriteError{Op: "insert", Collection: collection, Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %q (data) VALUES (?)", tableName(collection)),
		string(payload),
	)
	if err != nil {
		return 0, &models.WriteError{Op: "insert", Collection: collection, Err: err}
	}
	key, err := res.LastInsertId()
	if err != nil {
		return 0, &models.WriteError{Op: "insert", Collection: collection, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &models.WriteError{Op: "insert", Collection: collection, Err: err}
	}
	return key, nil
}

// GetByKey returns the record stored under key, or ErrNotFound.
func (s *Store) GetByKey(ctx context.Context, collection string, key int64) (Record, error) {
	db, err := s.handle()
	if err != nil {
		return Record{}, err
	}
	var data string
	err = db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %q WHERE k = ?", tableName(collection)), key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, models.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s/%d: %w", collection, key, err)
	}
	return Record{Key: key, Data: json.RawMessage(data)}, nil
}

// FindUnique returns the single record whose field equals value, or
// ErrNotFound. The field must have been declared unique at schema time.
func (s *Store) FindUnique(ctx context.Context, collection, field string, value any) (Record, error) {
	db, err := s.handle()
	if err != nil {
		return Record{}, err
	}
	c, err := s.collection(collection)
	if err != nil {
		return Record{}, err
	}
	declared := false
	for _, f := range c.Unique {
		if f == field {
			declared = true
			break
		}
	}
	if !declared {
		return Record{}, fmt.Errorf("field %q not declared unique on collection %q", field, collection)
	}

	var (
		key  int64
		data string
	)
	err = db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT k, data FROM %q WHERE json_extract(data, '$.%s') = ?", tableName(collection), field),
		value,
	).Scan(&key, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, models.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find %s by %s: %w", collection, field, err)
	}
	return Record{Key: key, Data: json.RawMessage(data)}, nil
}

// ScanAll returns every record in the collection, in unspecified order.
// This is the only supported primitive for multi-value filtered lookup;
// callers filter in process. Correctness-first: the data volumes this
// store is sized for make scan cost negligible.
func (s *Store) ScanAll(ctx context.Context, collection string) ([]Record, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT k, data FROM %q", tableName(collection)))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			key  int64
			data string
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		records = append(records, Record{Key: key, Data: json.RawMessage(data)})
	}
	return records, rows.Err()
}

// DeleteByKey removes the record under key. Deleting an absent key is
// not an error.
func (s *Store) DeleteByKey(ctx context.Context, collection string, key int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &models.WriteError{Op: "delete", Collection: collection, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %q WHERE k = ?", tableName(collection)), key); err != nil {
		return &models.WriteError{Op: "delete", Collection: collection, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &models.WriteError{Op: "delete", Collection: collection, Err: err}
	}
	return nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %q", tableName(collection))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// IsUniqueConstraint reports whether err is a SQLite unique constraint
// violation, typically surfaced inside a WriteError.
func IsUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
