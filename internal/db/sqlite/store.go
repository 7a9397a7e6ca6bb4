// Package sqlite provides read-only access to the lookup history database
// for tools that must not take write locks.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"

	_ "modernc.org/sqlite" // database/sql driver "sqlite"
)

// ErrNoStore is returned when the history database file does not exist.
var ErrNoStore = errors.New("history database not found")

// Reader is a read-only connection to the history database.
type Reader struct {
	db    *sql.DB
	mu    sync.Mutex
	stmts map[string]*sql.Stmt
}

// OpenReader opens the database at path in read-only mode. The file is never
// created.
func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoStore, path)
		}
		return nil, err
	}

	dsn := (&url.URL{
		Scheme:   "file",
		Opaque:   path,
		RawQuery: "mode=ro&_pragma=busy_timeout(5000)",
	}).String()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Reader{
		db:    db,
		stmts: make(map[string]*sql.Stmt),
	}, nil
}

// Close closes cached statements and the connection.
func (r *Reader) Close() error {
	r.mu.Lock()
	for _, stmt := range r.stmts {
		_ = stmt.Close()
	}
	r.stmts = make(map[string]*sql.Stmt)
	r.mu.Unlock()
	return r.db.Close()
}

// GetStmt returns a cached prepared statement for query.
func (r *Reader) GetStmt(query string) (*sql.Stmt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stmt, ok := r.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	r.stmts[query] = stmt
	return stmt, nil
}

// QueryContext runs a query through the statement cache.
func (r *Reader) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := r.GetStmt(query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, args...)
}
