// Package sqlite is the embedded store backend, registered for sqlite://
// DSNs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"decisionmesh/internal/store"

	_ "modernc.org/sqlite"
)

const connectTimeout = 30 * time.Second

var _ store.Store = (*Client)(nil)

func init() {
	store.Register("sqlite", func(ctx context.Context, dsn string) (store.Store, error) {
		return New(ctx, dsn)
	})
}

type Client struct {
	db   *sql.DB
	path string
}

func New(ctx context.Context, dsn string) (*Client, error) {
	loc, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}

	db, err := sql.Open("sqlite", loc.DriverDSN())
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", loc.Path, err)
	}
	if loc.InMemory() {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	if err := applyPragmas(ctx, db, loc); err != nil {
		db.Close()
		return nil, err
	}

	return &Client{db: db, path: loc.Path}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB, loc location) error {
	pragmas := []string{"PRAGMA busy_timeout = 30000;"}
	if loc.InMemory() {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON;")
	} else {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL;")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// Path is the database file, or ":memory:".
func (c *Client) Path() string {
	return c.path
}

func (c *Client) Close(ctx context.Context) error {
	return c.db.Close()
}
