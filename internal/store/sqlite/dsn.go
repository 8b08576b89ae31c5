package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const memoryPath = ":memory:"

// foreignKeysPragma is set through the DSN because the pragma is
// per-connection and database/sql pools connections.
const foreignKeysPragma = "_pragma=foreign_keys(1)"

// location is a parsed sqlite:// DSN.
type location struct {
	Path  string
	Query string
}

func (l location) InMemory() bool {
	return l.Path == memoryPath
}

// DriverDSN is the name handed to the modernc driver.
func (l location) DriverDSN() string {
	if l.InMemory() {
		if l.Query == "" {
			return l.Path
		}
		return l.Path + "?" + l.Query
	}
	query := l.Query
	if !strings.Contains(query, "foreign_keys") {
		if query != "" {
			query += "&"
		}
		query += foreignKeysPragma
	}
	return l.Path + "?" + query
}

// parseDSN accepts sqlite://:memory:, sqlite:///abs/path.db and relative
// forms such as sqlite://./mesh.db or sqlite://mesh.db, with optional driver
// options after '?'.
func parseDSN(dsn string) (location, error) {
	rest, ok := strings.CutPrefix(dsn, "sqlite://")
	if !ok {
		return location{}, fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}

	path, query, _ := strings.Cut(rest, "?")
	if path == memoryPath {
		return location{Path: memoryPath, Query: query}, nil
	}

	path, err := url.PathUnescape(path)
	if err != nil {
		return location{}, fmt.Errorf("unescaping path: %w", err)
	}
	if path == "" {
		return location{}, fmt.Errorf("sqlite DSN has no database path")
	}
	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}
	return location{Path: path, Query: query}, nil
}
