// Package store persists authored entity metadata. Computed positions and
// proximity edges are never stored; they are derived at load time.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownScheme = errors.New("unsupported database scheme")

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	UpsertEntity(ctx context.Context, e EntityInput) error
	ReplaceConnections(ctx context.Context, id string, targets []string) error
	RemoveStaleEntities(ctx context.Context, source string, currentSourceFiles []string) (int64, error)
	GetSourceHashes(ctx context.Context, source string) (map[string]string, error)

	GetEntity(ctx context.Context, id string) (*Entity, error)
	ListEntities(ctx context.Context, filter ListFilter) ([]Entity, error)
	ListDanglingConnections(ctx context.Context) ([]Connection, error)
}

// Opener connects to the backend named by a DSN scheme.
type Opener func(ctx context.Context, dsn string) (Store, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{}
)

// Register makes a backend available to Open under scheme. Backends call it
// from init.
func Register(scheme string, open Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	if open == nil {
		panic("store: Register opener is nil")
	}
	if _, dup := openers[scheme]; dup {
		panic("store: Register called twice for scheme " + scheme)
	}
	openers[scheme] = open
}

func Schemes() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	schemes := make([]string, 0, len(openers))
	for s := range openers {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Open selects the backend from the DSN scheme, e.g. sqlite://./mesh.db or
// postgres://user@host/db.
func Open(ctx context.Context, dsn string) (Store, error) {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, dsn)
	}
	if scheme == "postgresql" {
		scheme = "postgres"
	}
	openersMu.RLock()
	open, ok := openers[scheme]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownScheme, scheme, strings.Join(Schemes(), ", "))
	}
	return open(ctx, dsn)
}
