package ingest

import (
	"context"

	"decisionmesh/internal/store"
)

// Store is the subset of store.Store that ingestion writes through.
type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertEntity(ctx context.Context, e store.EntityInput) error
	ReplaceConnections(ctx context.Context, id string, targets []string) error
	RemoveStaleEntities(ctx context.Context, source string, currentSourceFiles []string) (int64, error)
	GetSourceHashes(ctx context.Context, source string) (map[string]string, error)
	ListDanglingConnections(ctx context.Context) ([]store.Connection, error)
}

type Result struct {
	EntitiesUpserted    int
	ConnectionsUpserted int
	EntitiesRemoved     int
	FilesSkipped        int
	DanglingConnections []store.Connection
	Errors              []error
}

type Options struct {
	Full bool
}
