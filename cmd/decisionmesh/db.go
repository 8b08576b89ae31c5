package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"decisionmesh/internal/config"
	"decisionmesh/internal/ingest"
	"decisionmesh/internal/logging"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/store"
	_ "decisionmesh/internal/store/postgres"
	_ "decisionmesh/internal/store/sqlite"
	"decisionmesh/internal/watch"
)

const (
	configPath  = "decisionmesh.yaml"
	palettePath = "palette.yaml"
)

type project struct {
	cfg     *config.ProjectConfig
	palette *config.Palette
	logger  *zap.Logger
}

func loadProject() (*project, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	palette, err := config.LoadPaletteOrDefault(palettePath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return &project{cfg: cfg, palette: palette, logger: logger}, nil
}

func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	db, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}

// recordLoader syncs and reads the store when db is set, and parses the
// markdown sources directly otherwise.
func (p *project) recordLoader(db store.Store) watch.Loader {
	if db == nil {
		return watch.DocumentLoader(p.cfg, p.logger)
	}
	return func(ctx context.Context) ([]mesh.Record, error) {
		result, err := ingest.Run(ctx, p.cfg, db, ingest.Options{})
		if err != nil {
			return nil, err
		}
		for _, item := range result.Errors {
			p.logger.Warn("ingest error", zap.Error(item))
		}
		return ingest.LoadStore(ctx, db)
	}
}

func (p *project) loadDataset(ctx context.Context, db store.Store) (*mesh.Dataset, error) {
	records, err := p.recordLoader(db)(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := mesh.FromRecords(records, mesh.LayoutOptions{Radius: p.cfg.Mesh.LayoutRadius})
	if err != nil {
		return nil, fmt.Errorf("building dataset: %w", err)
	}
	p.logger.Info("dataset loaded", zap.Int("entities", ds.Len()))
	return ds, nil
}

// openSource returns a store when fromDB is set. The returned close func is
// always safe to call.
func (p *project) openSource(ctx context.Context, fromDB bool) (store.Store, func(), error) {
	if !fromDB {
		return nil, func() {}, nil
	}
	db, err := openDB(ctx, p.cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close(context.Background()) }, nil
}
