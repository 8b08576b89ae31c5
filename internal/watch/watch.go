// Package watch reloads the mesh when rule documents change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"decisionmesh/internal/config"
	"decisionmesh/internal/ingest"
	"decisionmesh/internal/mesh"
)

const DefaultDebounce = 250 * time.Millisecond

type ReloadFunc func(ctx context.Context) error

type Options struct {
	Debounce time.Duration
	Logger   *zap.Logger
}

// Watcher batches filesystem events under the configured source paths and
// calls its reload function once per quiet period.
type Watcher struct {
	fs       *fsnotify.Watcher
	reload   ReloadFunc
	excludes []string
	debounce time.Duration
	logger   *zap.Logger
	reloads  atomic.Int64
}

func New(cfg *config.ProjectConfig, reload ReloadFunc, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fs:       fw,
		reload:   reload,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
	for _, exclude := range cfg.Exclude {
		if exclude != "" {
			w.excludes = append(w.excludes, filepath.Clean(exclude))
		}
	}
	for _, source := range cfg.Sources {
		for _, root := range source.Paths {
			if root == "" {
				continue
			}
			if err := w.addTree(root); err != nil {
				fw.Close()
				return nil, fmt.Errorf("watching %s: %w", root, err)
			}
		}
	}
	return w, nil
}

// Reloads is the number of successful reloads so far.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// Run blocks until ctx is done. Reload failures are logged and the previous
// mesh stays live.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-fire:
			fire = nil
			if err := w.reload(ctx); err != nil {
				w.logger.Warn("reload failed", zap.Error(err))
				continue
			}
			w.reloads.Add(1)
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(filepath.Clean(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if w.excluded(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watching new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return true
		}
	}
	// A removed directory takes its documents with it.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return true
	}
	if !strings.HasSuffix(strings.ToLower(event.Name), ".md") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}

func (w *Watcher) excluded(path string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range w.excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// Loader produces the records of the current mesh.
type Loader func(ctx context.Context) ([]mesh.Record, error)

// Reloader is anything that can swap in a new dataset.
type Reloader interface {
	Reload(ds *mesh.Dataset)
}

// DocumentLoader reads the configured sources straight from disk. Documents
// that fail to parse are logged and left out.
func DocumentLoader(cfg *config.ProjectConfig, logger *zap.Logger) Loader {
	return func(ctx context.Context) ([]mesh.Record, error) {
		records, errs := ingest.LoadDocuments(cfg)
		for _, err := range errs {
			logger.Warn("skipping document", zap.Error(err))
		}
		return records, nil
	}
}

// ViewReloader lays out freshly loaded records and hands them to target.
func ViewReloader(cfg *config.ProjectConfig, load Loader, target Reloader, logger *zap.Logger) ReloadFunc {
	return func(ctx context.Context) error {
		records, err := load(ctx)
		if err != nil {
			return fmt.Errorf("loading records: %w", err)
		}
		ds, err := mesh.FromRecords(records, mesh.LayoutOptions{Radius: cfg.Mesh.LayoutRadius})
		if err != nil {
			return fmt.Errorf("building dataset: %w", err)
		}
		target.Reload(ds)
		logger.Info("mesh reloaded", zap.Int("entities", ds.Len()))
		return nil
	}
}
