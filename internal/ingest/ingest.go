package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"decisionmesh/internal/config"
	"decisionmesh/internal/mesh"
	"decisionmesh/internal/parser"
	"decisionmesh/internal/store"
)

// Run synchronises the store with the markdown rule documents of every
// configured source. Files whose hash is unchanged are skipped unless
// options.Full is set. Per-file failures are collected in Result.Errors and
// do not stop the run.
func Run(ctx context.Context, cfg *config.ProjectConfig, db Store, options Options) (*Result, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	result := &Result{}
	sourceFiles := make(map[string][]string)

	for _, source := range cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var existingHashes map[string]string
		if !options.Full {
			var err error
			existingHashes, err = db.GetSourceHashes(ctx, source.Name)
			if err != nil {
				return nil, fmt.Errorf("get source hashes for %s: %w", source.Name, err)
			}
		}

		files, err := walkMarkdownFiles(source.Paths, cfg.Exclude)
		if err != nil {
			return nil, fmt.Errorf("walking files for source %s: %w", source.Name, err)
		}
		sourceFiles[source.Name] = files

		for _, path := range files {
			hash, err := computeHash(path)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("hashing %s: %w", path, err))
				continue
			}
			if !options.Full {
				if existing, ok := existingHashes[path]; ok && existing == hash {
					result.FilesSkipped++
					continue
				}
			}

			doc, err := parser.ParseFile(path)
			if err != nil {
				if isSkippable(err) {
					result.FilesSkipped++
					continue
				}
				result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
				continue
			}

			input := store.EntityInput{
				ID:         doc.ID,
				Title:      doc.Title,
				Category:   doc.Category,
				Importance: doc.Importance,
				Position:   doc.Position,
				Tags:       doc.Tags,
				Body:       strings.TrimSpace(doc.Body),
				Source:     source.Name,
				SourceFile: path,
				SourceHash: hash,
			}
			if err := db.UpsertEntity(ctx, input); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("upserting %s: %w", path, err))
				continue
			}
			result.EntitiesUpserted++

			if err := db.ReplaceConnections(ctx, doc.ID, doc.Connections); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("replacing connections for %s: %w", doc.ID, err))
				continue
			}
			result.ConnectionsUpserted += len(doc.Connections)
		}
	}

	for _, source := range cfg.Sources {
		deleted, err := db.RemoveStaleEntities(ctx, source.Name, sourceFiles[source.Name])
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("removing stale entities for %s: %w", source.Name, err))
			continue
		}
		result.EntitiesRemoved += int(deleted)
	}

	dangling, err := db.ListDanglingConnections(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("listing dangling connections: %w", err))
	}
	result.DanglingConnections = dangling

	return result, nil
}

// LoadDocuments parses every rule document of the configured sources
// directly, without a store. Records come back in walk order.
func LoadDocuments(cfg *config.ProjectConfig) ([]mesh.Record, []error) {
	var records []mesh.Record
	var errs []error
	for _, source := range cfg.Sources {
		files, err := walkMarkdownFiles(source.Paths, cfg.Exclude)
		if err != nil {
			errs = append(errs, fmt.Errorf("walking files for source %s: %w", source.Name, err))
			continue
		}
		for _, path := range files {
			doc, err := parser.ParseFile(path)
			if err != nil {
				if isSkippable(err) {
					continue
				}
				errs = append(errs, fmt.Errorf("parsing %s: %w", path, err))
				continue
			}
			records = append(records, doc.Record())
		}
	}
	return records, errs
}

// LoadStore reads every stored entity in source order.
func LoadStore(ctx context.Context, db store.Store) ([]mesh.Record, error) {
	entities, err := db.ListEntities(ctx, store.ListFilter{})
	if err != nil {
		return nil, err
	}
	return store.Records(entities), nil
}

// isSkippable reports parse failures that mean "not a rule document".
func isSkippable(err error) bool {
	return errors.Is(err, parser.ErrNoFrontmatter) || errors.Is(err, parser.ErrMissingCategory)
}

func walkMarkdownFiles(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			if d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
				return nil
			}
			if isExcluded(path, excluded) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

func computeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
