package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// RemoveStaleEntities deletes entities of source whose file is no longer in
// currentSourceFiles. An empty list removes every file-backed entity of the
// source.
func (c *Client) RemoveStaleEntities(ctx context.Context, source string, currentSourceFiles []string) (int64, error) {
	query := `
	DELETE FROM entities
	WHERE source = ?
	  AND source_file IS NOT NULL
	  AND source_file <> ''
	`
	args := []any{source}
	if len(currentSourceFiles) > 0 {
		placeholders := make([]string, len(currentSourceFiles))
		for i, f := range currentSourceFiles {
			placeholders[i] = "?"
			args = append(args, f)
		}
		query += fmt.Sprintf("  AND source_file NOT IN (%s)\n", strings.Join(placeholders, ", "))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("removing stale entities: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	// The DSN may turn foreign_keys off, so orphaned rows are swept explicitly.
	_, err = tx.ExecContext(ctx, "DELETE FROM connections WHERE src_id NOT IN (SELECT id FROM entities)")
	if err != nil {
		return 0, fmt.Errorf("removing orphaned connections: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return affected, nil
}

func (c *Client) GetSourceHashes(ctx context.Context, source string) (map[string]string, error) {
	query := `
	SELECT source_file, source_hash FROM entities
	WHERE source = ?
	  AND source_file IS NOT NULL
	  AND source_file <> ''
	`

	rows, err := c.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("query source hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var sourceFile, sourceHash string
		if err := rows.Scan(&sourceFile, &sourceHash); err != nil {
			return nil, fmt.Errorf("scanning source hash: %w", err)
		}
		hashes[sourceFile] = sourceHash
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source hashes: %w", err)
	}

	return hashes, nil
}
