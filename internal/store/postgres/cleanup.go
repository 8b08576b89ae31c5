package postgres

import (
	"context"
	"fmt"
)

// RemoveStaleEntities deletes entities of source whose file is no longer in
// currentSourceFiles. An empty list removes every file-backed entity of the
// source.
func (c *Client) RemoveStaleEntities(ctx context.Context, source string, currentSourceFiles []string) (int64, error) {
	if currentSourceFiles == nil {
		currentSourceFiles = []string{}
	}
	tag, err := c.pool.Exec(ctx, `
DELETE FROM entities
WHERE source = $1
  AND source_file IS NOT NULL
  AND source_file <> ''
  AND NOT (source_file = ANY($2))
`, source, currentSourceFiles)
	if err != nil {
		return 0, fmt.Errorf("removing stale entities: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (c *Client) GetSourceHashes(ctx context.Context, source string) (map[string]string, error) {
	query := `
SELECT source_file, COALESCE(source_hash, '') FROM entities
WHERE source = $1
  AND source_file IS NOT NULL
  AND source_file <> ''
`

	rows, err := c.pool.Query(ctx, query, source)
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
