package postgres

import (
	"context"
	"fmt"

	"decisionmesh/internal/store"
)

// ReplaceConnections swaps the declared connections of id for targets,
// preserving their order. Targets need not exist yet.
func (c *Client) ReplaceConnections(ctx context.Context, id string, targets []string) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM connections WHERE src_id = $1", id); err != nil {
		return fmt.Errorf("clearing connections: %w", err)
	}
	for i, target := range targets {
		_, err := tx.Exec(ctx,
			"INSERT INTO connections (src_id, dst_id, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
			id, target, i,
		)
		if err != nil {
			return fmt.Errorf("inserting connection: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (c *Client) connectionsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := c.pool.Query(ctx, `
SELECT src_id, dst_id FROM connections
WHERE src_id = ANY($1)
ORDER BY src_id, position
`, ids)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var src, dst string
		if err := rows.Scan(&src, &dst); err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		out[src] = append(out[src], dst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connection rows: %w", err)
	}
	return out, nil
}

// ListDanglingConnections returns declared connections whose target is not
// a stored entity.
func (c *Client) ListDanglingConnections(ctx context.Context) ([]store.Connection, error) {
	rows, err := c.pool.Query(ctx, `
SELECT c.src_id, c.dst_id FROM connections c
WHERE NOT EXISTS (SELECT 1 FROM entities e WHERE e.id = c.dst_id)
ORDER BY c.src_id, c.position
`)
	if err != nil {
		return nil, fmt.Errorf("listing dangling connections: %w", err)
	}
	defer rows.Close()

	dangling := make([]store.Connection, 0)
	for rows.Next() {
		var conn store.Connection
		if err := rows.Scan(&conn.FromID, &conn.ToID); err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		dangling = append(dangling, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connection rows: %w", err)
	}
	return dangling, nil
}
