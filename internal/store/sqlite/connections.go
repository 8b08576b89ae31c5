package sqlite

import (
	"context"
	"fmt"
	"strings"

	"decisionmesh/internal/store"
)

// ReplaceConnections swaps the declared connections of id for targets,
// preserving their order. Targets need not exist yet.
func (c *Client) ReplaceConnections(ctx context.Context, id string, targets []string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM connections WHERE src_id = ?", id); err != nil {
		return fmt.Errorf("clearing connections: %w", err)
	}
	for i, target := range targets {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO connections (src_id, dst_id, position) VALUES (?, ?, ?)",
			id, target, i,
		)
		if err != nil {
			return fmt.Errorf("inserting connection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (c *Client) connectionsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`
	SELECT src_id, dst_id FROM connections
	WHERE src_id IN (%s)
	ORDER BY src_id, position
	`, strings.Join(placeholders, ", "))

	rows, err := c.db.QueryContext(ctx, query, args...)
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
	query := `
	SELECT c.src_id, c.dst_id FROM connections c
	WHERE NOT EXISTS (SELECT 1 FROM entities e WHERE e.id = c.dst_id)
	ORDER BY c.src_id, c.position
	`

	rows, err := c.db.QueryContext(ctx, query)
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
