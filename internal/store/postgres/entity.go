package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"decisionmesh/internal/mesh"
	"decisionmesh/internal/store"
)

func (c *Client) UpsertEntity(ctx context.Context, e store.EntityInput) error {
	tags := e.Tags
	if len(tags) == 0 {
		tags = nil
	}

	var x, y, z *float64
	if e.Position != nil {
		x, y, z = &e.Position.X, &e.Position.Y, &e.Position.Z
	}

	query := `
INSERT INTO entities (id, title, category, importance, pos_x, pos_y, pos_z, tags, body, source, source_file, source_hash, last_ingested)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, '{}'::text[]), $9, $10, $11, $12, now())
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    category = EXCLUDED.category,
    importance = EXCLUDED.importance,
    pos_x = EXCLUDED.pos_x,
    pos_y = EXCLUDED.pos_y,
    pos_z = EXCLUDED.pos_z,
    tags = EXCLUDED.tags,
    body = EXCLUDED.body,
    source = EXCLUDED.source,
    source_file = EXCLUDED.source_file,
    source_hash = EXCLUDED.source_hash,
    last_ingested = now()
`

	_, err := c.pool.Exec(ctx, query,
		e.ID,
		e.Title,
		e.Category,
		e.Importance,
		x, y, z,
		tags,
		e.Body,
		e.Source,
		e.SourceFile,
		e.SourceHash,
	)
	if err != nil {
		return fmt.Errorf("upserting entity: %w", err)
	}
	return nil
}

const selectEntity = `
SELECT id, title, category, COALESCE(importance, ''), pos_x, pos_y, pos_z, tags, COALESCE(body, ''), source,
       COALESCE(source_file, ''), COALESCE(source_hash, '')
FROM entities
`

func scanEntity(row pgx.Row) (store.Entity, error) {
	var e store.Entity
	var x, y, z *float64
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Category,
		&e.Importance,
		&x, &y, &z,
		&e.Tags,
		&e.Body,
		&e.Source,
		&e.SourceFile,
		&e.SourceHash,
	)
	if err != nil {
		return e, err
	}
	if x != nil && y != nil && z != nil {
		e.Position = &mesh.Vec3{X: *x, Y: *y, Z: *z}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e, nil
}

func (c *Client) GetEntity(ctx context.Context, id string) (*store.Entity, error) {
	e, err := scanEntity(c.pool.QueryRow(ctx, selectEntity+"WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting entity: %w", err)
	}

	connections, err := c.connectionsFor(ctx, []string{e.ID})
	if err != nil {
		return nil, err
	}
	e.Connections = connections[e.ID]
	return &e, nil
}

func (c *Client) ListEntities(ctx context.Context, filter store.ListFilter) ([]store.Entity, error) {
	query := selectEntity + `
WHERE ($1 = '' OR category = $1)
  AND ($2 = '' OR source = $2)
  AND ($3 = '' OR $3 = ANY(tags))
ORDER BY source_file, id
`

	rows, err := c.pool.Query(ctx, query, filter.Category, filter.Source, filter.Tag)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	entities := make([]store.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity rows: %w", err)
	}

	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	connections, err := c.connectionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entities {
		entities[i].Connections = connections[entities[i].ID]
	}
	return entities, nil
}
