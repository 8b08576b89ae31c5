package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"decisionmesh/internal/mesh"
	"decisionmesh/internal/store"
)

func (c *Client) UpsertEntity(ctx context.Context, e store.EntityInput) error {
	tagsJSON, err := json.Marshal(nonNilTags(e.Tags))
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}

	var x, y, z sql.NullFloat64
	if e.Position != nil {
		x = sql.NullFloat64{Float64: e.Position.X, Valid: true}
		y = sql.NullFloat64{Float64: e.Position.Y, Valid: true}
		z = sql.NullFloat64{Float64: e.Position.Z, Valid: true}
	}

	query := `
	INSERT INTO entities (id, title, category, importance, pos_x, pos_y, pos_z, tags, body, source, source_file, source_hash, last_ingested)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		category = excluded.category,
		importance = excluded.importance,
		pos_x = excluded.pos_x,
		pos_y = excluded.pos_y,
		pos_z = excluded.pos_z,
		tags = excluded.tags,
		body = excluded.body,
		source = excluded.source,
		source_file = excluded.source_file,
		source_hash = excluded.source_hash,
		last_ingested = datetime('now')
	`

	_, err = c.db.ExecContext(ctx, query,
		e.ID,
		e.Title,
		e.Category,
		e.Importance,
		x, y, z,
		tagsJSON,
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
	SELECT id, title, category, importance, pos_x, pos_y, pos_z, tags, body, source, source_file, source_hash
	FROM entities
	`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (store.Entity, error) {
	var e store.Entity
	var x, y, z sql.NullFloat64
	var tagsBytes []byte
	var sourceFile, sourceHash sql.NullString
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Category,
		&e.Importance,
		&x, &y, &z,
		&tagsBytes,
		&e.Body,
		&e.Source,
		&sourceFile,
		&sourceHash,
	)
	if err != nil {
		return e, err
	}
	if x.Valid && y.Valid && z.Valid {
		e.Position = &mesh.Vec3{X: x.Float64, Y: y.Float64, Z: z.Float64}
	}
	if len(tagsBytes) > 0 {
		if err := json.Unmarshal(tagsBytes, &e.Tags); err != nil {
			return e, fmt.Errorf("unmarshaling tags: %w", err)
		}
	}
	e.Tags = nonNilTags(e.Tags)
	e.SourceFile = sourceFile.String
	e.SourceHash = sourceHash.String
	return e, nil
}

func (c *Client) GetEntity(ctx context.Context, id string) (*store.Entity, error) {
	row := c.db.QueryRowContext(ctx, selectEntity+"WHERE id = ?", id)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
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
	WHERE (? = '' OR category = ?)
	  AND (? = '' OR source = ?)
	  AND (? = '' OR EXISTS (SELECT 1 FROM json_each(entities.tags) WHERE json_each.value = ?))
	ORDER BY source_file, id
	`

	rows, err := c.db.QueryContext(ctx, query,
		filter.Category, filter.Category,
		filter.Source, filter.Source,
		filter.Tag, filter.Tag,
	)
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

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
