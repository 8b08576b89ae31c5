package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema runs the DDL as one multi-statement Exec, which PostgreSQL
// applies inside an implicit transaction.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS entities (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    category      TEXT NOT NULL,
    importance    TEXT DEFAULT '',
    pos_x         DOUBLE PRECISION,
    pos_y         DOUBLE PRECISION,
    pos_z         DOUBLE PRECISION,
    tags          TEXT[] DEFAULT '{}',
    body          TEXT DEFAULT '',
    source        TEXT NOT NULL,
    source_file   TEXT,
    source_hash   TEXT,
    last_ingested TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS connections (
    src_id   TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    dst_id   TEXT NOT NULL,
    position INTEGER NOT NULL,
    CONSTRAINT uq_connection UNIQUE (src_id, dst_id)
);

CREATE INDEX IF NOT EXISTS idx_entities_category ON entities (category);
CREATE INDEX IF NOT EXISTS idx_entities_source ON entities (source);
CREATE INDEX IF NOT EXISTS idx_entities_source_file ON entities (source_file);
CREATE INDEX IF NOT EXISTS idx_entities_tags ON entities USING GIN (tags);
CREATE INDEX IF NOT EXISTS idx_connections_src ON connections (src_id);
CREATE INDEX IF NOT EXISTS idx_connections_dst ON connections (dst_id);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
