package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS entities (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		category      TEXT NOT NULL,
		importance    TEXT DEFAULT '',
		pos_x         REAL,
		pos_y         REAL,
		pos_z         REAL,
		tags          TEXT DEFAULT '[]',
		body          TEXT DEFAULT '',
		source        TEXT NOT NULL,
		source_file   TEXT,
		source_hash   TEXT,
		last_ingested TEXT DEFAULT (datetime('now'))
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
	CREATE INDEX IF NOT EXISTS idx_connections_src ON connections (src_id);
	CREATE INDEX IF NOT EXISTS idx_connections_dst ON connections (dst_id);
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	statements := splitStatements(ddl)
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}
