package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS substations (
	substation_id   TEXT PRIMARY KEY,
	substation_name TEXT NOT NULL DEFAULT '',
	energy_type     TEXT NOT NULL DEFAULT '',
	capacity        DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS %[1]s (
	substation_id TEXT NOT NULL,
	source_tag    TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	value         DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (substation_id, source_tag, timestamp)
);

CREATE INDEX IF NOT EXISTS %[1]s_timestamp_idx ON %[1]s (timestamp);
`

// EnsureSchema creates the substation and readings tables if missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB, readingsTable string) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(schema, readingsTable)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
