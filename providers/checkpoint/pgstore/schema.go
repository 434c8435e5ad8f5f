package pgstore

import (
	"context"
	"fmt"
)

// createTableSQL is the DDL statement that creates the checkpoint table.
// The composite primary key (workflow, checkpoint_id) both scopes IDs per
// workflow and backs the upsert in Save.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    workflow      TEXT NOT NULL,
    checkpoint_id TEXT NOT NULL,
    state         JSONB NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (workflow, checkpoint_id)
)`

// EnsureSchema creates the checkpoint table if it does not already exist.
// This is a convenience helper for development and prototyping; production
// deployments should use proper migration tooling (goose, golang-migrate,
// etc.) to manage schema changes.
func (store *Store) EnsureSchema(ctx context.Context) error {
	tableSQL := fmt.Sprintf(createTableSQL, store.tableName)
	if _, err := store.db.Exec(ctx, tableSQL); err != nil {
		return fmt.Errorf("pgstore: create table: %w", err)
	}
	return nil
}
