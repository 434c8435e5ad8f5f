package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nvaccaro/floe/workflow"
)

// defaultTableName is the PostgreSQL table used when no custom name is provided.
const defaultTableName = "floe_checkpoints"

// Querier abstracts the pgx query methods needed by Store.
// Both *pgxpool.Pool and pgx.Tx satisfy this interface, allowing
// callers to inject either a connection pool or a single transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements [workflow.CheckpointStore] with PostgreSQL persistence.
// Each instance is scoped to a single workflow name, so checkpoint IDs only
// need to be unique within a workflow. Thread safety is handled by the
// underlying pgx connection pool; no application-level mutex is needed.
type Store struct {
	db        Querier
	workflow  string
	tableName string
}

// Compile-time check: Store must implement workflow.CheckpointStore.
var _ workflow.CheckpointStore = (*Store)(nil)

// Option configures optional Store behavior.
type Option func(*Store)

// WithTableName overrides the default table name ("floe_checkpoints").
// The name is sanitized via pgx.Identifier to prevent SQL injection,
// since it is interpolated into queries via fmt.Sprintf.
func WithTableName(name string) Option {
	return func(store *Store) {
		store.tableName = pgx.Identifier{name}.Sanitize()
	}
}

// New creates a PostgreSQL-backed checkpoint store for the given workflow.
// The db parameter must be a pgx-compatible query executor (typically
// *pgxpool.Pool).
func New(db Querier, workflowName string, opts ...Option) *Store {
	store := &Store{
		db:        db,
		workflow:  workflowName,
		tableName: defaultTableName,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Save upserts a snapshot: the state is JSON-encoded into the JSONB column,
// and an existing checkpoint with the same ID is overwritten.
func (store *Store) Save(ctx context.Context, id string, state *workflow.GraphState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("pgstore: encode state: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (workflow, checkpoint_id, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (workflow, checkpoint_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()`, store.tableName)

	if _, err := store.db.Exec(ctx, query, store.workflow, id, encoded); err != nil {
		return fmt.Errorf("pgstore: save checkpoint: %w", err)
	}
	return nil
}

// Load decodes a stored snapshot. The JSON round-trip already yields a fresh
// state on every call, so no additional copying is needed.
func (store *Store) Load(ctx context.Context, id string) (*workflow.GraphState, error) {
	query := fmt.Sprintf(`SELECT state FROM %s WHERE workflow = $1 AND checkpoint_id = $2`, store.tableName)

	var encoded []byte
	err := store.db.QueryRow(ctx, query, store.workflow, id).Scan(&encoded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", workflow.ErrCheckpointNotFound, id)
		}
		return nil, fmt.Errorf("pgstore: load checkpoint: %w", err)
	}

	state := workflow.NewGraphState(nil)
	if err := json.Unmarshal(encoded, state); err != nil {
		return nil, fmt.Errorf("pgstore: decode state: %w", err)
	}
	return state, nil
}

// List returns the IDs of this workflow's snapshots in lexical order.
func (store *Store) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT checkpoint_id FROM %s WHERE workflow = $1 ORDER BY checkpoint_id ASC`, store.tableName)

	rows, err := store.db.Query(ctx, query, store.workflow)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list checkpoints: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgstore: scan checkpoint id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: iterate checkpoint ids: %w", err)
	}
	return ids, nil
}

// Delete removes a snapshot; unknown IDs are ignored.
func (store *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE workflow = $1 AND checkpoint_id = $2`, store.tableName)

	if _, err := store.db.Exec(ctx, query, store.workflow, id); err != nil {
		return fmt.Errorf("pgstore: delete checkpoint: %w", err)
	}
	return nil
}
