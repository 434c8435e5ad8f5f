// Package pgstore implements workflow.CheckpointStore on PostgreSQL.
//
// Snapshots are stored as JSONB rows keyed by (workflow, checkpoint_id), so
// multiple workflows can share one table. The store accepts anything
// satisfying the Querier interface; in practice that is a *pgxpool.Pool, but
// a pgx.Tx works too when checkpointing must join a larger transaction.
package pgstore
