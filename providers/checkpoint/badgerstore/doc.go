// Package badgerstore implements workflow.CheckpointStore on an embedded
// BadgerDB, giving single-binary deployments durable checkpoints without an
// external database. Snapshots are JSON-encoded under keys scoped by
// workflow name, so one database can serve many workflows.
package badgerstore
