package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCheckpointNotFound is returned by CheckpointStore implementations when
// the requested snapshot does not exist.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// CheckpointStore persists named GraphState snapshots for resumed execution.
//
// The default implementation is InMemoryCheckpointStore; see
// providers/checkpoint for PostgreSQL- and Badger-backed stores that
// survive the process. Implementations must be safe for concurrent use and
// must return defensive copies (or fresh decodes) from Load, so a restored
// run can never mutate the stored snapshot.
//
// Checkpointing is caller-invoked only: the engine never snapshots
// automatically.
type CheckpointStore interface {
	// Save stores a deep copy of the state under the given ID,
	// overwriting any previous snapshot with the same ID.
	Save(ctx context.Context, id string, state *GraphState) error

	// Load retrieves a snapshot. Returns ErrCheckpointNotFound (possibly
	// wrapped) when the ID is unknown.
	Load(ctx context.Context, id string) (*GraphState, error)

	// List returns the IDs of all stored snapshots.
	List(ctx context.Context) ([]string, error)

	// Delete removes a snapshot. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}

// Checkpoint stores a deep copy of the given state under a name in the
// configured store, enabling a later Execute(..., WithCheckpoint(id)) to
// resume from it.
//
// Typical usage snapshots result.FinalState after a run, or intermediate
// state captured by a status listener.
func (graph *WorkflowGraph) Checkpoint(ctx context.Context, id string, state *GraphState) error {
	if err := graph.config.checkpoints.Save(ctx, id, state); err != nil {
		return fmt.Errorf("workflow %q: save checkpoint %q: %w", graph.name, id, err)
	}
	return nil
}

// GetCheckpoint retrieves a stored snapshot by name.
func (graph *WorkflowGraph) GetCheckpoint(ctx context.Context, id string) (*GraphState, error) {
	state, err := graph.config.checkpoints.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: load checkpoint %q: %w", graph.name, id, err)
	}
	return state, nil
}

// InMemoryCheckpointStore is the default CheckpointStore. Snapshots live in
// process memory and are lost on exit; both Save and Load copy, so callers
// and stored snapshots never alias.
type InMemoryCheckpointStore struct {
	mu        sync.RWMutex
	snapshots map[string]*GraphState
}

// Compile-time check that InMemoryCheckpointStore implements CheckpointStore.
var _ CheckpointStore = (*InMemoryCheckpointStore)(nil)

// NewInMemoryCheckpointStore creates an empty in-memory checkpoint store.
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{
		snapshots: make(map[string]*GraphState),
	}
}

// Save stores a clone of the state under the given ID.
func (store *InMemoryCheckpointStore) Save(_ context.Context, id string, state *GraphState) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.snapshots[id] = state.Clone()
	return nil
}

// Load returns a clone of the stored snapshot, or ErrCheckpointNotFound.
func (store *InMemoryCheckpointStore) Load(_ context.Context, id string) (*GraphState, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	snapshot, exists := store.snapshots[id]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCheckpointNotFound, id)
	}
	return snapshot.Clone(), nil
}

// List returns the IDs of all stored snapshots in unspecified order.
func (store *InMemoryCheckpointStore) List(_ context.Context) ([]string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	ids := make([]string, 0, len(store.snapshots))
	for id := range store.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes a snapshot; unknown IDs are ignored.
func (store *InMemoryCheckpointStore) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.snapshots, id)
	return nil
}
