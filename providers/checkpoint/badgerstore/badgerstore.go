package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/nvaccaro/floe/workflow"
)

// keySeparator joins the workflow name and checkpoint ID into a Badger key.
// The workflow name must not contain it; checkpoint IDs may.
const keySeparator = "\x00"

// Store implements [workflow.CheckpointStore] on an embedded BadgerDB.
// The underlying *badger.DB is safe for concurrent use, so the store is too.
type Store struct {
	db       *badger.DB
	workflow string
	ownsDB   bool
}

// Compile-time check: Store must implement workflow.CheckpointStore.
var _ workflow.CheckpointStore = (*Store)(nil)

// New wraps an already-open BadgerDB. The caller keeps ownership of the
// database; Close on the returned store is a no-op.
func New(db *badger.DB, workflowName string) (*Store, error) {
	if db == nil {
		return nil, errors.New("badgerstore: nil database")
	}
	if strings.Contains(workflowName, keySeparator) {
		return nil, fmt.Errorf("badgerstore: workflow name must not contain %q", keySeparator)
	}
	return &Store{db: db, workflow: workflowName}, nil
}

// Open creates a store backed by a BadgerDB at the given directory, creating
// the directory when needed. Badger's internal logging is disabled; the
// engine's own observability covers checkpoint operations. Close releases
// the database.
func Open(path string, workflowName string) (*Store, error) {
	if path == "" {
		return nil, errors.New("badgerstore: path is required")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("badgerstore: create directory %s: %w", path, err)
	}

	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open database: %w", err)
	}

	store, err := New(db, workflowName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.ownsDB = true
	return store, nil
}

// OpenInMemory creates a store on an in-memory BadgerDB, mostly for tests.
func OpenInMemory(workflowName string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open in-memory database: %w", err)
	}

	store, err := New(db, workflowName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.ownsDB = true
	return store, nil
}

// Close releases the database when this store opened it; stores created via
// New leave the database to its owner.
func (store *Store) Close() error {
	if !store.ownsDB {
		return nil
	}
	return store.db.Close()
}

func (store *Store) key(id string) []byte {
	return []byte(store.workflow + keySeparator + id)
}

// Save stores a JSON-encoded snapshot, overwriting any previous checkpoint
// with the same ID.
func (store *Store) Save(ctx context.Context, id string, state *workflow.GraphState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("badgerstore: encode state: %w", err)
	}

	err = store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(store.key(id), encoded)
	})
	if err != nil {
		return fmt.Errorf("badgerstore: save checkpoint: %w", err)
	}
	return nil
}

// Load decodes a stored snapshot. The JSON round-trip yields a fresh state
// on every call.
func (store *Store) Load(ctx context.Context, id string) (*workflow.GraphState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := workflow.NewGraphState(nil)
	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(store.key(id))
		if err != nil {
			return err
		}
		return item.Value(func(encoded []byte) error {
			return json.Unmarshal(encoded, state)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %q", workflow.ErrCheckpointNotFound, id)
		}
		return nil, fmt.Errorf("badgerstore: load checkpoint: %w", err)
	}
	return state, nil
}

// List returns this workflow's checkpoint IDs in key order. Values are not
// fetched.
func (store *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(store.workflow + keySeparator)
	ids := make([]string, 0)

	err := store.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix

		iterator := txn.NewIterator(options)
		defer iterator.Close()

		for iterator.Rewind(); iterator.ValidForPrefix(prefix); iterator.Next() {
			key := iterator.Item().Key()
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: list checkpoints: %w", err)
	}
	return ids, nil
}

// Delete removes a snapshot; unknown IDs are ignored.
func (store *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(store.key(id))
	})
	if err != nil {
		return fmt.Errorf("badgerstore: delete checkpoint: %w", err)
	}
	return nil
}
