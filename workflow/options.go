package workflow

import (
	"time"

	"github.com/nvaccaro/floe/providers/observability"
)

// Option configures graph-level behavior. Options are applied by New.
type Option func(*graphConfig)

// NodeOption configures an individual node. Applied by AddNode.
type NodeOption func(*node)

// EdgeOption configures an individual edge. Applied by AddEdge.
type EdgeOption func(*edge)

// ExecuteOption configures a single Execute call.
type ExecuteOption func(*executeConfig)

// graphConfig holds cross-cutting collaborators injected at construction.
// Everything here is explicit dependency injection: the engine consults no
// package-level globals.
type graphConfig struct {
	// observer receives spans, metrics and log events. Nil disables
	// observability with zero overhead; ObserverFromContext on the
	// Execute context is consulted as a fallback.
	observer observability.Provider

	// statusListener is invoked synchronously at every status transition.
	statusListener StatusListener

	// checkpoints stores named GraphState snapshots. Defaults to an
	// InMemoryCheckpointStore.
	checkpoints CheckpointStore
}

// executeConfig holds per-call Execute settings.
type executeConfig struct {
	// checkpointID names the snapshot to restore instead of starting
	// from a fresh state.
	checkpointID string

	// maxParallel bounds the batch size per scheduler iteration.
	maxParallel int
}

// --- Graph Options ---

// WithObserver injects the observability provider used for spans, metrics
// and structured logs. Without it, the provider attached to the Execute
// context (observability.ContextWithObserver) is used; with neither,
// observability is disabled.
//
// Example:
//
//	g := workflow.New("migration", workflow.WithObserver(slogobs.New()))
func WithObserver(provider observability.Provider) Option {
	return func(config *graphConfig) {
		config.observer = provider
	}
}

// WithStatusListener registers a callback invoked synchronously by the
// scheduler at every node status transition, in commit order. The callback
// runs on the scheduler goroutine between batches; keep it fast.
//
// Example:
//
//	g := workflow.New("migration",
//	    workflow.WithStatusListener(func(nodeID string, from, to workflow.NodeStatus) {
//	        fmt.Printf("%s: %s -> %s\n", nodeID, from, to)
//	    }),
//	)
func WithStatusListener(listener StatusListener) Option {
	return func(config *graphConfig) {
		config.statusListener = listener
	}
}

// WithCheckpointStore sets the backend for Checkpoint/GetCheckpoint and the
// WithCheckpoint execute option. Defaults to NewInMemoryCheckpointStore.
// Use providers/checkpoint/pgstore or providers/checkpoint/badgerstore for
// snapshots that survive the process.
func WithCheckpointStore(store CheckpointStore) Option {
	return func(config *graphConfig) {
		config.checkpoints = store
	}
}

// --- Node Options ---

// WithTimeout bounds each individual attempt of the node. An attempt that
// outlives the timeout counts as a failed attempt; the node body is
// abandoned, not forcibly stopped, so it should honor ctx cancellation.
// Defaults to DefaultNodeTimeout.
func WithTimeout(timeout time.Duration) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.timeout = timeout
	}
}

// WithRetries grants the node additional attempts beyond the first. A node
// with WithRetries(2) runs at most 3 times. Defaults to 0.
func WithRetries(count int) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.retryCount = count
	}
}

// WithRetryDelay sets the base backoff unit between attempts. The wait
// before retry n is delay * n — linear, no jitter, no cap. Defaults to
// DefaultRetryDelay.
func WithRetryDelay(delay time.Duration) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.retryDelay = delay
	}
}

// Optional marks the node as non-required: its failure is recorded but does
// not abort the execution. Note that a failed optional node still blocks
// any downstream node whose only incoming edges are Always/OnSuccess edges
// from it — use OnFailure or Conditional edges to continue past a failure.
func Optional() NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.required = false
	}
}

// --- Edge Options ---

// OnSuccess makes the edge fire once the source completes. This is the
// default behavior, provided for explicitness at call sites.
func OnSuccess() EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.condition = EdgeOnSuccess
	}
}

// OnFailure makes the edge fire once the source fails, letting execution
// continue past a failed node (e.g. into a diagnosis branch).
func OnFailure() EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.condition = EdgeOnFailure
	}
}

// When makes the edge conditional on a predicate over the current state.
// The predicate runs inline on every readiness pass; it must be fast and
// side-effect-free. A nil predicate always fires.
//
// Conditions from one source are not exclusive: every satisfied edge fires,
// so multiple branches can fan out simultaneously.
func When(condition ConditionFunc) EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.condition = EdgeConditional
		edgeConfig.conditionFn = condition
	}
}

// WithPriority sets the edge iteration priority (higher first). Priority is
// an ordering hint only; it never suppresses other satisfied edges.
func WithPriority(priority int) EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.priority = priority
	}
}

// --- Execute Options ---

// WithCheckpoint restores the named snapshot as the starting state instead
// of a fresh GraphState. Already-terminal nodes are naturally skipped by the
// readiness evaluator, so execution resumes from the frontier. An unknown
// checkpoint ID fails the Execute call.
func WithCheckpoint(checkpointID string) ExecuteOption {
	return func(config *executeConfig) {
		config.checkpointID = checkpointID
	}
}

// WithMaxParallel bounds how many ready nodes are dispatched together per
// scheduler iteration. Values below 1 fall back to DefaultMaxParallel.
func WithMaxParallel(maxParallel int) ExecuteOption {
	return func(config *executeConfig) {
		config.maxParallel = maxParallel
	}
}
