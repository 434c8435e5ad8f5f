package workflow

import (
	"context"
	"time"
)

// NodeStatus represents the lifecycle status of a node during execution.
type NodeStatus string

const (
	// NodePending indicates the node has not started execution yet.
	NodePending NodeStatus = "pending"

	// NodeRunning indicates the node is currently executing.
	NodeRunning NodeStatus = "running"

	// NodeCompleted indicates the node finished execution successfully.
	NodeCompleted NodeStatus = "completed"

	// NodeFailed indicates the node exhausted its attempts without success.
	NodeFailed NodeStatus = "failed"

	// NodeSkipped indicates the node was deliberately bypassed, typically
	// when a restored checkpoint recorded it as such.
	NodeSkipped NodeStatus = "skipped"
)

// Terminal reports whether the status is final. A node never leaves a
// terminal status; the scheduler relies on this to guarantee progress.
func (status NodeStatus) Terminal() bool {
	switch status {
	case NodeCompleted, NodeFailed, NodeSkipped:
		return true
	default:
		return false
	}
}

// EdgeCondition selects how an edge decides whether its target may run.
type EdgeCondition string

const (
	// EdgeAlways fires once the source node has completed. It is the
	// default condition and is equivalent to EdgeOnSuccess.
	EdgeAlways EdgeCondition = "always"

	// EdgeOnSuccess fires once the source node has completed.
	EdgeOnSuccess EdgeCondition = "on_success"

	// EdgeOnFailure fires once the source node has failed. This is the
	// only built-in way for execution to continue past a failed node.
	EdgeOnFailure EdgeCondition = "on_failure"

	// EdgeConditional fires when the attached ConditionFunc returns true
	// for the current state. A nil ConditionFunc always fires.
	EdgeConditional EdgeCondition = "conditional"
)

// Defaults applied by AddNode and Execute when not overridden.
const (
	// DefaultNodeTimeout bounds a single node attempt.
	DefaultNodeTimeout = 300 * time.Second

	// DefaultRetryDelay is the base unit for linear retry backoff.
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxParallel is the batch size limit used by Execute when
	// WithMaxParallel is not supplied.
	DefaultMaxParallel = 5
)

// NodeFunc is the work carried by a node. It receives an independent clone of
// the committed GraphState and returns a mapping to merge into the shared
// state, or an error to signal failure. The context carries the per-attempt
// timeout; long-running bodies should honor its cancellation.
//
// NodeFunc implementations never see in-flight writes from sibling nodes in
// the same batch.
type NodeFunc func(ctx context.Context, state *GraphState) (map[string]any, error)

// ConditionFunc is a predicate over the current GraphState, attached to
// EdgeConditional edges. It runs inline on every readiness pass and must be
// fast and side-effect-free.
type ConditionFunc func(state *GraphState) bool

// StatusListener is invoked synchronously by the scheduler at every node
// status transition, in commit order. It replaces fire-and-forget
// notification tasks: failures and ordering are observable by construction.
type StatusListener func(nodeID string, from, to NodeStatus)

// node is a registered unit of work. It is created by AddNode and immutable
// thereafter; interaction happens through the graph API using string IDs.
type node struct {
	// id is the unique identifier for the node within its graph.
	id string

	// fn is the work executed by the runner.
	fn NodeFunc

	// timeout bounds each individual attempt.
	timeout time.Duration

	// retryCount is the number of additional attempts beyond the first.
	retryCount int

	// retryDelay is the base backoff unit; the wait before retry n is
	// retryDelay * n (linear, no jitter, no cap).
	retryDelay time.Duration

	// required controls abort semantics: if true, this node's terminal
	// failure stops the whole execution.
	required bool
}

// edge is a directed dependency/condition relationship between two nodes.
type edge struct {
	// source and target are node IDs; both must exist at AddEdge time.
	source string
	target string

	// condition selects the readiness rule for this edge.
	condition EdgeCondition

	// conditionFn is consulted only for EdgeConditional edges.
	conditionFn ConditionFunc

	// priority orders edge iteration (higher first). It is a tie-break
	// hint only: multiple satisfied edges from one source all fire.
	priority int
}
