package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ExecutionResult summarizes one Execute call. It is produced once and not
// mutated afterwards.
type ExecutionResult struct {
	// Success reports whether the run satisfied the finish rule: with
	// declared finish points, at least one of them completed; without,
	// zero nodes failed.
	Success bool

	// FinalState is the committed state at termination, including
	// partial progress when the run aborted.
	FinalState *GraphState

	// Duration is the wall-clock time of the whole Execute call.
	Duration time.Duration

	// NodesExecuted counts every node whose outcome was committed,
	// including failures.
	NodesExecuted int

	// NodesFailed counts nodes that exhausted their attempts.
	NodesFailed int

	// ExecutionOrder lists completed node IDs in completion order.
	ExecutionOrder []string
}

// Execute runs the workflow to completion, abort, or quiescence.
//
// Scheduling is iterative: each pass computes the ready set against the
// committed state, dispatches the first maxParallel ready nodes as one
// concurrent batch, waits for the entire batch, then commits outcomes in
// batch order. All state mutation happens on this goroutine between
// batches; node bodies only ever see clones.
//
// A required node's failure aborts the run immediately with Success=false.
// Outcomes of batch siblings ordered after the failing node are discarded,
// and no further batch is dispatched; in-flight work is not chased down.
// An optional node's failure is recorded and the run continues.
//
// initialState seeds GraphState.Data; pass WithCheckpoint to restore a
// stored snapshot instead (initialState is then ignored). The returned
// error covers misuse only — construction errors, a missing entry point, an
// unknown checkpoint; node failures surface through the result.
func (graph *WorkflowGraph) Execute(ctx context.Context, initialState map[string]any, opts ...ExecuteOption) (*ExecutionResult, error) {
	executionStart := time.Now()

	if err := graph.buildErr(); err != nil {
		return nil, err
	}
	if graph.entryPoint == "" {
		return nil, fmt.Errorf("workflow %q: no entry point set", graph.name)
	}

	config := &executeConfig{maxParallel: DefaultMaxParallel}
	for _, opt := range opts {
		opt(config)
	}
	if config.maxParallel < 1 {
		config.maxParallel = DefaultMaxParallel
	}

	state, err := graph.initialExecutionState(ctx, config, initialState)
	if err != nil {
		return nil, err
	}

	obs := graph.newExecutionObserver(&ctx, config)
	defer obs.end()

	nodesExecuted := 0
	nodesFailed := 0

	for {
		// A canceled context stops dispatching; the run settles with
		// whatever already committed.
		if ctx.Err() != nil {
			break
		}

		ready := graph.readyNodes(state)
		if len(ready) == 0 {
			break
		}

		batch := ready
		if len(batch) > config.maxParallel {
			batch = batch[:config.maxParallel]
		}

		for _, nodeID := range batch {
			graph.transition(ctx, state, nodeID, NodeRunning, obs)
		}

		outcomes := graph.runBatch(ctx, batch, state, obs)

		aborted := false
		for batchIndex, nodeID := range batch {
			outcome := outcomes[batchIndex]
			nodesExecuted++

			if outcome.err != nil {
				graph.transition(ctx, state, nodeID, NodeFailed, obs)
				state.Errors = append(state.Errors, fmt.Sprintf("node %q: %v", nodeID, outcome.err))
				nodesFailed++
				obs.nodeFailed(ctx, nodeID, outcome.err)

				if graph.nodes[nodeID].required {
					// Abort: later batch siblings' outcomes are
					// discarded, no further batch starts.
					aborted = true
					break
				}
				continue
			}

			graph.transition(ctx, state, nodeID, NodeCompleted, obs)
			state.NodeResults[nodeID] = outcome.payload
			state.Update(outcome.payload)
			state.ExecutionPath = append(state.ExecutionPath, nodeID)
			obs.nodeCompleted(ctx, nodeID)
		}

		if aborted {
			result := graph.buildResult(false, state, executionStart, nodesExecuted, nodesFailed)
			obs.executionFinished(ctx, result)
			return result, nil
		}
	}

	success := graph.evaluateSuccess(state, nodesFailed)
	result := graph.buildResult(success, state, executionStart, nodesExecuted, nodesFailed)
	obs.executionFinished(ctx, result)
	return result, nil
}

// initialExecutionState produces the starting state: a restored checkpoint
// clone when requested, otherwise a fresh state seeded with initialState.
func (graph *WorkflowGraph) initialExecutionState(ctx context.Context, config *executeConfig, initialState map[string]any) (*GraphState, error) {
	if config.checkpointID == "" {
		return NewGraphState(initialState), nil
	}

	restored, err := graph.config.checkpoints.Load(ctx, config.checkpointID)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: restore checkpoint %q: %w", graph.name, config.checkpointID, err)
	}
	return restored.Clone(), nil
}

// runBatch dispatches every node in the batch concurrently and waits for
// the whole batch before returning. Outcomes are slotted by batch index so
// commit order is the batch order regardless of finish order. During the
// wait, the committed state is read-only: goroutines clone it but never
// write it.
func (graph *WorkflowGraph) runBatch(ctx context.Context, batch []string, state *GraphState, obs *executionObserver) []attemptOutcome {
	outcomes := make([]attemptOutcome, len(batch))

	var waitGroup sync.WaitGroup
	for batchIndex, nodeID := range batch {
		waitGroup.Add(1)

		go func(slot int, graphNode *node) {
			defer waitGroup.Done()

			nodeStart := time.Now()
			payload, err := graph.runNode(ctx, graphNode, state, obs)
			obs.nodeDuration(ctx, graphNode.id, time.Since(nodeStart))

			outcomes[slot] = attemptOutcome{payload: payload, err: err}
		}(batchIndex, graph.nodes[nodeID])
	}
	waitGroup.Wait()

	return outcomes
}

// transition commits a status change and notifies the listener
// synchronously, in commit order.
func (graph *WorkflowGraph) transition(ctx context.Context, state *GraphState, nodeID string, to NodeStatus, obs *executionObserver) {
	from := state.Status(nodeID)
	state.NodeStatuses[nodeID] = to

	if graph.config.statusListener != nil {
		graph.config.statusListener(nodeID, from, to)
	}
	obs.statusChanged(ctx, nodeID, from, to)
}

// evaluateSuccess applies the finish rule after the loop quiesces.
func (graph *WorkflowGraph) evaluateSuccess(state *GraphState, nodesFailed int) bool {
	if len(graph.finishPoints) == 0 {
		return nodesFailed == 0
	}
	for finishID := range graph.finishPoints {
		if state.Status(finishID) == NodeCompleted {
			return true
		}
	}
	return false
}

// buildResult assembles the immutable ExecutionResult, copying the
// execution path so later runs cannot alias it.
func (graph *WorkflowGraph) buildResult(success bool, state *GraphState, executionStart time.Time, nodesExecuted, nodesFailed int) *ExecutionResult {
	order := make([]string, len(state.ExecutionPath))
	copy(order, state.ExecutionPath)

	return &ExecutionResult{
		Success:        success,
		FinalState:     state,
		Duration:       time.Since(executionStart),
		NodesExecuted:  nodesExecuted,
		NodesFailed:    nodesFailed,
		ExecutionOrder: order,
	}
}
