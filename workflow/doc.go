// Package workflow implements a directed-graph execution engine for running
// asynchronous units of work ("nodes") in dependency order, with conditional
// branching, bounded parallelism, per-node timeout and retry with linear
// backoff, partial-failure semantics, and checkpoint/resume.
//
// A [WorkflowGraph] is built incrementally: register nodes with AddNode,
// connect them with AddEdge, then declare an entry point and optional finish
// points. Execute drives a scheduling loop that repeatedly computes the set
// of ready nodes, dispatches up to maxParallel of them concurrently, waits
// for the whole batch, merges their returned payloads into the shared
// [GraphState], and repeats until no node is ready.
//
// Node bodies never touch the live state: each invocation receives an
// independent clone and communicates results by returning a plain map that
// the scheduler merges between batches. This removes write races at the cost
// of siblings in the same batch not observing each other's output until the
// next iteration.
//
// Failure is a value, not a panic: errors and timeouts inside a node body are
// captured by the runner, retried per configuration, and on exhaustion
// recorded as a failed status plus an error string. Only the failure of a
// node marked required aborts the whole execution.
//
// The main entry points are [New] (or [NewStateGraph] for the conditional-
// edge convenience API), [WorkflowGraph.Execute], and
// [WorkflowGraph.Checkpoint] / the WithCheckpoint execute option for
// resumable runs. Use [NewInMemoryCheckpointStore] for in-process resume, or
// implement [CheckpointStore] for persistent backends (see
// providers/checkpoint).
//
// Example:
//
//	g := workflow.New("report").
//	    AddNode("fetch", fetchFn).
//	    AddNode("double", doubleFn).
//	    AddNode("report", reportFn).
//	    AddEdge("fetch", "double").
//	    AddEdge("double", "report").
//	    SetEntryPoint("fetch").
//	    SetFinishPoint("report")
//
//	result, err := g.Execute(ctx, map[string]any{"x": 1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Success, result.FinalState.Data)
package workflow
