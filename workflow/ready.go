package workflow

// readyNodes computes the set of node IDs eligible to run against the
// current committed state. It is a pure function of the graph definition and
// the state, re-evaluated from scratch every scheduler iteration — O(edges)
// per pass, which keeps the evaluator trivially correct under conditional
// edges and checkpoint restores.
//
// A node is ready when it is neither terminal nor running, AND either it is
// the entry point with no incoming edges, or at least one incoming edge is
// currently satisfied. Iteration follows node insertion order, so the batch
// composition is deterministic for a given state.
func (graph *WorkflowGraph) readyNodes(state *GraphState) []string {
	ready := make([]string, 0)

	for _, nodeID := range graph.nodeOrder {
		status := state.Status(nodeID)
		if status.Terminal() || status == NodeRunning {
			continue
		}

		incoming := graph.incomingEdges(nodeID)

		// The entry point starts the run, but only while nothing
		// points at it; an entry point with incoming edges is gated
		// like any other node.
		if nodeID == graph.entryPoint && len(incoming) == 0 {
			ready = append(ready, nodeID)
			continue
		}

		// A node with no incoming edges that is not the entry point
		// can never become ready.
		if len(incoming) == 0 {
			continue
		}

		for _, graphEdge := range incoming {
			if graph.edgeSatisfied(graphEdge, state) {
				ready = append(ready, nodeID)
				break
			}
		}
	}

	return ready
}

// edgeSatisfied evaluates a single edge's condition against the current
// state. Always and OnSuccess both require the source to have completed;
// OnFailure requires it to have failed; Conditional defers to the attached
// predicate (nil predicate fires unconditionally).
func (graph *WorkflowGraph) edgeSatisfied(graphEdge *edge, state *GraphState) bool {
	sourceStatus := state.Status(graphEdge.source)

	switch graphEdge.condition {
	case EdgeAlways, EdgeOnSuccess:
		return sourceStatus == NodeCompleted
	case EdgeOnFailure:
		return sourceStatus == NodeFailed
	case EdgeConditional:
		if graphEdge.conditionFn == nil {
			return true
		}
		return graphEdge.conditionFn(state)
	default:
		return false
	}
}
