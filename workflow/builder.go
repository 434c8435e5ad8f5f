package workflow

import "context"

// Step pairs a node ID with its function for the convenience constructors.
type Step struct {
	ID string
	Fn NodeFunc
}

// startNodeID is the synthetic fan-out root inserted by Parallel.
const startNodeID = "__start__"

// Sequential builds a linear workflow: each step depends on the previous
// one, the first step is the entry point and the last the finish point.
//
// Example:
//
//	g := workflow.Sequential("etl",
//	    workflow.Step{ID: "extract", Fn: extractFn},
//	    workflow.Step{ID: "transform", Fn: transformFn},
//	    workflow.Step{ID: "load", Fn: loadFn},
//	)
func Sequential(name string, steps ...Step) *WorkflowGraph {
	graph := New(name)

	previousID := ""
	for _, step := range steps {
		graph.AddNode(step.ID, step.Fn)

		if previousID == "" {
			graph.SetEntryPoint(step.ID)
		} else {
			graph.AddEdge(previousID, step.ID)
		}
		previousID = step.ID
	}

	if previousID != "" {
		graph.SetFinishPoint(previousID)
	}

	return graph
}

// Parallel builds a fan-out workflow: a synthetic start node feeds every
// branch, and an optional join step gathers them. Without a join, every
// branch is a finish point.
//
// Example:
//
//	g := workflow.Parallel("gather",
//	    []workflow.Step{{ID: "a", Fn: aFn}, {ID: "b", Fn: bFn}},
//	    &workflow.Step{ID: "merge", Fn: mergeFn},
//	)
func Parallel(name string, branches []Step, join *Step) *WorkflowGraph {
	graph := New(name)

	graph.AddNode(startNodeID, func(_ context.Context, _ *GraphState) (map[string]any, error) {
		return map[string]any{}, nil
	})
	graph.SetEntryPoint(startNodeID)

	for _, branch := range branches {
		graph.AddNode(branch.ID, branch.Fn)
		graph.AddEdge(startNodeID, branch.ID)
	}

	if join != nil {
		graph.AddNode(join.ID, join.Fn)
		for _, branch := range branches {
			graph.AddEdge(branch.ID, join.ID)
		}
		graph.SetFinishPoint(join.ID)
		return graph
	}

	for _, branch := range branches {
		graph.SetFinishPoint(branch.ID)
	}
	return graph
}
