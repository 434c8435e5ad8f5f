package workflow

import "sort"

// StateGraph layers a conditional-routing convenience API over
// WorkflowGraph. It adds AddConditionalEdges for declaring a routing table
// out of one source node, plus the stricter Compile validation inherited
// from the base graph.
//
// Note that conditional routing here is fan-out, not exclusive dispatch: a
// default edge and any number of satisfied conditional edges from the same
// source all fire in the same scheduler pass. Priorities only order edge
// iteration.
type StateGraph struct {
	*WorkflowGraph
}

// NewStateGraph creates an empty StateGraph. Options are the same
// graph-level options accepted by New.
func NewStateGraph(name string, opts ...Option) *StateGraph {
	return &StateGraph{WorkflowGraph: New(name, opts...)}
}

// AddConditionalEdges declares conditional routes out of a source node: one
// edge per (target, predicate) pair, each firing when its predicate holds,
// plus an optional default edge that fires whenever the source completes.
// Pass an empty defaultTarget to omit the default route.
//
// Targets are wired in lexical order so the resulting edge list is
// deterministic. The default edge carries priority -1, ordering it after
// the conditional edges during readiness iteration — it does not suppress
// them.
//
// Example:
//
//	sg.AddConditionalEdges("validate",
//	    map[string]workflow.ConditionFunc{
//	        "diagnose": func(s *workflow.GraphState) bool {
//	            return s.GetOr("validation_passed", true) == false
//	        },
//	    },
//	    "report",
//	)
func (stateGraph *StateGraph) AddConditionalEdges(source string, conditions map[string]ConditionFunc, defaultTarget string) *StateGraph {
	targets := make([]string, 0, len(conditions))
	for target := range conditions {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		stateGraph.AddEdge(source, target, When(conditions[target]))
	}

	if defaultTarget != "" {
		stateGraph.AddEdge(source, defaultTarget, WithPriority(-1))
	}

	return stateGraph
}
