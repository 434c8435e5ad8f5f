package workflow

import (
	"context"
	"testing"
)

func TestStateGraph_ConditionalRouting(testCase *testing.T) {
	stateGraph := NewStateGraph("routing")
	stateGraph.AddNode("validate", successNode(map[string]any{"validation_passed": false})).
		AddNode("diagnose", successNode(map[string]any{"diagnosed": true})).
		AddNode("report", successNode(map[string]any{"reported": true}))

	stateGraph.AddConditionalEdges("validate",
		map[string]ConditionFunc{
			"diagnose": func(state *GraphState) bool {
				return state.GetOr("validation_passed", true) == false
			},
		},
		"report",
	)
	stateGraph.SetEntryPoint("validate").
		SetFinishPoint("diagnose").
		SetFinishPoint("report")

	result, err := stateGraph.Execute(context.Background(), nil)
	if err != nil {
		testCase.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		testCase.Errorf("expected success, errors: %v", result.FinalState.Errors)
	}
	// Fan-out routing: the satisfied conditional edge fires AND the
	// default edge fires; neither suppresses the other.
	if status := result.FinalState.Status("diagnose"); status != NodeCompleted {
		testCase.Errorf("expected diagnose taken, got %s", status)
	}
	if status := result.FinalState.Status("report"); status != NodeCompleted {
		testCase.Errorf("expected default route taken too, got %s", status)
	}
}

func TestStateGraph_ConditionalRoutingUnsatisfied(testCase *testing.T) {
	stateGraph := NewStateGraph("routing")
	stateGraph.AddNode("validate", successNode(map[string]any{"validation_passed": true})).
		AddNode("diagnose", successNode(nil)).
		AddNode("report", successNode(nil))

	stateGraph.AddConditionalEdges("validate",
		map[string]ConditionFunc{
			"diagnose": func(state *GraphState) bool {
				return state.GetOr("validation_passed", true) == false
			},
		},
		"report",
	)
	stateGraph.SetEntryPoint("validate").
		SetFinishPoint("report")

	result, err := stateGraph.Execute(context.Background(), nil)
	if err != nil {
		testCase.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		testCase.Errorf("expected success, errors: %v", result.FinalState.Errors)
	}
	if status := result.FinalState.Status("diagnose"); status != NodePending {
		testCase.Errorf("expected diagnose skipped, got %s", status)
	}
	if status := result.FinalState.Status("report"); status != NodeCompleted {
		testCase.Errorf("expected default route taken, got %s", status)
	}
}

func TestStateGraph_ConditionalEdgesDeterministicOrder(testCase *testing.T) {
	never := func(_ *GraphState) bool { return false }

	stateGraph := NewStateGraph("ordering")
	stateGraph.AddNode("source", successNode(nil)).
		AddNode("zebra", successNode(nil)).
		AddNode("alpha", successNode(nil)).
		AddNode("fallback", successNode(nil))

	stateGraph.AddConditionalEdges("source",
		map[string]ConditionFunc{
			"zebra": never,
			"alpha": never,
		},
		"fallback",
	)

	edges := stateGraph.outgoingEdges("source")
	if len(edges) != 3 {
		testCase.Fatalf("expected 3 edges, got %d", len(edges))
	}
	// Conditional edges in lexical target order, the default edge last
	// (priority -1).
	wantTargets := []string{"alpha", "zebra", "fallback"}
	for position, edge := range edges {
		if edge.target != wantTargets[position] {
			testCase.Errorf("edge %d: expected target %s, got %s", position, wantTargets[position], edge.target)
		}
	}
	if edges[2].priority != -1 {
		testCase.Errorf("expected default edge priority -1, got %d", edges[2].priority)
	}
}

func TestStateGraph_NoDefaultTarget(testCase *testing.T) {
	stateGraph := NewStateGraph("nodefault")
	stateGraph.AddNode("source", successNode(nil)).
		AddNode("branch", successNode(nil))

	stateGraph.AddConditionalEdges("source",
		map[string]ConditionFunc{
			"branch": func(_ *GraphState) bool { return true },
		},
		"",
	)

	edges := stateGraph.outgoingEdges("source")
	if len(edges) != 1 || edges[0].target != "branch" {
		testCase.Errorf("expected a single conditional edge, got %d edges", len(edges))
	}
}
