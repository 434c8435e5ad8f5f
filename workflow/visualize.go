package workflow

import (
	"fmt"
	"strings"
)

// Visualize renders a human-readable listing of the graph definition:
// every node with its entry/finish markers, followed by every edge with its
// condition. Intended for debugging and CLI display, not for parsing.
func (graph *WorkflowGraph) Visualize() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "Workflow: %s\n", graph.name)
	builder.WriteString(strings.Repeat("=", 40))
	builder.WriteString("\n\nNodes:\n")

	for _, nodeID := range graph.nodeOrder {
		graphNode := graph.nodes[nodeID]

		markers := make([]string, 0, 2)
		if nodeID == graph.entryPoint {
			markers = append(markers, "START")
		}
		if _, isFinish := graph.finishPoints[nodeID]; isFinish {
			markers = append(markers, "END")
		}

		fmt.Fprintf(&builder, "  - %s", nodeID)
		if len(markers) > 0 {
			fmt.Fprintf(&builder, " [%s]", strings.Join(markers, ", "))
		}
		if !graphNode.required {
			builder.WriteString(" (optional)")
		}
		builder.WriteString("\n")
	}

	builder.WriteString("\nEdges:\n")
	for _, graphEdge := range graph.edges {
		fmt.Fprintf(&builder, "  %s --[%s]--> %s\n", graphEdge.source, graphEdge.condition, graphEdge.target)
	}

	return builder.String()
}
