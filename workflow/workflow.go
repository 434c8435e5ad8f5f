package workflow

import (
	"errors"
	"fmt"
	"sort"
)

// WorkflowGraph is a directed graph of nodes executed in dependency order.
//
// Construction follows a fluent pattern: AddNode, AddEdge, SetEntryPoint and
// SetFinishPoint all return the graph for chaining. Structural problems
// (duplicate IDs, edges referencing unknown nodes, unknown entry/finish
// points) are detected at the offending call, accumulated, and reported by
// Compile or Execute so a chained build never silently proceeds on a broken
// definition.
//
// A WorkflowGraph is safe to Execute multiple times; each call runs against
// its own GraphState. It is not safe to mutate the definition (AddNode etc.)
// concurrently with Execute.
type WorkflowGraph struct {
	// name identifies the workflow in logs, spans and checkpoints.
	name string

	// nodes stores all registered nodes keyed by ID.
	nodes map[string]*node

	// nodeOrder preserves insertion order for deterministic scheduling
	// and visualization.
	nodeOrder []string

	// edges stores all registered edges in insertion order.
	edges []*edge

	// entryPoint is the declared starting node; required before Execute.
	entryPoint string

	// finishPoints are the declared end nodes. When empty, success means
	// zero failures; otherwise at least one finish node must complete.
	finishPoints map[string]struct{}

	// config holds cross-cutting collaborators injected via Options.
	config *graphConfig

	// buildErrors accumulates construction errors for Compile/Execute.
	buildErrors []error
}

// New creates an empty WorkflowGraph with the given name. Graph-level
// options inject collaborators such as the observability provider, a status
// listener, and the checkpoint store.
//
// Example:
//
//	g := workflow.New("migration",
//	    workflow.WithObserver(observer),
//	    workflow.WithCheckpointStore(store),
//	)
func New(name string, opts ...Option) *WorkflowGraph {
	config := &graphConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if config.checkpoints == nil {
		config.checkpoints = NewInMemoryCheckpointStore()
	}

	return &WorkflowGraph{
		name:         name,
		nodes:        make(map[string]*node),
		nodeOrder:    make([]string, 0),
		edges:        make([]*edge, 0),
		finishPoints: make(map[string]struct{}),
		config:       config,
		buildErrors:  make([]error, 0),
	}
}

// Name returns the workflow name.
func (graph *WorkflowGraph) Name() string {
	return graph.name
}

// AddNode registers a unit of work under a unique ID. Node options override
// the defaults (300s timeout, no retries, 1s retry delay, required).
//
// A duplicate or empty ID, or a nil function, records a construction error
// reported at Compile/Execute time.
//
// Example:
//
//	g.AddNode("validate", validateFn,
//	    workflow.WithTimeout(2*time.Minute),
//	    workflow.WithRetries(2),
//	)
func (graph *WorkflowGraph) AddNode(id string, fn NodeFunc, opts ...NodeOption) *WorkflowGraph {
	if id == "" {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("node ID must not be empty"))
		return graph
	}
	if fn == nil {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("function must not be nil for node %q", id))
		return graph
	}
	if _, exists := graph.nodes[id]; exists {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("duplicate node ID %q", id))
		return graph
	}

	graphNode := &node{
		id:         id,
		fn:         fn,
		timeout:    DefaultNodeTimeout,
		retryDelay: DefaultRetryDelay,
		required:   true,
	}
	for _, opt := range opts {
		opt(graphNode)
	}

	graph.nodes[id] = graphNode
	graph.nodeOrder = append(graph.nodeOrder, id)

	return graph
}

// AddEdge connects two registered nodes. The default condition is EdgeAlways
// (fires when the source completes); edge options select OnFailure or
// Conditional semantics and the iteration priority.
//
// Both endpoints must already be registered; an edge naming an unknown node
// records a construction error at the call site.
//
// Example:
//
//	g.AddEdge("validate", "report")
//	g.AddEdge("validate", "diagnose", workflow.OnFailure())
func (graph *WorkflowGraph) AddEdge(source, target string, opts ...EdgeOption) *WorkflowGraph {
	if _, exists := graph.nodes[source]; !exists {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("edge source node %q not found", source))
		return graph
	}
	if _, exists := graph.nodes[target]; !exists {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("edge target node %q not found", target))
		return graph
	}

	graphEdge := &edge{
		source:    source,
		target:    target,
		condition: EdgeAlways,
	}
	for _, opt := range opts {
		opt(graphEdge)
	}

	graph.edges = append(graph.edges, graphEdge)

	return graph
}

// SetEntryPoint declares the starting node. Execute refuses to run without
// one. Naming an unknown node records a construction error.
func (graph *WorkflowGraph) SetEntryPoint(id string) *WorkflowGraph {
	if _, exists := graph.nodes[id]; !exists {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("entry point node %q not found", id))
		return graph
	}
	graph.entryPoint = id
	return graph
}

// SetFinishPoint marks a node as an end point. Declaring at least one finish
// point changes the success rule: the run succeeds only when some finish
// node reaches NodeCompleted.
func (graph *WorkflowGraph) SetFinishPoint(id string) *WorkflowGraph {
	if _, exists := graph.nodes[id]; !exists {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("finish point node %q not found", id))
		return graph
	}
	graph.finishPoints[id] = struct{}{}
	return graph
}

// Compile validates the graph definition without executing it:
//
//  1. No accumulated construction errors from AddNode/AddEdge/SetEntryPoint
//  2. An entry point is set
//  3. At least one finish point is set
//  4. Every registered node is reachable from the entry point via edges
//
// Execute performs checks 1–2 itself; Compile is the stricter, optional
// pre-flight for callers that want unreachable-node detection.
func (graph *WorkflowGraph) Compile() error {
	if err := graph.buildErr(); err != nil {
		return err
	}
	if graph.entryPoint == "" {
		return fmt.Errorf("workflow %q: no entry point set", graph.name)
	}
	if len(graph.finishPoints) == 0 {
		return fmt.Errorf("workflow %q: no finish point set", graph.name)
	}

	// BFS over outgoing edges from the entry point.
	reachable := make(map[string]bool, len(graph.nodes))
	frontier := []string{graph.entryPoint}
	for len(frontier) > 0 {
		current := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if reachable[current] {
			continue
		}
		reachable[current] = true

		for _, graphEdge := range graph.outgoingEdges(current) {
			if !reachable[graphEdge.target] {
				frontier = append(frontier, graphEdge.target)
			}
		}
	}

	unreachable := make([]string, 0)
	for _, nodeID := range graph.nodeOrder {
		if !reachable[nodeID] {
			unreachable = append(unreachable, nodeID)
		}
	}
	if len(unreachable) > 0 {
		return fmt.Errorf("workflow %q: unreachable nodes: %v", graph.name, unreachable)
	}

	return nil
}

// buildErr joins any accumulated construction errors.
func (graph *WorkflowGraph) buildErr() error {
	if len(graph.buildErrors) == 0 {
		return nil
	}
	return fmt.Errorf("workflow %q construction errors: %w", graph.name, errors.Join(graph.buildErrors...))
}

// outgoingEdges returns all edges leaving a node, higher priority first.
// The sort is stable so equal-priority edges keep insertion order.
func (graph *WorkflowGraph) outgoingEdges(nodeID string) []*edge {
	outgoing := make([]*edge, 0)
	for _, graphEdge := range graph.edges {
		if graphEdge.source == nodeID {
			outgoing = append(outgoing, graphEdge)
		}
	}
	sort.SliceStable(outgoing, func(edgeIndexA, edgeIndexB int) bool {
		return outgoing[edgeIndexA].priority > outgoing[edgeIndexB].priority
	})
	return outgoing
}

// incomingEdges returns all edges entering a node, in insertion order.
func (graph *WorkflowGraph) incomingEdges(nodeID string) []*edge {
	incoming := make([]*edge, 0)
	for _, graphEdge := range graph.edges {
		if graphEdge.target == nodeID {
			incoming = append(incoming, graphEdge)
		}
	}
	return incoming
}
