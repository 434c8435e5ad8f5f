package workflow

// GraphState is the data carrier threaded through an execution: free-form
// key/value data, per-node results and statuses, the ordered execution path,
// and accumulated error strings.
//
// The scheduler is the only writer: it mutates the live state exclusively
// between batches, and every node invocation receives an independent Clone.
// Because of that, GraphState itself carries no locking.
//
// All fields are JSON-serializable so external CheckpointStore
// implementations can persist snapshots. Values stored in Data must be
// JSON-serializable when such a backend is used; the in-memory store imposes
// no restriction. Note that a JSON round-trip decodes numbers as float64.
type GraphState struct {
	// Data holds the merged outputs of completed nodes plus any initial
	// state. Later writers win on key overlap.
	Data map[string]any `json:"data"`

	// NodeResults records each completed node's returned payload.
	NodeResults map[string]map[string]any `json:"node_results"`

	// NodeStatuses tracks the lifecycle status of every touched node.
	// Untouched nodes are implicitly NodePending.
	NodeStatuses map[string]NodeStatus `json:"node_statuses"`

	// ExecutionPath lists node IDs in completion order, append-only.
	ExecutionPath []string `json:"execution_path"`

	// Errors accumulates one string per failed node attempt exhaustion.
	Errors []string `json:"errors"`

	// Metadata carries arbitrary caller annotations; the engine never
	// reads or writes it.
	Metadata map[string]any `json:"metadata"`
}

// NewGraphState creates a fresh state seeded with the given initial data.
// A nil initial map yields an empty state.
func NewGraphState(initial map[string]any) *GraphState {
	data := make(map[string]any, len(initial))
	for key, value := range initial {
		data[key] = value
	}

	return &GraphState{
		Data:          data,
		NodeResults:   make(map[string]map[string]any),
		NodeStatuses:  make(map[string]NodeStatus),
		ExecutionPath: make([]string, 0),
		Errors:        make([]string, 0),
		Metadata:      make(map[string]any),
	}
}

// Get retrieves a value from Data. The second return reports presence.
func (state *GraphState) Get(key string) (any, bool) {
	value, exists := state.Data[key]
	return value, exists
}

// GetOr retrieves a value from Data, falling back to fallback when absent.
func (state *GraphState) GetOr(key string, fallback any) any {
	if value, exists := state.Data[key]; exists {
		return value
	}
	return fallback
}

// Set writes a single key into Data, overwriting any existing value.
func (state *GraphState) Set(key string, value any) {
	state.Data[key] = value
}

// Update merges the given mapping into Data, overwriting on key overlap.
func (state *GraphState) Update(updates map[string]any) {
	for key, value := range updates {
		state.Data[key] = value
	}
}

// Status returns the recorded status for a node, or NodePending when the
// node has not been touched yet.
func (state *GraphState) Status(nodeID string) NodeStatus {
	if status, exists := state.NodeStatuses[nodeID]; exists {
		return status
	}
	return NodePending
}

// Result returns the payload recorded for a completed node, or nil when the
// node has not completed.
func (state *GraphState) Result(nodeID string) map[string]any {
	return state.NodeResults[nodeID]
}

// Clone produces an independent copy of the state. Maps and slices are
// copied one level deep, including the per-node result payloads, so a node
// body mutating its snapshot cannot corrupt the committed state. Values
// inside Data are shared; treat them as read-only.
func (state *GraphState) Clone() *GraphState {
	clone := &GraphState{
		Data:          make(map[string]any, len(state.Data)),
		NodeResults:   make(map[string]map[string]any, len(state.NodeResults)),
		NodeStatuses:  make(map[string]NodeStatus, len(state.NodeStatuses)),
		ExecutionPath: make([]string, len(state.ExecutionPath)),
		Errors:        make([]string, len(state.Errors)),
		Metadata:      make(map[string]any, len(state.Metadata)),
	}

	for key, value := range state.Data {
		clone.Data[key] = value
	}
	for nodeID, payload := range state.NodeResults {
		payloadCopy := make(map[string]any, len(payload))
		for key, value := range payload {
			payloadCopy[key] = value
		}
		clone.NodeResults[nodeID] = payloadCopy
	}
	for nodeID, status := range state.NodeStatuses {
		clone.NodeStatuses[nodeID] = status
	}
	copy(clone.ExecutionPath, state.ExecutionPath)
	copy(clone.Errors, state.Errors)
	for key, value := range state.Metadata {
		clone.Metadata[key] = value
	}

	return clone
}
