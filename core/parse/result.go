package parse

import (
	"fmt"

	"github.com/nvaccaro/floe/workflow"
)

// ResultAs decodes one value from a node's recorded result payload into T.
// The value goes through ValueAs, so loosely-typed payloads (JSON-decoded
// maps, stringified numbers, repairable JSON strings) still land in typed
// structs.
//
// Example:
//
//	report, err := parse.ResultAs[ValidationReport](result.FinalState, "validate", "report")
func ResultAs[T any](state *workflow.GraphState, nodeID, key string) (T, error) {
	var zero T

	payload := state.Result(nodeID)
	if payload == nil {
		return zero, fmt.Errorf("node %q has no recorded result", nodeID)
	}

	value, exists := payload[key]
	if !exists {
		return zero, fmt.Errorf("node %q result has no key %q", nodeID, key)
	}

	parsed, err := ValueAs[T](value)
	if err != nil {
		return zero, fmt.Errorf("node %q result key %q: %w", nodeID, key, err)
	}
	return parsed, nil
}
