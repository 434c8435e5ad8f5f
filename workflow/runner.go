package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// attemptOutcome carries the payload or error of a single node attempt
// across the goroutine boundary used for timeout enforcement.
type attemptOutcome struct {
	payload map[string]any
	err     error
}

// runNode executes one node against the committed state, attempting up to
// retryCount+1 times with linear backoff between attempts. Every attempt
// runs against a fresh clone of the state, so a body that partially mutated
// its snapshot before failing cannot leak into the retry.
//
// Failure is always a return value: timeouts, errors and panics inside the
// body are converted to the latest error and never propagate. A non-nil
// error here means the node exhausted all attempts.
func (graph *WorkflowGraph) runNode(ctx context.Context, graphNode *node, state *GraphState, obs *executionObserver) (map[string]any, error) {
	var lastErr error

	for attempt := 0; attempt <= graphNode.retryCount; attempt++ {
		if attempt > 0 {
			obs.nodeRetried(ctx, graphNode.id, attempt)

			// Linear backoff: delay * attempt number, no jitter.
			backoff := graphNode.retryDelay * time.Duration(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("canceled while waiting to retry: %w", ctx.Err())
			}
		}

		payload, err := graph.runAttempt(ctx, graphNode, state.Clone())
		if err == nil {
			return payload, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// runAttempt executes a single attempt under the node's timeout. The body
// runs in its own goroutine so the deadline is enforced even when the body
// ignores ctx: on expiry the attempt is abandoned (the goroutine is left to
// finish and its result discarded), matching the engine's cancellation
// posture of bounding wait time rather than forcibly stopping work.
func (graph *WorkflowGraph) runAttempt(ctx context.Context, graphNode *node, snapshot *GraphState) (map[string]any, error) {
	attemptCtx := ctx
	if graphNode.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, graphNode.timeout)
		defer cancel()
	}

	done := make(chan attemptOutcome, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- attemptOutcome{err: fmt.Errorf("panicked: %v", recovered)}
			}
		}()

		payload, err := graphNode.fn(attemptCtx, snapshot)
		done <- attemptOutcome{payload: payload, err: err}
	}()

	select {
	case outcome := <-done:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return outcome.payload, nil

	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("timed out after %s", graphNode.timeout)
		}
		return nil, fmt.Errorf("canceled: %w", attemptCtx.Err())
	}
}
