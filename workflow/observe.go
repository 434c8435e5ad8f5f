package workflow

import (
	"context"
	"time"

	"github.com/nvaccaro/floe/providers/observability"
)

// executionObserver funnels one Execute call's events to the injected
// observability provider. A nil provider makes every method a no-op, so the
// engine pays nothing when observability is not wired.
type executionObserver struct {
	provider observability.Provider
	rootSpan observability.Span
	workflow string
}

// newExecutionObserver resolves the provider (graph option first, then the
// ambient context), opens the root span, and attaches both to the context
// for downstream propagation into node bodies.
func (graph *WorkflowGraph) newExecutionObserver(ctx *context.Context, config *executeConfig) *executionObserver {
	obs := &executionObserver{
		provider: graph.config.observer,
		workflow: graph.name,
	}
	if obs.provider == nil {
		obs.provider = observability.ObserverFromContext(*ctx)
	}
	if obs.provider == nil {
		return obs
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrWorkflowName, graph.name),
		observability.Int(observability.AttrWorkflowTotalNodes, len(graph.nodes)),
		observability.Int(observability.AttrWorkflowMaxParallel, config.maxParallel),
	}
	if config.checkpointID != "" {
		attrs = append(attrs, observability.String(observability.AttrWorkflowCheckpointID, config.checkpointID))
	}

	var rootSpan observability.Span
	*ctx, rootSpan = obs.provider.StartSpan(*ctx, observability.SpanWorkflowExecute, attrs...)
	obs.rootSpan = rootSpan

	*ctx = observability.ContextWithSpan(*ctx, rootSpan)
	*ctx = observability.ContextWithObserver(*ctx, obs.provider)

	obs.provider.Info(*ctx, "workflow execution started", attrs...)

	return obs
}

// end closes the root span. Safe to call when observability is disabled.
func (obs *executionObserver) end() {
	if obs.rootSpan != nil {
		obs.rootSpan.End()
	}
}

// statusChanged logs a committed status transition.
func (obs *executionObserver) statusChanged(ctx context.Context, nodeID string, from, to NodeStatus) {
	if obs.provider == nil {
		return
	}
	obs.provider.Debug(ctx, "node status changed",
		observability.String(observability.AttrWorkflowName, obs.workflow),
		observability.String(observability.AttrWorkflowNodeID, nodeID),
		observability.String("from", string(from)),
		observability.String(observability.AttrWorkflowNodeStatus, string(to)),
	)
}

// nodeCompleted records a successful node outcome.
func (obs *executionObserver) nodeCompleted(ctx context.Context, nodeID string) {
	if obs.provider == nil {
		return
	}
	obs.provider.Counter(observability.MetricNodeCount).Add(ctx, 1,
		observability.String(observability.AttrWorkflowNodeID, nodeID),
		observability.String(observability.AttrWorkflowNodeStatus, string(NodeCompleted)),
	)
	obs.provider.Info(ctx, "node completed",
		observability.String(observability.AttrWorkflowName, obs.workflow),
		observability.String(observability.AttrWorkflowNodeID, nodeID),
	)
}

// nodeFailed records an exhausted node.
func (obs *executionObserver) nodeFailed(ctx context.Context, nodeID string, err error) {
	if obs.provider == nil {
		return
	}
	if obs.rootSpan != nil {
		obs.rootSpan.RecordError(err)
	}
	obs.provider.Counter(observability.MetricNodeCount).Add(ctx, 1,
		observability.String(observability.AttrWorkflowNodeID, nodeID),
		observability.String(observability.AttrWorkflowNodeStatus, string(NodeFailed)),
	)
	obs.provider.Error(ctx, "node failed",
		observability.String(observability.AttrWorkflowName, obs.workflow),
		observability.String(observability.AttrWorkflowNodeID, nodeID),
		observability.Error(err),
	)
}

// nodeRetried records one retry attempt before its backoff wait.
func (obs *executionObserver) nodeRetried(ctx context.Context, nodeID string, attempt int) {
	if obs.provider == nil {
		return
	}
	obs.provider.Counter(observability.MetricNodeRetries).Add(ctx, 1,
		observability.String(observability.AttrWorkflowNodeID, nodeID),
	)
	obs.provider.Warn(ctx, "node retrying",
		observability.String(observability.AttrWorkflowName, obs.workflow),
		observability.String(observability.AttrWorkflowNodeID, nodeID),
		observability.Int(observability.AttrWorkflowNodeAttempt, attempt),
	)
}

// nodeDuration records a node's total wall time across all its attempts.
func (obs *executionObserver) nodeDuration(ctx context.Context, nodeID string, duration time.Duration) {
	if obs.provider == nil {
		return
	}
	obs.provider.Histogram(observability.MetricNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(observability.AttrWorkflowNodeID, nodeID),
	)
}

// executionFinished records the run outcome and closes out the root span
// status; the span itself ends via the deferred end().
func (obs *executionObserver) executionFinished(ctx context.Context, result *ExecutionResult) {
	if obs.provider == nil {
		return
	}
	obs.provider.Histogram(observability.MetricExecutionDuration).Record(ctx, result.Duration.Seconds())

	attrs := []observability.Attribute{
		observability.String(observability.AttrWorkflowName, obs.workflow),
		observability.Bool("success", result.Success),
		observability.Int(observability.AttrWorkflowNodesExecuted, result.NodesExecuted),
		observability.Int(observability.AttrWorkflowNodesFailed, result.NodesFailed),
		observability.Duration(observability.AttrDuration, result.Duration),
	}
	if result.Success {
		obs.provider.Info(ctx, "workflow execution completed", attrs...)
	} else {
		obs.provider.Warn(ctx, "workflow execution failed", attrs...)
	}

	if obs.rootSpan != nil {
		if result.Success {
			obs.rootSpan.SetStatus(observability.StatusOK, "workflow completed")
		} else {
			obs.rootSpan.SetStatus(observability.StatusError, "workflow failed")
		}
	}
}
