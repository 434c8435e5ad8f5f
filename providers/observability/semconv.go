package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across different components of the system.

// --- Workflow Attributes ---

const (
	// AttrWorkflowName is the name of the workflow graph being executed
	AttrWorkflowName = "workflow.name"

	// AttrWorkflowTotalNodes is the number of nodes registered in the graph
	AttrWorkflowTotalNodes = "workflow.nodes.total"

	// AttrWorkflowMaxParallel is the batch dispatch limit for the execution
	AttrWorkflowMaxParallel = "workflow.max_parallel"

	// AttrWorkflowCheckpointID is the checkpoint the execution resumed from
	AttrWorkflowCheckpointID = "workflow.checkpoint.id"

	// AttrWorkflowNodeID is the identifier of the node being processed
	AttrWorkflowNodeID = "workflow.node.id"

	// AttrWorkflowNodeStatus is the lifecycle status of a node
	AttrWorkflowNodeStatus = "workflow.node.status"

	// AttrWorkflowNodeAttempt is the 1-based attempt number for a node run
	AttrWorkflowNodeAttempt = "workflow.node.attempt"

	// AttrWorkflowNodesExecuted is the number of nodes that completed
	AttrWorkflowNodesExecuted = "workflow.nodes.executed"

	// AttrWorkflowNodesFailed is the number of nodes that failed
	AttrWorkflowNodesFailed = "workflow.nodes.failed"
)

// --- Checkpoint Attributes ---

const (
	// AttrCheckpointID is the identifier of a saved checkpoint
	AttrCheckpointID = "checkpoint.id"

	// AttrCheckpointStore is the backing store implementation name
	AttrCheckpointStore = "checkpoint.store"
)

// --- Pipeline Attributes ---

const (
	// AttrPipelineName is the name of the migration pipeline
	AttrPipelineName = "pipeline.name"

	// AttrPipelinePhase is the phase currently running
	AttrPipelinePhase = "pipeline.phase"

	// AttrPipelinePackage is the source package being migrated
	AttrPipelinePackage = "pipeline.package"
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Command Attributes ---

const (
	// AttrCommandName is the executable invoked by a command node
	AttrCommandName = "command.name"

	// AttrCommandExitCode is the process exit code
	AttrCommandExitCode = "command.exit_code"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrErrorType is the error type/class
	AttrErrorType = "error.type"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanWorkflowExecute is the span name for a full graph execution
	SpanWorkflowExecute = "workflow.execute"

	// SpanWorkflowNode is the span name for a single node run
	SpanWorkflowNode = "workflow.node"

	// SpanCheckpointSave is the span name for checkpoint persistence
	SpanCheckpointSave = "checkpoint.save"

	// SpanCheckpointLoad is the span name for checkpoint retrieval
	SpanCheckpointLoad = "checkpoint.load"

	// SpanPipelinePhase is the span name for a pipeline phase
	SpanPipelinePhase = "pipeline.phase"
)

// --- Event Names ---

const (
	// EventNodeRetry marks a node retry after a failed attempt
	EventNodeRetry = "workflow.node.retry"

	// EventNodeSkipped marks a node that will never become ready
	EventNodeSkipped = "workflow.node.skipped"

	// EventCheckpointSaved marks a successful checkpoint save
	EventCheckpointSaved = "checkpoint.saved"
)

// --- Metric Names ---

const (
	// MetricNodeDuration is the histogram for per-node run duration
	MetricNodeDuration = "floe.workflow.node.duration"

	// MetricNodeCount is the counter for node outcomes, tagged by status
	MetricNodeCount = "floe.workflow.node.count"

	// MetricNodeRetries is the counter for node retry attempts
	MetricNodeRetries = "floe.workflow.node.retries"

	// MetricExecutionDuration is the histogram for full execution duration
	MetricExecutionDuration = "floe.workflow.execution.duration"
)
