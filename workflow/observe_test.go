package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nvaccaro/floe/providers/observability"
)

// testObserver records every observability call so tests can assert on the
// telemetry the engine emits.
type testObserver struct {
	mu         sync.Mutex
	spans      []*testSpan
	counters   map[string]*testCounter
	histograms map[string]*testHistogram
	logs       []string
}

func newTestObserver() *testObserver {
	return &testObserver{
		counters:   make(map[string]*testCounter),
		histograms: make(map[string]*testHistogram),
	}
}

func (observer *testObserver) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	observer.mu.Lock()
	defer observer.mu.Unlock()

	span := &testSpan{name: name, attrs: attrs}
	observer.spans = append(observer.spans, span)
	return ctx, span
}

func (observer *testObserver) Counter(name string) observability.Counter {
	observer.mu.Lock()
	defer observer.mu.Unlock()

	counter, exists := observer.counters[name]
	if !exists {
		counter = &testCounter{}
		observer.counters[name] = counter
	}
	return counter
}

func (observer *testObserver) Histogram(name string) observability.Histogram {
	observer.mu.Lock()
	defer observer.mu.Unlock()

	histogram, exists := observer.histograms[name]
	if !exists {
		histogram = &testHistogram{}
		observer.histograms[name] = histogram
	}
	return histogram
}

func (observer *testObserver) logMessage(msg string) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.logs = append(observer.logs, msg)
}

func (observer *testObserver) Trace(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.logMessage(msg)
}

func (observer *testObserver) Debug(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.logMessage(msg)
}

func (observer *testObserver) Info(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.logMessage(msg)
}

func (observer *testObserver) Warn(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.logMessage(msg)
}

func (observer *testObserver) Error(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.logMessage(msg)
}

func (observer *testObserver) counterValue(name string) int64 {
	observer.mu.Lock()
	defer observer.mu.Unlock()

	counter, exists := observer.counters[name]
	if !exists {
		return 0
	}
	return counter.value()
}

func (observer *testObserver) histogramCount(name string) int {
	observer.mu.Lock()
	defer observer.mu.Unlock()

	histogram, exists := observer.histograms[name]
	if !exists {
		return 0
	}
	return histogram.count()
}

func (observer *testObserver) hasLog(msg string) bool {
	observer.mu.Lock()
	defer observer.mu.Unlock()

	for _, logged := range observer.logs {
		if logged == msg {
			return true
		}
	}
	return false
}

type testSpan struct {
	mu       sync.Mutex
	name     string
	attrs    []observability.Attribute
	ended    bool
	status   observability.StatusCode
	recorded []error
}

func (span *testSpan) End() {
	span.mu.Lock()
	defer span.mu.Unlock()
	span.ended = true
}

func (span *testSpan) SetAttributes(attrs ...observability.Attribute) {
	span.mu.Lock()
	defer span.mu.Unlock()
	span.attrs = append(span.attrs, attrs...)
}

func (span *testSpan) SetStatus(code observability.StatusCode, _ string) {
	span.mu.Lock()
	defer span.mu.Unlock()
	span.status = code
}

func (span *testSpan) RecordError(err error) {
	span.mu.Lock()
	defer span.mu.Unlock()
	span.recorded = append(span.recorded, err)
}

func (span *testSpan) AddEvent(_ string, _ ...observability.Attribute) {}

type testCounter struct {
	mu    sync.Mutex
	total int64
}

func (counter *testCounter) Add(_ context.Context, value int64, _ ...observability.Attribute) {
	counter.mu.Lock()
	defer counter.mu.Unlock()
	counter.total += value
}

func (counter *testCounter) value() int64 {
	counter.mu.Lock()
	defer counter.mu.Unlock()
	return counter.total
}

type testHistogram struct {
	mu     sync.Mutex
	values []float64
}

func (histogram *testHistogram) Record(_ context.Context, value float64, _ ...observability.Attribute) {
	histogram.mu.Lock()
	defer histogram.mu.Unlock()
	histogram.values = append(histogram.values, value)
}

func (histogram *testHistogram) count() int {
	histogram.mu.Lock()
	defer histogram.mu.Unlock()
	return len(histogram.values)
}

func TestExecute_EmitsSpanAndMetrics(testCase *testing.T) {
	observer := newTestObserver()

	graph := New("observed", WithObserver(observer)).
		AddNode("a", successNode(map[string]any{"a": 1})).
		AddNode("b", successNode(map[string]any{"b": 2})).
		AddEdge("a", "b").
		SetEntryPoint("a").
		SetFinishPoint("b")

	result, err := graph.Execute(context.Background(), nil)
	if err != nil {
		testCase.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		testCase.Fatalf("expected success, errors: %v", result.FinalState.Errors)
	}

	if len(observer.spans) != 1 {
		testCase.Fatalf("expected 1 root span, got %d", len(observer.spans))
	}
	rootSpan := observer.spans[0]
	if rootSpan.name != observability.SpanWorkflowExecute {
		testCase.Errorf("expected span %q, got %q", observability.SpanWorkflowExecute, rootSpan.name)
	}
	if !rootSpan.ended {
		testCase.Error("expected the root span to be ended")
	}
	if rootSpan.status != observability.StatusOK {
		testCase.Errorf("expected OK span status, got %d", rootSpan.status)
	}

	if got := observer.counterValue(observability.MetricNodeCount); got != 2 {
		testCase.Errorf("expected node counter 2, got %d", got)
	}
	if got := observer.histogramCount(observability.MetricNodeDuration); got != 2 {
		testCase.Errorf("expected 2 node duration samples, got %d", got)
	}
	if got := observer.histogramCount(observability.MetricExecutionDuration); got != 1 {
		testCase.Errorf("expected 1 execution duration sample, got %d", got)
	}
	if !observer.hasLog("workflow execution started") || !observer.hasLog("workflow execution completed") {
		testCase.Errorf("expected start/complete logs, got %v", observer.logs)
	}
}

func TestExecute_FailureTelemetry(testCase *testing.T) {
	observer := newTestObserver()
	failure := errors.New("broken")

	graph := New("observed-failure", WithObserver(observer)).
		AddNode("doomed", failingNode(failure), WithRetries(1), WithRetryDelay(time.Millisecond)).
		SetEntryPoint("doomed").
		SetFinishPoint("doomed")

	result, err := graph.Execute(context.Background(), nil)
	if err != nil {
		testCase.Fatalf("Execute failed: %v", err)
	}
	if result.Success {
		testCase.Fatal("expected failure")
	}

	if got := observer.counterValue(observability.MetricNodeRetries); got != 1 {
		testCase.Errorf("expected 1 retry recorded, got %d", got)
	}
	rootSpan := observer.spans[0]
	if rootSpan.status != observability.StatusError {
		testCase.Errorf("expected error span status, got %d", rootSpan.status)
	}
	if len(rootSpan.recorded) == 0 {
		testCase.Error("expected the node error recorded on the root span")
	}
	if !observer.hasLog("node failed") || !observer.hasLog("workflow execution failed") {
		testCase.Errorf("expected failure logs, got %v", observer.logs)
	}
}

func TestExecute_ObserverFromContext(testCase *testing.T) {
	observer := newTestObserver()
	ctx := observability.ContextWithObserver(context.Background(), observer)

	graph := New("ambient").
		AddNode("a", successNode(nil)).
		SetEntryPoint("a").
		SetFinishPoint("a")

	if _, err := graph.Execute(ctx, nil); err != nil {
		testCase.Fatalf("Execute failed: %v", err)
	}

	if len(observer.spans) != 1 {
		testCase.Fatalf("expected the ambient observer to receive the root span, got %d spans", len(observer.spans))
	}
}

func TestExecute_NoObserverIsNoOp(testCase *testing.T) {
	graph := New("silent").
		AddNode("a", successNode(nil)).
		SetEntryPoint("a").
		SetFinishPoint("a")

	result, err := graph.Execute(context.Background(), nil)
	if err != nil {
		testCase.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		testCase.Errorf("expected success without an observer, errors: %v", result.FinalState.Errors)
	}
}
