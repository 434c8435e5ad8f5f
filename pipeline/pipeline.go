package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nvaccaro/floe/core/parse"
	"github.com/nvaccaro/floe/providers/observability"
	"github.com/nvaccaro/floe/workflow"
)

// Phase identifies one stage of the migration pipeline.
type Phase string

const (
	PhaseParse    Phase = "parse"
	PhaseAnalyze  Phase = "analyze"
	PhaseBuild    Phase = "build"
	PhaseExecute  Phase = "execute"
	PhaseValidate Phase = "validate"
	PhaseDiagnose Phase = "diagnose"
)

// phaseOrder is the canonical happy-path sequence. Diagnose sits outside it:
// it is reached only through the failure and conditional edges out of
// validate.
var phaseOrder = []Phase{PhaseParse, PhaseAnalyze, PhaseBuild, PhaseExecute, PhaseValidate}

// KeyValidationPassed is the state key the validate phase is expected to set.
// When it is false after validate completes, the diagnose phase fires.
const KeyValidationPassed = "validation_passed"

// validationFailed reports an explicitly negative validation verdict. Phases
// that shell out to external validators often record the verdict as a string
// ("false", `{"type":"boolean","value":false}`), so the value is decoded
// tolerantly rather than type-asserted. An absent or undecodable verdict
// counts as passed.
func validationFailed(state *workflow.GraphState) bool {
	value, exists := state.Get(KeyValidationPassed)
	if !exists {
		return false
	}
	passed, err := parse.ValueAs[bool](value)
	return err == nil && !passed
}

// PhaseRunner implements one pipeline phase. Runners receive a snapshot of
// the committed state and return a payload merged into it, exactly like a
// workflow.NodeFunc.
type PhaseRunner interface {
	Phase() Phase
	Run(ctx context.Context, state *workflow.GraphState) (map[string]any, error)
}

// PhaseFunc adapts a plain function into a PhaseRunner.
type PhaseFunc struct {
	For Phase
	Fn  workflow.NodeFunc
}

func (runner PhaseFunc) Phase() Phase { return runner.For }

func (runner PhaseFunc) Run(ctx context.Context, state *workflow.GraphState) (map[string]any, error) {
	return runner.Fn(ctx, state)
}

// Pipeline assembles registered phase runners into an executable workflow.
// Registration errors accumulate and surface at Compile or Run.
type Pipeline struct {
	name     string
	config   *Config
	observer observability.Provider
	store    workflow.CheckpointStore

	runners     map[Phase]PhaseRunner
	buildErrors []error

	graph *workflow.StateGraph
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithConfig sets the pipeline configuration. A nil config falls back to
// DefaultConfig.
func WithConfig(config *Config) Option {
	return func(pipeline *Pipeline) {
		if config != nil {
			pipeline.config = config
		}
	}
}

// WithObserver injects an observability provider, forwarded to the
// underlying workflow.
func WithObserver(provider observability.Provider) Option {
	return func(pipeline *Pipeline) {
		pipeline.observer = provider
	}
}

// WithCheckpointStore sets the store backing Checkpoint and Resume.
func WithCheckpointStore(store workflow.CheckpointStore) Option {
	return func(pipeline *Pipeline) {
		if store != nil {
			pipeline.store = store
		}
	}
}

// New creates an empty pipeline. Register phase runners, then Run.
func New(name string, opts ...Option) *Pipeline {
	pipeline := &Pipeline{
		name:    name,
		config:  DefaultConfig(),
		store:   workflow.NewInMemoryCheckpointStore(),
		runners: make(map[Phase]PhaseRunner),
	}
	for _, opt := range opts {
		opt(pipeline)
	}
	return pipeline
}

// Register adds a phase runner. Unknown phases and duplicate registrations
// are recorded as construction errors.
func (pipeline *Pipeline) Register(runner PhaseRunner) *Pipeline {
	if runner == nil {
		pipeline.buildErrors = append(pipeline.buildErrors, errors.New("nil phase runner"))
		return pipeline
	}

	phase := runner.Phase()
	if !knownPhase(phase) {
		pipeline.buildErrors = append(pipeline.buildErrors, fmt.Errorf("unknown phase %q", phase))
		return pipeline
	}
	if _, exists := pipeline.runners[phase]; exists {
		pipeline.buildErrors = append(pipeline.buildErrors, fmt.Errorf("duplicate runner for phase %q", phase))
		return pipeline
	}

	pipeline.runners[phase] = runner
	pipeline.graph = nil
	return pipeline
}

// RegisterFunc is shorthand for Register(PhaseFunc{For: phase, Fn: fn}).
func (pipeline *Pipeline) RegisterFunc(phase Phase, fn workflow.NodeFunc) *Pipeline {
	return pipeline.Register(PhaseFunc{For: phase, Fn: fn})
}

func knownPhase(phase Phase) bool {
	if phase == PhaseDiagnose {
		return true
	}
	for _, known := range phaseOrder {
		if phase == known {
			return true
		}
	}
	return false
}

// Compile assembles and validates the workflow. Called implicitly by Run and
// Resume; calling it directly surfaces wiring problems early.
func (pipeline *Pipeline) Compile() error {
	if len(pipeline.buildErrors) > 0 {
		return fmt.Errorf("pipeline %q: %w", pipeline.name, errors.Join(pipeline.buildErrors...))
	}
	graph, err := pipeline.assemble()
	if err != nil {
		return err
	}
	pipeline.graph = graph
	return nil
}

// assemble wires the registered phases. The happy path is the canonical
// phase sequence restricted to registered phases; diagnose, when registered,
// hangs off validate via a failure edge and a conditional edge on a failed
// validation report.
func (pipeline *Pipeline) assemble() (*workflow.StateGraph, error) {
	registered := make([]Phase, 0, len(phaseOrder))
	for _, phase := range phaseOrder {
		if _, exists := pipeline.runners[phase]; exists {
			registered = append(registered, phase)
		}
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("pipeline %q: no phases registered", pipeline.name)
	}

	options := []workflow.Option{workflow.WithCheckpointStore(pipeline.store)}
	if pipeline.observer != nil {
		options = append(options, workflow.WithObserver(pipeline.observer))
	}
	graph := workflow.NewStateGraph(pipeline.name, options...)

	lastPhase := registered[len(registered)-1]
	_, diagnoseRegistered := pipeline.runners[PhaseDiagnose]

	for _, phase := range registered {
		options := pipeline.nodeOptions(phase)

		// With a diagnose route wired, the final phase must not abort the
		// run on failure or the failure edge could never fire. An explicit
		// required: true in the config overrides this.
		if diagnoseRegistered && phase == lastPhase && pipeline.config.phase(phase).Required == nil {
			options = append(options, workflow.Optional())
		}

		graph.AddNode(string(phase), pipeline.phaseNode(phase), options...)
	}
	for position := 1; position < len(registered); position++ {
		graph.AddEdge(string(registered[position-1]), string(registered[position]))
	}

	graph.SetEntryPoint(string(registered[0]))
	graph.SetFinishPoint(string(lastPhase))

	if diagnoseRegistered {
		diagnoseOptions := append(pipeline.nodeOptions(PhaseDiagnose), workflow.Optional())
		graph.AddNode(string(PhaseDiagnose), pipeline.phaseNode(PhaseDiagnose), diagnoseOptions...)

		// Two routes in: validate failed outright, or validate completed
		// but reported a failed check.
		graph.AddEdge(string(lastPhase), string(PhaseDiagnose), workflow.OnFailure())
		graph.AddEdge(string(lastPhase), string(PhaseDiagnose), workflow.When(validationFailed))
		graph.SetFinishPoint(string(PhaseDiagnose))
	}

	if err := graph.Compile(); err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", pipeline.name, err)
	}
	return graph, nil
}

// phaseNode wraps a runner with a per-phase span and log line.
func (pipeline *Pipeline) phaseNode(phase Phase) workflow.NodeFunc {
	runner := pipeline.runners[phase]

	return func(ctx context.Context, state *workflow.GraphState) (map[string]any, error) {
		provider := pipeline.observer
		if provider == nil {
			provider = observability.ObserverFromContext(ctx)
		}
		if provider == nil {
			return runner.Run(ctx, state)
		}

		attrs := []observability.Attribute{
			observability.String(observability.AttrPipelineName, pipeline.name),
			observability.String(observability.AttrPipelinePhase, string(phase)),
		}
		spanCtx, span := provider.StartSpan(ctx, observability.SpanPipelinePhase, attrs...)
		defer span.End()

		payload, err := runner.Run(spanCtx, state)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "phase failed")
			return nil, err
		}
		span.SetStatus(observability.StatusOK, "phase completed")
		return payload, nil
	}
}

func (pipeline *Pipeline) nodeOptions(phase Phase) []workflow.NodeOption {
	phaseConfig := pipeline.config.phase(phase)

	options := make([]workflow.NodeOption, 0, 4)
	if phaseConfig.Timeout > 0 {
		options = append(options, workflow.WithTimeout(time.Duration(phaseConfig.Timeout)))
	}
	if phaseConfig.Retries > 0 {
		options = append(options, workflow.WithRetries(phaseConfig.Retries))
	}
	if phaseConfig.RetryDelay > 0 {
		options = append(options, workflow.WithRetryDelay(time.Duration(phaseConfig.RetryDelay)))
	}
	if phaseConfig.Required != nil && !*phaseConfig.Required {
		options = append(options, workflow.Optional())
	}
	return options
}

// Run executes the pipeline from a fresh state.
func (pipeline *Pipeline) Run(ctx context.Context, initial map[string]any) (*workflow.ExecutionResult, error) {
	if err := pipeline.ensureCompiled(); err != nil {
		return nil, err
	}
	return pipeline.graph.Execute(ctx, initial, pipeline.executeOptions()...)
}

// Resume restores a stored checkpoint and continues from its frontier.
func (pipeline *Pipeline) Resume(ctx context.Context, checkpointID string) (*workflow.ExecutionResult, error) {
	if err := pipeline.ensureCompiled(); err != nil {
		return nil, err
	}
	options := append(pipeline.executeOptions(), workflow.WithCheckpoint(checkpointID))
	return pipeline.graph.Execute(ctx, nil, options...)
}

// Checkpoint stores a snapshot under the given ID in the configured store.
func (pipeline *Pipeline) Checkpoint(ctx context.Context, id string, state *workflow.GraphState) error {
	if err := pipeline.ensureCompiled(); err != nil {
		return err
	}
	return pipeline.graph.Checkpoint(ctx, id, state)
}

// Visualize renders the assembled workflow. Compile must have succeeded.
func (pipeline *Pipeline) Visualize() (string, error) {
	if err := pipeline.ensureCompiled(); err != nil {
		return "", err
	}
	return pipeline.graph.Visualize(), nil
}

func (pipeline *Pipeline) ensureCompiled() error {
	if pipeline.graph != nil && len(pipeline.buildErrors) == 0 {
		return nil
	}
	return pipeline.Compile()
}

func (pipeline *Pipeline) executeOptions() []workflow.ExecuteOption {
	options := []workflow.ExecuteOption{}
	if pipeline.config.MaxParallel > 0 {
		options = append(options, workflow.WithMaxParallel(pipeline.config.MaxParallel))
	}
	return options
}
