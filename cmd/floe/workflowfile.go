package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvaccaro/floe/nodes/command"
	"github.com/nvaccaro/floe/pipeline"
	"github.com/nvaccaro/floe/workflow"
)

// stepSpec is one step of a YAML workflow file. Every step runs as a shell
// command. Steps with no depends_on and no on_failure_of are entry
// candidates; exactly one such step must exist.
type stepSpec struct {
	ID          string            `yaml:"id"`
	Command     string            `yaml:"command"`
	Dir         string            `yaml:"dir"`
	Env         map[string]string `yaml:"env"`
	DependsOn   []string          `yaml:"depends_on"`
	OnFailureOf []string          `yaml:"on_failure_of"`
	Timeout     pipeline.Duration `yaml:"timeout"`
	Retries     int               `yaml:"retries"`
	RetryDelay  pipeline.Duration `yaml:"retry_delay"`
	Required    *bool             `yaml:"required"`
}

// workflowFile is the top-level structure of a floe workflow file.
type workflowFile struct {
	Name         string     `yaml:"name"`
	MaxParallel  int        `yaml:"max_parallel"`
	FinishPoints []string   `yaml:"finish_points"`
	Steps        []stepSpec `yaml:"steps"`
}

// loadWorkflowFile reads and validates a workflow definition. The workflow
// name defaults to the file's base name without extension.
func loadWorkflowFile(path string) (*workflowFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}

	var file workflowFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse workflow file %q: %w", path, err)
	}

	if file.Name == "" {
		base := filepath.Base(path)
		file.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("workflow file %q: %w", path, err)
	}

	return &file, nil
}

func (file *workflowFile) validate() error {
	if len(file.Steps) == 0 {
		return fmt.Errorf("no steps defined")
	}
	if file.MaxParallel < 0 {
		return fmt.Errorf("max_parallel must not be negative, got %d", file.MaxParallel)
	}

	known := make(map[string]bool, len(file.Steps))
	for _, step := range file.Steps {
		if step.ID == "" {
			return fmt.Errorf("every step needs an id")
		}
		if step.Command == "" {
			return fmt.Errorf("step %q has no command", step.ID)
		}
		if step.Retries < 0 {
			return fmt.Errorf("step %q: retries must not be negative", step.ID)
		}
		if known[step.ID] {
			return fmt.Errorf("duplicate step id %q", step.ID)
		}
		known[step.ID] = true
	}

	for _, step := range file.Steps {
		for _, dep := range append(append([]string{}, step.DependsOn...), step.OnFailureOf...) {
			if !known[dep] {
				return fmt.Errorf("step %q references unknown step %q", step.ID, dep)
			}
			if dep == step.ID {
				return fmt.Errorf("step %q depends on itself", step.ID)
			}
		}
	}
	for _, finish := range file.FinishPoints {
		if !known[finish] {
			return fmt.Errorf("finish point %q is not a step", finish)
		}
	}

	return nil
}

// buildGraph assembles the executable graph from the file definition. The
// entry point is the unique step with no incoming references; finish points
// are taken from the file when declared, otherwise every step no other step
// depends on becomes one.
func buildGraph(file *workflowFile, options ...workflow.Option) (*workflow.WorkflowGraph, error) {
	graph := workflow.New(file.Name, options...)

	// Register every node before any edge so steps may reference steps
	// defined later in the file.
	for _, step := range file.Steps {
		graph.AddNode(step.ID, stepNode(step), stepOptions(step)...)
	}

	referenced := make(map[string]bool)
	for _, step := range file.Steps {
		for _, dep := range step.DependsOn {
			graph.AddEdge(dep, step.ID)
			referenced[step.ID] = true
		}
		for _, source := range step.OnFailureOf {
			graph.AddEdge(source, step.ID, workflow.OnFailure())
			referenced[step.ID] = true
		}
	}

	var entries []string
	dependedOn := make(map[string]bool)
	for _, step := range file.Steps {
		if !referenced[step.ID] {
			entries = append(entries, step.ID)
		}
		for _, dep := range step.DependsOn {
			dependedOn[dep] = true
		}
		for _, source := range step.OnFailureOf {
			dependedOn[source] = true
		}
	}
	if len(entries) != 1 {
		return nil, fmt.Errorf("workflow %q: exactly one step must have no dependencies, found %d %v",
			file.Name, len(entries), entries)
	}
	graph.SetEntryPoint(entries[0])

	finishPoints := file.FinishPoints
	if len(finishPoints) == 0 {
		for _, step := range file.Steps {
			if !dependedOn[step.ID] {
				finishPoints = append(finishPoints, step.ID)
			}
		}
	}
	for _, finish := range finishPoints {
		graph.SetFinishPoint(finish)
	}

	if err := graph.Compile(); err != nil {
		return nil, err
	}

	return graph, nil
}

func stepNode(step stepSpec) workflow.NodeFunc {
	var commandOptions []command.Option
	if step.Dir != "" {
		commandOptions = append(commandOptions, command.WithDir(step.Dir))
	}
	if len(step.Env) > 0 {
		env := make([]string, 0, len(step.Env))
		for key, value := range step.Env {
			env = append(env, key+"="+value)
		}
		sort.Strings(env)
		commandOptions = append(commandOptions, command.WithEnv(env...))
	}
	return command.Shell(step.Command, commandOptions...)
}

func stepOptions(step stepSpec) []workflow.NodeOption {
	var nodeOptions []workflow.NodeOption
	if step.Timeout > 0 {
		nodeOptions = append(nodeOptions, workflow.WithTimeout(time.Duration(step.Timeout)))
	}
	if step.Retries > 0 {
		nodeOptions = append(nodeOptions, workflow.WithRetries(step.Retries))
	}
	if step.RetryDelay > 0 {
		nodeOptions = append(nodeOptions, workflow.WithRetryDelay(time.Duration(step.RetryDelay)))
	}
	if step.Required != nil && !*step.Required {
		nodeOptions = append(nodeOptions, workflow.Optional())
	}
	return nodeOptions
}
