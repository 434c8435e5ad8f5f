package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvaccaro/floe/workflow"
)

func writeWorkflowFile(testCase *testing.T, name, content string) string {
	testCase.Helper()
	path := filepath.Join(testCase.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		testCase.Fatalf("write workflow file: %v", err)
	}
	return path
}

func TestLoadWorkflowFile(testCase *testing.T) {
	path := writeWorkflowFile(testCase, "deploy.yaml", `
name: nightly-deploy
max_parallel: 2
steps:
  - id: build
    command: make build
    timeout: 90s
    retries: 2
    retry_delay: 500ms
  - id: test
    command: make test
    depends_on: [build]
    required: false
  - id: cleanup
    command: make clean
    on_failure_of: [test]
`)

	file, err := loadWorkflowFile(path)
	if err != nil {
		testCase.Fatalf("loadWorkflowFile: %v", err)
	}
	if file.Name != "nightly-deploy" {
		testCase.Errorf("name = %q, want %q", file.Name, "nightly-deploy")
	}
	if file.MaxParallel != 2 {
		testCase.Errorf("max_parallel = %d, want 2", file.MaxParallel)
	}
	if len(file.Steps) != 3 {
		testCase.Fatalf("got %d steps, want 3", len(file.Steps))
	}

	build := file.Steps[0]
	if time.Duration(build.Timeout) != 90*time.Second {
		testCase.Errorf("build timeout = %s, want 90s", time.Duration(build.Timeout))
	}
	if build.Retries != 2 || time.Duration(build.RetryDelay) != 500*time.Millisecond {
		testCase.Errorf("build retry settings = (%d, %s)", build.Retries, time.Duration(build.RetryDelay))
	}
	if build.Required != nil {
		testCase.Errorf("build required should be unset")
	}
	if file.Steps[1].Required == nil || *file.Steps[1].Required {
		testCase.Errorf("test step should be marked not required")
	}
	if got := file.Steps[2].OnFailureOf; len(got) != 1 || got[0] != "test" {
		testCase.Errorf("cleanup on_failure_of = %v, want [test]", got)
	}
}

func TestLoadWorkflowFile_NameDefaultsToFileName(testCase *testing.T) {
	path := writeWorkflowFile(testCase, "etl.yaml", `
steps:
  - id: only
    command: "true"
`)

	file, err := loadWorkflowFile(path)
	if err != nil {
		testCase.Fatalf("loadWorkflowFile: %v", err)
	}
	if file.Name != "etl" {
		testCase.Errorf("name = %q, want %q", file.Name, "etl")
	}
}

func TestLoadWorkflowFile_Invalid(testCase *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "no steps",
			content: "name: empty\n",
			want:    "no steps",
		},
		{
			name: "missing id",
			content: `
steps:
  - command: "true"
`,
			want: "needs an id",
		},
		{
			name: "missing command",
			content: `
steps:
  - id: a
`,
			want: "no command",
		},
		{
			name: "duplicate id",
			content: `
steps:
  - id: a
    command: "true"
  - id: a
    command: "true"
`,
			want: "duplicate step id",
		},
		{
			name: "unknown dependency",
			content: `
steps:
  - id: a
    command: "true"
    depends_on: [ghost]
`,
			want: "unknown step",
		},
		{
			name: "self dependency",
			content: `
steps:
  - id: a
    command: "true"
    depends_on: [a]
`,
			want: "depends on itself",
		},
		{
			name: "unknown finish point",
			content: `
finish_points: [ghost]
steps:
  - id: a
    command: "true"
`,
			want: "finish point",
		},
		{
			name: "negative retries",
			content: `
steps:
  - id: a
    command: "true"
    retries: -1
`,
			want: "retries must not be negative",
		},
		{
			name: "bad duration",
			content: `
steps:
  - id: a
    command: "true"
    timeout: ninety
`,
			want: "invalid duration",
		},
	}

	for _, testData := range cases {
		testCase.Run(testData.name, func(testCase *testing.T) {
			path := writeWorkflowFile(testCase, "bad.yaml", testData.content)
			_, err := loadWorkflowFile(path)
			if err == nil {
				testCase.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), testData.want) {
				testCase.Errorf("error %q does not mention %q", err, testData.want)
			}
		})
	}
}

func TestLoadWorkflowFile_Missing(testCase *testing.T) {
	if _, err := loadWorkflowFile(filepath.Join(testCase.TempDir(), "absent.yaml")); err == nil {
		testCase.Fatal("expected an error for a missing file")
	}
}

func TestBuildGraph_DerivesEntryAndFinishPoints(testCase *testing.T) {
	path := writeWorkflowFile(testCase, "chain.yaml", `
steps:
  - id: extract
    command: "true"
  - id: transform
    command: "true"
    depends_on: [extract]
  - id: load
    command: "true"
    depends_on: [transform]
`)
	file, err := loadWorkflowFile(path)
	if err != nil {
		testCase.Fatalf("loadWorkflowFile: %v", err)
	}

	graph, err := buildGraph(file)
	if err != nil {
		testCase.Fatalf("buildGraph: %v", err)
	}

	rendering := graph.Visualize()
	if !strings.Contains(rendering, "extract [START]") {
		testCase.Errorf("extract should be the entry point:\n%s", rendering)
	}
	if !strings.Contains(rendering, "load [END]") {
		testCase.Errorf("load should be a finish point:\n%s", rendering)
	}
	if !strings.Contains(rendering, "extract --[always]--> transform") {
		testCase.Errorf("missing dependency edge:\n%s", rendering)
	}
}

func TestBuildGraph_ForwardReferences(testCase *testing.T) {
	// Steps may name dependencies defined later in the file.
	path := writeWorkflowFile(testCase, "forward.yaml", `
steps:
  - id: second
    command: "true"
    depends_on: [first]
  - id: cleanup
    command: "true"
    on_failure_of: [second]
  - id: first
    command: "true"
`)
	file, err := loadWorkflowFile(path)
	if err != nil {
		testCase.Fatalf("loadWorkflowFile: %v", err)
	}

	graph, err := buildGraph(file)
	if err != nil {
		testCase.Fatalf("buildGraph: %v", err)
	}

	rendering := graph.Visualize()
	if !strings.Contains(rendering, "first [START]") {
		testCase.Errorf("first should be the entry point:\n%s", rendering)
	}
	if !strings.Contains(rendering, "first --[always]--> second") {
		testCase.Errorf("missing forward dependency edge:\n%s", rendering)
	}
	if !strings.Contains(rendering, "second --[on_failure]--> cleanup") {
		testCase.Errorf("missing forward failure edge:\n%s", rendering)
	}
}

func TestBuildGraph_MultipleEntriesRejected(testCase *testing.T) {
	path := writeWorkflowFile(testCase, "twoheads.yaml", `
steps:
  - id: a
    command: "true"
  - id: b
    command: "true"
`)
	file, err := loadWorkflowFile(path)
	if err != nil {
		testCase.Fatalf("loadWorkflowFile: %v", err)
	}

	if _, err := buildGraph(file); err == nil {
		testCase.Fatal("expected an error for two independent entry steps")
	} else if !strings.Contains(err.Error(), "exactly one step") {
		testCase.Errorf("unexpected error: %v", err)
	}
}

func TestBuildGraph_ExecutesCommands(testCase *testing.T) {
	path := writeWorkflowFile(testCase, "hello.yaml", `
steps:
  - id: greet
    command: echo hello
  - id: shout
    command: echo LOUD
    depends_on: [greet]
`)
	file, err := loadWorkflowFile(path)
	if err != nil {
		testCase.Fatalf("loadWorkflowFile: %v", err)
	}
	graph, err := buildGraph(file)
	if err != nil {
		testCase.Fatalf("buildGraph: %v", err)
	}

	result, err := graph.Execute(context.Background(), nil)
	if err != nil {
		testCase.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		testCase.Fatalf("workflow failed: %v", result.FinalState.Errors)
	}
	if got := result.ExecutionOrder; len(got) != 2 || got[0] != "greet" || got[1] != "shout" {
		testCase.Errorf("execution order = %v", got)
	}

	greet := result.FinalState.Result("greet")
	if stdout, _ := greet["stdout"].(string); strings.TrimSpace(stdout) != "hello" {
		testCase.Errorf("greet stdout = %q", stdout)
	}
}

func TestBuildGraph_OnFailureOfRoutesAroundFailure(testCase *testing.T) {
	path := writeWorkflowFile(testCase, "recover.yaml", `
steps:
  - id: deploy
    command: "false"
    required: false
  - id: diagnose
    command: echo investigating
    on_failure_of: [deploy]
`)
	file, err := loadWorkflowFile(path)
	if err != nil {
		testCase.Fatalf("loadWorkflowFile: %v", err)
	}
	graph, err := buildGraph(file)
	if err != nil {
		testCase.Fatalf("buildGraph: %v", err)
	}

	result, err := graph.Execute(context.Background(), nil)
	if err != nil {
		testCase.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		testCase.Fatalf("diagnose finish point should make the run succeed: %v", result.FinalState.Errors)
	}
	if result.FinalState.Status("deploy") != workflow.NodeFailed {
		testCase.Errorf("deploy status = %s", result.FinalState.Status("deploy"))
	}
	if result.FinalState.Status("diagnose") != workflow.NodeCompleted {
		testCase.Errorf("diagnose status = %s", result.FinalState.Status("diagnose"))
	}
}
