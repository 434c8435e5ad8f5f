package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvaccaro/floe/providers/checkpoint/badgerstore"
	"github.com/nvaccaro/floe/workflow"
)

var runFlags struct {
	maxParallel     int
	stateDir        string
	checkpointAfter string
}

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Execute a workflow file",
	Long: `Build the dependency graph from a workflow file and execute it.

With --state-dir, checkpoints are persisted to an on-disk store scoped by
workflow name, and --checkpoint-after saves the final state under the given
id so a later 'floe resume' can pick it up.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.IntVar(&runFlags.maxParallel, "max-parallel", 0, "Concurrent step limit (overrides the file's max_parallel)")
	flags.StringVar(&runFlags.stateDir, "state-dir", "", "Directory for persistent checkpoints")
	flags.StringVar(&runFlags.checkpointAfter, "checkpoint-after", "", "Checkpoint id to save the final state under (needs --state-dir)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFlags.checkpointAfter != "" && runFlags.stateDir == "" {
		return fmt.Errorf("--checkpoint-after requires --state-dir")
	}

	file, err := loadWorkflowFile(args[0])
	if err != nil {
		return err
	}

	graphOptions := []workflow.Option{workflow.WithObserver(newObserver())}
	if runFlags.stateDir != "" {
		store, err := badgerstore.Open(runFlags.stateDir, file.Name)
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		defer store.Close()
		graphOptions = append(graphOptions, workflow.WithCheckpointStore(store))
	}

	graph, err := buildGraph(file, graphOptions...)
	if err != nil {
		return err
	}

	maxParallel := file.MaxParallel
	if runFlags.maxParallel > 0 {
		maxParallel = runFlags.maxParallel
	}
	var executeOptions []workflow.ExecuteOption
	if maxParallel > 0 {
		executeOptions = append(executeOptions, workflow.WithMaxParallel(maxParallel))
	}

	result, err := graph.Execute(cmd.Context(), nil, executeOptions...)
	if err != nil {
		return err
	}

	if runFlags.checkpointAfter != "" {
		if err := graph.Checkpoint(cmd.Context(), runFlags.checkpointAfter, result.FinalState); err != nil {
			return fmt.Errorf("save checkpoint %q: %w", runFlags.checkpointAfter, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint saved: %s\n", runFlags.checkpointAfter)
	}

	printSummary(cmd.OutOrStdout(), file.Name, result)
	if !result.Success {
		return fmt.Errorf("workflow %q finished with failures", file.Name)
	}
	return nil
}

func printSummary(out io.Writer, name string, result *workflow.ExecutionResult) {
	status := "succeeded"
	if !result.Success {
		status = "failed"
	}
	fmt.Fprintf(out, "Workflow %q %s in %s\n", name, status, result.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Steps executed: %d (failed: %d)\n", result.NodesExecuted, result.NodesFailed)
	if len(result.ExecutionOrder) > 0 {
		fmt.Fprintf(out, "Order: %s\n", strings.Join(result.ExecutionOrder, " -> "))
	}
	for _, message := range result.FinalState.Errors {
		fmt.Fprintf(out, "Error: %s\n", message)
	}
}
