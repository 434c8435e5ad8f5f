package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvaccaro/floe/providers/checkpoint/badgerstore"
	"github.com/nvaccaro/floe/workflow"
)

var resumeFlags struct {
	checkpoint  string
	stateDir    string
	maxParallel int
}

var resumeCmd = &cobra.Command{
	Use:   "resume <workflow.yaml>",
	Short: "Resume a workflow from a stored checkpoint",
	Long: `Rebuild the graph from the workflow file and continue execution from a
checkpoint saved by a previous 'floe run --state-dir ... --checkpoint-after ...'.
Steps already completed or failed in the checkpoint are not re-executed.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	flags := resumeCmd.Flags()
	flags.StringVar(&resumeFlags.checkpoint, "checkpoint", "", "Checkpoint id to resume from (required)")
	flags.StringVar(&resumeFlags.stateDir, "state-dir", "", "Directory the checkpoint was saved to (required)")
	flags.IntVar(&resumeFlags.maxParallel, "max-parallel", 0, "Concurrent step limit (overrides the file's max_parallel)")
	_ = resumeCmd.MarkFlagRequired("checkpoint")
	_ = resumeCmd.MarkFlagRequired("state-dir")
}

func runResume(cmd *cobra.Command, args []string) error {
	file, err := loadWorkflowFile(args[0])
	if err != nil {
		return err
	}

	store, err := badgerstore.Open(resumeFlags.stateDir, file.Name)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	graph, err := buildGraph(file,
		workflow.WithObserver(newObserver()),
		workflow.WithCheckpointStore(store),
	)
	if err != nil {
		return err
	}

	maxParallel := file.MaxParallel
	if resumeFlags.maxParallel > 0 {
		maxParallel = resumeFlags.maxParallel
	}
	executeOptions := []workflow.ExecuteOption{workflow.WithCheckpoint(resumeFlags.checkpoint)}
	if maxParallel > 0 {
		executeOptions = append(executeOptions, workflow.WithMaxParallel(maxParallel))
	}

	result, err := graph.Execute(cmd.Context(), nil, executeOptions...)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), file.Name, result)
	if !result.Success {
		return fmt.Errorf("workflow %q finished with failures", file.Name)
	}
	return nil
}
