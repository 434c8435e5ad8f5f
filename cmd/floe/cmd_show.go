package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <workflow.yaml>",
	Short: "Print the workflow graph without executing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	file, err := loadWorkflowFile(args[0])
	if err != nil {
		return err
	}
	graph, err := buildGraph(file)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), graph.Visualize())
	return nil
}
