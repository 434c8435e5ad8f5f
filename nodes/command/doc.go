// Package command provides a prebuilt workflow node that runs a subprocess
// and merges its output into the graph state.
package command
