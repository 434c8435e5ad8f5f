package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nvaccaro/floe/providers/observability"
	"github.com/nvaccaro/floe/providers/observability/slogobs"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logFormat string
	logLevel  string
}

var rootCmd = &cobra.Command{
	Use:   "floe",
	Short: "Run YAML-defined shell workflows as dependency graphs",
	Long: "Floe executes workflows described in a YAML file: each step is a shell\n" +
		"command, wired to other steps through dependencies and failure handlers.\n" +
		"Runs can be checkpointed to disk and resumed later.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if _, err := os.Stat(".env"); err == nil {
			_ = godotenv.Load()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: compact, pretty, or json (default from FLOE_LOG_FORMAT)")
	flags.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: trace, debug, info, warn, or error (default from FLOE_LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.Version = version
}

// newObserver builds the slog-backed observer honoring the persistent
// logging flags, falling back to environment defaults when unset.
func newObserver() observability.Provider {
	options := []slogobs.Option{slogobs.WithOutput(os.Stderr)}
	if rootFlags.logFormat != "" {
		options = append(options, slogobs.WithFormat(slogobs.ParseFormat(rootFlags.logFormat)))
	}
	if rootFlags.logLevel != "" {
		options = append(options, slogobs.WithLevel(slogobs.ParseLogLevel(rootFlags.logLevel)))
	}
	return slogobs.New(options...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
