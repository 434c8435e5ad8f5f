package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/nvaccaro/floe/workflow"
)

// DefaultMaxOutput caps captured stdout/stderr at 1MB each.
const DefaultMaxOutput = 1 * 1024 * 1024

// KeyStdout, KeyStderr and KeyExitCode are the state keys written by the
// node.
const (
	KeyStdout   = "stdout"
	KeyStderr   = "stderr"
	KeyExitCode = "exit_code"
)

type config struct {
	dir              string
	env              []string
	maxOutput        int
	allowNonZeroExit bool
}

// Option configures the command node.
type Option func(*config)

// WithDir sets the working directory of the subprocess.
func WithDir(dir string) Option {
	return func(cfg *config) {
		cfg.dir = dir
	}
}

// WithEnv appends environment variables ("KEY=value") to the inherited
// environment.
func WithEnv(env ...string) Option {
	return func(cfg *config) {
		cfg.env = append(cfg.env, env...)
	}
}

// WithMaxOutput overrides the per-stream capture cap.
func WithMaxOutput(limit int) Option {
	return func(cfg *config) {
		if limit > 0 {
			cfg.maxOutput = limit
		}
	}
}

// AllowNonZeroExit makes a non-zero exit code a committed result instead of
// a node failure; downstream nodes can branch on "exit_code".
func AllowNonZeroExit() Option {
	return func(cfg *config) {
		cfg.allowNonZeroExit = true
	}
}

// Node returns a workflow node running the given program. The process is
// started with exec.CommandContext, so the engine's per-node timeout and
// run cancellation kill it. Stdout, stderr and the exit code are merged
// into the state under "stdout", "stderr" and "exit_code".
//
// A non-zero exit is a node failure by default; see AllowNonZeroExit.
func Node(name string, args []string, opts ...Option) workflow.NodeFunc {
	cfg := newConfig(opts)

	return func(ctx context.Context, _ *workflow.GraphState) (map[string]any, error) {
		return run(ctx, cfg, name, args)
	}
}

// Shell is shorthand for running a command line through "sh -c".
func Shell(commandLine string, opts ...Option) workflow.NodeFunc {
	return Node("sh", []string{"-c", commandLine}, opts...)
}

func newConfig(opts []Option) *config {
	cfg := &config{maxOutput: DefaultMaxOutput}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func run(ctx context.Context, cfg *config, name string, args []string) (map[string]any, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("command: program name cannot be empty")
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = cfg.dir
	if len(cfg.env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buffer: &stdout, limit: cfg.maxOutput}
	cmd.Stderr = &limitedWriter{buffer: &stderr, limit: cfg.maxOutput}

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("command: %s canceled: %w", name, ctx.Err())
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("command: run %s: %w", name, err)
		}
	}

	payload := map[string]any{
		KeyStdout:   stdout.String(),
		KeyStderr:   stderr.String(),
		KeyExitCode: exitCode,
	}

	if exitCode != 0 && !cfg.allowNonZeroExit {
		return nil, fmt.Errorf("command: %s exited with code %d: %s",
			name, exitCode, strings.TrimSpace(stderr.String()))
	}
	return payload, nil
}

// limitedWriter keeps the first limit bytes and silently drops the rest, so
// a chatty subprocess cannot balloon the state.
type limitedWriter struct {
	buffer *bytes.Buffer
	limit  int
}

func (writer *limitedWriter) Write(data []byte) (int, error) {
	remaining := writer.limit - writer.buffer.Len()
	if remaining <= 0 {
		return len(data), nil
	}
	if len(data) > remaining {
		writer.buffer.Write(data[:remaining])
		return len(data), nil
	}
	writer.buffer.Write(data)
	return len(data), nil
}
