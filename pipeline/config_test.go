package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(testCase *testing.T, content string) string {
	testCase.Helper()

	path := filepath.Join(testCase.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		testCase.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(testCase *testing.T) {
	path := writeConfigFile(testCase, `
name: nightly-migration
max_parallel: 3
phases:
  parse:
    timeout: 90s
    retries: 2
    retry_delay: 500ms
  validate:
    required: true
  diagnose:
    required: false
`)

	config, err := LoadConfig(path)
	if err != nil {
		testCase.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Name != "nightly-migration" {
		testCase.Errorf("expected name nightly-migration, got %q", config.Name)
	}
	if config.MaxParallel != 3 {
		testCase.Errorf("expected max_parallel 3, got %d", config.MaxParallel)
	}

	parseConfig := config.phase(PhaseParse)
	if time.Duration(parseConfig.Timeout) != 90*time.Second {
		testCase.Errorf("expected parse timeout 90s, got %v", time.Duration(parseConfig.Timeout))
	}
	if parseConfig.Retries != 2 {
		testCase.Errorf("expected parse retries 2, got %d", parseConfig.Retries)
	}
	if time.Duration(parseConfig.RetryDelay) != 500*time.Millisecond {
		testCase.Errorf("expected parse retry_delay 500ms, got %v", time.Duration(parseConfig.RetryDelay))
	}

	validateConfig := config.phase(PhaseValidate)
	if validateConfig.Required == nil || !*validateConfig.Required {
		testCase.Error("expected validate required pinned true")
	}
	diagnoseConfig := config.phase(PhaseDiagnose)
	if diagnoseConfig.Required == nil || *diagnoseConfig.Required {
		testCase.Error("expected diagnose required pinned false")
	}

	// Unconfigured phases fall back to the zero config.
	buildConfig := config.phase(PhaseBuild)
	if buildConfig.Timeout != 0 || buildConfig.Retries != 0 || buildConfig.Required != nil {
		testCase.Errorf("expected zero config for build, got %+v", buildConfig)
	}
}

func TestLoadConfig_Invalid(testCase *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown phase",
			content: "phases:\n  deploy:\n    retries: 1\n",
			wantErr: "unknown phase",
		},
		{
			name:    "negative retries",
			content: "phases:\n  parse:\n    retries: -1\n",
			wantErr: "retries must not be negative",
		},
		{
			name:    "negative max_parallel",
			content: "max_parallel: -2\n",
			wantErr: "max_parallel must not be negative",
		},
		{
			name:    "bad duration",
			content: "phases:\n  parse:\n    timeout: ninety\n",
			wantErr: "invalid duration",
		},
		{
			name:    "malformed yaml",
			content: "phases: [\n",
			wantErr: "parse config",
		},
	}

	for _, test := range tests {
		testCase.Run(test.name, func(testCase *testing.T) {
			path := writeConfigFile(testCase, test.content)

			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				testCase.Errorf("expected error containing %q, got %v", test.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_MissingFile(testCase *testing.T) {
	_, err := LoadConfig(filepath.Join(testCase.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		testCase.Errorf("expected read error, got %v", err)
	}
}
