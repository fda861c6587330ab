// =============================================================================
// config_test.go - Tests for Settings Layering (config.go)
// =============================================================================

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/attic/lightcli/lightcli"
)

// envMap returns a lookupEnv function backed by a map, so tests never touch
// the process environment.
func envMap(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lightcli.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultSettings(t *testing.T) {
	s := defaultSettings()

	if s.Parser != lightcli.DefaultConfig() {
		t.Errorf("Parser = %+v, want %+v", s.Parser, lightcli.DefaultConfig())
	}
	if s.Log.Level != "info" || s.Log.Format != "console" {
		t.Errorf("Log = %+v, want info/console", s.Log)
	}
	if s.Serve.PollTimeout != lightcli.DefaultPollTimeout {
		t.Errorf("PollTimeout = %v, want %v", s.Serve.PollTimeout, lightcli.DefaultPollTimeout)
	}
	if err := s.validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	s, err := loadSettings(path, envMap(nil))
	if err != nil {
		t.Fatalf("loadSettings() error: %v", err)
	}
	if s != defaultSettings() {
		t.Errorf("missing file should leave defaults, got %+v", s)
	}
}

func TestLoadSettingsFromYAML(t *testing.T) {
	path := writeConfig(t, `
parser:
  input_capacity: 256
  token_capacity: 48
log:
  level: debug
  format: json
serve:
  listen: 127.0.0.1:7070
  poll_timeout: 25ms
`)

	s, err := loadSettings(path, envMap(nil))
	if err != nil {
		t.Fatalf("loadSettings() error: %v", err)
	}

	if s.Parser.InputCapacity != 256 || s.Parser.TokenCapacity != 48 {
		t.Errorf("Parser = %+v", s.Parser)
	}
	if s.Parser.OutputCapacity != lightcli.DefaultOutputCapacity {
		t.Errorf("unset output capacity should keep its default, got %d", s.Parser.OutputCapacity)
	}
	if s.Log.Level != "debug" || s.Log.Format != "json" {
		t.Errorf("Log = %+v", s.Log)
	}
	if s.Serve.Listen != "127.0.0.1:7070" {
		t.Errorf("Listen = %q", s.Serve.Listen)
	}
	if s.Serve.PollTimeout != 25*time.Millisecond {
		t.Errorf("PollTimeout = %v, want 25ms", s.Serve.PollTimeout)
	}
}

func TestLoadSettingsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "parser: [not, a, mapping]\n")

	if _, err := loadSettings(path, envMap(nil)); err == nil {
		t.Error("loadSettings() should fail on malformed YAML")
	}
}

func TestLoadSettingsEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "parser:\n  input_capacity: 256\nlog:\n  level: debug\n")

	s, err := loadSettings(path, envMap(map[string]string{
		"LIGHTCLI_INPUT_CAPACITY": "512",
		"LIGHTCLI_LOG_LEVEL":      "warn",
		"LIGHTCLI_SOCKET":         "/tmp/dev.sock",
		"LIGHTCLI_POLL_TIMEOUT":   "1s",
		"LIGHTCLI_TOKEN_CAPACITY": "",
	}))
	if err != nil {
		t.Fatalf("loadSettings() error: %v", err)
	}

	if s.Parser.InputCapacity != 512 {
		t.Errorf("InputCapacity = %d, want 512", s.Parser.InputCapacity)
	}
	if s.Parser.TokenCapacity != lightcli.DefaultTokenCapacity {
		t.Errorf("empty env value should be ignored, got %d", s.Parser.TokenCapacity)
	}
	if s.Log.Level != "warn" {
		t.Errorf("Level = %q, want warn", s.Log.Level)
	}
	if s.Serve.Socket != "/tmp/dev.sock" {
		t.Errorf("Socket = %q", s.Serve.Socket)
	}
	if s.Serve.PollTimeout != time.Second {
		t.Errorf("PollTimeout = %v, want 1s", s.Serve.PollTimeout)
	}
}

func TestLoadSettingsBadEnv(t *testing.T) {
	tests := map[string]string{
		"LIGHTCLI_OUTPUT_CAPACITY": "lots",
		"LIGHTCLI_POLL_TIMEOUT":    "soon",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadSettings("", envMap(map[string]string{name: value}))
			if err == nil || !strings.Contains(err.Error(), name) {
				t.Errorf("error = %v, want one naming %s", err, name)
			}
		})
	}
}

// TestFlagsOverrideEverything checks that only flags the user actually set
// replace file and environment values.
func TestFlagsOverrideEverything(t *testing.T) {
	path := writeConfig(t, "parser:\n  token_capacity: 48\n  output_capacity: 64\n")

	var opts globalOptions
	cmd := &cobra.Command{Use: "test"}
	opts.register(cmd)
	if err := cmd.PersistentFlags().Parse([]string{"--config", path, "--token-capacity", "16"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	s, err := loadSettings(opts.configPath, envMap(nil))
	if err != nil {
		t.Fatalf("loadSettings() error: %v", err)
	}
	opts.applyFlags(cmd, &s)

	if s.Parser.TokenCapacity != 16 {
		t.Errorf("TokenCapacity = %d, want flag value 16", s.Parser.TokenCapacity)
	}
	if s.Parser.OutputCapacity != 64 {
		t.Errorf("OutputCapacity = %d, want file value 64", s.Parser.OutputCapacity)
	}
	if s.Log.Level != "info" {
		t.Errorf("unset --log-level should not override, got %q", s.Log.Level)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*settings)
	}{
		{"small input ring", func(s *settings) { s.Parser.InputCapacity = 3 }},
		{"zero token", func(s *settings) { s.Parser.TokenCapacity = 0 }},
		{"negative output", func(s *settings) { s.Parser.OutputCapacity = -1 }},
		{"unknown level", func(s *settings) { s.Log.Level = "verbose" }},
		{"unknown format", func(s *settings) { s.Log.Format = "xml" }},
		{"zero poll timeout", func(s *settings) { s.Serve.PollTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			tt.modify(&s)
			if err := s.validate(); err == nil {
				t.Error("validate() should fail")
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			log, err := initLogger(logSettings{Level: "warn", Format: format})
			if err != nil {
				t.Fatalf("initLogger() error: %v", err)
			}
			if log.Core().Enabled(zapcore.DebugLevel) {
				t.Error("debug should be disabled at warn level")
			}
			if !log.Core().Enabled(zapcore.WarnLevel) {
				t.Error("warn should be enabled at warn level")
			}
		})
	}

	if _, err := initLogger(logSettings{Level: "loud", Format: "console"}); err == nil {
		t.Error("initLogger() should reject an unknown level")
	}
}
