// =============================================================================
// config.go - Settings and Logger Construction
// =============================================================================
//
// Settings are layered, later sources overriding earlier ones:
//
//  1. Built-in defaults (lightcli.DefaultConfig and the values below)
//  2. YAML file given with --config (a missing file is not an error)
//  3. LIGHTCLI_* environment variables
//  4. Command-line flags that were explicitly set
//
// The merged result is validated before any command runs.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/attic/lightcli/lightcli"
)

// envPrefix prefixes every environment variable the console reads.
const envPrefix = "LIGHTCLI_"

// settings is the complete console configuration.
type settings struct {
	Parser lightcli.Config `yaml:"parser"`
	Log    logSettings     `yaml:"log"`
	Serve  serveSettings   `yaml:"serve"`
}

// logSettings selects the zap level and encoder.
type logSettings struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // console or json
}

// serveSettings configures the serve and send commands.
type serveSettings struct {
	Socket      string        `yaml:"socket"`
	Listen      string        `yaml:"listen"`
	MetricsAddr string        `yaml:"metrics_addr"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

func defaultSettings() settings {
	return settings{
		Parser: lightcli.DefaultConfig(),
		Log: logSettings{
			Level:  "info",
			Format: "console",
		},
		Serve: serveSettings{
			PollTimeout: lightcli.DefaultPollTimeout,
		},
	}
}

// loadSettings applies the defaults, the YAML file at path and the
// environment, in that order.
func loadSettings(path string, lookupEnv func(string) (string, bool)) (settings, error) {
	s := defaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults apply.
		case err != nil:
			return s, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return s, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := s.applyEnv(lookupEnv); err != nil {
		return s, fmt.Errorf("failed to load config from env: %w", err)
	}
	return s, nil
}

func (s *settings) applyEnv(lookupEnv func(string) (string, bool)) error {
	ints := map[string]*int{
		"INPUT_CAPACITY":  &s.Parser.InputCapacity,
		"TOKEN_CAPACITY":  &s.Parser.TokenCapacity,
		"OUTPUT_CAPACITY": &s.Parser.OutputCapacity,
	}
	for name, field := range ints {
		v, ok := lookupEnv(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*field = n
	}

	strs := map[string]*string{
		"LOG_LEVEL":    &s.Log.Level,
		"LOG_FORMAT":   &s.Log.Format,
		"SOCKET":       &s.Serve.Socket,
		"LISTEN":       &s.Serve.Listen,
		"METRICS_ADDR": &s.Serve.MetricsAddr,
	}
	for name, field := range strs {
		if v, ok := lookupEnv(envPrefix + name); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookupEnv(envPrefix + "POLL_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sPOLL_TIMEOUT: %w", envPrefix, err)
		}
		s.Serve.PollTimeout = d
	}
	return nil
}

// globalOptions holds the root command's persistent flags.
type globalOptions struct {
	configPath     string
	logLevel       string
	logFormat      string
	inputCapacity  int
	tokenCapacity  int
	outputCapacity int
}

func (o *globalOptions) register(cmd *cobra.Command) {
	defaults := defaultSettings()
	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "YAML settings file")
	pf.StringVar(&o.logLevel, "log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	pf.StringVar(&o.logFormat, "log-format", defaults.Log.Format, "log encoding (console, json)")
	pf.IntVar(&o.inputCapacity, "input-capacity", defaults.Parser.InputCapacity, "receive ring size in bytes")
	pf.IntVar(&o.tokenCapacity, "token-capacity", defaults.Parser.TokenCapacity, "maximum command, key or value size in bytes")
	pf.IntVar(&o.outputCapacity, "output-capacity", defaults.Parser.OutputCapacity, "transmit queue size in bytes")
}

// applyFlags copies every flag the user set explicitly into s.
func (o *globalOptions) applyFlags(cmd *cobra.Command, s *settings) {
	changed := func(name string) bool {
		f := cmd.Flag(name)
		return f != nil && f.Changed
	}
	if changed("log-level") {
		s.Log.Level = o.logLevel
	}
	if changed("log-format") {
		s.Log.Format = o.logFormat
	}
	if changed("input-capacity") {
		s.Parser.InputCapacity = o.inputCapacity
	}
	if changed("token-capacity") {
		s.Parser.TokenCapacity = o.tokenCapacity
	}
	if changed("output-capacity") {
		s.Parser.OutputCapacity = o.outputCapacity
	}
}

// load resolves the settings for cmd and builds the logger.
func (o *globalOptions) load(cmd *cobra.Command) (settings, *zap.Logger, error) {
	s, err := loadSettings(o.configPath, os.LookupEnv)
	if err != nil {
		return s, nil, err
	}
	o.applyFlags(cmd, &s)
	if err := s.validate(); err != nil {
		return s, nil, fmt.Errorf("config validation failed: %w", err)
	}
	log, err := initLogger(s.Log)
	if err != nil {
		return s, nil, err
	}
	return s, log, nil
}

func (s settings) validate() error {
	if err := s.Parser.Validate(); err != nil {
		return err
	}
	if _, err := parseLevel(s.Log.Level); err != nil {
		return err
	}
	if s.Log.Format != "console" && s.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", s.Log.Format)
	}
	if s.Serve.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %s", s.Serve.PollTimeout)
	}
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// initLogger builds the process logger. Logs go to stderr so that command
// output on stdout stays machine-readable.
func initLogger(cfg logSettings) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
