package coral

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is read when no config path is given. A missing
	// default file is not an error.
	DefaultConfigFile = ".coral.yaml"
	// DefaultEnvFile is read for CORAL_* variables. A missing file is not an
	// error.
	DefaultEnvFile = ".env"
)

// Config holds the settings shared by the REPL, the batch runner and the CLI.
//
// Values are layered: defaults, then the YAML config file, then CORAL_*
// variables (from the process environment or the .env file, the process
// environment winning), and finally command line flags applied by the caller.
type Config struct {
	// Prompt is printed by the REPL before each line.
	Prompt string `yaml:"prompt"`
	// HistoryFile is where the REPL keeps its line history. Empty disables
	// history.
	HistoryFile string `yaml:"history_file"`
	// Color enables colored diagnostics.
	Color bool `yaml:"color"`
	// EchoAST makes the REPL and the runner print the canonical rendering of
	// a program before evaluating it.
	EchoAST bool `yaml:"echo_ast"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`
	// Requires is the minimum interpreter version, e.g. "v0.2.0".
	Requires string `yaml:"requires"`
	// MaxCallDepth limits nested function calls. Zero means the default.
	MaxCallDepth int `yaml:"max_call_depth"`
	// Jobs is the number of files the batch runner evaluates at once.
	Jobs int `yaml:"jobs"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Prompt:    ">> ",
		Color:     true,
		LogLevel:  "info",
		LogFormat: "text",
		Jobs:      4,
	}
}

// LoadConfig builds a Config from the defaults, the YAML file at path and the
// CORAL_* environment variables (also read from envFile).
//
// An empty path means DefaultConfigFile, which may be missing; an explicit
// path must exist. The result is validated before it is returned.
func LoadConfig(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty file
		}
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CORAL_PROMPT":       &c.Prompt,
		"CORAL_HISTORY_FILE": &c.HistoryFile,
		"CORAL_LOG_LEVEL":    &c.LogLevel,
		"CORAL_LOG_FORMAT":   &c.LogFormat,
		"CORAL_REQUIRES":     &c.Requires,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"CORAL_COLOR":    &c.Color,
		"CORAL_ECHO_AST": &c.EchoAST,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s=%q: %w", key, v, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"CORAL_MAX_CALL_DEPTH": &c.MaxCallDepth,
		"CORAL_JOBS":           &c.Jobs,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s=%q: %w", key, v, err)
			}
			*dst = n
		}
	}
	return nil
}

// Validate checks the settings, including that this interpreter satisfies
// Requires.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: want text or json", c.LogFormat)
	}
	if c.MaxCallDepth < 0 {
		return fmt.Errorf("invalid max_call_depth %d", c.MaxCallDepth)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("invalid jobs %d: must be at least 1", c.Jobs)
	}
	if c.Requires != "" {
		if !semver.IsValid(c.Requires) {
			return fmt.Errorf("invalid requires %q: not a semantic version", c.Requires)
		}
		if semver.Compare(Version, c.Requires) < 0 {
			return fmt.Errorf("config requires coral %s, but this is %s", c.Requires, Version)
		}
	}
	return nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
