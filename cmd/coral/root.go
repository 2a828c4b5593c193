package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/podhmo/coral"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags plus what PersistentPreRunE derives
// from them.
type rootOptions struct {
	configFile string
	envFile    string
	debug      bool
	logFormat  string
	noColor    bool
	echoAST    bool

	cfg    *coral.Config
	level  *slog.LevelVar
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{level: new(slog.LevelVar)}

	cmd := &cobra.Command{
		Use:   "coral",
		Short: "coral is an interpreter for the Coral language",
		Long: `coral parses and evaluates Coral programs.

Settings are read from .coral.yaml (or --config), then from CORAL_*
environment variables (also loaded from .env), then from flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to the config file (default: "+coral.DefaultConfigFile+" if present)")
	flags.StringVar(&opts.envFile, "env-file", coral.DefaultEnvFile, "file with CORAL_* variables")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&opts.echoAST, "ast", false, "print the parsed program before evaluating it")

	cmd.AddCommand(
		newReplCmd(opts),
		newRunCmd(opts),
		newParseCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the configuration, lets flags override it and builds the
// logger.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := coral.LoadConfig(o.configFile, o.envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("debug") && o.debug {
		cfg.LogLevel = "debug"
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("no-color") && o.noColor {
		cfg.Color = false
	}
	if flags.Changed("ast") {
		cfg.EchoAST = o.echoAST
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	o.level.Set(level)
	o.cfg = cfg
	o.logger = newLogger(cmd.ErrOrStderr(), cfg.LogFormat, o.level)
	o.logger.Debug("config loaded", "config_file", o.configFile, "log_level", cfg.LogLevel)
	return nil
}

func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
