package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/podhmo/coral"
	"github.com/podhmo/coral/internal/runner"
	"github.com/podhmo/coral/internal/scriptfs"
	"github.com/podhmo/coral/lexer"
	"github.com/podhmo/coral/repl"
	"github.com/spf13/cobra"
)

func newReplCmd(opts *rootOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive loop",
		Long: `Start the interactive loop. Lines are collected into a buffer that is
evaluated with :run. Type :help for the list of commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interp, err := coral.NewInterpreter(
				coral.WithStdout(cmd.OutOrStdout()),
				coral.WithLogger(opts.logger),
				coral.WithMaxCallDepth(opts.cfg.MaxCallDepth),
			)
			if err != nil {
				return err
			}

			var in repl.LineReader
			if in0 := cmd.InOrStdin(); plain || in0 != os.Stdin {
				in = repl.NewScannerReader(in0, cmd.OutOrStdout())
			} else {
				term := repl.NewTerminal(opts.cfg.HistoryFile)
				defer func() {
					if err := term.Close(); err != nil {
						opts.logger.Warn("closing terminal", "error", err)
					}
				}()
				in = term
			}

			r := repl.New(interp, in, cmd.OutOrStdout(), repl.Config{
				Prompt:  opts.cfg.Prompt,
				EchoAST: opts.cfg.EchoAST,
				Color:   opts.cfg.Color,
				Logger:  opts.logger,
			})
			return r.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "read plain lines without line editing")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "run <file|dir>...",
		Short: "Evaluate script files",
		Long: `Evaluate each file in its own environment and print the final value.
Directories are searched for *.coral files. The exit status is 1 if any
file has parse errors or ends in an error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("jobs") {
				jobs = opts.cfg.Jobs
			}
			fsys := scriptfs.NewOSFS()
			paths, err := scriptfs.Expand(fsys, args)
			if err != nil {
				return err
			}
			r := &runner.Runner{
				Jobs:         jobs,
				EchoAST:      opts.cfg.EchoAST,
				MaxCallDepth: opts.cfg.MaxCallDepth,
				Logger:       opts.logger,
				FS:           fsys,
			}
			results, err := r.Run(cmd.Context(), paths)
			if err != nil {
				return err
			}

			rp := &runner.Reporter{W: cmd.OutOrStdout(), Color: opts.cfg.Color}
			if failed := rp.Report(results); failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of files evaluated at once (default from config)")
	return cmd
}

func newParseCmd(opts *rootOptions) *cobra.Command {
	var tokens bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the canonical form of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if tokens {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', 0)
				for _, tok := range lexer.New(string(src)).Tokens() {
					fmt.Fprintf(w, "%s\t%s\t%q\n", tok.Pos, tok.Type, tok.Literal)
				}
				return w.Flush()
			}

			interp, err := coral.NewInterpreter(coral.WithLogger(opts.logger))
			if err != nil {
				return err
			}

			program, err := interp.Parse(string(src))
			if errors.Is(err, coral.ErrParse) {
				marker := color.New(color.FgRed, color.Bold)
				if !opts.cfg.Color {
					marker.DisableColor()
				}
				marker.Fprintf(cmd.OutOrStdout(), "%s: parse errors:\n", args[0])
				fmt.Fprint(cmd.OutOrStdout(), coral.FormatDiagnostics(err))
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), program.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&tokens, "tokens", false, "print the token stream instead of the parsed program")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the coral version",
		Args:  cobra.NoArgs,
		// the version does not depend on the configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coral %s\n", coral.Version)
		},
	}
}
