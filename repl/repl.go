// Package repl implements the interactive loop of coral.
//
// Input lines are collected into a buffer. Commands start with a colon:
//
//	:run    parse and evaluate the buffer in a fresh environment
//	:ast    print the canonical rendering of the buffer
//	:clear  drop the buffer
//	:help   list the commands
//	:exit   quit
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/podhmo/coral"
	"github.com/podhmo/coral/evaluator"
	"github.com/podhmo/coral/object"
)

// LineReader reads one line of input per call. It returns io.EOF when the
// input is exhausted.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// ErrAborted may be returned by a LineReader when the user aborts the current
// line (e.g. Ctrl-C). The REPL drops the line and continues.
var ErrAborted = errors.New("prompt aborted")

// Config holds the REPL settings.
type Config struct {
	Prompt  string
	EchoAST bool
	Color   bool
	Logger  *slog.Logger
}

// REPL is an interactive session.
type REPL struct {
	interp *coral.Interpreter
	in     LineReader
	out    io.Writer
	cfg    Config
	logger *slog.Logger

	buf []string

	header *color.Color
	errc   *color.Color
	ok     *color.Color
}

// New creates a REPL reading from in and writing results to out.
func New(interp *coral.Interpreter, in LineReader, out io.Writer, cfg Config) *REPL {
	if cfg.Prompt == "" {
		cfg.Prompt = ">> "
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &REPL{
		interp: interp,
		in:     in,
		out:    out,
		cfg:    cfg,
		logger: logger.With("run_id", uuid.NewString()),
		header: color.New(color.FgRed, color.Bold),
		errc:   color.New(color.FgRed),
		ok:     color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{r.header, r.errc, r.ok} {
		if cfg.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Run reads and handles lines until :exit, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintf(r.out, "coral %s\n", coral.Version)
	fmt.Fprintln(r.out, "Enter code. Type ':run' to evaluate, ':help' for commands, ':exit' to quit.")
	r.logger.DebugContext(ctx, "repl started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := r.in.Prompt(r.cfg.Prompt)
		if err != nil {
			if errors.Is(err, ErrAborted) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				r.logger.DebugContext(ctx, "repl finished", "reason", "eof")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			r.in.AppendHistory(line)
		}

		if quit := r.handle(ctx, line); quit {
			fmt.Fprintln(r.out, "Goodbye!")
			r.logger.DebugContext(ctx, "repl finished", "reason", "exit")
			return nil
		}
	}
}

func (r *REPL) handle(ctx context.Context, line string) (quit bool) {
	switch cmd := strings.TrimSpace(line); cmd {
	case ":exit":
		return true
	case ":run":
		r.run(ctx)
	case ":ast":
		r.echoAST()
	case ":clear":
		r.buf = r.buf[:0]
	case ":help":
		r.help()
	default:
		if strings.HasPrefix(cmd, ":") {
			r.errc.Fprintf(r.out, "unknown command %s. Type :help for the list of commands.\n", cmd)
			return false
		}
		r.buf = append(r.buf, line)
	}
	return false
}

func (r *REPL) source() string {
	return strings.Join(r.buf, "\n")
}

func (r *REPL) run(ctx context.Context) {
	src := r.source()
	r.buf = r.buf[:0]

	program, err := r.interp.Parse(src)
	if err != nil {
		r.printDiagnostics(err)
		return
	}
	if r.cfg.EchoAST {
		r.ok.Fprintln(r.out, "parsed:")
		fmt.Fprint(r.out, program.String())
	}

	result, err := r.interp.Eval(ctx, program)
	var rerr *coral.RuntimeError
	switch {
	case errors.As(err, &rerr):
		r.errc.Fprintln(r.out, rerr.Value.Inspect())
	case err != nil:
		r.errc.Fprintln(r.out, err.Error())
	case result != object.NULL:
		fmt.Fprintln(r.out, result.Inspect())
	}
	r.logger.DebugContext(ctx, "evaluated buffer", "lines", strings.Count(src, "\n")+1, "error", err != nil)
}

func (r *REPL) echoAST() {
	program, err := r.interp.Parse(r.source())
	if err != nil {
		r.printDiagnostics(err)
		return
	}
	fmt.Fprint(r.out, program.String())
}

func (r *REPL) printDiagnostics(err error) {
	r.header.Fprintln(r.out, "parse errors:")
	fmt.Fprint(r.out, coral.FormatDiagnostics(err))
}

func (r *REPL) help() {
	fmt.Fprintln(r.out, "commands:")
	fmt.Fprintln(r.out, "  :run    evaluate the buffer in a fresh environment")
	fmt.Fprintln(r.out, "  :ast    print the parsed buffer")
	fmt.Fprintln(r.out, "  :clear  drop the buffer")
	fmt.Fprintln(r.out, "  :help   show this help")
	fmt.Fprintln(r.out, "  :exit   quit")
	fmt.Fprintf(r.out, "builtins: %s\n", strings.Join(evaluator.Builtins(), ", "))
}

// ScannerReader is a LineReader over a plain io.Reader. It prints the prompt
// to w and keeps no history.
type ScannerReader struct {
	s *bufio.Scanner
	w io.Writer
}

// NewScannerReader returns a LineReader reading lines from r.
func NewScannerReader(r io.Reader, w io.Writer) *ScannerReader {
	return &ScannerReader{s: bufio.NewScanner(r), w: w}
}

func (sr *ScannerReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(sr.w, prompt)
	if !sr.s.Scan() {
		if err := sr.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return sr.s.Text(), nil
}

func (sr *ScannerReader) AppendHistory(string) {}
