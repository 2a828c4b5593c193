// Package coral is the embedding entry point for the Coral language.
//
// An Interpreter parses and evaluates source text:
//
//	interp, err := coral.NewInterpreter(coral.WithStdout(os.Stdout))
//	if err != nil { ... }
//	result, err := interp.EvalString(ctx, `let x = 1; x + 2`)
//
// Parse diagnostics are reported as *ParseError (errors.Is(err, ErrParse)),
// and a program that evaluates to an error value is reported as
// *RuntimeError. Both keep the underlying details for callers that want to
// print them.
package coral

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/podhmo/coral/ast"
	"github.com/podhmo/coral/evaluator"
	"github.com/podhmo/coral/lexer"
	"github.com/podhmo/coral/object"
	"github.com/podhmo/coral/parser"
)

// Version is the version of the interpreter.
const Version = "v0.3.0"

// ErrParse is the sentinel wrapped by every *ParseError.
var ErrParse = errors.New("parse error")

// ParseError holds the diagnostics of a program that failed to parse.
type ParseError struct {
	Diagnostics []string
}

func (e *ParseError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return ErrParse.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrParse, e.Diagnostics[0])
	default:
		return fmt.Sprintf("%s: %s (and %d more)", ErrParse, e.Diagnostics[0], len(e.Diagnostics)-1)
	}
}

func (e *ParseError) Unwrap() error { return ErrParse }

// RuntimeError is returned when a program evaluates to an error value.
type RuntimeError struct {
	Value *object.Error
}

func (e *RuntimeError) Error() string {
	return "runtime error: " + e.Value.Message
}

// Interpreter is the main entry point for the coral language.
// It is safe to use one Interpreter from several goroutines: every
// evaluation gets its own evaluator.
type Interpreter struct {
	stdout       io.Writer
	logger       *slog.Logger
	maxCallDepth int
}

// Option is a functional option for configuring the Interpreter.
type Option func(*Interpreter)

// WithStdout sets the writer used by the `log` builtin.
func WithStdout(w io.Writer) Option {
	return func(i *Interpreter) {
		i.stdout = w
	}
}

// WithLogger sets the logger for debug traces of the evaluator.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		i.logger = logger
	}
}

// WithMaxCallDepth limits nested function calls. Zero keeps the default.
func WithMaxCallDepth(n int) Option {
	return func(i *Interpreter) {
		i.maxCallDepth = n
	}
}

// NewInterpreter creates a new interpreter instance, configured with options.
func NewInterpreter(options ...Option) (*Interpreter, error) {
	i := &Interpreter{
		stdout: os.Stdout,
	}
	for _, opt := range options {
		opt(i)
	}
	if i.maxCallDepth < 0 {
		return nil, fmt.Errorf("invalid max call depth: %d", i.maxCallDepth)
	}
	if i.logger == nil {
		i.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return i, nil
}

// Parse parses src. It returns a *ParseError when there are diagnostics.
func (i *Interpreter) Parse(src string) (*ast.Program, error) {
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &ParseError{Diagnostics: errs}
	}
	return program, nil
}

// Eval evaluates program in a fresh root environment.
func (i *Interpreter) Eval(ctx context.Context, program *ast.Program) (object.Object, error) {
	return i.evalIn(ctx, program, object.NewEnvironment())
}

// EvalString parses and evaluates src in a fresh root environment.
func (i *Interpreter) EvalString(ctx context.Context, src string) (object.Object, error) {
	program, err := i.Parse(src)
	if err != nil {
		return nil, err
	}
	return i.Eval(ctx, program)
}

func (i *Interpreter) evalIn(ctx context.Context, program *ast.Program, env *object.Environment) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluating program: %w", err)
	}

	e := evaluator.New(evaluator.Config{
		Stdout:       i.stdout,
		Logger:       i.logger,
		MaxCallDepth: i.maxCallDepth,
	})
	result := e.EvalContext(ctx, program, env)
	if errObj, ok := result.(*object.Error); ok {
		i.logger.DebugContext(ctx, "program evaluated to an error", "error", errObj.Message)
		return result, &RuntimeError{Value: errObj}
	}
	return result, nil
}

// Session evaluates several sources one after another in a shared root
// environment, so later sources see the bindings of earlier ones.
type Session struct {
	interp *Interpreter
	env    *object.Environment
}

// NewSession starts a session with an empty root environment.
func (i *Interpreter) NewSession() *Session {
	return &Session{interp: i, env: object.NewEnvironment()}
}

// EvalString parses and evaluates src in the session environment.
// A source with parse errors is not evaluated and leaves the environment
// untouched.
func (s *Session) EvalString(ctx context.Context, src string) (object.Object, error) {
	program, err := s.interp.Parse(src)
	if err != nil {
		return nil, err
	}
	return s.interp.evalIn(ctx, program, s.env)
}

// Lookup returns the value bound to name in the session environment.
func (s *Session) Lookup(name string) (object.Object, bool) {
	return s.env.Get(name)
}

// FormatDiagnostics renders the diagnostics of err one per line, indented.
// It returns the empty string if err is not a *ParseError.
func FormatDiagnostics(err error) string {
	var perr *ParseError
	if !errors.As(err, &perr) {
		return ""
	}
	var b strings.Builder
	for _, d := range perr.Diagnostics {
		b.WriteString("\t")
		b.WriteString(d)
		b.WriteString("\n")
	}
	return b.String()
}
