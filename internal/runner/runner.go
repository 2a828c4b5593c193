// Package runner evaluates coral script files in batch.
//
// Every file gets its own interpreter, root environment and output buffer, so
// files can be evaluated concurrently. Results are reported in input order.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/podhmo/coral"
	"github.com/podhmo/coral/internal/scriptfs"
	"github.com/podhmo/coral/object"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of evaluating one file.
type Result struct {
	Path string
	// AST is the canonical rendering, set when Runner.EchoAST is true and
	// the file parsed.
	AST string
	// Output is what the program printed with `log`.
	Output string
	// Value is the final value. nil when the file could not be read or
	// parsed.
	Value object.Object
	// Err is a read error, a *coral.ParseError or a *coral.RuntimeError.
	Err error
}

// Failed reports whether the file had diagnostics, could not be read, or
// ended in an error value.
func (r *Result) Failed() bool { return r.Err != nil }

// Runner evaluates files.
type Runner struct {
	// Jobs is the number of files evaluated at once. Values below 1 mean 1.
	Jobs         int
	EchoAST      bool
	MaxCallDepth int
	Logger       *slog.Logger
	// FS is where files are read from. nil means the OS file system.
	FS scriptfs.FS
}

// Run evaluates paths and returns one Result per path, in the same order.
// The returned error is non-nil only if ctx is canceled; per-file failures
// are reported in the results.
func (r *Runner) Run(ctx context.Context, paths []string) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("run_id", uuid.NewString())
	jobs := max(r.Jobs, 1)
	fsys := r.FS
	if fsys == nil {
		fsys = scriptfs.NewOSFS()
	}

	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	logger.DebugContext(ctx, "batch started", "files", len(paths), "jobs", jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.runFile(gctx, fsys, logger.With("file", path), path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running files: %w", err)
	}
	logger.DebugContext(ctx, "batch finished", "files", len(paths))
	return results, nil
}

func (r *Runner) runFile(ctx context.Context, fsys scriptfs.FS, logger *slog.Logger, path string) Result {
	result := Result{Path: path}

	src, err := fsys.ReadFile(path)
	if err != nil {
		result.Err = fmt.Errorf("reading %s: %w", path, err)
		return result
	}

	var out bytes.Buffer
	interp, err := coral.NewInterpreter(
		coral.WithStdout(&out),
		coral.WithLogger(logger),
		coral.WithMaxCallDepth(r.MaxCallDepth),
	)
	if err != nil {
		result.Err = err
		return result
	}

	program, err := interp.Parse(string(src))
	if err != nil {
		logger.DebugContext(ctx, "parse failed", "error", err)
		result.Err = err
		return result
	}
	if r.EchoAST {
		result.AST = program.String()
	}

	result.Value, result.Err = interp.Eval(ctx, program)
	result.Output = out.String()
	logger.DebugContext(ctx, "file evaluated", "failed", result.Err != nil)
	return result
}

// Reporter writes results for humans.
type Reporter struct {
	W     io.Writer
	Color bool
}

// Report writes every result and returns the number of failed files.
// With several results, each one is introduced by a header line naming the
// file.
func (rp *Reporter) Report(results []Result) int {
	header := color.New(color.Bold)
	marker := color.New(color.FgRed, color.Bold)
	errc := color.New(color.FgRed)
	for _, c := range []*color.Color{header, marker, errc} {
		if rp.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	failed := 0
	for _, res := range results {
		if len(results) > 1 {
			header.Fprintf(rp.W, "== %s\n", res.Path)
		}
		if res.AST != "" {
			fmt.Fprint(rp.W, res.AST)
		}
		fmt.Fprint(rp.W, res.Output)

		var perr *coral.ParseError
		var rerr *coral.RuntimeError
		switch {
		case errors.As(res.Err, &perr):
			marker.Fprintf(rp.W, "%s: parse errors:\n", res.Path)
			fmt.Fprint(rp.W, coral.FormatDiagnostics(perr))
		case errors.As(res.Err, &rerr):
			errc.Fprintf(rp.W, "%s: %s\n", res.Path, rerr.Value.Inspect())
		case res.Err != nil:
			errc.Fprintf(rp.W, "%s\n", res.Err)
		case res.Value != nil && res.Value != object.NULL:
			fmt.Fprintln(rp.W, res.Value.Inspect())
		}
		if res.Failed() {
			failed++
		}
	}
	return failed
}
