package coral

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podhmo/coral/internal/scripttest"
	"github.com/podhmo/coral/object"
)

func TestInterpreter_EvalString(t *testing.T) {
	var stdout bytes.Buffer
	interp, err := NewInterpreter(WithStdout(&stdout))
	if err != nil {
		t.Fatalf("NewInterpreter() failed: %v", err)
	}

	src := `
let greet = fn(name) { "hello " + name };
log(greet("coral"));
[1, 2, 3].map(fn(x) { x * 2 }).reduce(fn(acc, x) { acc + x }, 0)
`
	result, err := interp.EvalString(context.Background(), src)
	if err != nil {
		t.Fatalf("EvalString() failed: %v", err)
	}
	if diff := cmp.Diff("12", result.Inspect()); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("hello coral\n", stdout.String()); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}

func TestInterpreter_ParseError(t *testing.T) {
	var stdout bytes.Buffer
	interp, err := NewInterpreter(WithStdout(&stdout))
	if err != nil {
		t.Fatalf("NewInterpreter() failed: %v", err)
	}

	_, err = interp.EvalString(context.Background(), `log("never"); let = 5;`)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	want := []string{
		"1:19: expected next token to be IDENT, got = instead",
		"1:19: no prefix parse function for = found",
	}
	if diff := cmp.Diff(want, perr.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if stdout.Len() != 0 {
		t.Errorf("program with diagnostics was evaluated, stdout=%q", stdout.String())
	}
	if got := FormatDiagnostics(err); !strings.HasPrefix(got, "\t1:19: expected next token") {
		t.Errorf("FormatDiagnostics() = %q", got)
	}
	if got := err.Error(); got != "parse error: 1:19: expected next token to be IDENT, got = instead (and 1 more)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestInterpreter_RuntimeError(t *testing.T) {
	interp, err := NewInterpreter()
	if err != nil {
		t.Fatalf("NewInterpreter() failed: %v", err)
	}

	result, err := interp.EvalString(context.Background(), "10 / 0")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
	if diff := cmp.Diff("division by zero", rerr.Value.Message); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}
	if got := result.Inspect(); got != "ERROR: division by zero" {
		t.Errorf("result.Inspect() = %q", got)
	}
	if got := FormatDiagnostics(err); got != "" {
		t.Errorf("FormatDiagnostics() of a runtime error = %q, want empty", got)
	}
}

func TestInterpreter_FreshEnvironmentPerEval(t *testing.T) {
	interp, err := NewInterpreter()
	if err != nil {
		t.Fatalf("NewInterpreter() failed: %v", err)
	}
	ctx := context.Background()

	if _, err := interp.EvalString(ctx, "let x = 1;"); err != nil {
		t.Fatalf("EvalString() failed: %v", err)
	}
	_, err = interp.EvalString(ctx, "x")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Value.Message != "identifier not found: x" {
		t.Errorf("binding leaked between evaluations: %v", err)
	}
}

func TestSession(t *testing.T) {
	interp, err := NewInterpreter()
	if err != nil {
		t.Fatalf("NewInterpreter() failed: %v", err)
	}
	ctx := context.Background()
	s := interp.NewSession()

	steps := []struct {
		src  string
		want string
	}{
		{"let counter = {};", "{}"},
		{`counter.insert("a", 1);`, `{"a": 1}`},
		{`let get = fn(k) { counter[k] };`, "fn(k) { (counter[k]) }"},
		{`get("a") + 1`, "2"},
	}
	for _, step := range steps {
		got, err := s.EvalString(ctx, step.src)
		if err != nil {
			t.Fatalf("EvalString(%q) failed: %v", step.src, err)
		}
		if diff := cmp.Diff(step.want, got.Inspect()); diff != "" {
			t.Errorf("EvalString(%q) mismatch (-want +got):\n%s", step.src, diff)
		}
	}

	if _, err := s.EvalString(ctx, "let y = ;"); !errors.Is(err, ErrParse) {
		t.Errorf("expected parse error, got %v", err)
	}
	if _, ok := s.Lookup("y"); ok {
		t.Errorf("a source with diagnostics changed the session environment")
	}
	if v, ok := s.Lookup("counter"); !ok || v.Type() != object.HASH_OBJ {
		t.Errorf("Lookup(counter) = %v, %v", v, ok)
	}
}

func TestInterpreter_CanceledContext(t *testing.T) {
	interp, err := NewInterpreter()
	if err != nil {
		t.Fatalf("NewInterpreter() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := interp.EvalString(ctx, "1"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInterpreter_MaxCallDepth(t *testing.T) {
	if _, err := NewInterpreter(WithMaxCallDepth(-1)); err == nil {
		t.Errorf("expected an error for a negative depth")
	}

	interp, err := NewInterpreter(WithMaxCallDepth(10))
	if err != nil {
		t.Fatalf("NewInterpreter() failed: %v", err)
	}
	_, err = interp.EvalString(context.Background(), "let f = fn(n) { if (n > 0) { f(n - 1) } else { 0 } }; f(20)")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Value.Message != "maximum call depth exceeded: 10" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInterpreter_ConcurrentUse(t *testing.T) {
	var stdout scripttest.Output
	interp, err := NewInterpreter(WithStdout(&stdout))
	if err != nil {
		t.Fatalf("NewInterpreter() failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := interp.EvalString(context.Background(), "let fib = fn(n) { if (n < 2) { n } else { fib(n - 1) + fib(n - 2) } }; log(\"done\"); fib(12)")
			if err != nil {
				t.Errorf("EvalString() failed: %v", err)
				return
			}
			results[i] = got.Inspect()
		}()
	}
	wg.Wait()

	for i, got := range results {
		if got != "144" {
			t.Errorf("results[%d] = %q, want 144", i, got)
		}
	}
	want := []string{"done", "done", "done", "done", "done", "done", "done", "done"}
	if diff := cmp.Diff(want, stdout.Lines()); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}
