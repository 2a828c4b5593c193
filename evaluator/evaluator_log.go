package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/podhmo/coral/object"
)

// logc records msg together with the innermost coral call frame, if any,
// and the Go source position of the evaluator code that logged it.
// *object.Error arguments are logged as an "error" attribute.
func (e *Evaluator) logc(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !e.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]any, 0, len(args)+4)
	if n := len(e.callStack); n > 0 {
		frame := e.callStack[n-1]
		attrs = append(attrs,
			slog.String("in_func", frame.Function),
			slog.String("in_func_pos", frame.Pos),
			slog.Int("depth", n),
		)
	}
	// 1 is the function that called logc
	if _, file, line, ok := runtime.Caller(1); ok {
		attrs = append(attrs, slog.String("exec_pos", fmt.Sprintf("%s:%d", file, line)))
	}

	for _, arg := range args {
		if err, ok := arg.(*object.Error); ok {
			arg = slog.String("error", err.Message)
		}
		attrs = append(attrs, arg)
	}
	e.logger.Log(ctx, level, msg, attrs...)
}
