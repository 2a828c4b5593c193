// Package evaluator is a tree-walking interpreter for Coral programs.
//
// Runtime errors and `return` travel through the evaluator as values
// (*object.Error and *object.ReturnValue). Every step checks the results of
// its sub-evaluations and hands such values back unchanged, so evaluation
// stops at the first error without any panics.
package evaluator

import (
	"context"
	"io"
	"log/slog"

	"github.com/podhmo/coral/ast"
	"github.com/podhmo/coral/object"
)

// DefaultMaxCallDepth is used when Config.MaxCallDepth is zero.
const DefaultMaxCallDepth = 4096

// Config holds the settings for a new Evaluator.
type Config struct {
	// Stdout receives the output of the `log` builtin.
	Stdout io.Writer
	// Logger receives debug traces. nil discards them.
	Logger *slog.Logger
	// MaxCallDepth limits nested function applications. Exceeding it yields
	// an error value instead of exhausting the goroutine stack.
	MaxCallDepth int
}

// Evaluator evaluates AST nodes. It is not safe for concurrent use; create one
// Evaluator per goroutine.
type Evaluator struct {
	object.BuiltinContext
	logger       *slog.Logger
	callStack    []*callFrame
	maxCallDepth int
}

type callFrame struct {
	Function string
	Pos      string
}

// New creates an Evaluator.
func New(cfg Config) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	maxDepth := cfg.MaxCallDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallDepth
	}

	e := &Evaluator{
		logger:       logger,
		maxCallDepth: maxDepth,
	}
	e.BuiltinContext = object.BuiltinContext{
		Stdout:   stdout,
		Logger:   logger,
		NewError: object.NewError,
	}
	return e
}

// Eval evaluates node in env.
func (e *Evaluator) Eval(node ast.Node, env *object.Environment) object.Object {
	return e.EvalContext(context.Background(), node, env)
}

// EvalContext is like Eval, but ctx is handed to the logger with every
// trace record.
func (e *Evaluator) EvalContext(ctx context.Context, node ast.Node, env *object.Environment) object.Object {
	return e.eval(ctx, node, env)
}

func (e *Evaluator) eval(ctx context.Context, node ast.Node, env *object.Environment) object.Object {
	switch n := node.(type) {
	// Statements
	case *ast.Program:
		return e.evalProgram(ctx, n, env)
	case *ast.BlockStatement:
		return e.evalBlockStatement(ctx, n, env)
	case *ast.ExpressionStatement:
		return e.eval(ctx, n.Expression, env)
	case *ast.LetStatement:
		val := e.eval(ctx, n.Value, env)
		if isSignal(val) {
			return val
		}
		env.Set(n.Name.Value, val)
		return val
	case *ast.ReturnStatement:
		val := e.eval(ctx, n.ReturnValue, env)
		if isSignal(val) {
			return val
		}
		return &object.ReturnValue{Value: val}

	// Literals
	case *ast.IntegerLiteral:
		return &object.Integer{Value: n.Value}
	case *ast.Boolean:
		return object.NativeBool(n.Value)
	case *ast.StringLiteral:
		return &object.String{Value: n.Value}
	case *ast.ArrayLiteral:
		elements, signal := e.evalExpressions(ctx, n.Elements, env)
		if signal != nil {
			return signal
		}
		return &object.Array{Elements: elements}
	case *ast.HashLiteral:
		return e.evalHashLiteral(ctx, n, env)
	case *ast.FunctionLiteral:
		return &object.Function{Parameters: n.Parameters, Body: n.Body, Env: env}

	// Expressions
	case *ast.Identifier:
		return e.evalIdentifier(n, env)
	case *ast.PrefixExpression:
		right := e.eval(ctx, n.Right, env)
		if isSignal(right) {
			return right
		}
		return e.evalPrefixExpression(n.Operator, right)
	case *ast.InfixExpression:
		left := e.eval(ctx, n.Left, env)
		if isSignal(left) {
			return left
		}
		right := e.eval(ctx, n.Right, env)
		if isSignal(right) {
			return right
		}
		return e.evalInfixExpression(n.Operator, left, right)
	case *ast.IfExpression:
		return e.evalIfExpression(ctx, n, env)
	case *ast.CallExpression:
		return e.evalCallExpression(ctx, n, env)
	case *ast.IndexExpression:
		left := e.eval(ctx, n.Left, env)
		if isSignal(left) {
			return left
		}
		index := e.eval(ctx, n.Index, env)
		if isSignal(index) {
			return index
		}
		return e.evalIndexExpression(left, index)
	case *ast.ChainExpression:
		return e.evalChainExpression(ctx, n, env)
	}
	return e.NewError("unsupported node: %T", node)
}

func (e *Evaluator) evalProgram(ctx context.Context, program *ast.Program, env *object.Environment) object.Object {
	var result object.Object = object.NULL
	for _, stmt := range program.Statements {
		result = e.eval(ctx, stmt, env)

		switch result := result.(type) {
		case *object.ReturnValue:
			return result.Value
		case *object.Error:
			e.logc(ctx, slog.LevelDebug, "program stopped by error", result)
			return result
		}
	}
	return result
}

// evalBlockStatement leaves a ReturnValue wrapped so that it keeps unwinding
// until the enclosing function application.
func (e *Evaluator) evalBlockStatement(ctx context.Context, block *ast.BlockStatement, env *object.Environment) object.Object {
	var result object.Object = object.NULL
	for _, stmt := range block.Statements {
		result = e.eval(ctx, stmt, env)

		if isSignal(result) {
			return result
		}
	}
	return result
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier, env *object.Environment) object.Object {
	if val, ok := env.Get(node.Value); ok {
		return val
	}
	if builtin, ok := builtins[node.Value]; ok {
		return builtin
	}
	return e.NewError("identifier not found: %s", node.Value)
}

func (e *Evaluator) evalPrefixExpression(operator string, right object.Object) object.Object {
	switch operator {
	case "!":
		return e.evalBangOperatorExpression(right)
	case "-":
		return e.evalMinusPrefixOperatorExpression(right)
	default:
		return e.NewError("unknown operator: %s%s", operator, right.Type())
	}
}

func (e *Evaluator) evalBangOperatorExpression(right object.Object) object.Object {
	switch right {
	case object.TRUE:
		return object.FALSE
	case object.FALSE:
		return object.TRUE
	case object.NULL:
		return object.TRUE
	default:
		return object.FALSE
	}
}

func (e *Evaluator) evalMinusPrefixOperatorExpression(right object.Object) object.Object {
	i, ok := right.(*object.Integer)
	if !ok {
		return e.NewError("unknown operator: -%s", right.Type())
	}
	return &object.Integer{Value: -i.Value}
}

func (e *Evaluator) evalInfixExpression(operator string, left, right object.Object) object.Object {
	switch {
	case left.Type() == object.INTEGER_OBJ && right.Type() == object.INTEGER_OBJ:
		return e.evalIntegerInfixExpression(operator, left.(*object.Integer), right.(*object.Integer))
	case left.Type() == object.STRING_OBJ && right.Type() == object.STRING_OBJ:
		return e.evalStringInfixExpression(operator, left.(*object.String), right.(*object.String))
	case left.Type() != right.Type():
		return e.NewError("type mismatch: %s %s %s", left.Type(), operator, right.Type())
	case operator == "==":
		return object.NativeBool(left == right)
	case operator == "!=":
		return object.NativeBool(left != right)
	default:
		return e.NewError("unknown operator: %s %s %s", left.Type(), operator, right.Type())
	}
}

func (e *Evaluator) evalIntegerInfixExpression(operator string, left, right *object.Integer) object.Object {
	l, r := left.Value, right.Value
	switch operator {
	case "+":
		return &object.Integer{Value: l + r}
	case "-":
		return &object.Integer{Value: l - r}
	case "*":
		return &object.Integer{Value: l * r}
	case "/":
		if r == 0 {
			return e.NewError("division by zero")
		}
		return &object.Integer{Value: l / r}
	case "<":
		return object.NativeBool(l < r)
	case ">":
		return object.NativeBool(l > r)
	case "==":
		return object.NativeBool(l == r)
	case "!=":
		return object.NativeBool(l != r)
	default:
		return e.NewError("unknown operator: %s %s %s", left.Type(), operator, right.Type())
	}
}

func (e *Evaluator) evalStringInfixExpression(operator string, left, right *object.String) object.Object {
	if operator != "+" {
		return e.NewError("unknown operator: %s %s %s", left.Type(), operator, right.Type())
	}
	return &object.String{Value: left.Value + right.Value}
}

func (e *Evaluator) evalIfExpression(ctx context.Context, ie *ast.IfExpression, env *object.Environment) object.Object {
	condition := e.eval(ctx, ie.Condition, env)
	if isSignal(condition) {
		return condition
	}

	switch {
	case isTruthy(condition):
		return e.eval(ctx, ie.Consequence, env)
	case ie.Alternative != nil:
		return e.eval(ctx, ie.Alternative, env)
	default:
		return object.NULL
	}
}

// evalExpressions evaluates exps from left to right. It stops at the first
// error or return and hands that object back as the second result.
func (e *Evaluator) evalExpressions(ctx context.Context, exps []ast.Expression, env *object.Environment) ([]object.Object, object.Object) {
	result := make([]object.Object, 0, len(exps))
	for _, exp := range exps {
		evaluated := e.eval(ctx, exp, env)
		if isSignal(evaluated) {
			return nil, evaluated
		}
		result = append(result, evaluated)
	}
	return result, nil
}

func (e *Evaluator) evalHashLiteral(ctx context.Context, node *ast.HashLiteral, env *object.Environment) object.Object {
	hash := object.NewHash()
	for _, pair := range node.Pairs {
		key := e.eval(ctx, pair.Key, env)
		if isSignal(key) {
			return key
		}
		hashKey, ok := key.(object.Hashable)
		if !ok {
			return e.NewError("unusable as hash key: %s", key.Type())
		}

		value := e.eval(ctx, pair.Value, env)
		if isSignal(value) {
			return value
		}
		if !hash.Insert(hashKey, value) {
			return e.NewError("duplicate hash key: %s", key.Inspect())
		}
	}
	return hash
}

func (e *Evaluator) evalIndexExpression(left, index object.Object) object.Object {
	switch left := left.(type) {
	case *object.Array:
		idx, ok := index.(*object.Integer)
		if !ok {
			return e.NewError("index operator not supported: %s", left.Type())
		}
		i := idx.Value
		if i < 0 || i >= int64(len(left.Elements)) {
			return object.NULL
		}
		return left.Elements[i]
	case *object.Hash:
		key, ok := index.(object.Hashable)
		if !ok {
			return e.NewError("unusable as hash key: %s", index.Type())
		}
		val, ok := left.Get(key)
		if !ok {
			return object.NULL
		}
		return val
	default:
		return e.NewError("index operator not supported: %s", left.Type())
	}
}

func (e *Evaluator) evalCallExpression(ctx context.Context, node *ast.CallExpression, env *object.Environment) object.Object {
	function := e.eval(ctx, node.Function, env)
	if isSignal(function) {
		return function
	}
	args, signal := e.evalExpressions(ctx, node.Arguments, env)
	if signal != nil {
		return signal
	}

	name := "<anonymous>"
	if ident, ok := node.Function.(*ast.Identifier); ok {
		name = ident.Value
	}
	return e.applyFunction(ctx, name, node.Token.Pos.String(), function, args)
}

// applyFunction calls a user function or a builtin with already evaluated
// arguments.
func (e *Evaluator) applyFunction(ctx context.Context, name, pos string, fn object.Object, args []object.Object) object.Object {
	switch fn := fn.(type) {
	case *object.Function:
		if len(args) != len(fn.Parameters) {
			return e.NewError("wrong number of arguments: want=%d, got=%d", len(fn.Parameters), len(args))
		}
		if len(e.callStack) >= e.maxCallDepth {
			return e.NewError("maximum call depth exceeded: %d", e.maxCallDepth)
		}

		e.callStack = append(e.callStack, &callFrame{Function: name, Pos: pos})
		defer func() { e.callStack = e.callStack[:len(e.callStack)-1] }()
		e.logc(ctx, slog.LevelDebug, "apply function", "args", len(args))

		extendedEnv := object.NewEnclosedEnvironment(fn.Env)
		for i, param := range fn.Parameters {
			extendedEnv.Set(param.Value, args[i])
		}
		return unwrapReturnValue(e.eval(ctx, fn.Body, extendedEnv))
	case *object.Builtin:
		e.logc(ctx, slog.LevelDebug, "apply builtin", "builtin", fn.Name, "args", len(args))
		return fn.Fn(&e.BuiltinContext, args...)
	default:
		return e.NewError("not a function: %s", fn.Type())
	}
}

func unwrapReturnValue(obj object.Object) object.Object {
	if rv, ok := obj.(*object.ReturnValue); ok {
		return rv.Value
	}
	return obj
}

func isTruthy(obj object.Object) bool {
	switch obj {
	case object.NULL, object.FALSE:
		return false
	default:
		return true
	}
}

func isError(obj object.Object) bool {
	if obj != nil {
		return obj.Type() == object.ERROR_OBJ
	}
	return false
}

// isSignal reports whether obj stops the evaluation of the enclosing
// expression: an error, or a return still unwinding to its function.
func isSignal(obj object.Object) bool {
	if obj == nil {
		return false
	}
	t := obj.Type()
	return t == object.ERROR_OBJ || t == object.RETURN_VALUE_OBJ
}
