package evaluator

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/podhmo/coral/ast"
	"github.com/podhmo/coral/object"
)

// evalChainExpression evaluates `recv.name`, `recv.name(args)` and
// `recv.name[index]`. The receiver is evaluated first, then the arguments.
// A bare member is a call without arguments; an index member indexes the
// result of that call.
func (e *Evaluator) evalChainExpression(ctx context.Context, node *ast.ChainExpression, env *object.Environment) object.Object {
	receiver := e.eval(ctx, node.Receiver, env)
	if isSignal(receiver) {
		return receiver
	}
	name := node.MethodName()
	pos := node.Token.Pos.String()

	switch m := node.Member.(type) {
	case *ast.Identifier:
		return e.callMethod(ctx, pos, receiver, name, nil)
	case *ast.CallExpression:
		args, signal := e.evalExpressions(ctx, m.Arguments, env)
		if signal != nil {
			return signal
		}
		return e.callMethod(ctx, pos, receiver, name, args)
	case *ast.IndexExpression:
		result := e.callMethod(ctx, pos, receiver, name, nil)
		if isError(result) {
			return result
		}
		index := e.eval(ctx, m.Index, env)
		if isSignal(index) {
			return index
		}
		return e.evalIndexExpression(result, index)
	default:
		return e.NewError("invalid method call: %s", node.Member.String())
	}
}

func (e *Evaluator) callMethod(ctx context.Context, pos string, receiver object.Object, name string, args []object.Object) object.Object {
	e.logc(ctx, slog.LevelDebug, "call method", "receiver", receiver.Type(), "method", name, "args", len(args))

	switch recv := receiver.(type) {
	case *object.Array:
		return e.callArrayMethod(ctx, pos, recv, name, args)
	case *object.Hash:
		return e.callHashMethod(recv, name, args)
	case *object.String:
		return e.callStringMethod(recv, name, args)
	default:
		return e.NewError("method call not supported on %s", receiver.Type())
	}
}

func (e *Evaluator) checkArity(name string, want int, args []object.Object) *object.Error {
	if len(args) != want {
		return e.NewError("wrong number of arguments to %s: want=%d, got=%d", name, want, len(args))
	}
	return nil
}

func (e *Evaluator) callArrayMethod(ctx context.Context, pos string, arr *object.Array, name string, args []object.Object) object.Object {
	switch name {
	case "length":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return &object.Integer{Value: int64(len(arr.Elements))}
	case "push":
		if err := e.checkArity(name, 1, args); err != nil {
			return err
		}
		arr.Push(args[0])
		return arr
	case "pop":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		last, ok := arr.Pop()
		if !ok {
			return e.NewError("pop from empty array")
		}
		return last
	case "reverse":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		arr.Reverse()
		return arr
	case "extend":
		if err := e.checkArity(name, 1, args); err != nil {
			return err
		}
		other, ok := args[0].(*object.Array)
		if !ok {
			return e.NewError("argument to `extend` must be ARRAY, got %s", args[0].Type())
		}
		arr.Extend(other)
		return arr
	case "isEmpty":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return object.NativeBool(len(arr.Elements) == 0)
	case "isNotEmpty":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return object.NativeBool(len(arr.Elements) != 0)
	case "filter":
		if err := e.checkArity(name, 1, args); err != nil {
			return err
		}
		if err := e.checkCallable(name, args[0]); err != nil {
			return err
		}
		kept := make([]object.Object, 0, len(arr.Elements))
		for _, el := range arr.Elements {
			result := e.applyFunction(ctx, name, pos, args[0], []object.Object{el})
			if isError(result) {
				return result
			}
			if isTruthy(result) {
				kept = append(kept, el)
			}
		}
		return &object.Array{Elements: kept}
	case "map":
		if err := e.checkArity(name, 1, args); err != nil {
			return err
		}
		if err := e.checkCallable(name, args[0]); err != nil {
			return err
		}
		mapped := make([]object.Object, 0, len(arr.Elements))
		for _, el := range arr.Elements {
			result := e.applyFunction(ctx, name, pos, args[0], []object.Object{el})
			if isError(result) {
				return result
			}
			mapped = append(mapped, result)
		}
		return &object.Array{Elements: mapped}
	case "reduce":
		if err := e.checkArity(name, 2, args); err != nil {
			return err
		}
		if err := e.checkCallable(name, args[0]); err != nil {
			return err
		}
		acc := args[1]
		for _, el := range arr.Elements {
			acc = e.applyFunction(ctx, name, pos, args[0], []object.Object{acc, el})
			if isError(acc) {
				return acc
			}
		}
		return acc
	default:
		return e.NewError("undefined method %s for %s", name, arr.Type())
	}
}

func (e *Evaluator) checkCallable(name string, fn object.Object) *object.Error {
	switch fn.(type) {
	case *object.Function, *object.Builtin:
		return nil
	default:
		return e.NewError("argument to `%s` must be FUNCTION or BUILTIN, got %s", name, fn.Type())
	}
}

func (e *Evaluator) callHashMethod(hash *object.Hash, name string, args []object.Object) object.Object {
	switch name {
	case "contains":
		if err := e.checkArity(name, 1, args); err != nil {
			return err
		}
		key, ok := args[0].(object.Hashable)
		if !ok {
			return e.NewError("unusable as hash key: %s", args[0].Type())
		}
		return object.NativeBool(hash.Contains(key))
	case "insert":
		if err := e.checkArity(name, 2, args); err != nil {
			return err
		}
		key, ok := args[0].(object.Hashable)
		if !ok {
			return e.NewError("unusable as hash key: %s", args[0].Type())
		}
		if !hash.Insert(key, args[1]) {
			return e.NewError("duplicate hash key: %s", key.Inspect())
		}
		return hash
	case "remove":
		if err := e.checkArity(name, 1, args); err != nil {
			return err
		}
		key, ok := args[0].(object.Hashable)
		if !ok {
			return e.NewError("unusable as hash key: %s", args[0].Type())
		}
		val, ok := hash.Remove(key)
		if !ok {
			return object.NULL
		}
		return val
	case "keys":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return &object.Array{Elements: hash.Keys()}
	case "values":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return &object.Array{Elements: hash.Values()}
	case "clear":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		hash.Clear()
		return hash
	case "size":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return &object.Integer{Value: int64(hash.Len())}
	case "isEmpty":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return object.NativeBool(hash.Len() == 0)
	case "isNotEmpty":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return object.NativeBool(hash.Len() != 0)
	default:
		return e.NewError("undefined method %s for %s", name, hash.Type())
	}
}

func (e *Evaluator) callStringMethod(s *object.String, name string, args []object.Object) object.Object {
	switch name {
	case "length":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return &object.Integer{Value: int64(utf8.RuneCountInString(s.Value))}
	case "reverse":
		if err := e.checkArity(name, 0, args); err != nil {
			return err
		}
		return s.Reverse()
	default:
		return e.NewError("undefined method %s for %s", name, s.Type())
	}
}
