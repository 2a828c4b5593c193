package evaluator

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/podhmo/coral/object"
)

// builtins is the read-only namespace consulted when an identifier is not
// bound in the environment chain.
var builtins = map[string]*object.Builtin{
	"len": {
		Name: "len",
		Fn: func(ctx *object.BuiltinContext, args ...object.Object) object.Object {
			if len(args) != 1 {
				return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
			}
			switch arg := args[0].(type) {
			case *object.String:
				return &object.Integer{Value: int64(utf8.RuneCountInString(arg.Value))}
			case *object.Array:
				return &object.Integer{Value: int64(len(arg.Elements))}
			default:
				return ctx.NewError("argument to `len` not supported, got %s", args[0].Type())
			}
		},
	},
	"first": {
		Name: "first",
		Fn: func(ctx *object.BuiltinContext, args ...object.Object) object.Object {
			if len(args) != 1 {
				return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
			}
			arr, ok := args[0].(*object.Array)
			if !ok {
				return ctx.NewError("argument to `first` must be ARRAY, got %s", args[0].Type())
			}
			if len(arr.Elements) == 0 {
				return ctx.NewError("`first` called on empty array")
			}
			return arr.Elements[0]
		},
	},
	"last": {
		Name: "last",
		Fn: func(ctx *object.BuiltinContext, args ...object.Object) object.Object {
			if len(args) != 1 {
				return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
			}
			arr, ok := args[0].(*object.Array)
			if !ok {
				return ctx.NewError("argument to `last` must be ARRAY, got %s", args[0].Type())
			}
			if len(arr.Elements) == 0 {
				return ctx.NewError("`last` called on empty array")
			}
			return arr.Elements[len(arr.Elements)-1]
		},
	},
	"rest": {
		Name: "rest",
		Fn: func(ctx *object.BuiltinContext, args ...object.Object) object.Object {
			if len(args) != 1 {
				return ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
			}
			arr, ok := args[0].(*object.Array)
			if !ok {
				return ctx.NewError("argument to `rest` must be ARRAY, got %s", args[0].Type())
			}
			length := len(arr.Elements)
			if length == 0 {
				return object.NULL
			}
			newElements := make([]object.Object, length-1)
			copy(newElements, arr.Elements[1:length])
			return &object.Array{Elements: newElements}
		},
	},
	"push": {
		Name: "push",
		Fn: func(ctx *object.BuiltinContext, args ...object.Object) object.Object {
			if len(args) != 2 {
				return ctx.NewError("wrong number of arguments. got=%d, want=2", len(args))
			}
			arr, ok := args[0].(*object.Array)
			if !ok {
				return ctx.NewError("argument to `push` must be ARRAY, got %s", args[0].Type())
			}
			length := len(arr.Elements)
			newElements := make([]object.Object, length+1)
			copy(newElements, arr.Elements)
			newElements[length] = args[1]
			return &object.Array{Elements: newElements}
		},
	},
	"log": {
		Name: "log",
		Fn: func(ctx *object.BuiltinContext, args ...object.Object) object.Object {
			if len(args) == 0 {
				return ctx.NewError("wrong number of arguments. got=0, want=1+")
			}
			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = arg.Inspect()
			}
			fmt.Fprintln(ctx.Stdout, strings.Join(parts, " "))
			return object.NULL
		},
	},
	"isEven": {
		Name: "isEven",
		Fn: func(ctx *object.BuiltinContext, args ...object.Object) object.Object {
			n, errObj := integerArg(ctx, "isEven", args)
			if errObj != nil {
				return errObj
			}
			return object.NativeBool(n%2 == 0)
		},
	},
	"isOdd": {
		Name: "isOdd",
		Fn: func(ctx *object.BuiltinContext, args ...object.Object) object.Object {
			n, errObj := integerArg(ctx, "isOdd", args)
			if errObj != nil {
				return errObj
			}
			return object.NativeBool(n%2 != 0)
		},
	},
}

func integerArg(ctx *object.BuiltinContext, name string, args []object.Object) (int64, *object.Error) {
	if len(args) != 1 {
		return 0, ctx.NewError("wrong number of arguments. got=%d, want=1", len(args))
	}
	i, ok := args[0].(*object.Integer)
	if !ok {
		return 0, ctx.NewError("argument to `%s` must be INTEGER, got %s", name, args[0].Type())
	}
	return i.Value, nil
}

// Builtins returns the sorted names of the builtin functions.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
