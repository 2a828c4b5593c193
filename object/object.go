package object

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"strings"

	"github.com/podhmo/coral/ast"
)

// ObjectType is a string representation of an object's type.
type ObjectType string

const (
	INTEGER_OBJ      ObjectType = "INTEGER"
	BOOLEAN_OBJ      ObjectType = "BOOLEAN"
	NULL_OBJ         ObjectType = "NULL"
	STRING_OBJ       ObjectType = "STRING"
	ARRAY_OBJ        ObjectType = "ARRAY"
	HASH_OBJ         ObjectType = "HASH"
	FUNCTION_OBJ     ObjectType = "FUNCTION"
	BUILTIN_OBJ      ObjectType = "BUILTIN"
	RETURN_VALUE_OBJ ObjectType = "RETURN_VALUE"
	ERROR_OBJ        ObjectType = "ERROR"
)

// Object is the interface that all runtime values implement.
type Object interface {
	// Type returns the type of the object.
	Type() ObjectType
	// Inspect returns a human readable representation of the object's value.
	Inspect() string
}

// Hashable is implemented by objects that can be used as hash keys.
type Hashable interface {
	Object
	// HashKey returns a key that is equal for semantically equal objects.
	HashKey() HashKey
}

// HashKey is used as a key in the internal map of Hash objects.
// It's a combination of the object's type and a type specific discriminator,
// so objects of different types never collide.
type HashKey struct {
	Type  ObjectType
	Value uint64
}

// --- Integer Object ---

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return fmt.Sprintf("%d", i.Value) }
func (i *Integer) HashKey() HashKey {
	return HashKey{Type: i.Type(), Value: uint64(i.Value)}
}

// --- Boolean Object ---

// Boolean has exactly two instances, TRUE and FALSE.
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return fmt.Sprintf("%t", b.Value) }
func (b *Boolean) HashKey() HashKey {
	var value uint64 = 2
	if b.Value {
		value = 1
	}
	return HashKey{Type: b.Type(), Value: value}
}

// --- Null Object ---

// Null has exactly one instance, NULL.
type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
	NULL  = &Null{}
)

// NativeBool returns the shared Boolean instance for input.
func NativeBool(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

// --- String Object ---

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }
func (s *String) HashKey() HashKey {
	h := fnv.New64a()
	h.Write([]byte(s.Value))
	return HashKey{Type: s.Type(), Value: h.Sum64()}
}

// Reverse returns a new String with the runes of s in reverse order.
func (s *String) Reverse() *String {
	runes := []rune(s.Value)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return &String{Value: string(runes)}
}

// --- Array Object ---

// Array is shared by reference: every holder of the same *Array observes
// mutations made through any of them.
type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string { return a.inspect(map[Object]bool{}) }

func (a *Array) inspect(rendering map[Object]bool) string {
	if rendering[a] {
		return "[...]"
	}
	rendering[a] = true
	defer delete(rendering, a)

	elements := make([]string, 0, len(a.Elements))
	for _, e := range a.Elements {
		elements = append(elements, inspectElement(e, rendering))
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// Push appends v in place.
func (a *Array) Push(v Object) {
	a.Elements = append(a.Elements, v)
}

// Pop removes and returns the last element. ok is false for an empty array.
func (a *Array) Pop() (last Object, ok bool) {
	n := len(a.Elements)
	if n == 0 {
		return nil, false
	}
	last = a.Elements[n-1]
	a.Elements[n-1] = nil
	a.Elements = a.Elements[:n-1]
	return last, true
}

// Reverse reverses the elements in place.
func (a *Array) Reverse() {
	for i, j := 0, len(a.Elements)-1; i < j; i, j = i+1, j-1 {
		a.Elements[i], a.Elements[j] = a.Elements[j], a.Elements[i]
	}
}

// Extend appends all elements of other in place. Extending an array with
// itself doubles it.
func (a *Array) Extend(other *Array) {
	elements := make([]Object, len(other.Elements))
	copy(elements, other.Elements)
	a.Elements = append(a.Elements, elements...)
}

// --- Hash Object ---

// HashPair keeps the original key next to the value so that keys can be
// listed back as objects.
type HashPair struct {
	Key   Object
	Value Object
}

// Hash is shared by reference like Array. Keys are listed in insertion order.
type Hash struct {
	Pairs map[HashKey]HashPair
	order []HashKey
}

// NewHash returns an empty hash.
func NewHash() *Hash {
	return &Hash{Pairs: make(map[HashKey]HashPair)}
}

func (h *Hash) Type() ObjectType { return HASH_OBJ }
func (h *Hash) Inspect() string { return h.inspect(map[Object]bool{}) }

func (h *Hash) inspect(rendering map[Object]bool) string {
	if rendering[h] {
		return "{...}"
	}
	rendering[h] = true
	defer delete(rendering, h)

	pairs := make([]string, 0, len(h.order))
	for _, k := range h.order {
		pair := h.Pairs[k]
		pairs = append(pairs, fmt.Sprintf("%s: %s", inspectElement(pair.Key, rendering), inspectElement(pair.Value, rendering)))
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// Len returns the number of entries.
func (h *Hash) Len() int { return len(h.order) }

// Get returns the value stored under key.
func (h *Hash) Get(key Hashable) (Object, bool) {
	pair, ok := h.Pairs[key.HashKey()]
	if !ok {
		return nil, false
	}
	return pair.Value, true
}

// Contains reports whether key is present.
func (h *Hash) Contains(key Hashable) bool {
	_, ok := h.Pairs[key.HashKey()]
	return ok
}

// Insert adds a new entry. It returns false, leaving the hash untouched, when
// key is already present.
func (h *Hash) Insert(key Hashable, value Object) bool {
	hk := key.HashKey()
	if _, ok := h.Pairs[hk]; ok {
		return false
	}
	h.Pairs[hk] = HashPair{Key: key, Value: value}
	h.order = append(h.order, hk)
	return true
}

// Remove deletes key and returns the value it held.
func (h *Hash) Remove(key Hashable) (Object, bool) {
	hk := key.HashKey()
	pair, ok := h.Pairs[hk]
	if !ok {
		return nil, false
	}
	delete(h.Pairs, hk)
	for i, k := range h.order {
		if k == hk {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return pair.Value, true
}

// Keys returns the original key objects in insertion order.
func (h *Hash) Keys() []Object {
	keys := make([]Object, 0, len(h.order))
	for _, k := range h.order {
		keys = append(keys, h.Pairs[k].Key)
	}
	return keys
}

// Values returns the values in key insertion order.
func (h *Hash) Values() []Object {
	values := make([]Object, 0, len(h.order))
	for _, k := range h.order {
		values = append(values, h.Pairs[k].Value)
	}
	return values
}

// Clear removes every entry.
func (h *Hash) Clear() {
	h.Pairs = make(map[HashKey]HashPair)
	h.order = nil
}

// inspectElement quotes strings nested in composite values so that
// ["a"] and [a] render differently. rendering holds the composites on the
// current path; one that contains itself renders as [...] or {...}.
func inspectElement(obj Object, rendering map[Object]bool) string {
	switch obj := obj.(type) {
	case *String:
		return fmt.Sprintf("%q", obj.Value)
	case *Array:
		return obj.inspect(rendering)
	case *Hash:
		return obj.inspect(rendering)
	default:
		return obj.Inspect()
	}
}

// --- Function Object ---

// Function is a closure: the parameters and body are shared with the AST and
// Env is the environment that was active when the literal was evaluated.
type Function struct {
	Parameters []*ast.Identifier
	Body       *ast.BlockStatement
	Env        *Environment
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	var out bytes.Buffer

	params := make([]string, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		params = append(params, p.String())
	}

	out.WriteString("fn(")
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") ")
	out.WriteString(f.Body.String())
	return out.String()
}

// --- Builtin Function Object ---

// BuiltinContext provides what a built-in function may need while running:
// its output stream, a logger and a helper for creating errors.
type BuiltinContext struct {
	Stdout   io.Writer
	Logger   *slog.Logger
	NewError func(format string, args ...any) *Error
}

// BuiltinFunction is the signature for built-in functions. Every builtin
// validates its own arguments and reports problems as *Error values.
type BuiltinFunction func(ctx *BuiltinContext, args ...Object) Object

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "builtin function " + b.Name }

// --- Return Value Object ---

// ReturnValue wraps the value of a `return` statement while the evaluator
// unwinds to the enclosing function call.
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

// --- Error Object ---

// Error is a runtime error travelling through the evaluator as a value.
type Error struct {
	Message string
}

// NewError formats a new runtime error.
func NewError(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "ERROR: " + e.Message }
