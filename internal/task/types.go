package task

import (
	"context"
	"reflect"
)

// Key is the opaque, globally-unique identifier of one graph node. Two nodes
// describing the same computation (same callable, same argument structure)
// carry the same Key; derivation lives in the tokenize package.
type Key string

// Func is the uniform invocation signature for every node callable. Args are
// the resolved positional arguments; kwargs is nil for the positional form.
type Func func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Callable is a named function together with the backend tag assigned to it
// by the registry layer. An empty Backend means the callable is not
// compilable by any backend.
type Callable struct {
	Name    string
	Backend string
	Fn      Func
}

// Argument is one argument slot in a Spec. It is a sealed union: exactly the
// types Literal, Ref, List and Map implement it.
type Argument interface {
	isArgument()
}

// Literal is an opaque value passed through to the callable as-is. A Literal
// whose value happens to look like a Key is still a literal.
type Literal struct {
	Value any
}

// Ref is a reference to another node's output.
type Ref struct {
	Key Key
}

// List is an ordered container of further arguments.
type List struct {
	Elems []Argument
}

// Map is a string-keyed container of further arguments.
type Map struct {
	Entries map[string]Argument
}

func (Literal) isArgument() {}
func (Ref) isArgument()     {}
func (List) isArgument()    {}
func (Map) isArgument()     {}

// ArgEqual reports structural equality of two arguments. Literal values are
// compared deeply.
func ArgEqual(a, b Argument) bool {
	switch a := a.(type) {
	case Literal:
		b, ok := b.(Literal)
		return ok && reflect.DeepEqual(a.Value, b.Value)
	case Ref:
		b, ok := b.(Ref)
		return ok && a.Key == b.Key
	case List:
		b, ok := b.(List)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !ArgEqual(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case Map:
		b, ok := b.(Map)
		if !ok || len(a.Entries) != len(b.Entries) {
			return false
		}
		for name, elem := range a.Entries {
			other, ok := b.Entries[name]
			if !ok || !ArgEqual(elem, other) {
				return false
			}
		}
		return true
	}
	return false
}

// walkRefs invokes fn for every Ref reachable inside arg, containers included.
func walkRefs(arg Argument, fn func(Key)) {
	switch arg := arg.(type) {
	case Ref:
		fn(arg.Key)
	case List:
		for _, elem := range arg.Elems {
			walkRefs(elem, fn)
		}
	case Map:
		for _, elem := range arg.Entries {
			walkRefs(elem, fn)
		}
	}
}
