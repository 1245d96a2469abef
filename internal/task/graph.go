package task

import (
	"fmt"
	"slices"
)

// Spec is the computation held at one node. The positional form is a
// callable plus ordered arguments; the keyword form additionally carries a
// non-nil Kwargs map (the "apply" marker of the original encoding is the
// nil-ness of that map).
type Spec struct {
	Callable *Callable
	Args     []Argument
	Kwargs   map[string]Argument
}

// Keyword reports whether the spec uses the keyword-application form.
func (s Spec) Keyword() bool {
	return s.Kwargs != nil
}

// Refs invokes fn for every node reference inside the spec's arguments,
// nested containers included.
func (s Spec) Refs(fn func(Key)) {
	for _, arg := range s.Args {
		walkRefs(arg, fn)
	}
	for _, arg := range s.Kwargs {
		walkRefs(arg, fn)
	}
}

// SpecEqual reports whether two specs describe the same computation.
// Callables are compared by name and backend tag; function pointers are not
// comparable in Go and identity is already captured by the name.
func SpecEqual(a, b Spec) bool {
	switch {
	case a.Callable == nil || b.Callable == nil:
		if a.Callable != b.Callable {
			return false
		}
	case a.Callable.Name != b.Callable.Name || a.Callable.Backend != b.Callable.Backend:
		return false
	}
	if len(a.Args) != len(b.Args) || a.Keyword() != b.Keyword() || len(a.Kwargs) != len(b.Kwargs) {
		return false
	}
	for i := range a.Args {
		if !ArgEqual(a.Args[i], b.Args[i]) {
			return false
		}
	}
	for name, arg := range a.Kwargs {
		other, ok := b.Kwargs[name]
		if !ok || !ArgEqual(arg, other) {
			return false
		}
	}
	return true
}

// Graph maps node keys to their specs. A Graph may be a complete program or
// a fragment; in a fragment, references to keys not present in the map are
// external inputs.
type Graph map[Key]Spec

// Copy returns a shallow copy of the graph. Specs are immutable by
// convention, so sharing them between copies is safe.
func (g Graph) Copy() Graph {
	out := make(Graph, len(g))
	for k, spec := range g {
		out[k] = spec
	}
	return out
}

// Keys returns the graph's keys in lexicographic order.
func (g Graph) Keys() []Key {
	keys := make([]Key, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Validate checks that the graph is complete (every referenced key is
// present) and acyclic. Fragments should not be validated with this; it is
// meant for graphs about to be executed.
func (g Graph) Validate() error {
	for k, spec := range g {
		var missing Key
		spec.Refs(func(dep Key) {
			if _, ok := g[dep]; !ok && missing == "" {
				missing = dep
			}
		})
		if missing != "" {
			return fmt.Errorf("task %q references missing key %q", k, missing)
		}
	}
	return g.checkAcyclic()
}

// checkAcyclic runs a depth-first search with a visiting set to detect
// cycles. Graphs built through the deferred builder are acyclic by
// construction; graphs from other frontends are not.
func (g Graph) checkAcyclic() error {
	visiting := make(map[Key]bool)
	visited := make(map[Key]bool)

	var visit func(k Key) error
	visit = func(k Key) error {
		visiting[k] = true
		var err error
		g[k].Refs(func(dep Key) {
			if err != nil {
				return
			}
			if visiting[dep] {
				err = fmt.Errorf("cycle detected involving %q", dep)
				return
			}
			if _, ok := g[dep]; ok && !visited[dep] {
				err = visit(dep)
			}
		})
		if err != nil {
			return err
		}
		delete(visiting, k)
		visited[k] = true
		return nil
	}

	for _, k := range g.Keys() {
		if !visited[k] {
			if err := visit(k); err != nil {
				return err
			}
		}
	}
	return nil
}
