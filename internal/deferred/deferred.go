package deferred

import (
	"errors"
	"fmt"

	"github.com/seibert/metagraph/internal/task"
	"github.com/seibert/metagraph/internal/tokenize"
)

// ErrNoKey is returned when an argument claims to be a deferred value but
// exposes no resolvable key. That is a malformed collaborator, not a
// recoverable condition.
var ErrNoKey = errors.New("deferred value exposes no key")

// ErrSpecConflict is returned when merging two fragments that disagree on
// the spec for a shared key. Content-addressing guarantees identical specs
// for identical keys, so a conflict means a collaborator broke that
// contract.
var ErrSpecConflict = errors.New("conflicting specs for shared key")

// Value is anything that can stand in for a node when used as an argument:
// it names its output key and carries the fragment that computes it. *Node
// implements it; so do placeholder types owned by other layers.
type Value interface {
	Key() task.Key
	Graph() task.Graph
}

// Node is one deferred computation. It is immutable once built.
type Node struct {
	key   task.Key
	graph task.Graph
}

// Key returns the node's output key.
func (n *Node) Key() task.Key {
	return n.key
}

// Graph returns the node's graph fragment. Callers must treat it as
// read-only; Build never mutates a fragment it was handed.
func (n *Node) Graph() task.Graph {
	return n.graph
}

// Build constructs a node computing callable over the given arguments.
// Arguments implementing Value become references and have their fragments
// merged in; anything else is quoted as a literal, with quoting applied
// recursively through slices and string-keyed maps so that deferred values
// nested inside containers are still resolved. A non-empty kwargs selects
// the keyword-application form.
func Build(callable *task.Callable, args []any, kwargs map[string]any) (*Node, error) {
	g := make(task.Graph)

	resolvedArgs := make([]task.Argument, len(args))
	for i, a := range args {
		arg, err := resolve(a, g)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %q: %w", i, callable.Name, err)
		}
		resolvedArgs[i] = arg
	}

	var resolvedKwargs map[string]task.Argument
	if len(kwargs) > 0 {
		resolvedKwargs = make(map[string]task.Argument, len(kwargs))
		for name, v := range kwargs {
			arg, err := resolve(v, g)
			if err != nil {
				return nil, fmt.Errorf("keyword argument %q of %q: %w", name, callable.Name, err)
			}
			resolvedKwargs[name] = arg
		}
	}

	key := tokenize.NodeKey(callable, resolvedArgs, resolvedKwargs)
	spec := task.Spec{Callable: callable, Args: resolvedArgs, Kwargs: resolvedKwargs}
	if existing, ok := g[key]; ok {
		// The node's own key can already be present when an argument's
		// fragment contains the identical computation.
		if !task.SpecEqual(existing, spec) {
			return nil, fmt.Errorf("key %q: %w", key, ErrSpecConflict)
		}
	}
	g[key] = spec

	return &Node{key: key, graph: g}, nil
}

// resolve turns one raw argument into its Argument form, merging any
// deferred fragments it encounters into g.
func resolve(v any, g task.Graph) (task.Argument, error) {
	switch v := v.(type) {
	case Value:
		key := v.Key()
		if key == "" {
			return nil, ErrNoKey
		}
		if err := merge(g, v.Graph()); err != nil {
			return nil, err
		}
		return task.Ref{Key: key}, nil
	case []any:
		elems := make([]task.Argument, len(v))
		for i, elem := range v {
			arg, err := resolve(elem, g)
			if err != nil {
				return nil, err
			}
			elems[i] = arg
		}
		return task.List{Elems: elems}, nil
	case map[string]any:
		entries := make(map[string]task.Argument, len(v))
		for name, elem := range v {
			arg, err := resolve(elem, g)
			if err != nil {
				return nil, err
			}
			entries[name] = arg
		}
		return task.Map{Entries: entries}, nil
	default:
		return task.Literal{Value: v}, nil
	}
}

// merge unions src into dst. A key present in both must carry an identical
// spec; this is enforced, not silently overridden.
func merge(dst, src task.Graph) error {
	for k, spec := range src {
		if existing, ok := dst[k]; ok {
			if !task.SpecEqual(existing, spec) {
				return fmt.Errorf("key %q: %w", k, ErrSpecConflict)
			}
			continue
		}
		dst[k] = spec
	}
	return nil
}
