package task

import "slices"

// KeySet is a set of node keys.
type KeySet map[Key]struct{}

// Index is the dependency/dependent view of one graph. It is derived on
// demand and must be rebuilt after any graph mutation; holding an Index
// across a rewrite gives stale answers.
type Index struct {
	// Dependencies maps each key to the set of in-graph keys its spec
	// references. References to keys outside the graph are external inputs
	// and are not indexed.
	Dependencies map[Key]KeySet
	// Dependents is the reverse mapping.
	Dependents map[Key]KeySet
}

// NewIndex builds the dependency index for g. Every key in g gets an entry
// in both maps, possibly empty.
func NewIndex(g Graph) *Index {
	ix := &Index{
		Dependencies: make(map[Key]KeySet, len(g)),
		Dependents:   make(map[Key]KeySet, len(g)),
	}
	for k := range g {
		ix.Dependencies[k] = make(KeySet)
		ix.Dependents[k] = make(KeySet)
	}
	for k, spec := range g {
		spec.Refs(func(dep Key) {
			if _, ok := g[dep]; !ok {
				return
			}
			ix.Dependencies[k][dep] = struct{}{}
			ix.Dependents[dep][k] = struct{}{}
		})
	}
	return ix
}

// Toposort returns a total order over keys that is consistent with the
// dependency partial order restricted to that subset. Edges to keys outside
// the subset do not influence the order. Ties are broken lexicographically,
// so the result is deterministic for a given input.
func Toposort(keys []Key, ix *Index) []Key {
	subset := make(KeySet, len(keys))
	for _, k := range keys {
		subset[k] = struct{}{}
	}
	roots := slices.Clone(keys)
	slices.Sort(roots)

	order := make([]Key, 0, len(keys))
	seen := make(map[Key]bool, len(keys))

	var visit func(k Key)
	visit = func(k Key) {
		if seen[k] {
			return
		}
		seen[k] = true
		deps := make([]Key, 0, len(ix.Dependencies[k]))
		for dep := range ix.Dependencies[k] {
			if _, ok := subset[dep]; ok {
				deps = append(deps, dep)
			}
		}
		slices.Sort(deps)
		for _, dep := range deps {
			visit(dep)
		}
		order = append(order, k)
	}

	for _, k := range roots {
		visit(k)
	}
	return order
}
