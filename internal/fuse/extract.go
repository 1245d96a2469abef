package fuse

import (
	"slices"

	"github.com/seibert/metagraph/internal/task"
)

// Subgraph is one extracted chain: the tasks restricted to the chain, the
// external keys those tasks reference, and the chain's terminal key. Only
// OutputKey may have dependents outside the chain.
type Subgraph struct {
	Tasks     task.Graph
	InputKeys []task.Key
	OutputKey task.Key
}

// Extract finds the compilable chains in g for the named backend: maximal
// linear runs of tagged nodes where each link has exactly one dependent and
// the next link exactly one dependency, judged against the whole-graph
// index. When includeSingletons is false, runs of length one are discarded.
//
// This is pure analysis: no backend is invoked and g is not modified. A
// graph with no tagged nodes yields nil.
func Extract(g task.Graph, backendName string, includeSingletons bool) []Subgraph {
	threshold := 2
	if includeSingletons {
		threshold = 1
	}

	ix := task.NewIndex(g)

	var tagged []task.Key
	for k, spec := range g {
		if spec.Callable != nil && spec.Callable.Backend != "" && spec.Callable.Backend == backendName {
			tagged = append(tagged, k)
		}
	}
	if len(tagged) == 0 {
		return nil
	}

	var subgraphs []Subgraph
	note := func(chain []task.Key) {
		if len(chain) < threshold {
			return
		}
		subgraphs = append(subgraphs, noteSubgraph(g, ix, chain))
	}

	ordered := task.Toposort(tagged, ix)
	chain := []task.Key{ordered[0]}
	for i := 0; i+1 < len(ordered); i++ {
		key, next := ordered[i], ordered[i+1]
		if linked(ix, key, next) {
			chain = append(chain, next)
			continue
		}
		note(chain)
		chain = []task.Key{next}
	}
	note(chain)

	return subgraphs
}

// linked reports whether key -> next is a fusable link: key's only dependent
// in the whole graph is next, and next's only dependency is key. This is
// what keeps a node consumed elsewhere, or a node with several producers,
// out of a chain's interior.
func linked(ix *task.Index, key, next task.Key) bool {
	dependents := ix.Dependents[key]
	dependencies := ix.Dependencies[next]
	if len(dependents) != 1 || len(dependencies) != 1 {
		return false
	}
	_, keyFeedsNext := dependents[next]
	_, nextNeedsKey := dependencies[key]
	return keyFeedsNext && nextNeedsKey
}

// noteSubgraph materializes a finalized chain as a Subgraph. Input keys are
// the union of the members' dependencies minus the members themselves, in
// sorted order; the fused node's arguments are later built from this same
// slice, so the two orders always agree.
func noteSubgraph(g task.Graph, ix *task.Index, chain []task.Key) Subgraph {
	member := make(task.KeySet, len(chain))
	for _, k := range chain {
		member[k] = struct{}{}
	}

	inputs := make(task.KeySet)
	tasks := make(task.Graph, len(chain))
	for _, k := range chain {
		tasks[k] = g[k]
		for dep := range ix.Dependencies[k] {
			if _, ok := member[dep]; !ok {
				inputs[dep] = struct{}{}
			}
		}
	}

	inputKeys := make([]task.Key, 0, len(inputs))
	for k := range inputs {
		inputKeys = append(inputKeys, k)
	}
	slices.Sort(inputKeys)

	return Subgraph{
		Tasks:     tasks,
		InputKeys: inputKeys,
		OutputKey: chain[len(chain)-1],
	}
}
