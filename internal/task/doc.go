// Package task defines the core task-graph model: content-addressed node
// keys, the callable-plus-arguments spec held at each node, and the graph
// itself as a key-to-spec mapping.
//
// Arguments form a small tagged union (Literal, Ref, List, Map) so that a
// literal value can never be mistaken for a node reference, no matter what
// its runtime representation looks like. The package also derives the
// dependency/dependent index for a graph and provides a deterministic
// topological ordering restricted to an arbitrary key subset; both are the
// analysis primitives the fusion pass is built on.
package task
