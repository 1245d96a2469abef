// Package fuse is the fusion compiler pass. It scans a task graph for
// maximal linear chains of nodes tagged for one compilation backend, asks
// the backend to compile each chain into a single fused callable, and
// rewrites the graph so the chain becomes one node.
//
// The rewrite is transactional per chain: a chain the backend cannot compile
// is left completely unmodified, and one chain's failure never touches a
// sibling chain. The input graph itself is never mutated.
package fuse
