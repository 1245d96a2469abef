// Package executor materializes a task graph's outputs. It runs the graph
// concurrently with a bounded worker pool: nodes become ready when their
// dependency counters reach zero, a failure cancels the run and skips every
// downstream node, and per-node results are bound into dependent arguments
// as they complete.
//
// The fusion pass guarantees only that an optimized graph is observationally
// equivalent to the original; this executor is the discipline under which
// that equivalence is checked.
package executor
