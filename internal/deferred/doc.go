// Package deferred builds individual task-graph nodes. Each Build call
// produces one immutable node: an output key plus the minimal graph fragment
// needed to compute it, transitively closed over the fragments of any
// deferred arguments it consumed.
package deferred
