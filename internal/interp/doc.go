// Package interp is the reference compilation backend. It "compiles" a
// linear chain by closing over its tasks: the fused callable binds the input
// values, evaluates the chain members in dependency order within a single
// call, and returns the terminal value. No per-node scheduling happens for a
// fused chain, which is the whole point of fusion.
package interp
