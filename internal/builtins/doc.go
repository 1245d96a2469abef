// Package builtins registers the stock callables shipped with the CLI.
// Arithmetic and aggregation callables are tagged for the interpreter
// backend so graphs built from them are fusable; formatting callables are
// untagged and always run on the engine.
package builtins
