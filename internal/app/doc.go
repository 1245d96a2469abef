// Package app wires the pieces together for the CLI: logger construction,
// registry population, graph loading, the optimization pass, and execution.
package app
