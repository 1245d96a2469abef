// Package registry is the tagging collaborator for the fusion pass. It maps
// callable names to their *task.Callable (each carrying its backend tag) and
// backend names to Backend instances. Frontends resolve the names appearing
// in graph definitions through it.
//
// Registration happens at startup; a duplicate registration is a programmer
// error and panics.
package registry
