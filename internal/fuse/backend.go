package fuse

import (
	"context"
	"fmt"

	"github.com/seibert/metagraph/internal/task"
)

// Backend is the compilation backend contract. The registry layer decides
// which backend instance a graph is optimized with; this package only
// consumes the interface.
//
// InitializeRuntime and TeardownRuntime are process-wide lifecycle hooks
// owned by whoever orchestrates optimization across graphs. The fusion pass
// never calls them and tolerates any number of invocations between one
// initialize/teardown pair.
type Backend interface {
	// Name identifies which tagged nodes this backend may claim.
	Name() string

	InitializeRuntime(ctx context.Context) error
	TeardownRuntime(ctx context.Context) error

	// CompileAlgorithm compiles a single node with the given literal
	// bindings (keyed by the spelling of the unresolved reference).
	CompileAlgorithm(ctx context.Context, spec task.Spec, literals map[string]any) (task.Func, error)

	// CompileSubgraph compiles a linear chain into one callable. Invoked
	// with positional arguments in the exact order of inputKeys, the
	// returned callable must produce the value the chain would have
	// produced for outputKey under the same bindings. Chains the backend
	// cannot handle are refused with a *CompileError; any other error is a
	// backend bug.
	CompileSubgraph(ctx context.Context, tasks task.Graph, inputKeys []task.Key, outputKey task.Key) (task.Func, error)
}

// CompileError is the recoverable refusal a backend signals when it cannot
// compile a particular node or chain.
type CompileError struct {
	Backend string
	Reason  string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %q cannot compile: %s: %v", e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("backend %q cannot compile: %s", e.Backend, e.Reason)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
