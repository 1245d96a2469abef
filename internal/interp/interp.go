package interp

import (
	"context"
	"fmt"

	"github.com/seibert/metagraph/internal/ctxlog"
	"github.com/seibert/metagraph/internal/fuse"
	"github.com/seibert/metagraph/internal/task"
)

// BackendName is the tag claimed by this backend.
const BackendName = "interp"

// Backend implements fuse.Backend by sequential in-process evaluation.
type Backend struct{}

// New creates the interpreter backend.
func New() *Backend {
	return &Backend{}
}

// Name implements fuse.Backend.
func (b *Backend) Name() string {
	return BackendName
}

// InitializeRuntime implements fuse.Backend. The interpreter needs no
// process-wide state.
func (b *Backend) InitializeRuntime(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Interpreter runtime initialized.")
	return nil
}

// TeardownRuntime implements fuse.Backend.
func (b *Backend) TeardownRuntime(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Interpreter runtime torn down.")
	return nil
}

// CompileSubgraph implements fuse.Backend. It refuses, with a
// *fuse.CompileError, any chain containing a task it cannot evaluate
// directly; refusal leaves the caller free to run the chain unfused.
func (b *Backend) CompileSubgraph(ctx context.Context, tasks task.Graph, inputKeys []task.Key, outputKey task.Key) (task.Func, error) {
	for k, spec := range tasks {
		if spec.Callable == nil || spec.Callable.Fn == nil {
			return nil, &fuse.CompileError{
				Backend: BackendName,
				Reason:  fmt.Sprintf("task %q has no directly evaluable callable", k),
			}
		}
	}
	if _, ok := tasks[outputKey]; !ok {
		return nil, &fuse.CompileError{
			Backend: BackendName,
			Reason:  fmt.Sprintf("output key %q not among tasks", outputKey),
		}
	}

	// Evaluation order is fixed at compile time; the subgraph's own index is
	// enough because interior edges are all chain edges.
	order := task.Toposort(tasks.Keys(), task.NewIndex(tasks))
	ctxlog.FromContext(ctx).Debug("Compiled subgraph.", "output_key", outputKey, "tasks", len(order))

	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		if len(args) != len(inputKeys) {
			return nil, fmt.Errorf("fused callable for %q: got %d arguments, want %d", outputKey, len(args), len(inputKeys))
		}
		values := make(map[task.Key]any, len(inputKeys)+len(order))
		for i, k := range inputKeys {
			values[k] = args[i]
		}
		for _, k := range order {
			out, err := evalSpec(ctx, tasks[k], values)
			if err != nil {
				return nil, fmt.Errorf("fused task %q: %w", k, err)
			}
			values[k] = out
		}
		return values[outputKey], nil
	}, nil
}

// CompileAlgorithm implements fuse.Backend for a single node. References in
// the spec are bound from literals by key spelling.
func (b *Backend) CompileAlgorithm(ctx context.Context, spec task.Spec, literals map[string]any) (task.Func, error) {
	if spec.Callable == nil || spec.Callable.Fn == nil {
		return nil, &fuse.CompileError{Backend: BackendName, Reason: "spec has no directly evaluable callable"}
	}
	ctxlog.FromContext(ctx).Debug("Compiled algorithm.", "callable", spec.Callable.Name)

	values := make(map[task.Key]any, len(literals))
	for name, v := range literals {
		values[task.Key(name)] = v
	}
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return evalSpec(ctx, spec, values)
	}, nil
}

// evalSpec resolves a spec's arguments against bound values and invokes it.
func evalSpec(ctx context.Context, spec task.Spec, values map[task.Key]any) (any, error) {
	args := make([]any, len(spec.Args))
	for i, arg := range spec.Args {
		v, err := evalArg(arg, values)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	var kwargs map[string]any
	if spec.Keyword() {
		kwargs = make(map[string]any, len(spec.Kwargs))
		for name, arg := range spec.Kwargs {
			v, err := evalArg(arg, values)
			if err != nil {
				return nil, err
			}
			kwargs[name] = v
		}
	}
	return spec.Callable.Fn(ctx, args, kwargs)
}

func evalArg(arg task.Argument, values map[task.Key]any) (any, error) {
	switch arg := arg.(type) {
	case task.Literal:
		return arg.Value, nil
	case task.Ref:
		v, ok := values[arg.Key]
		if !ok {
			return nil, fmt.Errorf("unbound reference %q", arg.Key)
		}
		return v, nil
	case task.List:
		elems := make([]any, len(arg.Elems))
		for i, elem := range arg.Elems {
			v, err := evalArg(elem, values)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return elems, nil
	case task.Map:
		entries := make(map[string]any, len(arg.Entries))
		for name, elem := range arg.Entries {
			v, err := evalArg(elem, values)
			if err != nil {
				return nil, err
			}
			entries[name] = v
		}
		return entries, nil
	}
	return nil, fmt.Errorf("unknown argument variant %T", arg)
}
