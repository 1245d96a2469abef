package builtins

import (
	"context"
	"fmt"

	"github.com/seibert/metagraph/internal/interp"
	"github.com/seibert/metagraph/internal/registry"
	"github.com/seibert/metagraph/internal/task"
)

// Module registers the builtin callables.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.RegisterCallable(&task.Callable{Name: "iota", Backend: interp.BackendName, Fn: iotaFn})
	r.RegisterCallable(&task.Callable{Name: "sum", Backend: interp.BackendName, Fn: sumFn})
	r.RegisterCallable(&task.Callable{Name: "add", Backend: interp.BackendName, Fn: addFn})
	r.RegisterCallable(&task.Callable{Name: "mul", Backend: interp.BackendName, Fn: mulFn})
	r.RegisterCallable(&task.Callable{Name: "scale", Backend: interp.BackendName, Fn: scaleFn})
	r.RegisterCallable(&task.Callable{Name: "sprintf", Fn: sprintfFn})
}

// iotaFn produces [0, 1, ..., n-1].
func iotaFn(_ context.Context, args []any, _ map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("iota: want 1 argument, got %d", len(args))
	}
	n, err := toFloat(args[0])
	if err != nil {
		return nil, fmt.Errorf("iota: %w", err)
	}
	out := make([]any, int(n))
	for i := range out {
		out[i] = float64(i)
	}
	return out, nil
}

func sumFn(_ context.Context, args []any, _ map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("sum: want 1 argument, got %d", len(args))
	}
	elems, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("sum: want a list, got %T", args[0])
	}
	total := 0.0
	for _, elem := range elems {
		f, err := toFloat(elem)
		if err != nil {
			return nil, fmt.Errorf("sum: %w", err)
		}
		total += f
	}
	return total, nil
}

func addFn(_ context.Context, args []any, _ map[string]any) (any, error) {
	return fold("add", args, 0, func(acc, f float64) float64 { return acc + f })
}

func mulFn(_ context.Context, args []any, _ map[string]any) (any, error) {
	return fold("mul", args, 1, func(acc, f float64) float64 { return acc * f })
}

// scaleFn multiplies its argument by the "factor" keyword argument; it
// exists to exercise the keyword-application form.
func scaleFn(_ context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("scale: want 1 argument, got %d", len(args))
	}
	v, err := toFloat(args[0])
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	factor := 1.0
	if raw, ok := kwargs["factor"]; ok {
		if factor, err = toFloat(raw); err != nil {
			return nil, fmt.Errorf("scale: factor: %w", err)
		}
	}
	return v * factor, nil
}

func sprintfFn(_ context.Context, args []any, _ map[string]any) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("sprintf: want a format argument")
	}
	format, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("sprintf: format must be a string, got %T", args[0])
	}
	return fmt.Sprintf(format, args[1:]...), nil
}

func fold(name string, args []any, init float64, combine func(acc, f float64) float64) (any, error) {
	acc := init
	for _, arg := range args {
		f, err := toFloat(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		acc = combine(acc, f)
	}
	return acc, nil
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("want a number, got %T", v)
}
