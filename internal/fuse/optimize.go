package fuse

import (
	"context"
	"errors"
	"fmt"

	"github.com/seibert/metagraph/internal/ctxlog"
	"github.com/seibert/metagraph/internal/task"
)

// CompileSubgraphs returns a graph with the backend's compilable chains
// fused together. The input graph is returned unchanged when nothing is
// extractable; otherwise a copy is mutated and returned, one chain at a
// time. A *CompileError from the backend skips that chain and leaves its
// tasks exactly as they were; any other backend error aborts the pass.
func CompileSubgraphs(ctx context.Context, g task.Graph, backend Backend) (task.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	subgraphs := Extract(g, backend.Name(), true)
	if len(subgraphs) == 0 {
		return g, nil
	}
	logger.Debug("Extracted compilable subgraphs.", "backend", backend.Name(), "count", len(subgraphs))

	out := g.Copy()
	for _, sg := range subgraphs {
		fused, err := backend.CompileSubgraph(ctx, sg.Tasks, sg.InputKeys, sg.OutputKey)
		if err != nil {
			var cerr *CompileError
			if errors.As(err, &cerr) {
				logger.Debug("Unable to compile subgraph, leaving chain unfused.",
					"output_key", sg.OutputKey, "error", err)
				continue
			}
			return nil, fmt.Errorf("backend %q failed on subgraph %q: %w", backend.Name(), sg.OutputKey, err)
		}

		// The one mutation, atomic per chain: drop the chain's tasks and put
		// the fused task in under the output task's old key.
		for k := range sg.Tasks {
			delete(out, k)
		}
		args := make([]task.Argument, len(sg.InputKeys))
		for i, k := range sg.InputKeys {
			args[i] = task.Ref{Key: k}
		}
		out[sg.OutputKey] = task.Spec{
			Callable: &task.Callable{Name: "fused-" + backend.Name(), Fn: fused},
			Args:     args,
		}
		logger.Debug("Fused chain.", "output_key", sg.OutputKey, "chain_len", len(sg.Tasks), "inputs", len(sg.InputKeys))
	}

	return out, nil
}

// Optimize is the top-level optimization pass, invoked once per graph before
// execution. With no backend selected it is the identity transform.
// outputKeys names the outputs the caller ultimately needs; fusion currently
// considers the whole graph, but the parameter is threaded through for
// future output-pruning passes.
func Optimize(ctx context.Context, g task.Graph, outputKeys []task.Key, backend Backend) (task.Graph, error) {
	_ = outputKeys
	if backend == nil {
		return g, nil
	}
	return CompileSubgraphs(ctx, g, backend)
}
