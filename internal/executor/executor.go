package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/seibert/metagraph/internal/ctxlog"
	"github.com/seibert/metagraph/internal/task"
)

// Node states used by the executor.
const (
	pending int32 = iota
	running
	done
	failed
)

// execNode is the runtime wrapper around one graph node.
type execNode struct {
	key        task.Key
	spec       task.Spec
	depCount   atomic.Int32
	dependents []*execNode
	state      atomic.Int32
	result     any
	err        error
	skipOnce   sync.Once
}

// Executor runs one task graph. Construct with New, run once with Run.
type Executor struct {
	graph      task.Graph
	numWorkers int
	nodes      map[task.Key]*execNode
	wg         sync.WaitGroup
}

// New creates an executor for g with the given worker-pool size.
func New(g task.Graph, numWorkers int) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Executor{graph: g, numWorkers: numWorkers}
}

// Run executes the whole graph and returns the values of the requested
// output keys. A nil outputs slice returns every node's value. Run respects
// cancellation of the provided context.
func (e *Executor) Run(ctx context.Context, outputs []task.Key) (map[task.Key]any, error) {
	logger := ctxlog.FromContext(ctx)

	if err := e.graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task graph: %w", err)
	}
	for _, k := range outputs {
		if _, ok := e.graph[k]; !ok {
			return nil, fmt.Errorf("requested output %q not present in graph", k)
		}
	}

	ix := task.NewIndex(e.graph)
	e.nodes = make(map[task.Key]*execNode, len(e.graph))
	for k, spec := range e.graph {
		e.nodes[k] = &execNode{key: k, spec: spec}
	}
	for k, n := range e.nodes {
		n.depCount.Store(int32(len(ix.Dependencies[k])))
		for dep := range ix.Dependents[k] {
			n.dependents = append(n.dependents, e.nodes[dep])
		}
	}

	readyChan := make(chan *execNode, len(e.nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootCount := 0
	for _, n := range e.nodes {
		if n.depCount.Load() == 0 {
			readyChan <- n
			rootCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootCount)

	e.wg.Add(len(e.nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	var failedKeys []string
	var rootCause error
	for _, n := range e.nodes {
		if n.state.Load() != failed {
			continue
		}
		logger.Error("Node failed execution.", "key", n.key, "error", n.err)
		// Skips are symptoms; only real failures can be the root cause.
		if n.err != nil && !strings.HasPrefix(n.err.Error(), "skipped") && !errors.Is(n.err, context.Canceled) {
			failedKeys = append(failedKeys, string(n.key))
			if rootCause == nil {
				rootCause = n.err
			}
		}
	}
	if rootCause != nil {
		return nil, fmt.Errorf("execution failed for %s: %w", strings.Join(failedKeys, ", "), rootCause)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if outputs == nil {
		outputs = e.graph.Keys()
	}
	results := make(map[task.Key]any, len(outputs))
	for _, k := range outputs {
		results[k] = e.nodes[k].result
	}
	return results, nil
}

// worker is the processing loop for one concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *execNode, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)

	for n := range readyChan {
		if ctx.Err() != nil {
			n.skipOnce.Do(func() {
				n.state.Store(failed)
				n.err = ctx.Err()
				e.wg.Done()
			})
			// Dependents will never become ready through the counter path
			// once this node is abandoned.
			e.skipDependents(ctx, n)
			continue
		}

		n.state.Store(running)
		result, err := e.invoke(ctx, n)
		if err != nil {
			logger.Error("Node execution failed.", "key", n.key, "error", err)
			n.state.Store(failed)
			n.err = err
			cancel()
			e.skipDependents(ctx, n)
			e.wg.Done()
			continue
		}

		n.result = result
		n.state.Store(done)

		for _, dependent := range n.dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// invoke resolves the node's arguments against completed dependencies and
// calls its callable.
func (e *Executor) invoke(ctx context.Context, n *execNode) (any, error) {
	if n.spec.Callable == nil || n.spec.Callable.Fn == nil {
		return nil, fmt.Errorf("task %q has no runnable callable", n.key)
	}

	args := make([]any, len(n.spec.Args))
	for i, arg := range n.spec.Args {
		v, err := e.resolve(arg)
		if err != nil {
			return nil, fmt.Errorf("task %q argument %d: %w", n.key, i, err)
		}
		args[i] = v
	}

	var kwargs map[string]any
	if n.spec.Keyword() {
		kwargs = make(map[string]any, len(n.spec.Kwargs))
		for name, arg := range n.spec.Kwargs {
			v, err := e.resolve(arg)
			if err != nil {
				return nil, fmt.Errorf("task %q keyword argument %q: %w", n.key, name, err)
			}
			kwargs[name] = v
		}
	}

	return n.spec.Callable.Fn(ctx, args, kwargs)
}

// resolve maps an argument to its runtime value. Reading a dependency's
// result field is safe: the write happened before the dependency counter
// release that made this node ready.
func (e *Executor) resolve(arg task.Argument) (any, error) {
	switch arg := arg.(type) {
	case task.Literal:
		return arg.Value, nil
	case task.Ref:
		dep, ok := e.nodes[arg.Key]
		if !ok {
			return nil, fmt.Errorf("reference to unknown key %q", arg.Key)
		}
		return dep.result, nil
	case task.List:
		elems := make([]any, len(arg.Elems))
		for i, elem := range arg.Elems {
			v, err := e.resolve(elem)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return elems, nil
	case task.Map:
		entries := make(map[string]any, len(arg.Entries))
		for name, elem := range arg.Entries {
			v, err := e.resolve(elem)
			if err != nil {
				return nil, err
			}
			entries[name] = v
		}
		return entries, nil
	}
	return nil, fmt.Errorf("unknown argument variant %T", arg)
}

// skipDependents recursively marks all downstream nodes as failed.
func (e *Executor) skipDependents(ctx context.Context, n *execNode) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "key", dependent.key, "dependency", n.key)
			dependent.state.Store(failed)
			dependent.err = fmt.Errorf("skipped due to upstream failure of %q", n.key)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}
