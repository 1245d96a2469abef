package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/seibert/metagraph/internal/builtins"
	"github.com/seibert/metagraph/internal/ctxlog"
	"github.com/seibert/metagraph/internal/executor"
	"github.com/seibert/metagraph/internal/fuse"
	"github.com/seibert/metagraph/internal/hclgraph"
	"github.com/seibert/metagraph/internal/interp"
	"github.com/seibert/metagraph/internal/registry"
	"github.com/seibert/metagraph/internal/task"
)

// coreModules are registered when the caller supplies none.
var coreModules = []registry.Module{builtins.Module{}}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
}

// NewApp returns a fully initialized App instance, including its own
// isolated logger and registry.
func NewApp(outW io.Writer, errW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	reg.RegisterBackend(interp.New())
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Run loads the graph, runs the optimization pass, executes the result, and
// prints the requested outputs.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	graph, outputs, err := hclgraph.LoadFile(ctx, a.config.GraphPath, a.registry)
	if err != nil {
		return fmt.Errorf("failed to load task graph: %w", err)
	}
	a.logger.Debug("Task graph loaded.", "node_count", len(graph))

	var backend fuse.Backend
	if a.config.Backend != "" {
		b, ok := a.registry.Backend(a.config.Backend)
		if !ok {
			return fmt.Errorf("unknown backend %q", a.config.Backend)
		}
		backend = b
		if err := backend.InitializeRuntime(ctx); err != nil {
			return fmt.Errorf("backend %q initialization failed: %w", backend.Name(), err)
		}
		defer func() {
			if err := backend.TeardownRuntime(ctx); err != nil {
				a.logger.Warn("Backend teardown failed.", "backend", backend.Name(), "error", err)
			}
		}()
	}

	optimized, err := fuse.Optimize(ctx, graph, outputs, backend)
	if err != nil {
		return fmt.Errorf("optimization pass failed: %w", err)
	}
	if fusedCount := len(graph) - len(optimized); fusedCount > 0 {
		a.logger.Info("Fusion pass rewrote graph.", "before", len(graph), "after", len(optimized))
	}

	a.logger.Info("Starting concurrent execution...")
	exec := executor.New(optimized, a.config.WorkerCount)
	results, err := exec.Run(ctx, outputs)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.")

	keys := make([]task.Key, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(a.outW, "%s = %v\n", k, results[k])
	}
	return nil
}
