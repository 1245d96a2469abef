package registry

import (
	"fmt"
	"log/slog"

	"github.com/seibert/metagraph/internal/fuse"
	"github.com/seibert/metagraph/internal/task"
)

// Module is the interface self-registering callable collections implement.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered callables and backends for one application
// instance.
type Registry struct {
	callables map[string]*task.Callable
	backends  map[string]fuse.Backend
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		callables: make(map[string]*task.Callable),
		backends:  make(map[string]fuse.Backend),
	}
}

// RegisterCallable adds a callable under its name.
func (r *Registry) RegisterCallable(c *task.Callable) {
	if _, exists := r.callables[c.Name]; exists {
		panic(fmt.Sprintf("callable with name '%s' already registered", c.Name))
	}
	slog.Debug("Registering callable.", "name", c.Name, "backend", c.Backend)
	r.callables[c.Name] = c
}

// Callable looks up a callable by name.
func (r *Registry) Callable(name string) (*task.Callable, bool) {
	c, ok := r.callables[name]
	return c, ok
}

// RegisterBackend adds a compilation backend under its name.
func (r *Registry) RegisterBackend(b fuse.Backend) {
	if _, exists := r.backends[b.Name()]; exists {
		panic(fmt.Sprintf("backend with name '%s' already registered", b.Name()))
	}
	slog.Debug("Registering backend.", "name", b.Name())
	r.backends[b.Name()] = b
}

// Backend looks up a backend by name.
func (r *Registry) Backend(name string) (fuse.Backend, bool) {
	b, ok := r.backends[name]
	return b, ok
}
