package deferred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seibert/metagraph/internal/task"
)

var (
	load = &task.Callable{Name: "load", Backend: "interp"}
	mul  = &task.Callable{Name: "mul", Backend: "interp"}
)

// stubValue is a deferred-like collaborator under the test's control.
type stubValue struct {
	key   task.Key
	graph task.Graph
}

func (s stubValue) Key() task.Key     { return s.key }
func (s stubValue) Graph() task.Graph { return s.graph }

func TestBuild(t *testing.T) {
	t.Run("plain values are quoted as literals", func(t *testing.T) {
		n, err := Build(mul, []any{2.0, "x"}, nil)
		require.NoError(t, err)

		spec := n.Graph()[n.Key()]
		require.Len(t, spec.Args, 2)
		assert.Equal(t, task.Literal{Value: 2.0}, spec.Args[0])
		// A string that could be spelled like a key stays a literal.
		assert.Equal(t, task.Literal{Value: "x"}, spec.Args[1])
		assert.False(t, spec.Keyword())
	})

	t.Run("deferred arguments become references and merge their fragments", func(t *testing.T) {
		a, err := Build(load, []any{"input"}, nil)
		require.NoError(t, err)

		b, err := Build(mul, []any{a, 3.0}, nil)
		require.NoError(t, err)

		spec := b.Graph()[b.Key()]
		assert.Equal(t, task.Ref{Key: a.Key()}, spec.Args[0])
		assert.Contains(t, b.Graph(), a.Key(), "argument fragment must be merged in")
		assert.Len(t, b.Graph(), 2)
	})

	t.Run("quoting recurses through containers", func(t *testing.T) {
		a, err := Build(load, []any{"input"}, nil)
		require.NoError(t, err)

		b, err := Build(mul, []any{[]any{a, 3.0}}, nil)
		require.NoError(t, err)

		spec := b.Graph()[b.Key()]
		list, ok := spec.Args[0].(task.List)
		require.True(t, ok)
		assert.Equal(t, task.Ref{Key: a.Key()}, list.Elems[0])
		assert.Equal(t, task.Literal{Value: 3.0}, list.Elems[1])
		assert.Contains(t, b.Graph(), a.Key())
	})

	t.Run("keyword arguments select the apply form", func(t *testing.T) {
		n, err := Build(mul, []any{2.0}, map[string]any{"factor": 10.0})
		require.NoError(t, err)

		spec := n.Graph()[n.Key()]
		assert.True(t, spec.Keyword())
		assert.Equal(t, task.Literal{Value: 10.0}, spec.Kwargs["factor"])
	})

	t.Run("content addressing shares identical subexpressions", func(t *testing.T) {
		a1, err := Build(load, []any{"input"}, nil)
		require.NoError(t, err)
		a2, err := Build(load, []any{"input"}, nil)
		require.NoError(t, err)
		require.Equal(t, a1.Key(), a2.Key())

		// Using both independently built copies must not conflict.
		n, err := Build(mul, []any{a1, a2}, nil)
		require.NoError(t, err)
		assert.Len(t, n.Graph(), 2)
	})

	t.Run("conflicting fragments are rejected", func(t *testing.T) {
		shared := task.Key("shared")
		x := stubValue{key: shared, graph: task.Graph{
			shared: {Callable: load, Args: []task.Argument{task.Literal{Value: "one"}}},
		}}
		y := stubValue{key: shared, graph: task.Graph{
			shared: {Callable: load, Args: []task.Argument{task.Literal{Value: "two"}}},
		}}

		_, err := Build(mul, []any{x, y}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSpecConflict)
	})

	t.Run("deferred value without a key is a malformed collaborator", func(t *testing.T) {
		_, err := Build(mul, []any{stubValue{}}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoKey)
	})

	t.Run("building mutates no input fragment", func(t *testing.T) {
		a, err := Build(load, []any{"input"}, nil)
		require.NoError(t, err)
		before := len(a.Graph())

		_, err = Build(mul, []any{a, 3.0}, nil)
		require.NoError(t, err)
		assert.Len(t, a.Graph(), before)
	})
}
