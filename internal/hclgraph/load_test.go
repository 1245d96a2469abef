package hclgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seibert/metagraph/internal/registry"
	"github.com/seibert/metagraph/internal/task"
)

func testRegistry() *registry.Registry {
	r := registry.New()
	r.RegisterCallable(&task.Callable{Name: "iota", Backend: "interp"})
	r.RegisterCallable(&task.Callable{Name: "sum", Backend: "interp"})
	r.RegisterCallable(&task.Callable{Name: "scale", Backend: "interp"})
	return r
}

func TestParse(t *testing.T) {
	ctx := context.Background()

	t.Run("nodes, references and outputs", func(t *testing.T) {
		src := `
node "a" {
  call = "iota"
  args = [4]
}

node "b" {
  call = "sum"
  args = [node.a]
}

outputs = ["b"]
`
		g, outputs, err := Parse(ctx, []byte(src), "graph.hcl", testRegistry())
		require.NoError(t, err)
		require.Len(t, g, 2)
		assert.Equal(t, []task.Key{"b"}, outputs)

		specA := g["a"]
		require.NotNil(t, specA.Callable)
		assert.Equal(t, "iota", specA.Callable.Name)
		assert.Equal(t, []task.Argument{task.Literal{Value: 4.0}}, specA.Args)

		specB := g["b"]
		assert.Equal(t, []task.Argument{task.Ref{Key: "a"}}, specB.Args)
	})

	t.Run("declaration order does not matter", func(t *testing.T) {
		src := `
node "b" {
  call = "sum"
  args = [node.a]
}

node "a" {
  call = "iota"
  args = [2]
}
`
		g, outputs, err := Parse(ctx, []byte(src), "graph.hcl", testRegistry())
		require.NoError(t, err)
		assert.Len(t, g, 2)
		// No outputs attribute: every node is an output, in key order.
		assert.Equal(t, []task.Key{"a", "b"}, outputs)
	})

	t.Run("kwargs produce the keyword form", func(t *testing.T) {
		src := `
node "a" {
  call = "iota"
  args = [3]
}

node "b" {
  call   = "scale"
  args   = [node.a]
  kwargs = { factor = 2 }
}
`
		g, _, err := Parse(ctx, []byte(src), "graph.hcl", testRegistry())
		require.NoError(t, err)

		spec := g["b"]
		require.True(t, spec.Keyword())
		assert.Equal(t, task.Literal{Value: 2.0}, spec.Kwargs["factor"])
	})

	t.Run("references nest inside containers", func(t *testing.T) {
		src := `
node "a" {
  call = "iota"
  args = [1]
}

node "b" {
  call = "sum"
  args = [[node.a, 9]]
}
`
		g, _, err := Parse(ctx, []byte(src), "graph.hcl", testRegistry())
		require.NoError(t, err)

		list, ok := g["b"].Args[0].(task.List)
		require.True(t, ok)
		assert.Equal(t, task.Ref{Key: "a"}, list.Elems[0])
		assert.Equal(t, task.Literal{Value: 9.0}, list.Elems[1])
	})

	t.Run("unknown callable is rejected", func(t *testing.T) {
		src := `
node "a" {
  call = "nope"
}
`
		_, _, err := Parse(ctx, []byte(src), "graph.hcl", testRegistry())
		require.Error(t, err)
		assert.ErrorContains(t, err, "unknown callable")
	})

	t.Run("duplicate node ids are rejected", func(t *testing.T) {
		src := `
node "a" {
  call = "iota"
}

node "a" {
  call = "sum"
}
`
		_, _, err := Parse(ctx, []byte(src), "graph.hcl", testRegistry())
		require.Error(t, err)
		assert.ErrorContains(t, err, "duplicate node")
	})

	t.Run("undeclared output is rejected", func(t *testing.T) {
		src := `
node "a" {
  call = "iota"
}

outputs = ["ghost"]
`
		_, _, err := Parse(ctx, []byte(src), "graph.hcl", testRegistry())
		require.Error(t, err)
		assert.ErrorContains(t, err, "not a declared node")
	})

	t.Run("reference cycles are rejected", func(t *testing.T) {
		src := `
node "a" {
  call = "sum"
  args = [node.b]
}

node "b" {
  call = "sum"
  args = [node.a]
}
`
		_, _, err := Parse(ctx, []byte(src), "graph.hcl", testRegistry())
		require.Error(t, err)
		assert.ErrorContains(t, err, "cycle detected")
	})
}
