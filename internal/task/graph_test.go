package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callable(name string) *Callable {
	return &Callable{Name: name}
}

func TestArgEqual(t *testing.T) {
	t.Run("literal never equals ref with same spelling", func(t *testing.T) {
		assert.False(t, ArgEqual(Literal{Value: "a"}, Ref{Key: "a"}))
		assert.False(t, ArgEqual(Ref{Key: "a"}, Literal{Value: "a"}))
	})

	t.Run("literals compare deeply", func(t *testing.T) {
		assert.True(t, ArgEqual(Literal{Value: []int{1, 2}}, Literal{Value: []int{1, 2}}))
		assert.False(t, ArgEqual(Literal{Value: []int{1, 2}}, Literal{Value: []int{2, 1}}))
	})

	t.Run("containers compare recursively", func(t *testing.T) {
		a := List{Elems: []Argument{Literal{Value: 1}, Ref{Key: "x"}}}
		b := List{Elems: []Argument{Literal{Value: 1}, Ref{Key: "x"}}}
		c := List{Elems: []Argument{Literal{Value: 1}, Literal{Value: "x"}}}
		assert.True(t, ArgEqual(a, b))
		assert.False(t, ArgEqual(a, c))

		m1 := Map{Entries: map[string]Argument{"k": Ref{Key: "x"}}}
		m2 := Map{Entries: map[string]Argument{"k": Ref{Key: "x"}}}
		m3 := Map{Entries: map[string]Argument{"k": Ref{Key: "y"}}}
		assert.True(t, ArgEqual(m1, m2))
		assert.False(t, ArgEqual(m1, m3))
	})
}

func TestSpecEqual(t *testing.T) {
	f := callable("f")

	t.Run("same computation is equal", func(t *testing.T) {
		a := Spec{Callable: f, Args: []Argument{Ref{Key: "x"}}}
		b := Spec{Callable: callable("f"), Args: []Argument{Ref{Key: "x"}}}
		assert.True(t, SpecEqual(a, b))
	})

	t.Run("positional and keyword forms differ", func(t *testing.T) {
		a := Spec{Callable: f}
		b := Spec{Callable: f, Kwargs: map[string]Argument{}}
		assert.False(t, SpecEqual(a, b))
	})

	t.Run("backend tag is part of identity", func(t *testing.T) {
		a := Spec{Callable: &Callable{Name: "f", Backend: "x"}}
		b := Spec{Callable: &Callable{Name: "f", Backend: "y"}}
		assert.False(t, SpecEqual(a, b))
	})
}

func TestGraphCopy(t *testing.T) {
	g := Graph{
		"a": {Callable: callable("f")},
		"b": {Callable: callable("g"), Args: []Argument{Ref{Key: "a"}}},
	}
	cp := g.Copy()
	require.Len(t, cp, 2)

	delete(cp, "a")
	assert.Len(t, g, 2, "copy must be independent of the original")
}

func TestGraphKeys(t *testing.T) {
	g := Graph{"c": {}, "a": {}, "b": {}}
	assert.Equal(t, []Key{"a", "b", "c"}, g.Keys())
}

func TestGraphValidate(t *testing.T) {
	t.Run("complete acyclic graph passes", func(t *testing.T) {
		g := Graph{
			"a": {Callable: callable("f")},
			"b": {Callable: callable("g"), Args: []Argument{Ref{Key: "a"}}},
		}
		assert.NoError(t, g.Validate())
	})

	t.Run("missing reference is rejected", func(t *testing.T) {
		g := Graph{
			"b": {Callable: callable("g"), Args: []Argument{Ref{Key: "a"}}},
		}
		err := g.Validate()
		require.Error(t, err)
		assert.ErrorContains(t, err, "missing key")
	})

	t.Run("reference nested in a container is still checked", func(t *testing.T) {
		g := Graph{
			"b": {Callable: callable("g"), Args: []Argument{
				List{Elems: []Argument{Literal{Value: 1}, Ref{Key: "gone"}}},
			}},
		}
		assert.ErrorContains(t, g.Validate(), "missing key")
	})

	t.Run("cycle is detected", func(t *testing.T) {
		g := Graph{
			"a": {Callable: callable("f"), Args: []Argument{Ref{Key: "b"}}},
			"b": {Callable: callable("g"), Args: []Argument{Ref{Key: "a"}}},
		}
		err := g.Validate()
		require.Error(t, err)
		assert.ErrorContains(t, err, "cycle detected")
	})
}
