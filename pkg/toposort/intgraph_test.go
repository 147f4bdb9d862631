package toposort_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/codeflat/pkg/toposort"
)

func TestIntGraph_Basic(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph()
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 2)

	sorted, ok := graph.TopoSort()
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, sorted)
}

func TestIntGraph_Empty(t *testing.T) {
	t.Parallel()

	sorted, ok := toposort.NewIntGraph().TopoSort()
	assert.True(t, ok)
	assert.Empty(t, sorted)
}

func TestIntGraph_Cycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph()
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 0)
	graph.AddEdge(2, 0)

	sorted, ok := graph.TopoSort()
	assert.False(t, ok)
	assert.Equal(t, []int{2}, sorted)
	assert.Equal(t, []int{0, 1}, graph.Unordered(sorted))
}

func TestIntGraph_SelfEdgeIsCycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph()
	graph.AddEdge(0, 0)

	_, ok := graph.TopoSort()
	assert.False(t, ok)
	assert.Equal(t, []int{0, 0}, graph.FindCycle(0))
}

func TestIntGraph_DuplicateEdge(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph()
	assert.True(t, graph.AddEdge(0, 1))
	assert.False(t, graph.AddEdge(0, 1))
	assert.Equal(t, []int{1}, graph.Successors(0))
	assert.Nil(t, graph.Successors(7))
}

func TestIntGraph_Complex(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph()
	// 3 -> 0.
	// 3 -> 1.
	// 0 -> 2.
	// 1 -> 2.
	graph.AddEdge(3, 0)
	graph.AddEdge(3, 1)
	graph.AddEdge(0, 2)
	graph.AddEdge(1, 2)

	sorted, ok := graph.TopoSort()
	assert.True(t, ok)

	// 3 first, then the ready vertices by ID, then 2.
	assert.Equal(t, []int{3, 0, 1, 2}, sorted)
}

func TestIntGraph_Disconnected(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph()
	graph.AddNode(2) // Creates 0, 1, 2.
	graph.AddEdge(0, 1)

	sorted, ok := graph.TopoSort()
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, sorted)
	assert.Equal(t, 3, graph.Len())
}

func TestIntGraph_FindCycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph()
	// 0 -> 1 -> 2 -> 0.
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 2)
	graph.AddEdge(2, 0)

	assert.Equal(t, []int{0, 1, 2, 0}, graph.FindCycle(0))
	assert.Empty(t, graph.FindCycle(42))
}
