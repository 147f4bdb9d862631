package toposort_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codeflat/pkg/sourcegraph"
	"github.com/Sumatoshi-tech/codeflat/pkg/toposort"
)

// dependsOn is a "from depends on to" pair.
type dependsOn struct {
	from string
	to   string
}

func newSourceGraph(t *testing.T, names []string, deps ...dependsOn) *sourcegraph.Graph {
	t.Helper()

	graph := sourcegraph.NewGraph()
	for _, name := range names {
		require.NoError(t, graph.AddNode(sourcegraph.NewFileNode(name, "contract "+name+" {}")))
	}

	for _, dep := range deps {
		require.NoError(t, graph.AddDependency(dep.from, dep.to))
	}

	return graph
}

// orderNames reduces Order to global names.
func orderNames(graph *sourcegraph.Graph) ([]string, error) {
	ordered, err := toposort.Order(graph)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(ordered))
	for i, node := range ordered {
		names[i] = node.GlobalName
	}

	return names, nil
}

func TestOrder_Chain(t *testing.T) {
	t.Parallel()

	graph := newSourceGraph(t, []string{"A", "B", "C"}, dependsOn{"A", "B"}, dependsOn{"B", "C"})

	names, err := orderNames(graph)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, names)
}

func TestOrder_TwoNodeCycle(t *testing.T) {
	t.Parallel()

	graph := newSourceGraph(t, []string{"A", "B"}, dependsOn{"A", "B"}, dependsOn{"B", "A"})

	ordered, err := toposort.Order(graph)
	require.Error(t, err)
	assert.Nil(t, ordered)
	require.ErrorIs(t, err, toposort.ErrCyclicDependency)

	var cycleErr *toposort.CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B"}, cycleErr.Cycle)
	assert.Equal(t, []string{"B", "A"}, cycleErr.Unsorted)
	assert.Equal(t, "cyclic dependency: A -> B -> A", cycleErr.Error())
}

func TestOrder_EdgelessNodesLast(t *testing.T) {
	t.Parallel()

	graph := newSourceGraph(t, []string{"A", "B", "X"}, dependsOn{"A", "B"})

	names, err := orderNames(graph)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "X"}, names)
}

func TestOrder_EdgelessNodesKeepInputOrder(t *testing.T) {
	t.Parallel()

	graph := newSourceGraph(t, []string{"Z", "A", "Y", "B", "X"}, dependsOn{"A", "B"})

	names, err := orderNames(graph)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "Z", "Y", "X"}, names)
}

func TestOrder_SelfDependencyIsCycle(t *testing.T) {
	t.Parallel()

	graph := newSourceGraph(t, []string{"A", "B"}, dependsOn{"A", "A"})

	_, err := toposort.Order(graph)
	require.ErrorIs(t, err, toposort.ErrCyclicDependency)

	var cycleErr *toposort.CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A"}, cycleErr.Cycle)
}

func TestOrder_CycleBehindAcyclicPrefix(t *testing.T) {
	t.Parallel()

	graph := newSourceGraph(t, []string{"Main", "Lib", "Token", "Math"},
		dependsOn{"Main", "Lib"},
		dependsOn{"Lib", "Token"},
		dependsOn{"Token", "Math"},
		dependsOn{"Math", "Lib"},
	)

	_, err := toposort.Order(graph)

	var cycleErr *toposort.CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"Lib", "Token", "Math"}, cycleErr.Cycle)
	assert.Contains(t, err.Error(), "Lib -> Token -> Math -> Lib")
}

func TestOrder_DanglingEdge(t *testing.T) {
	t.Parallel()

	graph := &sourcegraph.Graph{
		Nodes: []*sourcegraph.FileNode{sourcegraph.NewFileNode("A", "")},
		Edges: map[string][]string{"A": {"Ghost"}},
	}

	_, err := toposort.Order(graph)
	require.ErrorIs(t, err, sourcegraph.ErrUnknownNode)
	assert.NotErrorIs(t, err, toposort.ErrCyclicDependency)
}

func TestOrder_DuplicateNode(t *testing.T) {
	t.Parallel()

	graph := &sourcegraph.Graph{
		Nodes: []*sourcegraph.FileNode{
			sourcegraph.NewFileNode("A", "one"),
			sourcegraph.NewFileNode("A", "two"),
		},
	}

	_, err := toposort.Order(graph)
	require.ErrorIs(t, err, sourcegraph.ErrDuplicateNode)
}

func TestOrder_NilAndEmpty(t *testing.T) {
	t.Parallel()

	_, err := toposort.Order(nil)
	require.ErrorIs(t, err, toposort.ErrNilGraph)

	ordered, err := toposort.Order(sourcegraph.NewGraph())
	require.NoError(t, err)
	assert.Empty(t, ordered)
}

func TestOrder_ReturnsInputNodes(t *testing.T) {
	t.Parallel()

	graph := newSourceGraph(t, []string{"A", "B"}, dependsOn{"A", "B"})

	ordered, err := toposort.Order(graph)
	require.NoError(t, err)
	require.Len(t, ordered, 2)

	b, _ := graph.Node("B")
	assert.Same(t, b, ordered[0])
}

func TestOrder_Deterministic(t *testing.T) {
	t.Parallel()

	graph := newSourceGraph(t, []string{"A", "B", "C", "D"},
		dependsOn{"A", "C"}, dependsOn{"A", "B"}, dependsOn{"D", "B"})

	first, err := orderNames(graph)
	require.NoError(t, err)

	for range 20 {
		again, againErr := orderNames(graph)
		require.NoError(t, againErr)
		assert.Equal(t, first, again)
	}

	// Vertices are interned as C, A, B, D; ready ties go to the earliest.
	assert.Equal(t, []string{"C", "B", "A", "D"}, first)
}

// randomDAG builds a graph whose edges only point from higher to lower
// indexes, so it is acyclic. Roughly a third of the nodes stay edgeless.
func randomDAG(t *testing.T, rng *rand.Rand, size int) *sourcegraph.Graph {
	t.Helper()

	names := make([]string, size)
	for i := range names {
		names[i] = fmt.Sprintf("F%02d.sol", i)
	}

	// Shuffle the input order so that it does not coincide with a valid order.
	perm := rng.Perm(size)
	shuffled := make([]string, size)

	for i, p := range perm {
		shuffled[i] = names[p]
	}

	var deps []dependsOn

	for from := 1; from < size; from++ {
		if rng.IntN(3) == 0 {
			continue
		}

		for to := range from {
			if rng.IntN(4) == 0 {
				deps = append(deps, dependsOn{names[from], names[to]})
			}
		}
	}

	return newSourceGraph(t, shuffled, deps...)
}

func reachable(graph *sourcegraph.Graph, from string) map[string]bool {
	seen := map[string]bool{}
	stack := slices.Clone(graph.Edges[from])

	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[name] {
			continue
		}

		seen[name] = true
		stack = append(stack, graph.Edges[name]...)
	}

	return seen
}

func hasEdges(graph *sourcegraph.Graph, name string) bool {
	return len(graph.Edges[name]) > 0 || len(graph.Dependents(name)) > 0
}

func TestOrder_RandomDAGProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(42, 7))

	for iteration := range 50 {
		graph := randomDAG(t, rng, 2+rng.IntN(20))

		names, err := orderNames(graph)
		require.NoError(t, err, "iteration %d", iteration)

		position := make(map[string]int, len(names))
		for i, name := range names {
			_, dup := position[name]
			require.False(t, dup, "iteration %d: %s emitted twice", iteration, name)

			position[name] = i
		}

		require.Len(t, names, graph.Len(), "iteration %d", iteration)

		for _, node := range graph.Nodes {
			for dep := range reachable(graph, node.GlobalName) {
				assert.Less(t, position[dep], position[node.GlobalName],
					"iteration %d: %s must precede %s", iteration, dep, node.GlobalName)
			}
		}

		var edgeless []string

		lastConnected := -1

		for _, node := range graph.Nodes {
			if hasEdges(graph, node.GlobalName) {
				lastConnected = max(lastConnected, position[node.GlobalName])
			} else {
				edgeless = append(edgeless, node.GlobalName)
			}
		}

		assert.Equal(t, edgeless, names[lastConnected+1:], "iteration %d", iteration)
	}
}

func TestOrder_RandomCycleAlwaysFails(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 14))

	for iteration := range 30 {
		graph := randomDAG(t, rng, 3+rng.IntN(15))

		// Close a cycle through two random nodes: a back edge plus a forward edge.
		low := graph.Nodes[rng.IntN(graph.Len())].GlobalName
		high := graph.Nodes[rng.IntN(graph.Len())].GlobalName

		require.NoError(t, graph.AddDependency(low, high))
		require.NoError(t, graph.AddDependency(high, low))

		ordered, err := toposort.Order(graph)
		assert.Nil(t, ordered, "iteration %d", iteration)

		var cycleErr *toposort.CyclicDependencyError
		require.True(t, errors.As(err, &cycleErr), "iteration %d: %v", iteration, err)
		require.NotEmpty(t, cycleErr.Cycle)

		// Every step of the reported cycle is a real dependency edge.
		for i, name := range cycleErr.Cycle {
			next := cycleErr.Cycle[(i+1)%len(cycleErr.Cycle)]
			assert.Contains(t, graph.Edges[name], next, "iteration %d", iteration)
		}
	}
}
