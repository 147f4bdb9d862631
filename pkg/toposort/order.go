package toposort

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/codeflat/pkg/sourcegraph"
)

// Sentinel errors.
var (
	// ErrCyclicDependency matches every *CyclicDependencyError via errors.Is.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrNilGraph indicates Order was called without a graph.
	ErrNilGraph = sourcegraph.ErrNilGraph
)

// CyclicDependencyError reports that the dependency relation has a cycle.
type CyclicDependencyError struct {
	// Cycle lists one cycle in import direction: each file imports the next,
	// and the last one imports the first.
	Cycle []string
	// Unsorted lists every file that could not be placed, in first-seen order.
	Unsorted []string
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return fmt.Sprintf("%s among %s", ErrCyclicDependency, strings.Join(e.Unsorted, ", "))
	}

	path := append(slices.Clone(e.Cycle), e.Cycle[0])

	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(path, " -> "))
}

// Is lets errors.Is match ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// Order returns the graph's files so that every file follows all files it
// depends on. Files that take part in no dependency edge come last, in their
// input order. A cycle fails with *CyclicDependencyError and no order.
func Order(graph *sourcegraph.Graph) ([]*sourcegraph.FileNode, error) {
	if graph == nil {
		return nil, ErrNilGraph
	}

	validateErr := graph.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	sorter := Build(graph)

	sortedNames, ok := sorter.Toposort()
	if !ok {
		return nil, newCyclicDependencyError(sorter, sortedNames, graph)
	}

	ordered := make([]*sourcegraph.FileNode, 0, graph.Len())
	emitted := make(map[string]struct{}, graph.Len())

	for _, name := range sortedNames {
		node, found := graph.Node(name)
		if !found {
			continue
		}

		ordered = append(ordered, node)
		emitted[name] = struct{}{}
	}

	for _, node := range graph.Nodes {
		if _, done := emitted[node.GlobalName]; done {
			continue
		}

		ordered = append(ordered, node)
		emitted[node.GlobalName] = struct{}{}
	}

	return ordered, nil
}

// Build loads the graph's dependency edges into a sorter, dependency first.
// Nodes without edges are left out. Edges are added in node order and, per
// node, in import order, which fixes the tie-break among ready files.
func Build(graph *sourcegraph.Graph) *Graph {
	sorter := NewGraph()

	for _, node := range graph.Nodes {
		for _, dep := range graph.Edges[node.GlobalName] {
			sorter.AddEdge(dep, node.GlobalName)
		}
	}

	return sorter
}

func newCyclicDependencyError(sorter *Graph, sorted []string, graph *sourcegraph.Graph) *CyclicDependencyError {
	unsorted := sorter.Unsorted(sorted)

	// The sorter's edges run dependency -> dependent; reverse into import order.
	cycle := sorter.AnyCycle(unsorted)
	slices.Reverse(cycle)

	return &CyclicDependencyError{
		Cycle:    rotateToFirstInput(cycle, graph),
		Unsorted: unsorted,
	}
}

// rotateToFirstInput rotates the cycle to start at the member listed first in
// the graph's node order, so the message does not depend on the search seed.
func rotateToFirstInput(cycle []string, graph *sourcegraph.Graph) []string {
	if len(cycle) < 2 {
		return cycle
	}

	members := make(map[string]int, len(cycle))
	for i, name := range cycle {
		members[name] = i
	}

	for _, node := range graph.Nodes {
		if start, ok := members[node.GlobalName]; ok {
			return append(slices.Clone(cycle[start:]), cycle[:start]...)
		}
	}

	return cycle
}
