// Package toposort orders source files so that every file comes after the
// files it depends on, and reports dependency cycles.
package toposort

import (
	"bytes"
	"fmt"
	"sort"
)

// Graph is a directed graph over named vertices. An edge from -> to means
// "from" must precede "to" in the sorted output.
type Graph struct {
	symbols  *SymbolTable
	intGraph *IntGraph
}

// NewGraph initializes a new Graph.
func NewGraph() *Graph {
	return &Graph{
		symbols:  NewSymbolTable(),
		intGraph: NewIntGraph(),
	}
}

// AddNode inserts a vertex. Returns false if it already existed.
func (g *Graph) AddNode(name string) bool {
	if _, exists := g.symbols.Lookup(name); exists {
		return false
	}

	id := g.symbols.Intern(name)

	return g.intGraph.AddNode(id)
}

// AddEdge inserts the edge from -> to, creating both vertices on first use
// (source first). Returns the in-degree of "to" afterwards.
func (g *Graph) AddEdge(from, to string) int {
	u := g.symbols.Intern(from)
	v := g.symbols.Intern(to)

	g.intGraph.AddNode(u)
	g.intGraph.AddNode(v)
	g.intGraph.AddEdge(u, v)

	return g.intGraph.inDegree[v]
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return g.symbols.Len()
}

// Toposort sorts the vertices. The boolean is false when the graph has a
// cycle; the returned slice then only holds the vertices that could be placed.
func (g *Graph) Toposort() ([]string, bool) {
	ids, ok := g.intGraph.TopoSort()

	return g.resolveAll(ids), ok
}

// Unsorted returns, in first-seen order, the vertices a failed Toposort left out.
func (g *Graph) Unsorted(sorted []string) []string {
	ids := make([]int, 0, len(sorted))

	for _, name := range sorted {
		if id, ok := g.symbols.Lookup(name); ok {
			ids = append(ids, id)
		}
	}

	return g.resolveAll(g.intGraph.Unordered(ids))
}

// FindCycle returns the cycle which contains "seed", without repeating the
// seed at the end. Empty if seed is not on a cycle.
func (g *Graph) FindCycle(seed string) []string {
	id, exists := g.symbols.Lookup(seed)
	if !exists {
		return []string{}
	}

	cycleIDs := g.intGraph.FindCycle(id)

	if len(cycleIDs) > 1 && cycleIDs[0] == cycleIDs[len(cycleIDs)-1] {
		cycleIDs = cycleIDs[:len(cycleIDs)-1]
	}

	return g.resolveAll(cycleIDs)
}

// AnyCycle returns the first cycle found among candidates, tried in order.
func (g *Graph) AnyCycle(candidates []string) []string {
	for _, name := range candidates {
		if cycle := g.FindCycle(name); len(cycle) > 0 {
			return cycle
		}
	}

	return []string{}
}

// FindParents returns the other ends of incoming edges, sorted by name.
func (g *Graph) FindParents(to string) []string {
	targetID, exists := g.symbols.Lookup(to)
	if !exists {
		return []string{}
	}

	parents := []string{}

	for u := range g.intGraph.Len() {
		for _, v := range g.intGraph.nodes[u] {
			if v == targetID {
				parents = append(parents, g.symbols.Resolve(u))

				break
			}
		}
	}

	sort.Strings(parents)

	return parents
}

// FindChildren returns the other ends of outgoing edges, sorted by name.
func (g *Graph) FindChildren(from string) []string {
	u, exists := g.symbols.Lookup(from)
	if !exists {
		return []string{}
	}

	children := g.resolveAll(g.intGraph.Successors(u))
	sort.Strings(children)

	return children
}

// Serialize outputs the graph in Graphviz format. Vertex labels are prefixed
// with their position in sorted. Vertices without edges get a line of their own.
func (g *Graph) Serialize(name string, sorted []string) string {
	node2index := map[string]int{}
	for index, node := range sorted {
		node2index[node] = index
	}

	var buffer bytes.Buffer

	fmt.Fprintf(&buffer, "digraph %q {\n", name)

	nodesFrom := g.symbols.Names()
	sort.Strings(nodesFrom)

	for _, nodeFrom := range nodesFrom {
		children := g.FindChildren(nodeFrom)
		if len(children) == 0 && len(g.FindParents(nodeFrom)) == 0 {
			fmt.Fprintf(&buffer, "  \"%d %s\"\n", node2index[nodeFrom], nodeFrom)

			continue
		}

		for _, nodeTo := range children {
			fmt.Fprintf(&buffer, "  \"%d %s\" -> \"%d %s\"\n",
				node2index[nodeFrom], nodeFrom, node2index[nodeTo], nodeTo)
		}
	}

	buffer.WriteString("}")

	return buffer.String()
}

func (g *Graph) resolveAll(ids []int) []string {
	result := make([]string, len(ids))
	for i, id := range ids {
		result[i] = g.symbols.Resolve(id)
	}

	return result
}
