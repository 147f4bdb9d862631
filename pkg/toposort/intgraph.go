package toposort

import "sort"

// IntGraph is a directed graph over dense integer vertex IDs.
// An edge u -> v means u must be emitted before v.
type IntGraph struct {
	// nodes is an adjacency list where nodes[u] holds v for every edge u -> v,
	// in insertion order.
	nodes [][]int
	// inDegree stores the number of incoming edges for each vertex.
	inDegree []int
}

// NewIntGraph creates a new IntGraph.
func NewIntGraph() *IntGraph {
	return &IntGraph{
		nodes:    make([][]int, 0),
		inDegree: make([]int, 0),
	}
}

// EnsureCapacity grows the graph so that IDs below n are valid vertices.
func (g *IntGraph) EnsureCapacity(n int) {
	if n <= len(g.nodes) {
		return
	}

	newNodes := make([][]int, n)
	copy(newNodes, g.nodes)
	g.nodes = newNodes

	newInDegree := make([]int, n)
	copy(newInDegree, g.inDegree)
	g.inDegree = newInDegree
}

// AddNode makes id a vertex. Returns true if the graph grew.
func (g *IntGraph) AddNode(id int) bool {
	if id < len(g.nodes) {
		return false
	}

	g.EnsureCapacity(id + 1)

	return true
}

// AddEdge adds the edge u -> v. Returns false if it already existed.
// Self edges are kept: they make the graph cyclic.
func (g *IntGraph) AddEdge(u, v int) bool {
	g.EnsureCapacity(max(u, v) + 1)

	for _, neighbor := range g.nodes[u] {
		if neighbor == v {
			return false
		}
	}

	g.nodes[u] = append(g.nodes[u], v)
	g.inDegree[v]++

	return true
}

// Successors returns the direct successors of u in insertion order.
func (g *IntGraph) Successors(u int) []int {
	if u < 0 || u >= len(g.nodes) {
		return nil
	}

	out := make([]int, len(g.nodes[u]))
	copy(out, g.nodes[u])

	return out
}

// Len returns the number of vertices.
func (g *IntGraph) Len() int {
	return len(g.nodes)
}

// TopoSort runs Kahn's algorithm. Among ready vertices the smallest ID is
// emitted first, so the result only depends on ID assignment order.
// On a cycle it returns the vertices it could order and false.
func (g *IntGraph) TopoSort() ([]int, bool) {
	n := len(g.nodes)
	if n == 0 {
		return []int{}, true
	}

	inDegree := make([]int, n)
	copy(inDegree, g.inDegree)

	queue := make([]int, 0)

	for i := range n {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	result := make([]int, 0, n)

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		result = append(result, u)

		for _, v := range g.nodes[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				insertSorted(&queue, v)
			}
		}
	}

	return result, len(result) == n
}

// Unordered returns, in ID order, the vertices missing from a partial sort.
func (g *IntGraph) Unordered(sorted []int) []int {
	done := make([]bool, len(g.nodes))
	for _, id := range sorted {
		done[id] = true
	}

	var rest []int

	for id, ok := range done {
		if !ok {
			rest = append(rest, id)
		}
	}

	return rest
}

// FindCycle returns the shortest cycle through start as start, ..., start.
// Returns an empty slice if start is not on a cycle.
func (g *IntGraph) FindCycle(start int) []int {
	if start < 0 || start >= len(g.nodes) {
		return []int{}
	}

	parent := map[int]int{start: -1}
	queue := []int{start}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range g.nodes[u] {
			if v == start {
				return closeCycle(parent, start, u)
			}

			if _, visited := parent[v]; !visited {
				parent[v] = u
				queue = append(queue, v)
			}
		}
	}

	return []int{}
}

// closeCycle rebuilds start -> ... -> last -> start from BFS parents.
func closeCycle(parent map[int]int, start, last int) []int {
	cycle := []int{start}

	for curr := last; curr != start && curr != -1; curr = parent[curr] {
		cycle = append(cycle, curr)
	}

	cycle = append(cycle, start)

	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}

	return cycle
}

// insertSorted inserts v into the sorted slice s.
func insertSorted(s *[]int, v int) {
	i := sort.SearchInts(*s, v)
	*s = append(*s, 0)
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = v
}
