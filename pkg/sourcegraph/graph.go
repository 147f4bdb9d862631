// Package sourcegraph defines the resolved source file model consumed by the
// flattening engine: file nodes, their direct dependencies and the provider
// interface through which a graph is obtained.
package sourcegraph

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel validation errors.
var (
	// ErrDuplicateNode indicates two nodes share a global name.
	ErrDuplicateNode = errors.New("duplicate global name")
	// ErrUnknownNode indicates an edge references a node outside the node set.
	ErrUnknownNode = errors.New("dependency references unknown node")
	// ErrNilNode indicates a nil node was added to the graph.
	ErrNilNode = errors.New("nil file node")
	// ErrNilGraph indicates a provider returned no graph and no error.
	ErrNilGraph = errors.New("provider returned no graph")
	// ErrNilProvider indicates no provider was supplied.
	ErrNilProvider = errors.New("nil graph provider")
)

// FileNode is one resolved source file.
type FileNode struct {
	// GlobalName uniquely identifies the file across the whole graph.
	GlobalName string
	// DisplayName is shown in output banners and may carry a version tag.
	DisplayName string
	// Content is the raw file text.
	Content string
	// Path is the absolute location on disk. Empty for in-memory files.
	Path string
	// Language is the detected source language. May be empty.
	Language string
}

// NewFileNode creates a file node whose display name equals its global name.
func NewFileNode(globalName, content string) *FileNode {
	return &FileNode{
		GlobalName:  globalName,
		DisplayName: globalName,
		Content:     content,
	}
}

// Label returns the display name, falling back to the global name.
func (f *FileNode) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}

	return f.GlobalName
}

// Graph is a dependency graph over file nodes. Nodes keep their insertion
// order; Edges maps a node's global name to the global names it directly
// depends on, in import order.
type Graph struct {
	Nodes []*FileNode
	Edges map[string][]string

	index map[string]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Edges: make(map[string][]string),
		index: make(map[string]int),
	}
}

// AddNode appends a node. Adding a second node with the same global name
// fails with ErrDuplicateNode.
func (g *Graph) AddNode(node *FileNode) error {
	if node == nil {
		return ErrNilNode
	}

	g.ensureIndex()

	if _, exists := g.index[node.GlobalName]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node.GlobalName)
	}

	g.index[node.GlobalName] = len(g.Nodes)
	g.Nodes = append(g.Nodes, node)

	return nil
}

// AddDependency records that "from" directly depends on "to". Both nodes
// must already be in the graph. Repeated dependencies are recorded once.
func (g *Graph) AddDependency(from, to string) error {
	g.ensureIndex()

	if _, ok := g.index[from]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, from)
	}

	if _, ok := g.index[to]; !ok {
		return fmt.Errorf("%w: %s (imported by %s)", ErrUnknownNode, to, from)
	}

	if g.Edges == nil {
		g.Edges = make(map[string][]string)
	}

	for _, existing := range g.Edges[from] {
		if existing == to {
			return nil
		}
	}

	g.Edges[from] = append(g.Edges[from], to)

	return nil
}

// Node looks up a node by global name.
func (g *Graph) Node(globalName string) (*FileNode, bool) {
	g.ensureIndex()

	idx, ok := g.index[globalName]
	if !ok {
		return nil, false
	}

	return g.Nodes[idx], true
}

// DependenciesOf returns the direct dependencies of a node, in import order.
func (g *Graph) DependenciesOf(globalName string) []*FileNode {
	names := g.Edges[globalName]
	deps := make([]*FileNode, 0, len(names))

	for _, name := range names {
		if dep, ok := g.Node(name); ok {
			deps = append(deps, dep)
		}
	}

	return deps
}

// Dependents returns the nodes that directly depend on globalName, in node order.
func (g *Graph) Dependents(globalName string) []*FileNode {
	var dependents []*FileNode

	for _, node := range g.Nodes {
		for _, dep := range g.Edges[node.GlobalName] {
			if dep == globalName {
				dependents = append(dependents, node)

				break
			}
		}
	}

	return dependents
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Validate checks that global names are unique and that every edge endpoint
// is a member of the node set. Missing nodes are never created implicitly.
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))

	for _, node := range g.Nodes {
		if node == nil {
			return ErrNilNode
		}

		if _, dup := seen[node.GlobalName]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, node.GlobalName)
		}

		seen[node.GlobalName] = struct{}{}
	}

	// Walk edges in node order so the reported error is deterministic.
	for _, node := range g.Nodes {
		for _, dep := range g.Edges[node.GlobalName] {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("%w: %s (imported by %s)", ErrUnknownNode, dep, node.GlobalName)
			}
		}
	}

	for from := range g.Edges {
		if _, ok := seen[from]; !ok && len(g.Edges[from]) > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownNode, from)
		}
	}

	return nil
}

// ensureIndex rebuilds the name index for graphs built as struct literals.
func (g *Graph) ensureIndex() {
	if g.index != nil && len(g.index) == len(g.Nodes) {
		return
	}

	g.index = make(map[string]int, len(g.Nodes))

	for i, node := range g.Nodes {
		if node == nil {
			continue
		}

		if _, exists := g.index[node.GlobalName]; !exists {
			g.index[node.GlobalName] = i
		}
	}
}

// Provider supplies a dependency graph. Implementations may block on I/O.
type Provider interface {
	DependencyGraph(ctx context.Context) (*Graph, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (*Graph, error)

// DependencyGraph implements Provider.
func (f ProviderFunc) DependencyGraph(ctx context.Context) (*Graph, error) {
	return f(ctx)
}

// StaticProvider returns a provider that always yields the given graph.
func StaticProvider(graph *Graph) Provider {
	return ProviderFunc(func(ctx context.Context) (*Graph, error) {
		err := ctx.Err()
		if err != nil {
			return nil, fmt.Errorf("static provider: %w", err)
		}

		return graph, nil
	})
}
