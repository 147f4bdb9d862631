package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/codeflat/pkg/flatten"
	"github.com/Sumatoshi-tech/codeflat/pkg/report"
	"github.com/Sumatoshi-tech/codeflat/pkg/resolver"
	"github.com/Sumatoshi-tech/codeflat/pkg/sourcegraph"
	"github.com/Sumatoshi-tech/codeflat/pkg/toposort"
)

// defaultLibraryRoot is searched for bare imports when no roots are given.
const defaultLibraryRoot = "node_modules"

func (s *Server) handleFlatten(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input FlattenInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	result, err := s.run(ctx, input.SourceInput, flatten.Options{
		DeclarationVersion: input.DeclarationVersion,
		Dialect:            input.Dialect,
		ToolVersion:        s.deps.ToolVersion,
	})
	if err != nil {
		return failure(err)
	}

	order := make([]string, len(result.Files))
	for i, file := range result.Files {
		order[i] = file.GlobalName
	}

	return jsonResult(FlattenOutput{
		Document: result.Document,
		Order:    order,
		Sections: result.Sections,
	})
}

func (s *Server) handleOrder(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input OrderInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	result, err := s.run(ctx, input.SourceInput, flatten.Options{ToolVersion: s.deps.ToolVersion})
	if err != nil {
		return failure(err)
	}

	rep := report.New(result)

	return jsonResult(OrderOutput{Order: rep.Order(), Files: rep.Files})
}

// run validates the input, picks the provider and runs the assembler.
func (s *Server) run(ctx context.Context, input SourceInput, opts flatten.Options) (*flatten.Result, error) {
	err := validateSourceInput(input)
	if err != nil {
		return nil, err
	}

	provider, err := s.provider(input)
	if err != nil {
		return nil, err
	}

	assembler := flatten.NewAssembler(opts, flatten.Deps{
		Logger:  s.deps.Logger,
		Tracer:  s.deps.Tracer,
		Metrics: s.deps.Metrics,
		Stats:   s.deps.Stats,
	})

	return assembler.Run(ctx, provider)
}

func (s *Server) provider(input SourceInput) (sourcegraph.Provider, error) {
	if len(input.Files) > 0 {
		return inlineProvider(input.Files), nil
	}

	remappings, err := resolver.ParseRemappings(input.Remappings)
	if err != nil {
		return nil, err
	}

	roots := input.Roots
	if len(roots) == 0 {
		roots = []string{defaultLibraryRoot}
	}

	return resolver.New(resolver.Config{
		Root:       input.Root,
		Entries:    input.Entries,
		Roots:      roots,
		Remappings: remappings,
	}, resolver.Deps{
		Logger:         s.deps.Logger,
		Tracer:         s.deps.Tracer,
		TracerProvider: s.deps.TracerProvider,
		Cache:          s.deps.Cache,
		Stats:          s.deps.Stats,
	})
}

// inlineProvider builds the graph from inline files on each call.
func inlineProvider(files []SourceFile) sourcegraph.Provider {
	return sourcegraph.ProviderFunc(func(ctx context.Context) (*sourcegraph.Graph, error) {
		err := ctx.Err()
		if err != nil {
			return nil, fmt.Errorf("inline files: %w", err)
		}

		graph := sourcegraph.NewGraph()

		for _, file := range files {
			node := sourcegraph.NewFileNode(file.Name, file.Content)
			if file.DisplayName != "" {
				node.DisplayName = file.DisplayName
			}

			err = graph.AddNode(node)
			if err != nil {
				return nil, err
			}
		}

		for _, file := range files {
			for _, dep := range file.Imports {
				err = graph.AddDependency(file.Name, dep)
				if err != nil {
					return nil, err
				}
			}
		}

		return graph, nil
	})
}

// failure turns a run error into a tool error, with the cycle as structured
// content when there is one.
func failure(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	var cyclic *toposort.CyclicDependencyError
	if !errors.As(err, &cyclic) {
		return errorResult(err)
	}

	result, output, encodeErr := jsonResult(CycleOutput{
		Error:    err.Error(),
		Cycle:    cyclic.Cycle,
		Unsorted: cyclic.Unsorted,
	})
	result.IsError = true

	return result, output, encodeErr
}
