// Package flatten merges a dependency graph of source files into a single
// document: dependencies first, boilerplate stripped, one banner per file.
package flatten

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/codeflat/pkg/sourcegraph"
	"github.com/Sumatoshi-tech/codeflat/pkg/strip"
	"github.com/Sumatoshi-tech/codeflat/pkg/textutil"
	"github.com/Sumatoshi-tech/codeflat/pkg/toposort"
)

const (
	// DefaultToolName is the tool named in the banner when Options.ToolName is empty.
	DefaultToolName = "codeflat"
	// DefaultDialect is the pragma dialect used when Options.Dialect is empty.
	DefaultDialect = "solidity"

	bannerFormat = "// Sources flattened with %s v%s\n"
	pragmaFormat = "pragma %s %s;\n"
	fileFormat   = "\n\n// File %s\n\n%s\n"
)

// Options configures the document header.
type Options struct {
	// DeclarationVersion is emitted once in the global pragma line,
	// whatever the individual files declared.
	DeclarationVersion string
	// ToolVersion is shown in the banner only.
	ToolVersion string
	// ToolName is shown in the banner. Defaults to DefaultToolName.
	ToolName string
	// Dialect is the dialect of the emitted pragma line. Defaults to DefaultDialect.
	Dialect string
	// StripDialect limits per-file pragma removal to one dialect.
	// Empty removes the first pragma of any dialect.
	StripDialect string
}

func (o Options) withDefaults() Options {
	if o.ToolName == "" {
		o.ToolName = DefaultToolName
	}

	if o.Dialect == "" {
		o.Dialect = DefaultDialect
	}

	return o
}

// Section describes one file block of a flattened document.
type Section struct {
	GlobalName      string `json:"global_name"      yaml:"global_name"`
	DisplayName     string `json:"display_name"     yaml:"display_name"`
	DeclaredVersion string `json:"declared_version" yaml:"declared_version,omitempty"`
	SourceBytes     int    `json:"source_bytes"     yaml:"source_bytes"`
	StrippedBytes   int    `json:"stripped_bytes"   yaml:"stripped_bytes"`
	Lines           int    `json:"lines"            yaml:"lines"`
	Imports         int    `json:"imports"          yaml:"imports"`
}

// Flatten orders the graph's files and merges them into one document.
// Ordering errors are returned unchanged and no document is produced.
func Flatten(graph *sourcegraph.Graph, opts Options) (string, error) {
	ordered, err := toposort.Order(graph)
	if err != nil {
		return "", err
	}

	document, _ := assemble(ordered, opts)

	return document, nil
}

// assemble renders already ordered files.
func assemble(ordered []*sourcegraph.FileNode, opts Options) (string, []Section) {
	opts = opts.withDefaults()
	stripper := strip.Stripper{Dialect: opts.StripDialect}
	sections := make([]Section, 0, len(ordered))

	var sb strings.Builder

	fmt.Fprintf(&sb, bannerFormat, opts.ToolName, opts.ToolVersion)
	fmt.Fprintf(&sb, pragmaFormat, opts.Dialect, opts.DeclarationVersion)

	for _, file := range ordered {
		body := stripper.Strip(file.Content)
		declared, _ := stripper.DeclaredVersion(file.Content)

		fmt.Fprintf(&sb, fileFormat, file.Label(), body)

		sections = append(sections, Section{
			GlobalName:      file.GlobalName,
			DisplayName:     file.Label(),
			DeclaredVersion: declared,
			SourceBytes:     len(file.Content),
			StrippedBytes:   len(body),
			Lines:           textutil.CountLines(body),
			Imports:         len(stripper.Imports(file.Content)),
		})
	}

	return strings.TrimSpace(sb.String()), sections
}
