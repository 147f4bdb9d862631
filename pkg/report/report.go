// Package report renders flatten results for humans and tools: a file table,
// Graphviz, YAML and JSON exports, and a diff against a committed document.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/codeflat/pkg/flatten"
	"github.com/Sumatoshi-tech/codeflat/pkg/sourcegraph"
	"github.com/Sumatoshi-tech/codeflat/pkg/toposort"
)

// ErrUnknownFormat indicates an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Format selects a rendering.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatDOT   Format = "dot"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

const jsonIndent = "  "

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatTable, FormatDOT, FormatYAML, FormatJSON}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))

	for _, known := range Formats() {
		if format == known {
			return format, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// File is one row of a report, in output order.
type File struct {
	Position     int      `json:"position"     yaml:"position"`
	Dependencies []string `json:"dependencies" yaml:"dependencies,omitempty"`

	flatten.Section `yaml:",inline"`
}

// Report summarizes a flatten run.
type Report struct {
	Files         []File `json:"files"          yaml:"files"`
	SourceBytes   int    `json:"source_bytes"   yaml:"source_bytes"`
	DocumentBytes int    `json:"document_bytes" yaml:"document_bytes"`

	graph *sourcegraph.Graph
}

// New builds a report from a successful run.
func New(result *flatten.Result) *Report {
	rep := &Report{
		Files:         make([]File, 0, len(result.Sections)),
		DocumentBytes: len(result.Document),
		graph:         result.Graph,
	}

	for i, section := range result.Sections {
		file := File{Position: i, Section: section}
		if result.Graph != nil {
			file.Dependencies = append(file.Dependencies, result.Graph.Edges[section.GlobalName]...)
		}

		rep.Files = append(rep.Files, file)
		rep.SourceBytes += section.SourceBytes
	}

	return rep
}

// Order returns the global names in output order.
func (r *Report) Order() []string {
	names := make([]string, len(r.Files))
	for i, file := range r.Files {
		names[i] = file.GlobalName
	}

	return names
}

// Write renders the report in the given format.
func (r *Report) Write(w io.Writer, format Format) error {
	var (
		out string
		err error
	)

	switch format {
	case FormatTable:
		out = r.Table()
	case FormatDOT:
		out = r.DOT()
	case FormatYAML:
		out, err = r.YAML()
	case FormatJSON:
		out, err = r.JSON()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, out)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// Table renders the files as a table with humanized sizes.
func (r *Report) Table() string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"#", "File", "Pragma", "Imports", "Lines", "Source", "Flattened"})

	for _, file := range r.Files {
		tbl.AppendRow(table.Row{
			file.Position + 1,
			file.DisplayName,
			file.DeclaredVersion,
			file.Imports,
			file.Lines,
			humanize.Bytes(uint64(file.SourceBytes)),
			humanize.Bytes(uint64(file.StrippedBytes)),
		})
	}

	tbl.AppendFooter(table.Row{
		"", fmt.Sprintf("Total: %d files", len(r.Files)), "", "", "",
		humanize.Bytes(uint64(r.SourceBytes)),
		humanize.Bytes(uint64(r.DocumentBytes)),
	})

	return tbl.Render()
}

// DOT renders the dependency graph in Graphviz format, each file labeled
// with its output position.
func (r *Report) DOT() string {
	sorter := toposort.NewGraph()

	if r.graph != nil {
		sorter = toposort.Build(r.graph)
	}

	for _, file := range r.Files {
		sorter.AddNode(file.GlobalName)
	}

	return sorter.Serialize(flatten.DefaultToolName, r.Order())
}

// YAML renders the report as YAML.
func (r *Report) YAML() (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("yaml encode: %w", err)
	}

	return strings.TrimRight(string(data), "\n"), nil
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", jsonIndent)
	if err != nil {
		return "", fmt.Errorf("json encode: %w", err)
	}

	return string(data), nil
}
