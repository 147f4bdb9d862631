package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/codeflat/pkg/flatten"
	"github.com/Sumatoshi-tech/codeflat/pkg/report"
)

// Tool name constants.
const (
	ToolNameFlatten = "codeflat_flatten"
	ToolNameOrder   = "codeflat_order"
)

// Input size limits.
const (
	// MaxSourceInputBytes is the maximum total size of inline files (4 MB).
	MaxSourceInputBytes = 4 << 20
)

// Sentinel errors for tool input validation.
var (
	// ErrNoSources indicates neither inline files nor a project root were given.
	ErrNoSources = errors.New("either files or root is required")
	// ErrBothSources indicates inline files and a project root were both given.
	ErrBothSources = errors.New("files and root are mutually exclusive")
	// ErrRootNotAbsolute indicates the root is not an absolute path.
	ErrRootNotAbsolute = errors.New("root must be an absolute path")
	// ErrNoEntryFiles indicates a project root was given without entries.
	ErrNoEntryFiles = errors.New("entries are required with root")
	// ErrEmptyFileName indicates an inline file has no name.
	ErrEmptyFileName = errors.New("file name must not be empty")
	// ErrSourceTooLarge indicates the inline files exceed the size limit.
	ErrSourceTooLarge = errors.New("inline files exceed maximum size")
)

// Input types (auto-generate JSON schemas via struct tags).

// SourceFile is one inline file.
type SourceFile struct {
	Name        string   `json:"name"                   jsonschema:"unique file name, also used in the File banner"`
	Content     string   `json:"content"                jsonschema:"file text"`
	DisplayName string   `json:"display_name,omitempty" jsonschema:"optional banner name, e.g. with a version tag"`
	Imports     []string `json:"imports,omitempty"      jsonschema:"names of the inline files this file depends on, in import order"`
}

// SourceInput selects the files to work on: inline files or a project on disk.
type SourceInput struct {
	Files      []SourceFile `json:"files,omitempty"      jsonschema:"inline files; mutually exclusive with root"`
	Root       string       `json:"root,omitempty"       jsonschema:"absolute project directory"`
	Entries    []string     `json:"entries,omitempty"    jsonschema:"entry files relative to root"`
	Roots      []string     `json:"roots,omitempty"      jsonschema:"library directories for bare imports (default: node_modules)"`
	Remappings []string     `json:"remappings,omitempty" jsonschema:"import remappings as prefix=target"`
}

// FlattenInput is the input schema for the codeflat_flatten tool.
type FlattenInput struct {
	SourceInput

	DeclarationVersion string `json:"declaration_version"  jsonschema:"version constraint emitted in the single pragma line"`
	Dialect            string `json:"dialect,omitempty"     jsonschema:"pragma dialect (default: solidity)"`
}

// OrderInput is the input schema for the codeflat_order tool.
type OrderInput struct {
	SourceInput
}

// Output types.

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// FlattenOutput is the result of codeflat_flatten.
type FlattenOutput struct {
	Document string            `json:"document"`
	Order    []string          `json:"order"`
	Sections []flatten.Section `json:"sections"`
}

// OrderOutput is the result of codeflat_order.
type OrderOutput struct {
	Order []string      `json:"order"`
	Files []report.File `json:"files"`
}

// CycleOutput is returned when the files form a dependency cycle.
type CycleOutput struct {
	Error    string   `json:"error"`
	Cycle    []string `json:"cycle"`
	Unsorted []string `json:"unsorted"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateSourceInput checks common source input constraints.
func validateSourceInput(input SourceInput) error {
	switch {
	case len(input.Files) == 0 && input.Root == "":
		return ErrNoSources
	case len(input.Files) > 0 && input.Root != "":
		return ErrBothSources
	case input.Root != "":
		if !filepath.IsAbs(input.Root) {
			return fmt.Errorf("%w: %s", ErrRootNotAbsolute, input.Root)
		}

		if len(input.Entries) == 0 {
			return ErrNoEntryFiles
		}

		return nil
	}

	total := 0

	for _, file := range input.Files {
		if file.Name == "" {
			return ErrEmptyFileName
		}

		total += len(file.Content)
	}

	if total > MaxSourceInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrSourceTooLarge, total, MaxSourceInputBytes)
	}

	return nil
}
